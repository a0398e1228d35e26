package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoProductRepository is a read-only view over the catalog collection.
type MongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{collection: db.Collection(productsCollection)}
}

func (m *MongoProductRepository) FindByProductID(ctx context.Context, productID string) (*domain.Product, error) {
	return m.findOne(ctx, bson.M{"product_id": productID})
}

// FindByObjectID looks a product up by its store-internal id. Strings that
// are not valid ObjectIDs are simply not found.
func (m *MongoProductRepository) FindByObjectID(ctx context.Context, hexID string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, ErrProductNotFound
	}
	return m.findOne(ctx, bson.M{"_id": oid})
}

func (m *MongoProductRepository) findOne(ctx context.Context, filter bson.M) (*domain.Product, error) {
	var p domain.Product
	if err := m.collection.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &p, nil
}
