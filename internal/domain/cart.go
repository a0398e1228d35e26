package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string     `bson:"user_id" json:"userId"`
	Items     []CartItem `bson:"products" json:"products"`
	CartTotal float64    `bson:"cart_total" json:"cartTotal"`
	Currency  string     `bson:"currency" json:"currency"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

type CartItem struct {
	ProductID  string  `bson:"product_id" json:"productId"`
	Name       string  `bson:"name" json:"name"`
	Price      float64 `bson:"price" json:"price"`
	Quantity   int     `bson:"quantity" json:"quantity"`
	TotalPrice float64 `bson:"total_price" json:"totalPrice"`
	ImageURL   string  `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
}

// RequestedItem is one line of an add-to-cart request. Price and Name are
// only used when the catalog can't resolve the product.
type RequestedItem struct {
	ProductID string
	Quantity  int
	Price     *float64
	Name      string
}

// NormalizeProductID returns the comparable form of a product id, so that
// 42 and "42" (or " 42 ") address the same cart line.
func NormalizeProductID(id string) string {
	return strings.TrimSpace(id)
}

// Recalculate rewrites every line total from price and quantity and derives
// CartTotal from the lines. Stored totals are never trusted.
func (c *Cart) Recalculate() {
	var total float64
	for i := range c.Items {
		c.Items[i].TotalPrice = c.Items[i].Price * float64(c.Items[i].Quantity)
		total += c.Items[i].TotalPrice
	}
	if total < 0 {
		total = 0
	}
	c.CartTotal = total
}

// FindItem returns the index of the line holding productID, or -1.
func (c *Cart) FindItem(productID string) int {
	key := NormalizeProductID(productID)
	for i, item := range c.Items {
		if NormalizeProductID(item.ProductID) == key {
			return i
		}
	}
	return -1
}

// Merge folds item into the cart. An existing line keeps its price and gets
// the extra quantity; an empty name is backfilled.
func (c *Cart) Merge(item CartItem) {
	idx := c.FindItem(item.ProductID)
	if idx < 0 {
		item.ProductID = NormalizeProductID(item.ProductID)
		item.TotalPrice = item.Price * float64(item.Quantity)
		c.Items = append(c.Items, item)
		return
	}

	existing := &c.Items[idx]
	existing.Quantity += item.Quantity
	existing.TotalPrice = existing.Price * float64(existing.Quantity)
	if existing.Name == "" && item.Name != "" {
		existing.Name = item.Name
	}
	if existing.ImageURL == "" && item.ImageURL != "" {
		existing.ImageURL = item.ImageURL
	}
}

// RemoveItem drops the line holding productID and reports whether one was found.
func (c *Cart) RemoveItem(productID string) bool {
	idx := c.FindItem(productID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return true
}

// Clear empties the cart but keeps the document itself.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.CartTotal = 0
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// CloneItems copies the lines by value so later cart mutations can't leak
// into whoever holds the copy.
func CloneItems(items []CartItem) []CartItem {
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}

// RoundMoney rounds an amount half away from zero to two decimals.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
