package domain

// Product is the catalog's view of an item for sale.
type Product struct {
	ID        string   `bson:"_id,omitempty"`
	ProductID string   `bson:"product_id"`
	Name      string   `bson:"name"`
	Price     float64  `bson:"price"`
	ImageURL  string   `bson:"image_url,omitempty"`
	Images    []string `bson:"images,omitempty"`
}

// PrimaryImage prefers the single image url and falls back to the first gallery image.
func (p Product) PrimaryImage() string {
	if p.ImageURL != "" {
		return p.ImageURL
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}
