package domain

import (
	"math"
	"time"
)

// Product is the read-only catalog projection consumed by the search engine.
// Prices are in minor currency units (cents). The search service never
// mutates catalog rows; ownership of this data lives in the catalog store.
type Product struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	Description      string         `json:"description"`
	ShortDescription string         `json:"short_description,omitempty"`
	Price            int64          `json:"price"`
	OriginalPrice    *int64         `json:"original_price,omitempty"`
	AvgRating        float64        `json:"avg_rating"`
	ReviewCount      int            `json:"review_count"`
	Stock            int            `json:"stock"`
	IsDigital        bool           `json:"is_digital"`
	IsFeatured       bool           `json:"is_featured"`
	IsActive         bool           `json:"is_active"`
	TrackInventory   bool           `json:"track_inventory"`
	WishlistCount    int            `json:"wishlist_count"`
	ViewCount        int            `json:"view_count"`
	DownloadCount    int            `json:"download_count"`
	CategoryID       *string        `json:"category_id,omitempty"`
	Category         *Category      `json:"category,omitempty"`
	Images           []ProductImage `json:"images,omitempty"`
	Tags             []Tag          `json:"tags,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// DiscountPercentage returns the rounded percent drop from the original
// price to the current price, or nil when no original price is set or the
// original price is not an actual markup over the current one.
func (p *Product) DiscountPercentage() *int {
	if p.OriginalPrice == nil || *p.OriginalPrice <= 0 || *p.OriginalPrice <= p.Price {
		return nil
	}
	pct := int(math.Round(float64(*p.OriginalPrice-p.Price) / float64(*p.OriginalPrice) * 100))
	return &pct
}

// Category represents a product category reference.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ProductCount int    `json:"product_count,omitempty"`
}

// Tag is a product tag used for similarity matching and tag filtering.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProductImage represents a main image attached to a product.
type ProductImage struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	AltText   string `json:"alt_text,omitempty"`
	IsPrimary bool   `json:"is_primary"`
	SortOrder int    `json:"sort_order"`
}
