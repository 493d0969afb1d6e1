package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Product struct {
	ID          gocql.UUID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Brand       string     `json:"brand"`
	CategoryID  gocql.UUID `json:"category_id"`
	ImageURLs   []string   `json:"image_urls"`
	Tags        []string   `json:"tags"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Variant est une déclinaison (saveur) d'un produit. Le prix et le stock
// vivent au niveau du conditionnement (PackSize), pas de la variante.
type Variant struct {
	ID        gocql.UUID `json:"id"`
	ProductID gocql.UUID `json:"product_id"`
	Flavor    string     `json:"flavor"`
	PackSizes []PackSize `json:"pack_sizes,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PackSize est un conditionnement achetable d'une variante.
// Invariant : Quantity >= 0.
type PackSize struct {
	VariantID      gocql.UUID `json:"variant_id"`
	Size           string     `json:"size"` // ex: "500g", "1kg", "2kg"
	PriceCents     int64      `json:"price_cents"`
	SalePriceCents int64      `json:"sale_price_cents"`
	Quantity       int        `json:"quantity"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
