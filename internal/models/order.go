package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts d'un article de commande. Les transitions autorisées sont
// définies dans le package ledger.
const (
	ItemProcessing      = "processing"
	ItemShipped         = "shipped"
	ItemDelivered       = "delivered"
	ItemCancelled       = "cancelled"
	ItemReturned        = "returned"
	ItemReturnRequested = "return_requested"
)

// Statuts de paiement d'une commande.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// Méthodes de paiement acceptées.
const (
	PayCOD    = "cod"
	PayUPI    = "upi"
	PayCard   = "card"
	PayWallet = "wallet"
)

type Order struct {
	ID              gocql.UUID  `json:"id"`
	OrderNumber     string      `json:"order_number"` // VC-YYYYMMDD-XXXX
	UserID          string      `json:"user_id"`
	AddressID       gocql.UUID  `json:"address_id"`
	Items           []OrderItem `json:"items"`
	ShippingID      string      `json:"shipping_id"`
	ShippingName    string      `json:"shipping_name"`
	ShippingCents   int64       `json:"shipping_cents"`
	PaymentMethod   string      `json:"payment_method"` // cod, upi, card, wallet
	PaymentStatus   string      `json:"payment_status"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	Status          string      `json:"status"` // dérivé des statuts des articles
	CouponCode      string      `json:"coupon_code,omitempty"`
	CouponCents     int64       `json:"coupon_cents"`
	SubtotalCents   int64       `json:"subtotal_cents"`
	DiscountCents   int64       `json:"discount_cents"`
	TotalCents      int64       `json:"total_cents"`
	InventoryTaken  bool        `json:"-"` // stock déjà décompté (confirmation de paiement)
	Version         int64       `json:"-"` // concurrence optimiste (LWT Scylla)
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID                gocql.UUID `json:"id"`
	ProductID         gocql.UUID `json:"product_id"`
	VariantID         gocql.UUID `json:"variant_id"`
	ProductName       string     `json:"product_name"`
	Flavor            string     `json:"flavor"`
	PackSize          string     `json:"pack_size"`
	PriceCents        int64      `json:"price_cents"`
	SalePriceCents    int64      `json:"sale_price_cents"`
	Quantity          int        `json:"quantity"`
	ImageURL          string     `json:"image_url,omitempty"`
	Status            string     `json:"status"`
	Reason            string     `json:"reason,omitempty"`
	ReturnRequest     bool       `json:"return_request"`
	ReturnRequestedAt *time.Time `json:"return_requested_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
}

// LineTotalCents retourne le montant payé pour la ligne (prix promo x quantité).
func (it OrderItem) LineTotalCents() int64 {
	return it.SalePriceCents * int64(it.Quantity)
}

// Active indique si l'article compte encore dans les totaux de la commande.
func (it OrderItem) Active() bool {
	return it.Status != ItemCancelled && it.Status != ItemReturned
}
