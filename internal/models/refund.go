package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Refund trace un remboursement carte parti vers la passerelle de paiement.
// Les remboursements wallet/UPI sont des crédits portefeuille, visibles
// dans les transactions du portefeuille.
type Refund struct {
	ID              gocql.UUID `json:"id"`
	PaymentIntentID string     `json:"payment_intent_id"`
	StripeRefundID  string     `json:"stripe_refund_id"`
	AmountCents     int64      `json:"amount_cents"`
	CreatedAt       time.Time  `json:"created_at"`
}
