package ledger

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/refund"

	"vitacart_back_end/internal/database"
)

// StripeRefunder rembourse les paiements carte via l'API Stripe et trace
// chaque remboursement dans ks_orders.refunds pour l'écran admin.
type StripeRefunder struct{}

func (r *StripeRefunder) RefundCard(ctx context.Context, paymentIntentID string, amountCents int64) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountCents),
		Reason:        stripe.String("requested_by_customer"),
	}
	params.Context = ctx

	stripeRefund, err := refund.New(params)
	if err != nil {
		return "", err
	}

	session, sErr := database.GetOrdersSession()
	if sErr == nil {
		sErr = session.Query(`
			INSERT INTO ks_orders.refunds (refund_id, payment_intent_id, stripe_refund_id, amount_cents, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, gocql.TimeUUID(), paymentIntentID, stripeRefund.ID, amountCents, time.Now()).WithContext(ctx).Exec()
	}
	if sErr != nil {
		// Le remboursement Stripe est parti : on journalise sans échouer.
		log.Printf("⚠️ Remboursement %s non tracé en base: %v", stripeRefund.ID, sErr)
	}

	log.Printf("💰 Remboursement Stripe %s: %d centimes sur %s", stripeRefund.ID, amountCents, paymentIntentID)
	return stripeRefund.ID, nil
}

var (
	defaultLedger     *Ledger
	defaultLedgerOnce sync.Once
)

// Default retourne l'instance partagée du ledger, câblée sur ScyllaDB,
// Redis et Stripe. Utilisée par tous les handlers HTTP.
func Default() *Ledger {
	defaultLedgerOnce.Do(func() {
		defaultLedger = NewScyllaLedger(&StripeRefunder{})
	})
	return defaultLedger
}
