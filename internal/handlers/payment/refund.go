package payment

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
)

// GetAllRefunds liste les remboursements carte envoyés à Stripe (Admin).
// Les annulations réglées en portefeuille n'apparaissent pas ici : elles
// sont des crédits dans ks_users.wallet_transactions.
func GetAllRefunds(c *gin.Context) {
	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT refund_id, payment_intent_id, stripe_refund_id, amount_cents, created_at
		FROM ks_orders.refunds`).Iter()

	var refunds []models.Refund
	var r models.Refund
	for iter.Scan(&r.ID, &r.PaymentIntentID, &r.StripeRefundID, &r.AmountCents, &r.CreatedAt) {
		refunds = append(refunds, r)
	}
	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur récupération remboursements: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	var totalCents int64
	for _, r := range refunds {
		totalCents += r.AmountCents
	}

	c.JSON(http.StatusOK, gin.H{
		"refunds":     refunds,
		"total":       len(refunds),
		"total_cents": totalCents,
	})
}
