package payment

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"vitacart_back_end/internal/ledger"
)

// ✅ Webhook Stripe
func StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	var event stripe.Event

	if secret == "" {
		log.Println("⚠️ Pas de STRIPE_WEBHOOK_SECRET — mode test")
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Println("❌ JSON invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON invalide"})
			return
		}
	} else {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), secret)
		if err != nil {
			log.Println("❌ Signature Stripe invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
	}

	log.Printf("📥 Événement Stripe reçu : %s", event.Type)
	handleStripeEvent(event)

	c.Status(http.StatusOK)
}

// handleStripeEvent confirme le paiement de la commande rattachée au
// PaymentIntent. Idempotent : Stripe rejoue les webhooks.
func handleStripeEvent(event stripe.Event) {
	switch event.Type {
	case "payment_intent.succeeded":
	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Println("❌ Erreur décodage PaymentIntent:", err)
			return
		}
		order, err := ledger.Default().FailPayment(context.Background(), pi.ID)
		if err != nil {
			log.Printf("❌ Marquage échec paiement %s impossible: %v", pi.ID, err)
			return
		}
		log.Printf("⚠️ Paiement échoué: %s (commande %s)", pi.ID, order.OrderNumber)
		return
	default:
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Println("❌ Erreur décodage PaymentIntent:", err)
		return
	}

	userEmail := pi.Metadata["email"]
	log.Printf("🧠 PaymentIntent confirmé : %s (commande %s)", pi.ID, pi.Metadata["order_number"])

	ctx := context.Background()
	order, err := ledger.Default().ConfirmPayment(ctx, pi.ID)
	if err != nil {
		log.Printf("❌ Confirmation paiement %s échouée: %v", pi.ID, err)
		return
	}

	log.Printf("✅ Commande %s payée, stock décompté", order.OrderNumber)

	if userEmail != "" {
		go sendOrderConfirmation(*order, userEmail)
	}
}
