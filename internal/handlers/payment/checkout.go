package payment

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/ledger"
	"vitacart_back_end/internal/models"
	"vitacart_back_end/internal/utils"
)

// Checkout crée une commande depuis le panier Redis : validation de
// l'adresse, du stock et du coupon, puis PaymentIntent Stripe pour les
// paiements carte/UPI. Les commandes cod/wallet sont finalisées en ligne.
func Checkout(c *gin.Context) {
	var req struct {
		AddressID     string `json:"address_id" binding:"required"`
		ShippingID    string `json:"shipping_id" binding:"required"`
		PaymentMethod string `json:"payment_method" binding:"required"`
		CouponCode    string `json:"coupon_code"` // Optionnel
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")
	if userID == "" || email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	// ✅ 1. Récupérer le panier depuis Redis
	ctx := context.Background()

	cartData, err := database.Redis.Get(ctx, "cart:"+userID).Result()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide ou introuvable"})
		return
	}

	var cartItems []models.CartItem
	if err := json.Unmarshal([]byte(cartData), &cartItems); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}
	if len(cartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		return
	}

	// ✅ 2. Vérifier que l'adresse appartient à l'utilisateur
	addressUUID, err := uuid.Parse(req.AddressID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID adresse invalide"})
		return
	}

	usersSession, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var addressUserID string
	err = usersSession.Query("SELECT user_id FROM ks_users.addresses WHERE address_id = ?",
		gocql.UUID(addressUUID)).Scan(&addressUserID)
	if err != nil || addressUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Adresse introuvable ou non autorisée"})
		return
	}

	// ✅ 3. Option de livraison, avec seuil de gratuité sur le total panier
	l := ledger.Default()

	var cartTotalCents int64
	variantStore := &ledger.ScyllaVariantStore{}
	for _, item := range cartItems {
		variantID, err := gocql.ParseUUID(item.VariantID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID variante invalide: " + item.VariantID})
			return
		}
		ps, err := variantStore.GetPackSize(ctx, variantID, item.PackSize)
		if err != nil {
			respondLedgerError(c, err)
			return
		}
		cartTotalCents += ps.SalePriceCents * int64(item.Quantity)
	}

	shipping := shippingOptionByID(req.ShippingID, cartTotalCents)
	if shipping == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Option de livraison inconnue"})
		return
	}

	// ✅ 4. Créer la commande (stock, coupon et portefeuille vérifiés ici)
	order, err := l.PlaceOrder(ctx, ledger.PlaceOrderInput{
		UserID:        userID,
		Items:         cartItems,
		AddressID:     gocql.UUID(addressUUID),
		Shipping:      *shipping,
		PaymentMethod: req.PaymentMethod,
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	// ✅ 5. Paiement carte/UPI : PaymentIntent Stripe, confirmation au webhook
	if req.PaymentMethod == models.PayCard || req.PaymentMethod == models.PayUPI {
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(order.TotalCents),
			Currency: stripe.String("eur"),
			AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
				Enabled: stripe.Bool(true),
			},
			Metadata: map[string]string{
				"user_id":      userID,
				"email":        email,
				"order_id":     order.ID.String(),
				"order_number": order.OrderNumber,
			},
		}

		intent, err := paymentintent.New(params)
		if err != nil {
			log.Printf("❌ Erreur Stripe: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création paiement", "details": err.Error()})
			return
		}

		order.PaymentIntentID = intent.ID
		if err := l.Orders.Update(ctx, order, order.Version); err != nil {
			log.Printf("❌ Erreur rattachement PaymentIntent %s à %s: %v", intent.ID, order.OrderNumber, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur enregistrement paiement"})
			return
		}
		order.Version++

		log.Printf("💳 Checkout %s: intent %s (%d centimes) pour %s", order.OrderNumber, intent.ID, order.TotalCents, email)

		c.JSON(http.StatusOK, gin.H{
			"client_secret": intent.ClientSecret,
			"payment_id":    intent.ID,
			"order":         order,
		})
		return
	}

	// ✅ 6. cod/wallet : commande finalisée, confirmation immédiate
	log.Printf("✅ Commande %s créée (%s, %d centimes) pour %s", order.OrderNumber, req.PaymentMethod, order.TotalCents, email)

	go sendOrderConfirmation(*order, email)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Commande créée",
		"order":   order,
	})
}

// ValidateCoupon vérifie un code promo contre le total du panier Redis
func ValidateCoupon(c *gin.Context) {
	userID := c.GetString("user_id")
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code requis"})
		return
	}

	ctx := context.Background()

	var cartTotalCents int64
	if cartData, err := database.Redis.Get(ctx, "cart:"+userID).Result(); err == nil && cartData != "" {
		var cartItems []models.CartItem
		if json.Unmarshal([]byte(cartData), &cartItems) == nil {
			variantStore := &ledger.ScyllaVariantStore{}
			for _, item := range cartItems {
				variantID, err := gocql.ParseUUID(item.VariantID)
				if err != nil {
					continue
				}
				if ps, err := variantStore.GetPackSize(ctx, variantID, item.PackSize); err == nil {
					cartTotalCents += ps.SalePriceCents * int64(item.Quantity)
				}
			}
		}
	}

	validation := ledger.Default().ValidateCoupon(ctx, code, cartTotalCents)
	status := http.StatusOK
	if !validation.IsValid {
		status = http.StatusBadRequest
	}
	c.JSON(status, validation)
}

// sendOrderConfirmation génère la facture PDF et envoie l'email de
// confirmation. Appelé en tâche de fond, jamais bloquant pour la requête.
func sendOrderConfirmation(order models.Order, email string) {
	html := utils.GenerateOrderConfirmationHTML(order, email)

	pdf, err := utils.GenerateInvoicePDF(order, email)
	if err != nil {
		log.Println("❌ Erreur génération PDF:", err)
		pdf = nil
	}

	if err := utils.SendConfirmationEmail(email, "Confirmation de votre commande VitaCart", html, pdf); err != nil {
		log.Println("❌ Erreur envoi e-mail confirmation:", err)
	} else {
		log.Println("📧 E-mail de confirmation envoyé à", email)
	}
}

// respondLedgerError traduit les erreurs du ledger en réponses HTTP.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case ledger.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case ledger.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Println("❌ Erreur ledger:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
