package invoice

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/ledger"
	"vitacart_back_end/internal/utils"
)

// POST /api/invoice/:id/send
// Regénère la facture PDF d'une commande et l'envoie par e-mail au client.
func SendInvoice(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	orderUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	order, err := ledger.Default().Orders.Get(ctx, gocql.UUID(orderUUID))
	if err != nil {
		if ledger.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	// Le client ne peut demander que ses propres factures (l'admin passe par sa route)
	isAdmin := c.GetString("role") == "admin"
	if !isAdmin && order.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	// Email du destinataire
	var userEmail string
	if session, err := database.GetUsersSession(); err == nil {
		if uid, err := uuid.Parse(order.UserID); err == nil {
			if err := session.Query(`SELECT email FROM ks_users.users WHERE user_id = ?`,
				gocql.UUID(uid)).Scan(&userEmail); err != nil {
				log.Printf("⚠️ Impossible de récupérer l'email: %v", err)
			}
		}
	}
	if userEmail == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Email du client introuvable"})
		return
	}

	pdfBytes, err := utils.GenerateInvoicePDF(*order, userEmail)
	if err != nil {
		log.Println("❌ erreur PDF:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération facture"})
		return
	}

	htmlBody := utils.GenerateOrderConfirmationHTML(*order, userEmail)
	subject := "Votre facture VitaCart " + order.OrderNumber

	if err := utils.SendConfirmationEmail(userEmail, subject, htmlBody, pdfBytes); err != nil {
		log.Println("❌ erreur envoi mail:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur envoi email"})
		return
	}

	log.Printf("📧 Facture %s envoyée à %s", order.OrderNumber, userEmail)
	c.JSON(http.StatusOK, gin.H{"message": "Facture envoyée"})
}
