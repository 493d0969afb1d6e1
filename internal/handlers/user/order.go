package user

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"vitacart_back_end/internal/ledger"
	"vitacart_back_end/internal/models"
	"vitacart_back_end/internal/utils"
)

// ✅ Récupère toutes les commandes de l'utilisateur connecté
func GetMyOrders(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	orders, err := ledger.Default().Orders.ListByUser(ctx, userID)
	if err != nil {
		log.Println("❌ Erreur récupération commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
	})
}

// ✅ Récupère une commande spécifique par ID
func GetOrderByID(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	orderUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	order, err := ledger.Default().Orders.Get(ctx, gocql.UUID(orderUUID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	// Sécurité : on vérifie que la commande appartient bien à l'utilisateur
	if order.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrderItem annule un article d'une commande de l'utilisateur.
// Un article livré ne s'annule pas ici : il passe par une demande de retour.
func CancelOrderItem(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	orderUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}

	var req struct {
		ItemID string `json:"item_id" binding:"required"`
		Reason string `json:"reason" binding:"required,min=3,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	itemUUID, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID article invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	l := ledger.Default()

	order, err := l.Orders.Get(ctx, gocql.UUID(orderUUID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	if order.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	// L'utilisateur ne peut annuler qu'avant la livraison.
	for _, it := range order.Items {
		if it.ID == gocql.UUID(itemUUID) {
			if it.Status != models.ItemProcessing && it.Status != models.ItemShipped {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cet article ne peut plus être annulé, faites une demande de retour"})
				return
			}
		}
	}

	order, err = l.SetItemStatus(ctx, gocql.UUID(orderUUID), gocql.UUID(itemUUID), models.ItemCancelled, req.Reason)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.LogAction(c, utils.ACTION_ORDER_ITEM_STATUS, utils.RESOURCE_ORDER, order.ID.String(), nil, map[string]interface{}{
		"item_id": req.ItemID,
		"status":  models.ItemCancelled,
		"reason":  req.Reason,
	})

	log.Printf("✅ Article %s annulé sur commande %s (user %s)", req.ItemID, order.OrderNumber, userID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Article annulé",
		"order":   order,
	})
}

// RequestItemReturn enregistre une demande de retour sur un article livré.
func RequestItemReturn(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	orderUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}

	var req struct {
		ItemID string `json:"item_id" binding:"required"`
		Reason string `json:"reason" binding:"required,min=3,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	itemUUID, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID article invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	order, err := ledger.Default().RequestReturn(ctx, userID, gocql.UUID(orderUUID), gocql.UUID(itemUUID), req.Reason)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.LogAction(c, utils.ACTION_RETURN_REQUEST, utils.RESOURCE_ORDER, order.ID.String(), nil, map[string]interface{}{
		"item_id": req.ItemID,
		"reason":  req.Reason,
	})

	log.Printf("🔁 Demande de retour sur commande %s, article %s", order.OrderNumber, req.ItemID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Demande de retour enregistrée",
		"order":   order,
	})
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
