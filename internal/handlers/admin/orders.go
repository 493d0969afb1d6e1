package admin

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
	"vitacart_back_end/internal/models"
	"vitacart_back_end/internal/utils"
)

// GetAllOrders permet à un admin de récupérer toutes les commandes
func GetAllOrders(c *gin.Context) {
	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Vue allégée : l'admin ouvre le détail d'une commande au besoin
	iter := session.Query(`SELECT order_id, order_number, user_id, payment_method, payment_status,
		status, total_cents, created_at FROM ks_orders.orders`).Iter()

	type OrderSummary struct {
		ID            string    `json:"id"`
		OrderNumber   string    `json:"order_number"`
		UserID        string    `json:"user_id"`
		PaymentMethod string    `json:"payment_method"`
		PaymentStatus string    `json:"payment_status"`
		Status        string    `json:"status"`
		TotalCents    int64     `json:"total_cents"`
		CreatedAt     time.Time `json:"created_at"`
	}

	var orders []OrderSummary
	var o OrderSummary
	var orderID gocql.UUID

	for iter.Scan(&orderID, &o.OrderNumber, &o.UserID, &o.PaymentMethod, &o.PaymentStatus,
		&o.Status, &o.TotalCents, &o.CreatedAt) {
		o.ID = orderID.String()
		orders = append(orders, o)
	}

	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur lecture commandes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder retourne le détail complet d'une commande (Admin)
func GetOrder(c *gin.Context) {
	orderUUID, err := uuid.Parse(c.Param("orderId"))
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

	c.JSON(http.StatusOK, order)
}

// UpdateOrderItemStatus fait avancer un article de commande (Admin).
// L'annulation et le retour déclenchent remboursement et restockage, la
// livraison d'une commande cod la marque payée et verse le bonus de
// parrainage éventuel.
func UpdateOrderItemStatus(c *gin.Context) {
	orderUUID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}
	itemUUID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID article invalide"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	if !ledger.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Statut invalide",
			"valid_statuses": []string{
				models.ItemProcessing, models.ItemShipped, models.ItemDelivered,
				models.ItemCancelled, models.ItemReturnRequested, models.ItemReturned,
			},
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	order, err := ledger.Default().SetItemStatus(ctx, gocql.UUID(orderUUID), gocql.UUID(itemUUID), req.Status, req.Reason)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.LogAction(c, utils.ACTION_ORDER_ITEM_STATUS, utils.RESOURCE_ORDER, order.ID.String(), nil, map[string]interface{}{
		"item_id": itemUUID.String(),
		"status":  req.Status,
		"reason":  req.Reason,
	})

	go notifyItemStatus(*order, gocql.UUID(itemUUID))

	log.Printf("✅ Commande %s, article %s → %s", order.OrderNumber, itemUUID, req.Status)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
	})
}

// ApproveReturn finalise un retour demandé (Admin) : remboursement et
// restockage comme une annulation
func ApproveReturn(c *gin.Context) {
	handleReturnDecision(c, true)
}

// RejectReturn refuse un retour demandé (Admin) : l'article redevient livré
func RejectReturn(c *gin.Context) {
	handleReturnDecision(c, false)
}

func handleReturnDecision(c *gin.Context, approve bool) {
	orderUUID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}
	itemUUID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID article invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	l := ledger.Default()
	var order *models.Order
	var action, message string
	if approve {
		order, err = l.ApproveReturn(ctx, gocql.UUID(orderUUID), gocql.UUID(itemUUID))
		action, message = utils.ACTION_RETURN_APPROVE, "Retour approuvé"
	} else {
		order, err = l.RejectReturn(ctx, gocql.UUID(orderUUID), gocql.UUID(itemUUID))
		action, message = utils.ACTION_RETURN_REJECT, "Retour refusé"
	}
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	utils.LogAction(c, action, utils.RESOURCE_ORDER, order.ID.String(), nil, map[string]interface{}{
		"item_id": itemUUID.String(),
	})

	go notifyItemStatus(*order, gocql.UUID(itemUUID))

	log.Printf("✅ %s: commande %s, article %s", message, order.OrderNumber, itemUUID)

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"order":   order,
	})
}

// notifyItemStatus envoie l'email de changement de statut au client.
func notifyItemStatus(order models.Order, itemID gocql.UUID) {
	session, err := database.GetUsersSession()
	if err != nil {
		return
	}

	uid, err := uuid.Parse(order.UserID)
	if err != nil {
		return
	}

	var userEmail string
	if err := session.Query("SELECT email FROM ks_users.users WHERE user_id = ?", gocql.UUID(uid)).
		Scan(&userEmail); err != nil || userEmail == "" {
		return
	}

	for _, item := range order.Items {
		if item.ID == itemID {
			if err := utils.SendItemStatusEmail(order, item, userEmail); err != nil {
				log.Printf("⚠️ Erreur envoi email notification: %v", err)
			}
			return
		}
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
