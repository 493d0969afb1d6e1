package payment

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vitacart_back_end/internal/database"
)

// GetDashboardStats retourne les statistiques du dashboard admin
func GetDashboardStats(c *gin.Context) {
	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Statistiques des commandes
	var totalOrders int
	var totalRevenueCents int64
	statusCount := make(map[string]int)
	paymentCount := make(map[string]int)

	iter := session.Query("SELECT status, payment_status, total_cents FROM ks_orders.orders").Iter()
	var status, paymentStatus string
	var totalCents int64

	for iter.Scan(&status, &paymentStatus, &totalCents) {
		totalOrders++
		statusCount[status]++
		paymentCount[paymentStatus]++
		if paymentStatus == "paid" {
			totalRevenueCents += totalCents
		}
	}
	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur lecture stats: %v", err)
	}

	// Statistiques du stock (par conditionnement)
	catalogSession, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var totalPackSizes, lowStock, outOfStock int
	stockIter := catalogSession.Query("SELECT quantity FROM ks_catalog.pack_sizes").Iter()
	var quantity int
	for stockIter.Scan(&quantity) {
		totalPackSizes++
		if quantity == 0 {
			outOfStock++
		} else if quantity < 10 {
			lowStock++
		}
	}
	if err := stockIter.Close(); err != nil {
		log.Printf("❌ Erreur lecture stock: %v", err)
	}

	// Statistiques des utilisateurs
	usersSession, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var totalUsers int
	usersIter := usersSession.Query("SELECT user_id FROM ks_users.users").Iter()
	var userID interface{}
	for usersIter.Scan(&userID) {
		totalUsers++
	}
	if err := usersIter.Close(); err != nil {
		log.Printf("❌ Erreur lecture utilisateurs: %v", err)
	}

	// Remboursements carte
	var totalRefunds int
	var refundedCents int64
	refundsIter := session.Query("SELECT amount_cents FROM ks_orders.refunds").Iter()
	var amountCents int64
	for refundsIter.Scan(&amountCents) {
		totalRefunds++
		refundedCents += amountCents
	}
	if err := refundsIter.Close(); err != nil {
		log.Printf("❌ Erreur lecture remboursements: %v", err)
	}

	var averageOrderCents int64
	if totalOrders > 0 {
		averageOrderCents = totalRevenueCents / int64(totalOrders)
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": gin.H{
			"total":               totalOrders,
			"revenue_cents":       totalRevenueCents,
			"average_order_cents": averageOrderCents,
			"by_status":           statusCount,
			"by_payment_status":   paymentCount,
		},
		"stock": gin.H{
			"pack_sizes":   totalPackSizes,
			"low_stock":    lowStock,
			"out_of_stock": outOfStock,
		},
		"users": gin.H{
			"total": totalUsers,
		},
		"refunds": gin.H{
			"total":          totalRefunds,
			"refunded_cents": refundedCents,
		},
		"generated_at": time.Now(),
	})
}

// GetRecentOrders retourne les commandes récentes
func GetRecentOrders(c *gin.Context) {
	limit := 10

	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`
		SELECT order_id, order_number, user_id, total_cents, status, payment_status, created_at
		FROM ks_orders.orders LIMIT ?
	`, limit).Iter()

	type RecentOrder struct {
		ID            string    `json:"id"`
		OrderNumber   string    `json:"order_number"`
		UserID        string    `json:"user_id"`
		TotalCents    int64     `json:"total_cents"`
		Status        string    `json:"status"`
		PaymentStatus string    `json:"payment_status"`
		CreatedAt     time.Time `json:"created_at"`
	}

	var orders []RecentOrder
	var order RecentOrder
	var orderID interface{}

	for iter.Scan(&orderID, &order.OrderNumber, &order.UserID, &order.TotalCents,
		&order.Status, &order.PaymentStatus, &order.CreatedAt) {
		order.ID = fmt.Sprint(orderID)
		orders = append(orders, order)
	}

	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur lecture commandes récentes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}
