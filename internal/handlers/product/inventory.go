package product

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/ledger"
	"vitacart_back_end/internal/models"
)

const lowStockThreshold = 10

// AdjustStock - Ajuster le stock d'un conditionnement (admin).
// "restock" ajoute la quantité, "adjustment" fixe la quantité absolue.
func AdjustStock(c *gin.Context) {
	variantID, err := gocql.ParseUUID(c.Param("variant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID variante invalide"})
		return
	}

	var req struct {
		PackSize string `json:"pack_size" binding:"required"`
		Quantity int    `json:"quantity" binding:"required"`
		Type     string `json:"type" binding:"required"` // "restock", "adjustment"
		Reason   string `json:"reason" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	store := &ledger.ScyllaVariantStore{}
	current, err := store.GetPackSize(ctx, variantID, req.PackSize)
	if err != nil {
		if ledger.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conditionnement non trouvé"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture stock"})
		return
	}

	var delta int
	switch req.Type {
	case "restock":
		delta = req.Quantity
	case "adjustment":
		if req.Quantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le stock ne peut pas être négatif"})
			return
		}
		delta = req.Quantity - current.Quantity
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Type d'opération invalide"})
		return
	}

	mv := models.StockMovement{
		ID:        gocql.TimeUUID(),
		VariantID: variantID,
		PackSize:  req.PackSize,
		Type:      req.Type,
		Quantity:  delta,
		Reason:    req.Reason,
		UserID:    c.GetString("user_id"),
		CreatedAt: time.Now(),
	}

	if err := store.AdjustStock(ctx, variantID, req.PackSize, delta, mv); err != nil {
		if ledger.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("❌ Erreur ajustement stock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour du stock"})
		return
	}

	newStock := current.Quantity + delta

	// Vérifier les alertes de stock faible
	go checkLowStockAlert(variantID, req.PackSize, newStock)

	log.Printf("✅ Stock mis à jour (%s / %s): %d -> %d", variantID, req.PackSize, current.Quantity, newStock)
	c.JSON(http.StatusOK, gin.H{
		"message":     "Stock mis à jour avec succès",
		"prev_stock":  current.Quantity,
		"new_stock":   newStock,
		"movement_id": mv.ID,
	})
}

// GetStockMovements - Historique des mouvements de stock
func GetStockMovements(c *gin.Context) {
	variantIDStr := c.Query("variant_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var query string
	var args []interface{}

	if variantIDStr != "" {
		variantID, err := gocql.ParseUUID(variantIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID variante invalide"})
			return
		}
		query = `SELECT id, variant_id, pack_size, type, quantity, prev_stock, new_stock, reason, order_id, user_id, created_at
			FROM ks_catalog.stock_movements WHERE variant_id = ? LIMIT ? ALLOW FILTERING`
		args = []interface{}{variantID, limit}
	} else {
		query = `SELECT id, variant_id, pack_size, type, quantity, prev_stock, new_stock, reason, order_id, user_id, created_at
			FROM ks_catalog.stock_movements LIMIT ?`
		args = []interface{}{limit}
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(query, args...).Iter()

	var movements []models.StockMovement
	var mv models.StockMovement

	for iter.Scan(&mv.ID, &mv.VariantID, &mv.PackSize, &mv.Type, &mv.Quantity,
		&mv.PrevStock, &mv.NewStock, &mv.Reason, &mv.OrderID, &mv.UserID, &mv.CreatedAt) {
		movements = append(movements, mv)
		mv = models.StockMovement{}
	}

	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur récupération mouvements: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movements": movements,
		"total":     len(movements),
	})
}

// GetLowStockAlerts - Alertes de stock faible non résolues
func GetLowStockAlerts(c *gin.Context) {
	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT id, variant_id, pack_size, product_name, current_stock, threshold_stock, alert_type, is_resolved, created_at
		FROM ks_catalog.stock_alerts WHERE is_resolved = false ALLOW FILTERING`).Iter()

	var alerts []models.StockAlert
	var alert models.StockAlert

	for iter.Scan(&alert.ID, &alert.VariantID, &alert.PackSize, &alert.ProductName,
		&alert.CurrentStock, &alert.ThresholdStock, &alert.AlertType, &alert.IsResolved, &alert.CreatedAt) {
		alerts = append(alerts, alert)
		alert = models.StockAlert{}
	}

	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur récupération alertes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"total":  len(alerts),
	})
}

// ResolveStockAlert - Marquer une alerte comme résolue
func ResolveStockAlert(c *gin.Context) {
	alertID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID alerte invalide"})
		return
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := session.Query(`UPDATE ks_catalog.stock_alerts SET is_resolved = true, resolved_at = ? WHERE id = ?`,
		time.Now(), alertID).Exec(); err != nil {
		log.Printf("❌ Erreur résolution alerte: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la résolution"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alerte marquée comme résolue"})
}

// GetInventoryStats - Statistiques d'inventaire
func GetInventoryStats(c *gin.Context) {
	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var totalProducts int
	prodIter := session.Query(`SELECT is_active FROM ks_catalog.products`).Iter()
	var active bool
	for prodIter.Scan(&active) {
		if active {
			totalProducts++
		}
	}
	prodIter.Close()

	// Stock et valeur d'inventaire au niveau conditionnement
	var lowStock, outOfStock int
	var totalValueCents int64
	var quantity int
	var salePriceCents int64

	psIter := session.Query(`SELECT quantity, sale_price_cents FROM ks_catalog.pack_sizes`).Iter()
	for psIter.Scan(&quantity, &salePriceCents) {
		totalValueCents += int64(quantity) * salePriceCents
		if quantity == 0 {
			outOfStock++
		} else if quantity < lowStockThreshold {
			lowStock++
		}
	}
	if err := psIter.Close(); err != nil {
		log.Printf("❌ Erreur lecture conditionnements: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_products":           totalProducts,
		"low_stock_pack_sizes":     lowStock,
		"out_of_stock_pack_sizes":  outOfStock,
		"inventory_value_cents":    totalValueCents,
		"low_stock_threshold":      lowStockThreshold,
	})
}

// checkLowStockAlert - Créer une alerte si le stock passe sous le seuil
func checkLowStockAlert(variantID gocql.UUID, packSize string, currentStock int) {
	var alertType string
	switch {
	case currentStock == 0:
		alertType = "out_of_stock"
	case currentStock < lowStockThreshold:
		alertType = "low_stock"
	default:
		return
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		return
	}

	// Pas de doublon : une alerte non résolue suffit par conditionnement
	var existingID gocql.UUID
	if err := session.Query(`SELECT id FROM ks_catalog.stock_alerts
		WHERE variant_id = ? AND pack_size = ? AND is_resolved = false LIMIT 1 ALLOW FILTERING`,
		variantID, packSize).Scan(&existingID); err == nil {
		return
	}

	// Nom du produit pour l'alerte
	var productName string
	var productID gocql.UUID
	if err := session.Query(`SELECT product_id FROM ks_catalog.variants WHERE variant_id = ?`,
		variantID).Scan(&productID); err == nil {
		session.Query(`SELECT name FROM ks_catalog.products WHERE product_id = ?`, productID).Scan(&productName)
	}

	alert := models.StockAlert{
		ID:             gocql.TimeUUID(),
		VariantID:      variantID,
		PackSize:       packSize,
		ProductName:    productName,
		CurrentStock:   currentStock,
		ThresholdStock: lowStockThreshold,
		AlertType:      alertType,
		IsResolved:     false,
		CreatedAt:      time.Now(),
	}

	if err := session.Query(`INSERT INTO ks_catalog.stock_alerts
		(id, variant_id, pack_size, product_name, current_stock, threshold_stock, alert_type, is_resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.VariantID, alert.PackSize, alert.ProductName, alert.CurrentStock,
		alert.ThresholdStock, alert.AlertType, alert.IsResolved, alert.CreatedAt,
	).Exec(); err != nil {
		log.Printf("⚠️ Erreur création alerte stock: %v", err)
	} else {
		log.Printf("🚨 Alerte stock créée pour %s (%s): %s", alert.ProductName, packSize, alertType)
	}
}
