package payment

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
)

// CreateCoupon - Créer un nouveau coupon à montant fixe (Admin seulement)
func CreateCoupon(c *gin.Context) {
	var req struct {
		Code           string    `json:"code" binding:"required"`
		DiscountCents  int64     `json:"discount_cents" binding:"required"`
		MinAmountCents int64     `json:"min_amount_cents"`
		UsageLimit     int       `json:"usage_limit"`
		ExpiresAt      time.Time `json:"expires_at" binding:"required"`
		StartsAt       time.Time `json:"starts_at"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	if req.DiscountCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La réduction doit être positive"})
		return
	}
	if req.MinAmountCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le montant minimum ne peut pas être négatif"})
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))

	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var existingCode string
	if err := ordersSession.Query(`SELECT code FROM ks_orders.coupons WHERE code = ? LIMIT 1`, code).
		Scan(&existingCode); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Ce code coupon existe déjà"})
		return
	}

	now := time.Now()
	if req.StartsAt.IsZero() {
		req.StartsAt = now
	}

	coupon := models.Coupon{
		ID:             gocql.TimeUUID(),
		Code:           code,
		DiscountCents:  req.DiscountCents,
		MinAmountCents: req.MinAmountCents,
		UsageLimit:     req.UsageLimit,
		Used:           0,
		StartsAt:       req.StartsAt,
		ExpiresAt:      req.ExpiresAt,
		IsActive:       true,
		CreatedBy:      c.GetString("user_id"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := ordersSession.Query(`
		INSERT INTO ks_orders.coupons (id, code, discount_cents, min_amount_cents, usage_limit, used,
			starts_at, expires_at, is_active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		coupon.ID, coupon.Code, coupon.DiscountCents, coupon.MinAmountCents, coupon.UsageLimit,
		coupon.Used, coupon.StartsAt, coupon.ExpiresAt, coupon.IsActive, coupon.CreatedBy,
		coupon.CreatedAt, coupon.UpdatedAt,
	).Exec(); err != nil {
		log.Printf("❌ Erreur création coupon: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création du coupon"})
		return
	}

	log.Printf("✅ Coupon créé: %s (%d centimes, min %d)", coupon.Code, coupon.DiscountCents, coupon.MinAmountCents)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Coupon créé avec succès",
		"coupon":  coupon,
	})
}

// GetAllCoupons - Récupérer tous les coupons (Admin)
func GetAllCoupons(c *gin.Context) {
	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := ordersSession.Query(`SELECT id, code, discount_cents, min_amount_cents, usage_limit, used,
		starts_at, expires_at, is_active, created_by, created_at, updated_at FROM ks_orders.coupons`).Iter()

	var coupons []models.Coupon
	var coupon models.Coupon
	for iter.Scan(&coupon.ID, &coupon.Code, &coupon.DiscountCents, &coupon.MinAmountCents,
		&coupon.UsageLimit, &coupon.Used, &coupon.StartsAt, &coupon.ExpiresAt,
		&coupon.IsActive, &coupon.CreatedBy, &coupon.CreatedAt, &coupon.UpdatedAt) {
		coupons = append(coupons, coupon)
	}

	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur récupération coupons: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupons": coupons,
		"total":   len(coupons),
	})
}

// UpdateCoupon - Mettre à jour un coupon
func UpdateCoupon(c *gin.Context) {
	couponCode := strings.ToUpper(strings.TrimSpace(c.Param("code")))

	var req struct {
		IsActive       *bool      `json:"is_active"`
		UsageLimit     *int       `json:"usage_limit"`
		MinAmountCents *int64     `json:"min_amount_cents"`
		ExpiresAt      *time.Time `json:"expires_at"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	updates := []string{}
	values := []interface{}{}

	if req.IsActive != nil {
		updates = append(updates, "is_active = ?")
		values = append(values, *req.IsActive)
	}
	if req.UsageLimit != nil {
		updates = append(updates, "usage_limit = ?")
		values = append(values, *req.UsageLimit)
	}
	if req.MinAmountCents != nil {
		updates = append(updates, "min_amount_cents = ?")
		values = append(values, *req.MinAmountCents)
	}
	if req.ExpiresAt != nil {
		updates = append(updates, "expires_at = ?")
		values = append(values, *req.ExpiresAt)
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Aucune mise à jour fournie"})
		return
	}

	updates = append(updates, "updated_at = ?")
	values = append(values, time.Now())
	values = append(values, couponCode)

	query := fmt.Sprintf("UPDATE ks_orders.coupons SET %s WHERE code = ?", strings.Join(updates, ", "))

	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := ordersSession.Query(query, values...).Exec(); err != nil {
		log.Printf("❌ Erreur mise à jour coupon: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Coupon mis à jour avec succès"})
}

// DeleteCoupon - Supprimer un coupon
func DeleteCoupon(c *gin.Context) {
	couponCode := strings.ToUpper(strings.TrimSpace(c.Param("code")))

	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := ordersSession.Query(`DELETE FROM ks_orders.coupons WHERE code = ?`, couponCode).Exec(); err != nil {
		log.Printf("❌ Erreur suppression coupon: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Coupon supprimé avec succès"})
}
