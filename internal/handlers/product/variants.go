package product

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
)

// CreateVariant - Créer une saveur d'un produit avec ses conditionnements
func CreateVariant(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	var req struct {
		Flavor    string `json:"flavor" binding:"required"`
		PackSizes []struct {
			Size           string `json:"size" binding:"required"`
			PriceCents     int64  `json:"price_cents" binding:"required"`
			SalePriceCents int64  `json:"sale_price_cents"`
			Quantity       int    `json:"quantity"`
		} `json:"pack_sizes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Vérifier que le produit existe
	var existing gocql.UUID
	if err := session.Query(`SELECT product_id FROM ks_catalog.products WHERE product_id = ?`,
		productID).Scan(&existing); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit non trouvé"})
		return
	}

	// Une seule variante par saveur et par produit
	var dupID gocql.UUID
	if err := session.Query(`SELECT variant_id FROM ks_catalog.variants
		WHERE product_id = ? AND flavor = ? LIMIT 1 ALLOW FILTERING`,
		productID, req.Flavor).Scan(&dupID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Cette saveur existe déjà pour ce produit"})
		return
	}

	now := time.Now()
	variant := models.Variant{
		ID:        gocql.TimeUUID(),
		ProductID: productID,
		Flavor:    req.Flavor,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := session.Query(`INSERT INTO ks_catalog.variants (variant_id, product_id, flavor, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		variant.ID, variant.ProductID, variant.Flavor, variant.IsActive, variant.CreatedAt, variant.UpdatedAt,
	).Exec(); err != nil {
		log.Printf("❌ Erreur création variante: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création de la variante"})
		return
	}

	for _, ps := range req.PackSizes {
		if ps.PriceCents <= 0 || ps.SalePriceCents < 0 || ps.Quantity < 0 {
			continue
		}
		sale := ps.SalePriceCents
		if sale == 0 {
			sale = ps.PriceCents
		}
		packSize := models.PackSize{
			VariantID:      variant.ID,
			Size:           ps.Size,
			PriceCents:     ps.PriceCents,
			SalePriceCents: sale,
			Quantity:       ps.Quantity,
			UpdatedAt:      now,
		}
		if err := session.Query(`INSERT INTO ks_catalog.pack_sizes (variant_id, size, price_cents, sale_price_cents, quantity, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			packSize.VariantID, packSize.Size, packSize.PriceCents, packSize.SalePriceCents,
			packSize.Quantity, packSize.UpdatedAt,
		).Exec(); err != nil {
			log.Printf("⚠️ Erreur création conditionnement %s: %v", ps.Size, err)
			continue
		}
		variant.PackSizes = append(variant.PackSizes, packSize)
	}

	log.Printf("✅ Variante créée: %s pour produit %s", variant.Flavor, productID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Variante créée avec succès",
		"variant": variant,
	})
}

// GetProductVariants - Récupérer les saveurs d'un produit avec leurs conditionnements
func GetProductVariants(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT variant_id, product_id, flavor, is_active, created_at, updated_at
		FROM ks_catalog.variants WHERE product_id = ? ALLOW FILTERING`, productID).Iter()

	var variants []models.Variant
	var v models.Variant

	for iter.Scan(&v.ID, &v.ProductID, &v.Flavor, &v.IsActive, &v.CreatedAt, &v.UpdatedAt) {
		if v.IsActive {
			variants = append(variants, v)
		}
		v = models.Variant{}
	}

	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur récupération variantes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	// Rattacher les conditionnements de chaque saveur
	for i := range variants {
		psIter := session.Query(`SELECT variant_id, size, price_cents, sale_price_cents, quantity, updated_at
			FROM ks_catalog.pack_sizes WHERE variant_id = ?`, variants[i].ID).Iter()

		var ps models.PackSize
		for psIter.Scan(&ps.VariantID, &ps.Size, &ps.PriceCents, &ps.SalePriceCents, &ps.Quantity, &ps.UpdatedAt) {
			variants[i].PackSizes = append(variants[i].PackSizes, ps)
			ps = models.PackSize{}
		}
		if err := psIter.Close(); err != nil {
			log.Printf("⚠️ Erreur conditionnements variante %s: %v", variants[i].ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"variants": variants,
		"total":    len(variants),
	})
}

// UpsertPackSize - Créer ou mettre à jour un conditionnement d'une saveur
func UpsertPackSize(c *gin.Context) {
	variantID, err := gocql.ParseUUID(c.Param("variant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID variante invalide"})
		return
	}

	var req struct {
		Size           string `json:"size" binding:"required"`
		PriceCents     int64  `json:"price_cents" binding:"required"`
		SalePriceCents int64  `json:"sale_price_cents"`
		Quantity       int    `json:"quantity"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides: " + err.Error()})
		return
	}

	if req.PriceCents <= 0 || req.SalePriceCents < 0 || req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prix et stock doivent être positifs"})
		return
	}

	sale := req.SalePriceCents
	if sale == 0 {
		sale = req.PriceCents
	}
	if sale > req.PriceCents {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le prix promo ne peut pas dépasser le prix de base"})
		return
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Vérifier que la variante existe et est active
	var isActive bool
	if err := session.Query(`SELECT is_active FROM ks_catalog.variants WHERE variant_id = ?`,
		variantID).Scan(&isActive); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Variante non trouvée"})
		return
	}

	if err := session.Query(`INSERT INTO ks_catalog.pack_sizes (variant_id, size, price_cents, sale_price_cents, quantity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		variantID, req.Size, req.PriceCents, sale, req.Quantity, time.Now(),
	).Exec(); err != nil {
		log.Printf("❌ Erreur upsert conditionnement: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conditionnement enregistré avec succès"})
}

// UpdateVariant - Activer / désactiver ou renommer une saveur
func UpdateVariant(c *gin.Context) {
	variantID, err := gocql.ParseUUID(c.Param("variant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID variante invalide"})
		return
	}

	var req struct {
		Flavor   *string `json:"flavor"`
		IsActive *bool   `json:"is_active"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	updates := []string{}
	values := []interface{}{}

	if req.Flavor != nil {
		updates = append(updates, "flavor = ?")
		values = append(values, *req.Flavor)
	}
	if req.IsActive != nil {
		updates = append(updates, "is_active = ?")
		values = append(values, *req.IsActive)
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Aucune mise à jour fournie"})
		return
	}

	updates = append(updates, "updated_at = ?")
	values = append(values, time.Now())
	values = append(values, variantID)

	query := "UPDATE ks_catalog.variants SET " + updates[0]
	for i := 1; i < len(updates); i++ {
		query += ", " + updates[i]
	}
	query += " WHERE variant_id = ?"

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := session.Query(query, values...).Exec(); err != nil {
		log.Printf("❌ Erreur mise à jour variante: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Variante mise à jour avec succès"})
}

// DeleteVariant - Désactiver une saveur (soft delete)
func DeleteVariant(c *gin.Context) {
	variantID, err := gocql.ParseUUID(c.Param("variant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID variante invalide"})
		return
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Marquer comme inactive plutôt que supprimer
	if err := session.Query(`UPDATE ks_catalog.variants SET is_active = false, updated_at = ? WHERE variant_id = ?`,
		time.Now(), variantID).Exec(); err != nil {
		log.Printf("❌ Erreur suppression variante: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Variante supprimée avec succès"})
}
