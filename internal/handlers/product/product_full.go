package product

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
)

// 🔹 Produit complet : fiche + saveurs + conditionnements, avec URLs signées MinIO
func GetProductFull(c *gin.Context) {
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

	var p models.Product
	err = session.Query(`SELECT product_id, name, description, brand, category_id, image_urls, tags, is_active, created_at, updated_at
		FROM ks_catalog.products WHERE product_id = ?`, productID).Scan(
		&p.ID, &p.Name, &p.Description, &p.Brand, &p.CategoryID, &p.ImageURLs,
		&p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	// Saveurs actives avec leurs conditionnements
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
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture variantes"})
		return
	}

	for i := range variants {
		psIter := session.Query(`SELECT variant_id, size, price_cents, sale_price_cents, quantity, updated_at
			FROM ks_catalog.pack_sizes WHERE variant_id = ?`, variants[i].ID).Iter()

		var ps models.PackSize
		for psIter.Scan(&ps.VariantID, &ps.Size, &ps.PriceCents, &ps.SalePriceCents, &ps.Quantity, &ps.UpdatedAt) {
			variants[i].PackSizes = append(variants[i].PackSizes, ps)
			ps = models.PackSize{}
		}
		psIter.Close()
	}

	// 🔹 URLs signées (valables 24h)
	p.ImageURLs = signURLs(context.Background(), p.ImageURLs)

	c.JSON(http.StatusOK, gin.H{
		"product":  p,
		"variants": variants,
	})
}
