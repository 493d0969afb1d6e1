package product

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/services"
)

// =========================
// 🟢 UPLOAD IMAGE PRODUIT
// =========================
func UploadProductImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier manquant"})
		return
	}

	// Nom unique pour éviter les collisions entre produits
	ext := filepath.Ext(file.Filename)
	file.Filename = fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)

	objectName, err := services.UploadFile("products", file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload MinIO: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "✅ Image uploadée avec succès",
		"image_url": objectName,
	})
}

// =========================
// 🟡 AJOUTER IMAGE À UN PRODUIT
// =========================
func AddImageToProduct(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required"`
		ImageURL  string `json:"image_url" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	productID, err := gocql.ParseUUID(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var existingURLs []string
	err = session.Query(`SELECT image_urls FROM ks_catalog.products WHERE product_id = ?`, productID).Scan(&existingURLs)
	if err != nil && err != gocql.ErrNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération produit"})
		return
	}

	existingURLs = append(existingURLs, req.ImageURL)

	if err := session.Query(`UPDATE ks_catalog.products SET image_urls = ?, updated_at = ? WHERE product_id = ?`,
		existingURLs, time.Now(), productID).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour produit"})
		return
	}

	database.RedisClient.Del(context.Background(), productsCacheKey)

	c.JSON(http.StatusOK, gin.H{
		"message":    "✅ Image ajoutée au produit",
		"product_id": req.ProductID,
		"image_url":  req.ImageURL,
	})
}

// =========================
// 🔵 LISTER LES IMAGES D'UN PRODUIT
// =========================
func GetProductImages(c *gin.Context) {
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

	var imageURLs []string
	if err := session.Query(`SELECT image_urls FROM ks_catalog.products WHERE product_id = ?`,
		productID).Scan(&imageURLs); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	// URLs signées valables 24h
	signedURLs := signURLs(context.Background(), imageURLs)

	c.JSON(http.StatusOK, gin.H{
		"product_id": productID.String(),
		"images":     signedURLs,
	})
}

// =========================
// 🔴 SUPPRIMER UNE IMAGE
// =========================
func DeleteProductImage(c *gin.Context) {
	ctx := context.Background()

	var req struct {
		ProductID string `json:"product_id" binding:"required"`
		ImageURL  string `json:"image_url" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	productID, err := gocql.ParseUUID(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	if err := services.DeleteFile(ctx, req.ImageURL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression MinIO: " + err.Error()})
		return
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var currentURLs []string
	if err := session.Query(`SELECT image_urls FROM ks_catalog.products WHERE product_id = ?`,
		productID).Scan(&currentURLs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération produit"})
		return
	}

	filteredURLs := []string{}
	for _, url := range currentURLs {
		if url != req.ImageURL {
			filteredURLs = append(filteredURLs, url)
		}
	}

	if err := session.Query(`UPDATE ks_catalog.products SET image_urls = ?, updated_at = ? WHERE product_id = ?`,
		filteredURLs, time.Now(), productID).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour produit"})
		return
	}

	database.RedisClient.Del(ctx, productsCacheKey)

	c.JSON(http.StatusOK, gin.H{
		"message":    "🗑️ Image supprimée avec succès",
		"product_id": req.ProductID,
		"image_url":  req.ImageURL,
	})
}
