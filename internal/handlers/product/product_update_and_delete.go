package product

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vitacart_back_end/internal/cache"
	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
	"vitacart_back_end/internal/services"
)

func UpdateProduct(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	var input struct {
		Name        *string   `json:"name"`
		Description *string   `json:"description"`
		Brand       *string   `json:"brand"`
		CategoryID  *string   `json:"category_id"`
		Tags        *[]string `json:"tags"`
		IsActive    *bool     `json:"is_active"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	updates := []string{}
	values := []interface{}{}

	if input.Name != nil {
		updates = append(updates, "name = ?")
		values = append(values, *input.Name)
	}
	if input.Description != nil {
		updates = append(updates, "description = ?")
		values = append(values, *input.Description)
	}
	if input.Brand != nil {
		updates = append(updates, "brand = ?")
		values = append(values, *input.Brand)
	}
	if input.CategoryID != nil {
		catUUID, err := gocql.ParseUUID(*input.CategoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID de catégorie invalide"})
			return
		}
		updates = append(updates, "category_id = ?")
		values = append(values, catUUID)
	}
	if input.Tags != nil {
		updates = append(updates, "tags = ?")
		values = append(values, *input.Tags)
	}
	if input.IsActive != nil {
		updates = append(updates, "is_active = ?")
		values = append(values, *input.IsActive)
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Aucune donnée à mettre à jour"})
		return
	}

	updates = append(updates, "updated_at = ?")
	values = append(values, time.Now())
	values = append(values, productID)

	query := "UPDATE ks_catalog.products SET " + updates[0]
	for i := 1; i < len(updates); i++ {
		query += ", " + updates[i]
	}
	query += " WHERE product_id = ?"

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := session.Query(query, values...).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la mise à jour"})
		return
	}

	// 🔹 Invalider les caches et réindexer dans Elasticsearch
	database.RedisClient.Del(context.Background(), productsCacheKey)
	cache.InvalidateProductCache(productID.String())
	go reindexProduct(productID)

	c.JSON(http.StatusOK, gin.H{"message": "Produit mis à jour avec succès"})
}

func DeleteProduct(c *gin.Context) {
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

	// Soft delete : les commandes existantes gardent leurs références produit
	if err := session.Query(`UPDATE ks_catalog.products SET is_active = false, updated_at = ? WHERE product_id = ?`,
		time.Now(), productID).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression"})
		return
	}

	database.RedisClient.Del(context.Background(), productsCacheKey)
	cache.InvalidateProductCache(productID.String())
	go services.RemoveProductFromIndex(productID.String())

	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé avec succès"})
}

// Relit le produit et pousse la version à jour dans Elasticsearch
func reindexProduct(productID gocql.UUID) {
	session, err := database.GetCatalogSession()
	if err != nil {
		return
	}

	var p models.Product
	if err := session.Query(`SELECT product_id, name, description, brand, category_id, image_urls, tags, is_active, created_at, updated_at
		FROM ks_catalog.products WHERE product_id = ?`, productID).Scan(
		&p.ID, &p.Name, &p.Description, &p.Brand, &p.CategoryID, &p.ImageURLs,
		&p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return
	}

	if p.IsActive {
		services.IndexProduct(p)
	} else {
		services.RemoveProductFromIndex(p.ID.String())
	}
}
