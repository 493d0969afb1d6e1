package product

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
	"vitacart_back_end/internal/services"
)

const productsCacheKey = "products:all"

// CreateProduct - Créer un produit (admin). Les prix et le stock vivent
// au niveau des conditionnements (pack_sizes), pas du produit.
func CreateProduct(c *gin.Context) {
	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Brand       string   `json:"brand" binding:"required"`
		CategoryID  string   `json:"category_id"`
		ImageURLs   []string `json:"image_urls"`
		Tags        []string `json:"tags"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := models.Product{
		ID:          gocql.TimeUUID(),
		Name:        req.Name,
		Description: req.Description,
		Brand:       req.Brand,
		ImageURLs:   req.ImageURLs,
		Tags:        req.Tags,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if req.CategoryID != "" {
		catUUID, err := gocql.ParseUUID(req.CategoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID de catégorie invalide"})
			return
		}
		p.CategoryID = catUUID
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	query := `INSERT INTO ks_catalog.products (product_id, name, description, brand, category_id, image_urls, tags, is_active, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if err := session.Query(query, p.ID, p.Name, p.Description, p.Brand, p.CategoryID,
		p.ImageURLs, p.Tags, p.IsActive, p.CreatedAt, p.UpdatedAt).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création produit: " + err.Error()})
		return
	}

	// 🔄 Indexation Elasticsearch + invalidation du cache liste
	go services.IndexProduct(p)
	database.RedisClient.Del(context.Background(), productsCacheKey)

	c.JSON(http.StatusCreated, p)
}

func GetAllProducts(c *gin.Context) {
	ctx := context.Background()

	// ✅ Vérifie le cache Redis
	if val, err := database.RedisClient.Get(ctx, productsCacheKey).Result(); err == nil && val != "" {
		var cached []models.Product
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, description, brand, category_id, image_urls, tags, is_active, created_at, updated_at
		FROM ks_catalog.products`).Iter()

	var products []models.Product
	var p models.Product

	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Brand, &p.CategoryID, &p.ImageURLs,
		&p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt) {
		if p.IsActive {
			products = append(products, p)
		}
		p = models.Product{}
	}

	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produits: " + err.Error()})
		return
	}

	// ✅ Met en cache 1h
	if data, err := json.Marshal(products); err == nil {
		database.RedisClient.Set(ctx, productsCacheKey, data, time.Hour)
	}

	c.JSON(http.StatusOK, products)
}

func SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'q' manquant"})
		return
	}

	// 🔎 1️⃣ Recherche dans Elasticsearch (prioritaire)
	results, err := services.SearchProducts(query)
	if err == nil && len(results) > 0 {
		for i := range results {
			if urls, ok := results[i]["image_urls"].([]interface{}); ok {
				results[i]["image_urls"] = signInterfaceURLs(urls)
			}
		}
		c.JSON(http.StatusOK, results)
		return
	}

	// 🔁 2️⃣ Fallback ScyllaDB si ES vide ou indisponible (scan + filtre en mémoire)
	ctx := context.Background()
	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, description, brand, category_id, image_urls, tags, is_active, created_at, updated_at
		FROM ks_catalog.products`).Iter()

	var products []models.Product
	var p models.Product

	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Brand, &p.CategoryID, &p.ImageURLs,
		&p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt) {
		if p.IsActive && (containsIgnoreCase(p.Name, query) || containsIgnoreCase(p.Description, query) ||
			containsIgnoreCase(p.Brand, query) || containsTagsIgnoreCase(p.Tags, query)) {
			p.ImageURLs = signURLs(ctx, p.ImageURLs)
			products = append(products, p)
		}
		p = models.Product{}
	}

	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur recherche: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, products)
}

func GetProductsByCategory(c *gin.Context) {
	catUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de catégorie invalide"})
		return
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, description, brand, category_id, image_urls, tags, is_active, created_at, updated_at
		FROM ks_catalog.products WHERE category_id = ? ALLOW FILTERING`, catUUID).Iter()

	var products []models.Product
	var p models.Product

	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Brand, &p.CategoryID, &p.ImageURLs,
		&p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt) {
		if p.IsActive {
			products = append(products, p)
		}
		p = models.Product{}
	}

	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produits: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, products)
}

// Helpers recherche / signature d'URLs

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsTagsIgnoreCase(tags []string, query string) bool {
	for _, tag := range tags {
		if containsIgnoreCase(tag, query) {
			return true
		}
	}
	return false
}

func signURLs(ctx context.Context, urls []string) []string {
	signed := []string{}
	for _, u := range urls {
		if u == "" {
			continue
		}
		if s, err := services.GenerateSignedURL(ctx, u, 24*time.Hour); err == nil {
			signed = append(signed, s)
		}
	}
	return signed
}

func signInterfaceURLs(urls []interface{}) []string {
	signed := []string{}
	for _, u := range urls {
		if str, ok := u.(string); ok && str != "" {
			if s, err := services.GenerateSignedURL(context.Background(), str, 24*time.Hour); err == nil {
				signed = append(signed, s)
			}
		}
	}
	return signed
}
