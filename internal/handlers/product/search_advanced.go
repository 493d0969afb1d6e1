package product

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
	"vitacart_back_end/internal/services"
)

type searchResult struct {
	models.Product
	MinPriceCents int64    `json:"min_price_cents"`
	MaxPriceCents int64    `json:"max_price_cents"`
	Flavors       []string `json:"flavors"`
}

// SearchProductsAdvanced recherche avancée avec filtres et tri.
// Les prix sont filtrés sur le prix de vente minimum parmi les conditionnements.
func SearchProductsAdvanced(c *gin.Context) {
	query := c.Query("q")
	categoryID := c.Query("category")
	brand := c.Query("brand")
	minPrice := c.Query("min_price_cents")
	maxPrice := c.Query("max_price_cents")
	sortBy := c.DefaultQuery("sort", "relevance")
	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "20")

	pageNum, _ := strconv.Atoi(page)
	limitNum, _ := strconv.Atoi(limit)

	if pageNum < 1 {
		pageNum = 1
	}
	if limitNum < 1 || limitNum > 100 {
		limitNum = 20
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var products []models.Product
	var p models.Product

	if categoryID != "" {
		catUUID, err := gocql.ParseUUID(categoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID catégorie invalide"})
			return
		}

		iter := session.Query(`SELECT product_id, name, description, brand, category_id, image_urls, tags, is_active, created_at, updated_at
			FROM ks_catalog.products WHERE category_id = ? ALLOW FILTERING`, catUUID).Iter()
		for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Brand, &p.CategoryID, &p.ImageURLs,
			&p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt) {
			if p.IsActive {
				products = append(products, p)
			}
			p = models.Product{}
		}
		iter.Close()
	} else {
		iter := session.Query(`SELECT product_id, name, description, brand, category_id, image_urls, tags, is_active, created_at, updated_at
			FROM ks_catalog.products`).Iter()
		for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Brand, &p.CategoryID, &p.ImageURLs,
			&p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt) {
			if p.IsActive {
				products = append(products, p)
			}
			p = models.Product{}
		}
		iter.Close()
	}

	// Filtre texte : Elastic d'abord, repli en mémoire si indisponible
	if query != "" {
		hits, err := services.SearchProductsFiltered(query, brand, categoryID, 100)
		if err == nil {
			matched := map[string]bool{}
			for _, hit := range hits {
				if id, ok := hit["id"].(string); ok {
					matched[id] = true
				}
			}
			var filtered []models.Product
			for _, prod := range products {
				if matched[prod.ID.String()] {
					filtered = append(filtered, prod)
				}
			}
			products = filtered
		} else {
			queryLower := strings.ToLower(query)
			var filtered []models.Product
			for _, prod := range products {
				if strings.Contains(strings.ToLower(prod.Name), queryLower) ||
					strings.Contains(strings.ToLower(prod.Description), queryLower) ||
					strings.Contains(strings.ToLower(prod.Brand), queryLower) {
					filtered = append(filtered, prod)
				}
			}
			products = filtered
		}
	}
	if brand != "" {
		var filtered []models.Product
		for _, prod := range products {
			if strings.EqualFold(prod.Brand, brand) {
				filtered = append(filtered, prod)
			}
		}
		products = filtered
	}

	// Enrichir avec prix min/max et saveurs, puis filtrer par prix
	results := enrichWithPricing(session, products)

	if minPrice != "" || maxPrice != "" {
		var minCents, maxCents int64
		if minPrice != "" {
			minCents, _ = strconv.ParseInt(minPrice, 10, 64)
		}
		if maxPrice != "" {
			maxCents, _ = strconv.ParseInt(maxPrice, 10, 64)
		}

		var filtered []searchResult
		for _, r := range results {
			if minPrice != "" && r.MinPriceCents < minCents {
				continue
			}
			if maxPrice != "" && r.MinPriceCents > maxCents {
				continue
			}
			filtered = append(filtered, r)
		}
		results = filtered
	}

	switch sortBy {
	case "price_asc":
		sortByPriceAsc(results)
	case "price_desc":
		sortByPriceDesc(results)
	case "newest":
		sortByNewest(results)
	}

	// Pagination
	total := len(results)
	start := (pageNum - 1) * limitNum
	end := start + limitNum

	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"products": results[start:end],
		"pagination": gin.H{
			"page":        pageNum,
			"limit":       limitNum,
			"total":       total,
			"total_pages": (total + limitNum - 1) / limitNum,
		},
		"filters": gin.H{
			"query":           query,
			"category":        categoryID,
			"brand":           brand,
			"min_price_cents": minPrice,
			"max_price_cents": maxPrice,
			"sort":            sortBy,
		},
	})
}

// GetProductFilters retourne les filtres disponibles (marques, saveurs, fourchette de prix)
func GetProductFilters(c *gin.Context) {
	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	brandSet := map[string]bool{}
	iter := session.Query(`SELECT brand, is_active FROM ks_catalog.products`).Iter()
	var b string
	var active bool
	for iter.Scan(&b, &active) {
		if active && b != "" {
			brandSet[b] = true
		}
	}
	iter.Close()

	brands := make([]string, 0, len(brandSet))
	for b := range brandSet {
		brands = append(brands, b)
	}

	flavorSet := map[string]bool{}
	vIter := session.Query(`SELECT flavor, is_active FROM ks_catalog.variants`).Iter()
	var f string
	for vIter.Scan(&f, &active) {
		if active && f != "" {
			flavorSet[f] = true
		}
	}
	vIter.Close()

	flavors := make([]string, 0, len(flavorSet))
	for f := range flavorSet {
		flavors = append(flavors, f)
	}

	var minCents, maxCents int64
	first := true
	psIter := session.Query(`SELECT sale_price_cents FROM ks_catalog.pack_sizes`).Iter()
	var cents int64
	for psIter.Scan(&cents) {
		if first {
			minCents, maxCents = cents, cents
			first = false
		} else {
			if cents < minCents {
				minCents = cents
			}
			if cents > maxCents {
				maxCents = cents
			}
		}
	}
	psIter.Close()

	c.JSON(http.StatusOK, gin.H{
		"brands":  brands,
		"flavors": flavors,
		"price_range_cents": gin.H{
			"min": minCents,
			"max": maxCents,
		},
		"sort_options": []gin.H{
			{"value": "relevance", "label": "Pertinence"},
			{"value": "price_asc", "label": "Prix croissant"},
			{"value": "price_desc", "label": "Prix décroissant"},
			{"value": "newest", "label": "Plus récents"},
		},
	})
}

// Charge les saveurs et conditionnements de chaque produit pour déterminer sa fourchette de prix
func enrichWithPricing(session *gocql.Session, products []models.Product) []searchResult {
	results := make([]searchResult, 0, len(products))

	for _, prod := range products {
		r := searchResult{Product: prod}

		vIter := session.Query(`SELECT variant_id, flavor, is_active FROM ks_catalog.variants
			WHERE product_id = ? ALLOW FILTERING`, prod.ID).Iter()

		var variantID gocql.UUID
		var flavor string
		var active bool
		var variantIDs []gocql.UUID

		for vIter.Scan(&variantID, &flavor, &active) {
			if active {
				variantIDs = append(variantIDs, variantID)
				r.Flavors = append(r.Flavors, flavor)
			}
		}
		vIter.Close()

		first := true
		for _, vid := range variantIDs {
			psIter := session.Query(`SELECT sale_price_cents FROM ks_catalog.pack_sizes WHERE variant_id = ?`, vid).Iter()
			var cents int64
			for psIter.Scan(&cents) {
				if first {
					r.MinPriceCents, r.MaxPriceCents = cents, cents
					first = false
				} else {
					if cents < r.MinPriceCents {
						r.MinPriceCents = cents
					}
					if cents > r.MaxPriceCents {
						r.MaxPriceCents = cents
					}
				}
			}
			psIter.Close()
		}

		results = append(results, r)
	}

	return results
}

func sortByPriceAsc(results []searchResult) {
	for i := 0; i < len(results)-1; i++ {
		for j := i + 1; j < len(results); j++ {
			if results[i].MinPriceCents > results[j].MinPriceCents {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
}

func sortByPriceDesc(results []searchResult) {
	for i := 0; i < len(results)-1; i++ {
		for j := i + 1; j < len(results); j++ {
			if results[i].MinPriceCents < results[j].MinPriceCents {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
}

func sortByNewest(results []searchResult) {
	for i := 0; i < len(results)-1; i++ {
		for j := i + 1; j < len(results); j++ {
			if results[i].CreatedAt.Before(results[j].CreatedAt) {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
}
