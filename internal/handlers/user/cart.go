package user

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"vitacart_back_end/internal/cache"
	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
)

const CartTTL = 30 * 24 * time.Hour // 30 jours

// cartKey est la clé Redis du panier, aussi utilisée comme canal pub/sub
// pour la synchronisation temps réel (voir cart_websocket.go).
func cartKey(userID string) string { return "cart:" + userID }

func loadCart(ctx context.Context, userID string) []models.CartItem {
	cart := []models.CartItem{}
	data, err := database.Redis.Get(ctx, cartKey(userID)).Result()
	if err == nil && data != "" {
		json.Unmarshal([]byte(data), &cart)
	}
	return cart
}

func saveCart(ctx context.Context, userID string, cart []models.CartItem) {
	jsonData, _ := json.Marshal(cart)
	pipe := database.Redis.Pipeline()
	pipe.Set(ctx, cartKey(userID), jsonData, CartTTL)
	pipe.Publish(ctx, cartKey(userID), "updated") // sync temps réel
	pipe.Exec(ctx)
}

// cartTotals relit les prix actuels en base : le panier Redis ne stocke
// jamais de prix, le conditionnement reste la source de vérité.
func cartTotals(ctx context.Context, cart []models.CartItem) (int64, []gin.H) {
	session, err := database.GetCatalogSession()
	if err != nil {
		return 0, nil
	}

	// Les noms produits peuvent changer après l'ajout au panier : on les
	// rafraîchit depuis le cache produit plutôt que la copie du panier.
	productIDs := make([]string, 0, len(cart))
	for _, item := range cart {
		productIDs = append(productIDs, item.ProductID)
	}
	freshNames := cache.GetProductNamesFromCache(productIDs)

	var total int64
	lines := make([]gin.H, 0, len(cart))
	for _, item := range cart {
		variantID, err := uuid.Parse(item.VariantID)
		if err != nil {
			continue
		}
		var salePriceCents int64
		err = session.Query(`SELECT sale_price_cents FROM ks_catalog.pack_sizes WHERE variant_id = ? AND size = ?`,
			gocql.UUID(variantID), item.PackSize).WithContext(ctx).Scan(&salePriceCents)
		if err != nil {
			continue
		}
		name := item.ProductName
		if fresh, ok := freshNames[item.ProductID]; ok && fresh != "" {
			name = fresh
		}
		lineTotal := salePriceCents * int64(item.Quantity)
		total += lineTotal
		lines = append(lines, gin.H{
			"product_id":       item.ProductID,
			"variant_id":       item.VariantID,
			"product_name":     name,
			"flavor":           item.Flavor,
			"pack_size":        item.PackSize,
			"quantity":         item.Quantity,
			"image_url":        item.ImageURL,
			"sale_price_cents": salePriceCents,
			"line_total_cents": lineTotal,
		})
	}
	return total, lines
}

// GetCart récupère le panier (seulement Redis + relecture des prix)
func GetCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	ctx := context.Background()
	cart := loadCart(ctx, userID)
	if len(cart) == 0 {
		c.JSON(http.StatusOK, gin.H{"items": []models.CartItem{}, "total_cents": 0, "count": 0})
		return
	}

	total, lines := cartTotals(ctx, cart)
	c.JSON(http.StatusOK, gin.H{
		"items":       lines,
		"total_cents": total,
		"count":       len(cart),
	})
}

// AddToCart ajoute un conditionnement au panier après contrôle du stock
func AddToCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	var input struct {
		VariantID string `json:"variantId" binding:"required"`
		PackSize  string `json:"packSize" binding:"required"`
		Quantity  int    `json:"quantity" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	variantID, err := uuid.Parse(input.VariantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID variante invalide"})
		return
	}

	session, err := database.GetCatalogSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Variante + conditionnement : existence, activité, stock
	var (
		productID gocql.UUID
		flavor    string
		isActive  bool
	)
	err = session.Query(`SELECT product_id, flavor, is_active FROM ks_catalog.variants WHERE variant_id = ?`,
		gocql.UUID(variantID)).Scan(&productID, &flavor, &isActive)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Variante introuvable"})
		return
	}
	if !isActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cette variante n'est plus disponible"})
		return
	}

	var stock int
	err = session.Query(`SELECT quantity FROM ks_catalog.pack_sizes WHERE variant_id = ? AND size = ?`,
		gocql.UUID(variantID), input.PackSize).Scan(&stock)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conditionnement introuvable"})
		return
	}
	if stock < input.Quantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Stock insuffisant"})
		return
	}

	var (
		productName string
		imageURLs   []string
	)
	session.Query(`SELECT name, image_urls FROM ks_catalog.products WHERE product_id = ?`, productID).
		Scan(&productName, &imageURLs)
	imageURL := ""
	if len(imageURLs) > 0 {
		imageURL = imageURLs[0]
	}

	ctx := context.Background()
	cart := loadCart(ctx, userID)

	found := false
	for i := range cart {
		if cart[i].VariantID == input.VariantID && cart[i].PackSize == input.PackSize {
			newQuantity := cart[i].Quantity + input.Quantity
			if newQuantity > stock {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Stock insuffisant pour cette quantité"})
				return
			}
			cart[i].Quantity = newQuantity
			found = true
			break
		}
	}
	if !found {
		cart = append(cart, models.CartItem{
			ProductID:   productID.String(),
			VariantID:   input.VariantID,
			ProductName: productName,
			Flavor:      flavor,
			PackSize:    input.PackSize,
			Quantity:    input.Quantity,
			ImageURL:    imageURL,
		})
	}

	saveCart(ctx, userID, cart)

	total, lines := cartTotals(ctx, cart)
	c.JSON(http.StatusOK, gin.H{
		"message":     "Produit ajouté au panier",
		"items":       lines,
		"total_cents": total,
		"count":       len(cart),
	})
}

// UpdateCartQuantity met à jour la quantité d'une ligne du panier
func UpdateCartQuantity(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	var input struct {
		VariantID string `json:"variantId" binding:"required"`
		PackSize  string `json:"packSize" binding:"required"`
		Quantity  int    `json:"quantity" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	ctx := context.Background()
	cart := loadCart(ctx, userID)

	updated := make([]models.CartItem, 0, len(cart))
	for _, item := range cart {
		if item.VariantID == input.VariantID && item.PackSize == input.PackSize {
			if input.Quantity == 0 {
				continue // quantité zéro = suppression de la ligne
			}
			item.Quantity = input.Quantity
		}
		updated = append(updated, item)
	}

	saveCart(ctx, userID, updated)

	total, lines := cartTotals(ctx, updated)
	c.JSON(http.StatusOK, gin.H{
		"items":       lines,
		"total_cents": total,
		"count":       len(updated),
	})
}

// RemoveFromCart supprime toutes les lignes d'une variante (ou une seule
// si ?size= est fourni)
func RemoveFromCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	variantID := c.Param("variantId")
	size := c.Query("size")

	ctx := context.Background()
	cart := loadCart(ctx, userID)

	updated := make([]models.CartItem, 0, len(cart))
	for _, item := range cart {
		if item.VariantID == variantID && (size == "" || item.PackSize == size) {
			continue
		}
		updated = append(updated, item)
	}

	saveCart(ctx, userID, updated)

	total, lines := cartTotals(ctx, updated)
	c.JSON(http.StatusOK, gin.H{
		"message":     "Produit retiré du panier",
		"items":       lines,
		"total_cents": total,
		"count":       len(updated),
	})
}

// ClearCart vide entièrement le panier
func ClearCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	ctx := context.Background()
	pipe := database.Redis.Pipeline()
	pipe.Del(ctx, cartKey(userID))
	pipe.Publish(ctx, cartKey(userID), "cleared")
	pipe.Exec(ctx)

	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé"})
}
