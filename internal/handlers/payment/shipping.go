package payment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vitacart_back_end/internal/models"
)

// Livraison offerte à partir de 50€ d'achat (option standard).
const FreeShippingThresholdCents = 5000

// shippingOptions retourne les options disponibles, la standard passant à
// zéro au-dessus du seuil.
func shippingOptions(cartTotalCents int64) []models.ShippingOption {
	options := []models.ShippingOption{
		{
			ID:            "standard",
			Name:          "Livraison Standard",
			Description:   "Livraison en 5-7 jours ouvrés",
			PriceCents:    599,
			EstimatedDays: 7,
		},
		{
			ID:            "express",
			Name:          "Livraison Express",
			Description:   "Livraison en 2-3 jours ouvrés",
			PriceCents:    1299,
			EstimatedDays: 3,
		},
		{
			ID:            "next_day",
			Name:          "Livraison 24h",
			Description:   "Livraison le lendemain avant 18h",
			PriceCents:    1999,
			EstimatedDays: 1,
		},
	}

	if cartTotalCents >= FreeShippingThresholdCents {
		options[0].PriceCents = 0
		options[0].Name = "Livraison Standard Gratuite"
	}

	return options
}

func shippingOptionByID(id string, cartTotalCents int64) *models.ShippingOption {
	for _, opt := range shippingOptions(cartTotalCents) {
		if opt.ID == id {
			return &opt
		}
	}
	return nil
}

// GetShippingOptions retourne les options de livraison disponibles
func GetShippingOptions(c *gin.Context) {
	var cartTotalCents int64
	if raw := c.Query("cart_total_cents"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n >= 0 {
			cartTotalCents = n
		}
	}

	c.JSON(http.StatusOK, models.ShippingCalculation{
		Options:            shippingOptions(cartTotalCents),
		FreeThresholdCents: FreeShippingThresholdCents,
		CartTotalCents:     cartTotalCents,
		IsFree:             cartTotalCents >= FreeShippingThresholdCents,
	})
}
