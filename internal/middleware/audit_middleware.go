package middleware

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"vitacart_back_end/internal/utils"
)

// AuditPriceChanges audite les modifications de prix des conditionnements.
func AuditPriceChanges() gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var requestData map[string]interface{}
		if err := json.Unmarshal(bodyBytes, &requestData); err != nil {
			c.Next()
			return
		}

		_, hasPrice := requestData["price_cents"]
		_, hasSale := requestData["sale_price_cents"]
		if !hasPrice && !hasSale {
			c.Next()
			return
		}

		variantID := c.Param("variantId")

		c.Next()

		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			utils.LogAction(c, utils.ACTION_PRODUCT_PRICE_CHANGE, utils.RESOURCE_PRODUCT,
				variantID, nil, map[string]interface{}{
					"price_cents":      requestData["price_cents"],
					"sale_price_cents": requestData["sale_price_cents"],
				})
		}
	}
}

// AuditCriticalActions audite une action sensible, succès ou échec.
func AuditCriticalActions(action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resourceID := c.Param("id")
		if resourceID == "" {
			resourceID = c.Param("orderId")
		}
		if resourceID == "" {
			resourceID = c.Param("couponId")
		}

		c.Next()

		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			utils.LogAction(c, action, resource, resourceID, nil, nil)
		} else {
			utils.LogFailedAction(c, action, resource, resourceID, "Action échouée")
		}
	}
}
