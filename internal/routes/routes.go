package routes

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vitacart_back_end/internal/handlers/admin"
	"vitacart_back_end/internal/handlers/invoice"
	"vitacart_back_end/internal/handlers/payment"
	"vitacart_back_end/internal/handlers/product"
	"vitacart_back_end/internal/handlers/user"
	"vitacart_back_end/internal/middleware"
	"vitacart_back_end/internal/utils"
)

func RegisterRoutes(r *gin.Engine) {
	r.Use(corsConfig())

	api := r.Group("/api")

	// ========== AUTH ==========
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", middleware.RegisterRateLimit(), user.Register)
		authGroup.POST("/login", middleware.LoginRateLimit(), user.Login)
		authGroup.POST("/forgot-password", middleware.LoginRateLimit(), user.ForgotPassword)
		authGroup.POST("/reset-password", user.ResetPassword)
		authGroup.POST("/refresh", user.RefreshToken)
		authGroup.GET("/:provider", user.BeginAuth)
		authGroup.GET("/:provider/callback", user.CallbackAuth)

		authGroup.Use(middleware.AuthRequired())
		authGroup.POST("/logout", user.Logout)
		authGroup.GET("/me", user.Me)
		authGroup.POST("/change-password", user.ChangePassword)
	}

	// ========== CATALOGUE (public) ==========
	products := api.Group("/products")
	{
		products.GET("", product.GetAllProducts)
		products.GET("/search", middleware.SearchRateLimit(), product.SearchProducts)
		products.GET("/search/advanced", middleware.SearchRateLimit(), product.SearchProductsAdvanced)
		products.GET("/filters", product.GetProductFilters)
		products.GET("/category/:id", product.GetProductsByCategory)
		products.GET("/:id/full", product.GetProductFull)
		products.GET("/:id/variants", product.GetProductVariants)
		products.GET("/:id/images", product.GetProductImages)
	}

	// ========== PANIER ==========
	cart := api.Group("/cart", middleware.AuthRequired(), middleware.CartRateLimit())
	{
		cart.GET("", user.GetCart)
		cart.POST("/add", user.AddToCart)
		cart.PUT("/quantity", user.UpdateCartQuantity)
		cart.DELETE("/:variantId", user.RemoveFromCart)
		cart.DELETE("", user.ClearCart)
	}
	// Websocket de synchronisation du panier (le token passe en query)
	api.GET("/cart/ws", middleware.AuthRequired(), user.CartWebSocket)

	// ========== COMMANDES / PAIEMENT ==========
	userGroup := api.Group("/user", middleware.AuthRequired())
	{
		userGroup.GET("/shipping-options", payment.GetShippingOptions)
		userGroup.GET("/coupon/validate", payment.ValidateCoupon)
		userGroup.POST("/order", middleware.CheckoutRateLimit(), payment.Checkout)
		userGroup.GET("/orders", user.GetMyOrders)
		userGroup.GET("/orders/:id", user.GetOrderByID)
		userGroup.POST("/orders/:id/cancel-item", user.CancelOrderItem)
		userGroup.POST("/orders/:id/return-item", user.RequestItemReturn)
		userGroup.GET("/wallet", user.GetMyWallet)
		userGroup.GET("/referral", user.GetReferralInfo)
		userGroup.PUT("/profile", user.UpdateProfile)

		userGroup.GET("/addresses", user.ListMyAddresses)
		userGroup.POST("/addresses", user.CreateAddress)
		userGroup.PUT("/addresses/:id/default", user.MakeDefaultAddress)
		userGroup.DELETE("/addresses/:id", user.DeleteAddress)
	}

	// Webhook Stripe : pas d'authentification, signature vérifiée dans le handler
	api.POST("/payment/webhook", payment.StripeWebhook)

	// Factures
	api.POST("/invoice/:id/send", middleware.AuthRequired(), invoice.SendInvoice)

	// ========== ADMIN ==========
	adminGroup := api.Group("/admin", middleware.AuthRequired(), middleware.RequireAdmin)
	{
		adminGroup.GET("/orders", admin.GetAllOrders)
		adminGroup.GET("/orders/recent", payment.GetRecentOrders)
		adminGroup.GET("/orders/:orderId", admin.GetOrder)
		adminGroup.PATCH("/orders/:orderId/items/:itemId", admin.UpdateOrderItemStatus)
		adminGroup.PUT("/orders/:orderId/items/:itemId/approve-return", admin.ApproveReturn)
		adminGroup.PUT("/orders/:orderId/items/:itemId/reject-return", admin.RejectReturn)

		adminGroup.GET("/dashboard", payment.GetDashboardStats)
		adminGroup.GET("/refunds", payment.GetAllRefunds)

		adminGroup.POST("/coupons",
			middleware.AuditCriticalActions(utils.ACTION_COUPON_CREATE, utils.RESOURCE_COUPON),
			payment.CreateCoupon)
		adminGroup.GET("/coupons", payment.GetAllCoupons)
		adminGroup.PUT("/coupons/:code",
			middleware.AuditCriticalActions(utils.ACTION_COUPON_UPDATE, utils.RESOURCE_COUPON),
			payment.UpdateCoupon)
		adminGroup.DELETE("/coupons/:code",
			middleware.AuditCriticalActions(utils.ACTION_COUPON_DELETE, utils.RESOURCE_COUPON),
			payment.DeleteCoupon)

		adminGroup.POST("/products",
			middleware.AuditCriticalActions(utils.ACTION_PRODUCT_CREATE, utils.RESOURCE_PRODUCT),
			product.CreateProduct)
		adminGroup.PUT("/products/:id", middleware.AuditPriceChanges(), product.UpdateProduct)
		adminGroup.DELETE("/products/:id",
			middleware.AuditCriticalActions(utils.ACTION_PRODUCT_DELETE, utils.RESOURCE_PRODUCT),
			product.DeleteProduct)
		adminGroup.POST("/products/:id/variants", product.CreateVariant)
		adminGroup.PUT("/variants/:variant_id", product.UpdateVariant)
		adminGroup.DELETE("/variants/:variant_id", product.DeleteVariant)
		adminGroup.PUT("/variants/:variant_id/pack-sizes", middleware.AuditPriceChanges(), product.UpsertPackSize)

		adminGroup.POST("/variants/:variant_id/stock",
			middleware.AuditCriticalActions(utils.ACTION_STOCK_UPDATE, utils.RESOURCE_INVENTORY),
			product.AdjustStock)
		adminGroup.GET("/stock/movements", product.GetStockMovements)
		adminGroup.GET("/stock/alerts", product.GetLowStockAlerts)
		adminGroup.PUT("/stock/alerts/:id/resolve", product.ResolveStockAlert)
		adminGroup.GET("/inventory/stats", product.GetInventoryStats)

		adminGroup.POST("/images/upload", product.UploadProductImage)
		adminGroup.POST("/images/attach", product.AddImageToProduct)
		adminGroup.DELETE("/images", product.DeleteProductImage)

		adminGroup.GET("/audit/logs", admin.GetAuditLogs)
		adminGroup.GET("/audit/logs/:resource/:resource_id", admin.GetAuditLogsByResource)
		adminGroup.GET("/audit/stats", admin.GetAuditStats)
	}
}

func corsConfig() gin.HandlerFunc {
	origins := []string{"https://vitacart.shop"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		origins = append(origins, strings.Split(extra, ",")...)
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
