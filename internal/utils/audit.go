package utils

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
)

// LogAction enregistre une action dans les logs d'audit
func LogAction(c *gin.Context, action, resource string, resourceID string, oldValue, newValue interface{}) {
	go func() {
		if err := logActionAsync(c, action, resource, resourceID, oldValue, newValue, true, ""); err != nil {
			log.Printf("❌ Erreur enregistrement log audit: %v", err)
		}
	}()
}

// LogFailedAction enregistre une action échouée dans les logs d'audit
func LogFailedAction(c *gin.Context, action, resource, resourceID, errorMsg string) {
	go func() {
		if err := logActionAsync(c, action, resource, resourceID, nil, nil, false, errorMsg); err != nil {
			log.Printf("❌ Erreur enregistrement log audit: %v", err)
		}
	}()
}

func logActionAsync(c *gin.Context, action, resource, resourceID string, oldValue, newValue interface{}, success bool, errorMsg string) error {
	usersSession, err := database.GetUsersSession()
	if err != nil {
		return err
	}

	userID, _ := c.Get("user_id")
	userEmail, _ := c.Get("email")

	var oldValueStr, newValueStr string
	if oldValue != nil {
		if oldBytes, err := json.Marshal(oldValue); err == nil {
			oldValueStr = string(oldBytes)
		}
	}
	if newValue != nil {
		if newBytes, err := json.Marshal(newValue); err == nil {
			newValueStr = string(newBytes)
		}
	}

	auditLog := models.AuditLog{
		ID:         gocql.TimeUUID(),
		UserID:     getStringValue(userID),
		UserEmail:  getStringValue(userEmail),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		OldValue:   oldValueStr,
		NewValue:   newValueStr,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
		Success:    success,
		ErrorMsg:   errorMsg,
		Timestamp:  time.Now(),
	}

	query := `
		INSERT INTO audit_logs (
			id, user_id, user_email, action, resource, resource_id,
			old_value, new_value, ip_address, user_agent, success,
			error_msg, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return usersSession.Query(query,
		auditLog.ID, auditLog.UserID, auditLog.UserEmail, auditLog.Action,
		auditLog.Resource, auditLog.ResourceID, auditLog.OldValue, auditLog.NewValue,
		auditLog.IPAddress, auditLog.UserAgent, auditLog.Success, auditLog.ErrorMsg,
		auditLog.Timestamp,
	).Exec()
}

func getStringValue(value interface{}) string {
	if value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return str
	}
	return ""
}

// Actions d'audit prédéfinies
const (
	// Actions produits
	ACTION_PRODUCT_CREATE       = "product.create"
	ACTION_PRODUCT_UPDATE       = "product.update"
	ACTION_PRODUCT_DELETE       = "product.delete"
	ACTION_PRODUCT_PRICE_CHANGE = "product.price_change"

	// Actions commandes
	ACTION_ORDER_CREATE         = "order.create"
	ACTION_ORDER_ITEM_STATUS    = "order.item_status"
	ACTION_ORDER_CANCEL         = "order.cancel"
	ACTION_RETURN_REQUEST       = "order.return_request"
	ACTION_RETURN_APPROVE       = "order.return_approve"
	ACTION_RETURN_REJECT        = "order.return_reject"
	ACTION_ORDER_REFUND         = "order.refund"

	// Actions utilisateurs
	ACTION_USER_CREATE = "user.create"
	ACTION_USER_UPDATE = "user.update"
	ACTION_USER_DELETE = "user.delete"

	// Actions portefeuille
	ACTION_WALLET_CREDIT = "wallet.credit"
	ACTION_WALLET_DEBIT  = "wallet.debit"

	// Actions coupons
	ACTION_COUPON_CREATE = "coupon.create"
	ACTION_COUPON_UPDATE = "coupon.update"
	ACTION_COUPON_DELETE = "coupon.delete"

	// Actions inventaire
	ACTION_STOCK_UPDATE = "stock.update"
	ACTION_STOCK_ALERT  = "stock.alert"

	// Actions système
	ACTION_LOGIN_SUCCESS = "auth.login_success"
	ACTION_LOGIN_FAILED  = "auth.login_failed"
	ACTION_LOGOUT        = "auth.logout"
)

// Resources d'audit
const (
	RESOURCE_PRODUCT   = "product"
	RESOURCE_ORDER     = "order"
	RESOURCE_USER      = "user"
	RESOURCE_WALLET    = "wallet"
	RESOURCE_COUPON    = "coupon"
	RESOURCE_INVENTORY = "inventory"
	RESOURCE_AUTH      = "auth"
)
