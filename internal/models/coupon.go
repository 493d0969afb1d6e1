package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Coupon struct {
	ID             gocql.UUID `json:"id"`
	Code           string     `json:"code"`
	DiscountCents  int64      `json:"discount_cents"` // réduction fixe en centimes
	MinAmountCents int64      `json:"min_amount_cents"`
	UsageLimit     int        `json:"usage_limit"`
	Used           int        `json:"used"`
	StartsAt       time.Time  `json:"starts_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	IsActive       bool       `json:"is_active"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type CouponUsage struct {
	ID       gocql.UUID `json:"id"`
	CouponID gocql.UUID `json:"coupon_id"`
	UserID   string     `json:"user_id"`
	OrderID  gocql.UUID `json:"order_id"`
	UsedAt   time.Time  `json:"used_at"`
}

type CouponValidation struct {
	IsValid       bool   `json:"is_valid"`
	ErrorMessage  string `json:"error_message,omitempty"`
	DiscountCents int64  `json:"discount_cents"`
	Code          string `json:"code"`
}
