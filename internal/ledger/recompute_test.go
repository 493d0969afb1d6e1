package ledger

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"

	"vitacart_back_end/internal/models"
)

func orderWith(items ...models.OrderItem) *models.Order {
	return &models.Order{ID: gocql.TimeUUID(), Items: items}
}

func item(priceCents, saleCents int64, qty int, status string) models.OrderItem {
	return models.OrderItem{
		ID:             gocql.TimeUUID(),
		PriceCents:     priceCents,
		SalePriceCents: saleCents,
		Quantity:       qty,
		Status:         status,
	}
}

func TestRecomputeTotals(t *testing.T) {
	t.Run("articles actifs seulement", func(t *testing.T) {
		o := orderWith(
			item(10000, 9000, 1, models.ItemProcessing),
			item(10000, 9000, 1, models.ItemCancelled),
		)
		RecomputeTotals(o)
		assert.Equal(t, int64(10000), o.SubtotalCents)
		assert.Equal(t, int64(1000), o.DiscountCents)
		assert.Equal(t, int64(9000), o.TotalCents)
	})

	t.Run("coupon et livraison inclus", func(t *testing.T) {
		o := orderWith(item(10000, 9000, 2, models.ItemShipped))
		o.CouponCents = 2000
		o.ShippingCents = 500
		RecomputeTotals(o)
		assert.Equal(t, int64(20000), o.SubtotalCents)
		assert.Equal(t, int64(2000), o.DiscountCents)
		assert.Equal(t, int64(16500), o.TotalCents)
	})

	t.Run("tout annulé donne zéro", func(t *testing.T) {
		o := orderWith(
			item(10000, 9000, 1, models.ItemCancelled),
			item(5000, 5000, 2, models.ItemReturned),
		)
		RecomputeTotals(o)
		assert.Zero(t, o.SubtotalCents)
		assert.Zero(t, o.DiscountCents)
		assert.Zero(t, o.TotalCents)
	})
}

func TestActiveSaleTotalCents(t *testing.T) {
	o := orderWith(
		item(10000, 9000, 2, models.ItemProcessing),
		item(10000, 9000, 1, models.ItemReturned),
		item(5000, 5000, 1, models.ItemDelivered),
	)
	assert.Equal(t, int64(23000), ActiveSaleTotalCents(o))
}

func TestRefundForItem(t *testing.T) {
	coupon := &models.Coupon{Code: "PROMO20", DiscountCents: 2000, MinAmountCents: 15000}

	t.Run("sans coupon, remboursement plein", func(t *testing.T) {
		o := orderWith(
			item(10000, 9000, 1, models.ItemCancelled),
			item(10000, 9000, 1, models.ItemProcessing),
		)
		refund, unwound := refundForItem(o, &o.Items[0], nil)
		assert.Equal(t, int64(9000), refund)
		assert.False(t, unwound)
	})

	t.Run("minimum encore atteint, coupon conservé", func(t *testing.T) {
		o := orderWith(
			item(10000, 9000, 1, models.ItemCancelled),
			item(10000, 9000, 2, models.ItemProcessing),
		)
		o.CouponCode, o.CouponCents = coupon.Code, coupon.DiscountCents
		refund, unwound := refundForItem(o, &o.Items[0], coupon)
		assert.Equal(t, int64(9000), refund)
		assert.False(t, unwound)
		assert.Equal(t, "PROMO20", o.CouponCode)
	})

	t.Run("minimum perdu, coupon défait et déduit", func(t *testing.T) {
		o := orderWith(
			item(10000, 9000, 1, models.ItemCancelled),
			item(10000, 9000, 1, models.ItemProcessing),
		)
		o.CouponCode, o.CouponCents = coupon.Code, coupon.DiscountCents
		refund, unwound := refundForItem(o, &o.Items[0], coupon)
		assert.Equal(t, int64(7000), refund)
		assert.True(t, unwound)
		assert.Empty(t, o.CouponCode)
		assert.Zero(t, o.CouponCents)
	})

	t.Run("remboursement jamais négatif", func(t *testing.T) {
		o := orderWith(item(1000, 1000, 1, models.ItemCancelled))
		big := &models.Coupon{Code: "BIG", DiscountCents: 5000, MinAmountCents: 100000}
		o.CouponCode, o.CouponCents = big.Code, big.DiscountCents
		refund, unwound := refundForItem(o, &o.Items[0], big)
		assert.Zero(t, refund)
		assert.True(t, unwound)
	})
}

func TestWithinReturnWindow(t *testing.T) {
	delivered := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"immédiatement après livraison", 0, true},
		{"jour 3", 72 * time.Hour, true},
		{"jour 5 pile", 120 * time.Hour, true},
		{"une heure de trop", 121 * time.Hour, false},
		{"jour 6", 144 * time.Hour, false},
		{"horloge en avance sur la livraison", -time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinReturnWindow(delivered, delivered.Add(tt.elapsed)))
		})
	}
}

func TestCouponRejection(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	valid := models.Coupon{
		Code: "PROMO20", DiscountCents: 2000, MinAmountCents: 15000,
		UsageLimit: 10, Used: 3, IsActive: true,
		StartsAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour),
	}

	tests := []struct {
		name      string
		mutate    func(*models.Coupon)
		saleTotal int64
		wantMsg   string
	}{
		{"valide", func(*models.Coupon) {}, 18000, ""},
		{"inactif", func(c *models.Coupon) { c.IsActive = false }, 18000, "plus actif"},
		{"pas encore commencé", func(c *models.Coupon) { c.StartsAt = now.Add(time.Minute) }, 18000, "pas encore valide"},
		{"expiré", func(c *models.Coupon) { c.ExpiresAt = now.Add(-time.Minute) }, 18000, "expiré"},
		{"limite atteinte", func(c *models.Coupon) { c.Used = 10 }, 18000, "limite"},
		{"minimum non atteint", func(*models.Coupon) {}, 9000, "minimum"},
		{"sans limite d'utilisation", func(c *models.Coupon) { c.UsageLimit = 0; c.Used = 9999 }, 18000, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			msg := couponRejection(&c, tt.saleTotal, now)
			if tt.wantMsg == "" {
				assert.Empty(t, msg)
			} else {
				assert.Contains(t, msg, tt.wantMsg)
			}
		})
	}
}
