package ledger

import (
	"math"
	"time"

	"vitacart_back_end/internal/models"
)

// ReturnWindowDays est la fenêtre de retour après livraison, en jours
// calendaires (arrondi supérieur de l'écart horloge).
const ReturnWindowDays = 5

// RecomputeTotals recalcule les champs monétaires d'une commande à partir
// des seuls articles actifs (ni annulés ni retournés).
// Invariant maintenu : total = subtotal - coupon - discount + shipping.
func RecomputeTotals(o *models.Order) {
	var subtotal, discount int64
	for _, it := range o.Items {
		if !it.Active() {
			continue
		}
		subtotal += it.PriceCents * int64(it.Quantity)
		discount += (it.PriceCents - it.SalePriceCents) * int64(it.Quantity)
	}
	o.SubtotalCents = subtotal
	o.DiscountCents = discount
	o.TotalCents = subtotal - o.CouponCents - discount + o.ShippingCents
}

// ActiveSaleTotalCents retourne la somme prix promo x quantité des articles
// actifs. C'est ce montant qui est comparé au minimum d'un coupon.
func ActiveSaleTotalCents(o *models.Order) int64 {
	var total int64
	for _, it := range o.Items {
		if it.Active() {
			total += it.LineTotalCents()
		}
	}
	return total
}

// refundForItem calcule le remboursement d'un article retiré de la commande
// et défait le coupon si le total actif restant passe sous son minimum.
// L'article doit déjà être marqué cancelled/returned avant l'appel : le
// montant défait du coupon est déduit du remboursement. Retourne le montant
// en centimes et un indicateur de coupon défait.
func refundForItem(o *models.Order, it *models.OrderItem, coupon *models.Coupon) (int64, bool) {
	refund := it.LineTotalCents()

	if o.CouponCode == "" || coupon == nil {
		return refund, false
	}
	if ActiveSaleTotalCents(o) >= coupon.MinAmountCents {
		return refund, false
	}

	// Le total restant ne justifie plus le coupon : on le retire de la
	// commande et on déduit la réduction déjà accordée du remboursement.
	refund -= o.CouponCents
	if refund < 0 {
		refund = 0
	}
	o.CouponCode = ""
	o.CouponCents = 0
	return refund, true
}

// WithinReturnWindow vérifie que la demande de retour arrive au plus tard
// ReturnWindowDays jours calendaires après la livraison. Le jour 5 exact
// passe, le jour 6 est refusé.
func WithinReturnWindow(deliveredAt, now time.Time) bool {
	elapsed := now.Sub(deliveredAt)
	if elapsed < 0 {
		return true
	}
	days := int(math.Ceil(elapsed.Hours() / 24))
	return days <= ReturnWindowDays
}
