package ledger

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"vitacart_back_end/internal/models"
)

// Bonus de parrainage, versés une seule fois à la première livraison d'un
// filleul (verrou: User.ReferralBonusApplied).
const (
	ReferrerBonusCents = 5000
	RefereeBonusCents  = 2500
)

// maxRetries borne la boucle de réécriture en cas de conflit de version.
const maxRetries = 3

// Ledger orchestre le cycle de vie des articles de commande et les effets
// financiers en cascade : restockage, remboursement portefeuille, retrait de
// coupon, bonus de parrainage. Chaque mutation de commande passe par une
// écriture conditionnelle sur la version (LWT), les effets externes ne sont
// joués qu'après une écriture gagnée — pas de double remboursement sous
// écritures concurrentes.
type Ledger struct {
	Orders   OrderStore
	Variants VariantStore
	Wallets  WalletStore
	Coupons  CouponStore
	Users    UserStore
	Carts    CartStore
	Refunds  Refunder // optionnel, remboursements carte

	// AdminOverride autorise les admins à sortir de la table de
	// transitions (jamais d'un état terminal). Désactivé par défaut.
	AdminOverride bool

	// Now est remplaçable dans les tests.
	Now func() time.Time
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// --- Passage de commande ---

type PlaceOrderInput struct {
	UserID        string
	Items         []models.CartItem
	AddressID     gocql.UUID
	Shipping      models.ShippingOption
	PaymentMethod string
	CouponCode    string
}

// PlaceOrder crée une commande depuis le panier. Le stock est vérifié ligne
// par ligne mais n'est décompté qu'à la confirmation du paiement : en ligne
// pour cod/wallet (leur confirmation est la création), au webhook pour
// card/upi. Le panier est vidé au même moment que le décompte.
func (l *Ledger) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	switch in.PaymentMethod {
	case models.PayCOD, models.PayUPI, models.PayCard, models.PayWallet:
	default:
		return nil, validationf(fmt.Sprintf("méthode de paiement inconnue: %q", in.PaymentMethod))
	}
	if len(in.Items) == 0 {
		return nil, validationf("panier vide")
	}

	now := l.now()
	order := &models.Order{
		ID:            gocql.TimeUUID(),
		UserID:        in.UserID,
		AddressID:     in.AddressID,
		ShippingID:    in.Shipping.ID,
		ShippingName:  in.Shipping.Name,
		ShippingCents: in.Shipping.PriceCents,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, line := range in.Items {
		if line.Quantity <= 0 {
			return nil, validationf("quantité invalide pour " + line.ProductName)
		}
		variantID, err := gocql.ParseUUID(line.VariantID)
		if err != nil {
			return nil, validationf("ID variante invalide: " + line.VariantID)
		}
		productID, err := gocql.ParseUUID(line.ProductID)
		if err != nil {
			return nil, validationf("ID produit invalide: " + line.ProductID)
		}

		ps, err := l.Variants.GetPackSize(ctx, variantID, line.PackSize)
		if err != nil {
			return nil, err
		}
		if ps.Quantity < line.Quantity {
			return nil, validationf(fmt.Sprintf("stock insuffisant pour %s (%s %s): %d disponible, %d demandé",
				line.ProductName, line.Flavor, line.PackSize, ps.Quantity, line.Quantity))
		}

		order.Items = append(order.Items, models.OrderItem{
			ID:             gocql.TimeUUID(),
			ProductID:      productID,
			VariantID:      variantID,
			ProductName:    line.ProductName,
			Flavor:         line.Flavor,
			PackSize:       line.PackSize,
			PriceCents:     ps.PriceCents,
			SalePriceCents: ps.SalePriceCents,
			Quantity:       line.Quantity,
			ImageURL:       line.ImageURL,
			Status:         models.ItemProcessing,
		})
	}

	RecomputeTotals(order)
	order.Status = DeriveOrderStatus(order.Items)

	if in.CouponCode != "" {
		coupon, err := l.Coupons.Get(ctx, in.CouponCode)
		if err != nil {
			return nil, err
		}
		if msg := couponRejection(coupon, ActiveSaleTotalCents(order), now); msg != "" {
			return nil, validationf(msg)
		}
		order.CouponCode = coupon.Code
		order.CouponCents = coupon.DiscountCents
		RecomputeTotals(order)
	}

	number, err := l.Orders.NextOrderNumber(ctx, now)
	if err != nil {
		return nil, err
	}
	order.OrderNumber = number

	if in.PaymentMethod == models.PayWallet {
		memo := "Paiement commande " + order.OrderNumber
		if err := l.Wallets.Debit(ctx, in.UserID, order.TotalCents, memo); err != nil {
			return nil, err
		}
		order.PaymentStatus = models.PaymentPaid
	}

	if err := l.Orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	if order.CouponCode != "" {
		if err := l.Coupons.IncrementUsed(ctx, order.CouponCode); err != nil {
			log.Printf("⚠️ Incrément d'utilisation coupon %s échoué: %v", order.CouponCode, err)
		}
		if err := l.Coupons.RecordUsage(ctx, order.CouponCode, in.UserID, order.ID); err != nil {
			log.Printf("⚠️ Trace d'utilisation coupon %s échouée: %v", order.CouponCode, err)
		}
	}

	// cod et wallet n'ont pas d'étape de confirmation séparée.
	if in.PaymentMethod == models.PayCOD || in.PaymentMethod == models.PayWallet {
		if err := l.commitInventory(ctx, order); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// couponRejection retourne le motif de refus d'un coupon, ou "" s'il passe.
func couponRejection(c *models.Coupon, saleTotalCents int64, now time.Time) string {
	switch {
	case !c.IsActive:
		return "ce coupon n'est plus actif"
	case now.Before(c.StartsAt):
		return "ce coupon n'est pas encore valide"
	case now.After(c.ExpiresAt):
		return "ce coupon a expiré"
	case c.UsageLimit > 0 && c.Used >= c.UsageLimit:
		return "ce coupon a atteint sa limite d'utilisation"
	case saleTotalCents < c.MinAmountCents:
		return fmt.Sprintf("montant minimum requis pour ce coupon: %.2f€", float64(c.MinAmountCents)/100)
	}
	return ""
}

// ValidateCoupon vérifie un code contre le montant du panier, sans
// réserver le coupon.
func (l *Ledger) ValidateCoupon(ctx context.Context, code string, saleTotalCents int64) models.CouponValidation {
	coupon, err := l.Coupons.Get(ctx, code)
	if err != nil {
		return models.CouponValidation{IsValid: false, ErrorMessage: "code coupon invalide"}
	}
	if msg := couponRejection(coupon, saleTotalCents, l.now()); msg != "" {
		return models.CouponValidation{IsValid: false, ErrorMessage: msg}
	}
	return models.CouponValidation{
		IsValid:       true,
		Code:          coupon.Code,
		DiscountCents: coupon.DiscountCents,
	}
}

// ConfirmPayment est appelé par le webhook de paiement pour card/upi.
// Idempotent : une commande déjà payée est retournée telle quelle.
func (l *Ledger) ConfirmPayment(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	for attempt := 0; ; attempt++ {
		order, err := l.Orders.GetByPaymentIntent(ctx, paymentIntentID)
		if err != nil {
			return nil, err
		}
		if order.PaymentStatus == models.PaymentPaid && order.InventoryTaken {
			return order, nil
		}

		order.PaymentStatus = models.PaymentPaid
		order.UpdatedAt = l.now()
		if err := l.Orders.Update(ctx, order, order.Version); err != nil {
			if err == ErrVersionConflict && attempt < maxRetries {
				continue
			}
			return nil, err
		}
		order.Version++

		if err := l.commitInventory(ctx, order); err != nil {
			return nil, err
		}
		return order, nil
	}
}

// FailPayment marque la commande en échec de paiement. Sans effet sur une
// commande déjà payée ou déjà en échec (webhooks rejoués, parfois dans le
// désordre).
func (l *Ledger) FailPayment(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	for attempt := 0; ; attempt++ {
		order, err := l.Orders.GetByPaymentIntent(ctx, paymentIntentID)
		if err != nil {
			return nil, err
		}
		if order.PaymentStatus != models.PaymentPending {
			return order, nil
		}

		order.PaymentStatus = models.PaymentFailed
		order.UpdatedAt = l.now()
		if err := l.Orders.Update(ctx, order, order.Version); err != nil {
			if err == ErrVersionConflict && attempt < maxRetries {
				continue
			}
			return nil, err
		}
		order.Version++
		return order, nil
	}
}

// commitInventory décompte le stock de chaque article, trace les mouvements
// et vide le panier. Une seule exécution par commande (InventoryTaken).
func (l *Ledger) commitInventory(ctx context.Context, order *models.Order) error {
	if order.InventoryTaken {
		return nil
	}
	now := l.now()
	for _, it := range order.Items {
		if !it.Active() {
			continue
		}
		orderID := order.ID
		mv := models.StockMovement{
			ID:        gocql.TimeUUID(),
			VariantID: it.VariantID,
			PackSize:  it.PackSize,
			Type:      "sale",
			Quantity:  it.Quantity,
			Reason:    "Commande " + order.OrderNumber,
			OrderID:   &orderID,
			UserID:    order.UserID,
			CreatedAt: now,
		}
		if err := l.Variants.AdjustStock(ctx, it.VariantID, it.PackSize, -it.Quantity, mv); err != nil {
			return err
		}
	}

	if err := l.Carts.Clear(ctx, order.UserID); err != nil {
		log.Printf("⚠️ Vidage du panier de %s échoué: %v", order.UserID, err)
	}

	order.InventoryTaken = true
	order.UpdatedAt = now
	if err := l.Orders.Update(ctx, order, order.Version); err != nil {
		return err
	}
	order.Version++
	return nil
}

// --- Transitions d'articles ---

// SetItemStatus fait avancer un article de commande et rejoue toute la
// cascade financière : restockage et remboursement à l'annulation, bonus de
// parrainage et passage en payé à la livraison, recalcul des totaux et du
// statut global dans tous les cas.
func (l *Ledger) SetItemStatus(ctx context.Context, orderID, itemID gocql.UUID, newStatus, reason string) (*models.Order, error) {
	for attempt := 0; ; attempt++ {
		order, err := l.Orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		item := findItem(order, itemID)
		if item == nil {
			return nil, ErrItemNotFound
		}

		if err := checkTransition(item.Status, newStatus, l.AdminOverride); err != nil {
			return nil, err
		}
		if (newStatus == models.ItemCancelled || newStatus == models.ItemReturned) && reason == "" {
			return nil, validationf("un motif est requis pour annuler ou finaliser un retour")
		}
		if newStatus == models.ItemReturned && !item.ReturnRequest {
			return nil, validationf("aucune demande de retour en attente pour cet article")
		}

		effects, err := l.applyTransition(ctx, order, item, newStatus, reason)
		if err != nil {
			return nil, err
		}

		RecomputeTotals(order)
		order.Status = DeriveOrderStatus(order.Items)
		order.UpdatedAt = l.now()

		if err := l.Orders.Update(ctx, order, order.Version); err != nil {
			if err == ErrVersionConflict && attempt < maxRetries {
				continue
			}
			return nil, err
		}
		order.Version++

		// Effets externes après l'écriture gagnée : la LWT garantit
		// qu'une seule transition les déclenche.
		l.runEffects(ctx, order, effects)
		return order, nil
	}
}

// sideEffects accumule les effets à jouer après la persistance de la
// transition. Un échec d'effet ne fait pas reculer le statut : il est
// journalisé et devra être rejoué à la main.
type sideEffects struct {
	restock     *models.StockMovement
	restockItem *models.OrderItem
	refundCents int64
	refundMemo  string
	cardRefund  bool
	referral    *models.User
}

// applyTransition mute la commande en mémoire et prépare les effets.
func (l *Ledger) applyTransition(ctx context.Context, order *models.Order, item *models.OrderItem, newStatus, reason string) (*sideEffects, error) {
	now := l.now()
	fx := &sideEffects{}

	switch newStatus {
	case models.ItemShipped:
		item.Status = models.ItemShipped

	case models.ItemDelivered:
		item.Status = models.ItemDelivered
		item.ReturnRequest = false
		t := now
		item.DeliveredAt = &t
		order.PaymentStatus = models.PaymentPaid

		user, err := l.Users.Get(ctx, order.UserID)
		if err != nil {
			return nil, err
		}
		if user.ReferredBy != "" && !user.ReferralBonusApplied {
			fx.referral = user
		}

	case models.ItemReturnRequested:
		item.Status = models.ItemReturnRequested
		item.ReturnRequest = true
		item.Reason = reason
		t := now
		item.ReturnRequestedAt = &t

	case models.ItemCancelled, models.ItemReturned:
		item.Status = newStatus
		item.Reason = reason
		item.ReturnRequest = false

		// 1. Restockage du conditionnement correspondant.
		orderID := order.ID
		mvType := "restock"
		if newStatus == models.ItemReturned {
			mvType = "return"
		}
		fx.restockItem = item
		fx.restock = &models.StockMovement{
			ID:        gocql.TimeUUID(),
			VariantID: item.VariantID,
			PackSize:  item.PackSize,
			Type:      mvType,
			Quantity:  item.Quantity,
			Reason:    fmt.Sprintf("Commande %s: %s", order.OrderNumber, reason),
			OrderID:   &orderID,
			UserID:    order.UserID,
			CreatedAt: now,
		}

		// 2. Remboursement, coupon défait d'abord : le montant en dépend.
		var coupon *models.Coupon
		if order.CouponCode != "" {
			c, err := l.Coupons.Get(ctx, order.CouponCode)
			if err != nil && err != ErrCouponNotFound {
				return nil, err
			}
			coupon = c
		}
		refund, unwound := refundForItem(order, item, coupon)
		if unwound {
			log.Printf("🎟️ Coupon retiré de la commande %s: total restant sous le minimum", order.OrderNumber)
		}

		switch order.PaymentMethod {
		case models.PayWallet, models.PayUPI:
			if order.PaymentStatus != models.PaymentPaid {
				break // rien n'a été encaissé, rien à rembourser
			}
			fx.refundCents = refund
			fx.refundMemo = fmt.Sprintf("Remboursement %s — %s (%s, %s)",
				order.OrderNumber, item.ProductName, item.Flavor, item.PackSize)
		case models.PayCard:
			if order.PaymentStatus == models.PaymentPaid && order.PaymentIntentID != "" {
				fx.refundCents = refund
				fx.cardRefund = true
			}
		}
	}

	return fx, nil
}

// runEffects joue les effets externes d'une transition déjà persistée.
func (l *Ledger) runEffects(ctx context.Context, order *models.Order, fx *sideEffects) {
	if fx.restock != nil && order.InventoryTaken {
		if err := l.Variants.AdjustStock(ctx, fx.restockItem.VariantID, fx.restockItem.PackSize, fx.restockItem.Quantity, *fx.restock); err != nil {
			log.Printf("⚠️ Restockage échoué pour %s (%s): %v", fx.restockItem.ProductName, fx.restockItem.PackSize, err)
		}
	}

	if fx.refundCents > 0 {
		if fx.cardRefund {
			if l.Refunds == nil {
				log.Printf("⚠️ Remboursement carte impossible: passerelle non configurée")
			} else if id, err := l.Refunds.RefundCard(ctx, order.PaymentIntentID, fx.refundCents); err != nil {
				log.Printf("⚠️ Remboursement carte échoué pour %s: %v", order.OrderNumber, err)
			} else {
				log.Printf("💳 Remboursement carte %s (%s): %.2f€", order.OrderNumber, id, float64(fx.refundCents)/100)
			}
		} else {
			if err := l.Wallets.Credit(ctx, order.UserID, fx.refundCents, fx.refundMemo); err != nil {
				log.Printf("⚠️ Crédit portefeuille échoué pour %s: %v", order.UserID, err)
			} else {
				log.Printf("💰 Portefeuille crédité %.2f€: %s", float64(fx.refundCents)/100, fx.refundMemo)
			}
		}
	}

	if fx.referral != nil {
		l.payReferralBonus(ctx, fx.referral)
	}
}

// payReferralBonus verse les bonus parrain/filleul, une fois par filleul.
func (l *Ledger) payReferralBonus(ctx context.Context, user *models.User) {
	if err := l.Users.MarkReferralBonusApplied(ctx, user.ID); err != nil {
		log.Printf("⚠️ Marquage bonus parrainage échoué pour %s: %v", user.ID, err)
		return
	}
	if err := l.Wallets.Credit(ctx, user.ReferredBy, ReferrerBonusCents, "Bonus de parrainage — première commande livrée de votre filleul"); err != nil {
		log.Printf("⚠️ Crédit bonus parrain %s échoué: %v", user.ReferredBy, err)
	}
	if err := l.Wallets.Credit(ctx, user.ID, RefereeBonusCents, "Bonus de bienvenue — première commande livrée"); err != nil {
		log.Printf("⚠️ Crédit bonus filleul %s échoué: %v", user.ID, err)
	}
	log.Printf("🎁 Bonus de parrainage versés (parrain %s, filleul %s)", user.ReferredBy, user.ID)
}

// --- Chemin de retour ---

// RequestReturn enregistre une demande de retour d'un article livré, dans la
// fenêtre de ReturnWindowDays jours après livraison.
func (l *Ledger) RequestReturn(ctx context.Context, userID string, orderID, itemID gocql.UUID, reason string) (*models.Order, error) {
	if reason == "" {
		return nil, validationf("un motif est requis pour demander un retour")
	}
	for attempt := 0; ; attempt++ {
		order, err := l.Orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if userID != "" && order.UserID != userID {
			return nil, ErrOrderNotFound
		}
		item := findItem(order, itemID)
		if item == nil {
			return nil, ErrItemNotFound
		}
		if item.Status != models.ItemDelivered {
			return nil, validationf(fmt.Sprintf("seul un article livré peut être retourné (statut actuel: %q)", item.Status))
		}
		if item.DeliveredAt == nil || !WithinReturnWindow(*item.DeliveredAt, l.now()) {
			return nil, validationf("la période de retour est expirée")
		}

		if _, err := l.applyTransition(ctx, order, item, models.ItemReturnRequested, reason); err != nil {
			return nil, err
		}
		order.Status = DeriveOrderStatus(order.Items)
		order.UpdatedAt = l.now()

		if err := l.Orders.Update(ctx, order, order.Version); err != nil {
			if err == ErrVersionConflict && attempt < maxRetries {
				continue
			}
			return nil, err
		}
		order.Version++
		return order, nil
	}
}

// ApproveReturn finalise un retour demandé : mêmes effets qu'une annulation
// mais vers le statut returned.
func (l *Ledger) ApproveReturn(ctx context.Context, orderID, itemID gocql.UUID) (*models.Order, error) {
	order, err := l.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := findItem(order, itemID)
	if item == nil {
		return nil, ErrItemNotFound
	}
	if !item.ReturnRequest {
		return nil, validationf("aucune demande de retour en attente pour cet article")
	}
	reason := item.Reason
	if reason == "" {
		reason = "retour approuvé"
	}
	return l.SetItemStatus(ctx, orderID, itemID, models.ItemReturned, reason)
}

// RejectReturn refuse un retour demandé et remet l'article en livré.
// Aucun effet financier.
func (l *Ledger) RejectReturn(ctx context.Context, orderID, itemID gocql.UUID) (*models.Order, error) {
	for attempt := 0; ; attempt++ {
		order, err := l.Orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		item := findItem(order, itemID)
		if item == nil {
			return nil, ErrItemNotFound
		}
		if !item.ReturnRequest || item.Status != models.ItemReturnRequested {
			return nil, validationf("aucune demande de retour en attente pour cet article")
		}

		item.Status = models.ItemDelivered
		item.ReturnRequest = false
		item.ReturnRequestedAt = nil
		item.Reason = ""

		order.Status = DeriveOrderStatus(order.Items)
		order.UpdatedAt = l.now()

		if err := l.Orders.Update(ctx, order, order.Version); err != nil {
			if err == ErrVersionConflict && attempt < maxRetries {
				continue
			}
			return nil, err
		}
		order.Version++
		return order, nil
	}
}

func findItem(order *models.Order, itemID gocql.UUID) *models.OrderItem {
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return &order.Items[i]
		}
	}
	return nil
}
