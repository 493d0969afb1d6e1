package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitacart_back_end/internal/models"
)

// assertConservation vérifie l'invariant monétaire de la commande.
func assertConservation(t *testing.T, o *models.Order) {
	t.Helper()
	assert.Equal(t, o.SubtotalCents-o.CouponCents-o.DiscountCents+o.ShippingCents, o.TotalCents,
		"total != subtotal - coupon - discount + shipping")
}

// seedTwoItemCart prépare deux conditionnements en stock (prix 100€, promo
// 90€, qty 5 chacun) et retourne le panier correspondant.
func seedTwoItemCart(env *testEnv) []models.CartItem {
	v1, v2 := gocql.TimeUUID(), gocql.TimeUUID()
	p1, p2 := gocql.TimeUUID(), gocql.TimeUUID()
	env.variants.seed(v1, "1kg", 10000, 9000, 5)
	env.variants.seed(v2, "500g", 10000, 9000, 5)
	return []models.CartItem{
		{ProductID: p1.String(), VariantID: v1.String(), ProductName: "Whey Vanille", Flavor: "vanille", PackSize: "1kg", Quantity: 1},
		{ProductID: p2.String(), VariantID: v2.String(), ProductName: "Whey Chocolat", Flavor: "chocolat", PackSize: "500g", Quantity: 1},
	}
}

func place(t *testing.T, env *testEnv, method, couponCode string, items []models.CartItem) *models.Order {
	t.Helper()
	order, err := env.ledger.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        "user-1",
		Items:         items,
		AddressID:     gocql.TimeUUID(),
		Shipping:      models.ShippingOption{ID: "standard", Name: "Standard", PriceCents: 0},
		PaymentMethod: method,
		CouponCode:    couponCode,
	})
	require.NoError(t, err)
	return order
}

// markPaidViaWebhook simule la confirmation de paiement card/upi.
func markPaidViaWebhook(t *testing.T, env *testEnv, order *models.Order, intentID string) *models.Order {
	t.Helper()
	stored := env.orders.orders[order.ID]
	stored.PaymentIntentID = intentID
	confirmed, err := env.ledger.ConfirmPayment(context.Background(), intentID)
	require.NoError(t, err)
	return confirmed
}

func TestPlaceOrderTotals(t *testing.T) {
	env := newTestEnv()
	order := place(t, env, models.PayCOD, "", seedTwoItemCart(env))

	assert.Equal(t, int64(20000), order.SubtotalCents)
	assert.Equal(t, int64(2000), order.DiscountCents)
	assert.Equal(t, int64(18000), order.TotalCents)
	assert.Equal(t, models.ItemProcessing, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Regexp(t, `^VC-\d{8}-\d{4}$`, order.OrderNumber)
	assertConservation(t, order)
}

func TestInventoryTimingByPaymentMethod(t *testing.T) {
	t.Run("cod déduit et vide le panier à la création", func(t *testing.T) {
		env := newTestEnv()
		items := seedTwoItemCart(env)
		v1, _ := gocql.ParseUUID(items[0].VariantID)

		place(t, env, models.PayCOD, "", items)
		assert.Equal(t, 4, env.variants.quantity(v1, "1kg"))
		assert.Equal(t, 1, env.carts.cleared["user-1"])
	})

	t.Run("upi déduit et vide le panier au webhook", func(t *testing.T) {
		env := newTestEnv()
		items := seedTwoItemCart(env)
		v1, _ := gocql.ParseUUID(items[0].VariantID)

		order := place(t, env, models.PayUPI, "", items)
		assert.Equal(t, 5, env.variants.quantity(v1, "1kg"), "pas de décompte avant confirmation")
		assert.Zero(t, env.carts.cleared["user-1"])

		confirmed := markPaidViaWebhook(t, env, order, "pi_test_1")
		assert.Equal(t, models.PaymentPaid, confirmed.PaymentStatus)
		assert.Equal(t, 4, env.variants.quantity(v1, "1kg"))
		assert.Equal(t, 1, env.carts.cleared["user-1"])

		// Idempotent : rejouer le webhook ne décompte pas deux fois.
		_, err := env.ledger.ConfirmPayment(context.Background(), "pi_test_1")
		require.NoError(t, err)
		assert.Equal(t, 4, env.variants.quantity(v1, "1kg"))
	})
}

func TestListByUserReturnsOwnOrdersOnly(t *testing.T) {
	env := newTestEnv()
	mine := place(t, env, models.PayCOD, "", seedTwoItemCart(env))

	other, err := env.ledger.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        "user-2",
		Items:         seedTwoItemCart(env),
		AddressID:     gocql.TimeUUID(),
		Shipping:      models.ShippingOption{ID: "standard"},
		PaymentMethod: models.PayCOD,
	})
	require.NoError(t, err)

	orders, err := env.ledger.Orders.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, mine.ID, orders[0].ID)
	assert.NotEqual(t, other.ID, orders[0].ID)
}

func TestFailPaymentMarksOrderFailed(t *testing.T) {
	env := newTestEnv()
	items := seedTwoItemCart(env)
	v1, _ := gocql.ParseUUID(items[0].VariantID)

	order := place(t, env, models.PayCard, "", items)
	stored := env.orders.orders[order.ID]
	stored.PaymentIntentID = "pi_fail"

	failed, err := env.ledger.FailPayment(context.Background(), "pi_fail")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.PaymentStatus)
	assert.Equal(t, 5, env.variants.quantity(v1, "1kg"), "aucun stock décompté sur un paiement échoué")

	t.Run("sans effet sur une commande déjà payée", func(t *testing.T) {
		env := newTestEnv()
		order := place(t, env, models.PayCard, "", seedTwoItemCart(env))
		order = markPaidViaWebhook(t, env, order, "pi_paid_then_fail")

		after, err := env.ledger.FailPayment(context.Background(), "pi_paid_then_fail")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPaid, after.PaymentStatus)
	})
}

func TestPlaceOrderWalletDebit(t *testing.T) {
	env := newTestEnv()
	env.wallets.balances["user-1"] = 18000
	order := place(t, env, models.PayWallet, "", seedTwoItemCart(env))

	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	assert.Zero(t, env.wallets.balances["user-1"])

	t.Run("solde insuffisant refusé", func(t *testing.T) {
		env := newTestEnv()
		env.wallets.balances["user-1"] = 1000
		_, err := env.ledger.PlaceOrder(context.Background(), PlaceOrderInput{
			UserID:        "user-1",
			Items:         seedTwoItemCart(env),
			AddressID:     gocql.TimeUUID(),
			Shipping:      models.ShippingOption{ID: "standard"},
			PaymentMethod: models.PayWallet,
		})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	env := newTestEnv()
	items := seedTwoItemCart(env)
	items[0].Quantity = 6 // seulement 5 en stock

	_, err := env.ledger.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        "user-1",
		Items:         items,
		AddressID:     gocql.TimeUUID(),
		Shipping:      models.ShippingOption{ID: "standard"},
		PaymentMethod: models.PayCOD,
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "stock insuffisant")
}

// Commande upi payée : 2 articles à 100€/90€, qty 1, sans coupon, livraison 0.
// Annuler l'article 1 → subtotal 100€, discount 10€, total 90€ ; le stock du
// conditionnement remonte de 1 ; en upi le portefeuille est crédité de 90€.
func TestCancelItemRecomputesAndRefunds(t *testing.T) {
	env := newTestEnv()
	items := seedTwoItemCart(env)
	v1, _ := gocql.ParseUUID(items[0].VariantID)

	order := place(t, env, models.PayUPI, "", items)
	order = markPaidViaWebhook(t, env, order, "pi_cancel")
	require.Equal(t, 4, env.variants.quantity(v1, "1kg"))

	updated, err := env.ledger.SetItemStatus(context.Background(), order.ID, order.Items[0].ID,
		models.ItemCancelled, "changement d'avis")
	require.NoError(t, err)

	assert.Equal(t, int64(10000), updated.SubtotalCents)
	assert.Equal(t, int64(1000), updated.DiscountCents)
	assert.Equal(t, int64(9000), updated.TotalCents)
	assertConservation(t, updated)

	assert.Equal(t, 5, env.variants.quantity(v1, "1kg"), "restockage exact de la quantité")
	assert.Equal(t, int64(9000), env.wallets.balances["user-1"])

	require.NotEmpty(t, env.wallets.txs)
	last := env.wallets.txs[len(env.wallets.txs)-1]
	assert.Equal(t, models.WalletCredit, last.Type)
	assert.Equal(t, int64(9000), last.AmountCents)
	assert.Contains(t, last.Description, updated.OrderNumber)
}

func TestCancelUnpaidOrderDoesNotRefund(t *testing.T) {
	env := newTestEnv()
	items := seedTwoItemCart(env)
	v1, _ := gocql.ParseUUID(items[0].VariantID)

	// Commande upi jamais confirmée : pas d'encaissement, pas de stock pris.
	order := place(t, env, models.PayUPI, "", items)
	updated, err := env.ledger.SetItemStatus(context.Background(), order.ID, order.Items[0].ID,
		models.ItemCancelled, "changement d'avis")
	require.NoError(t, err)

	assert.Zero(t, env.wallets.balances["user-1"])
	assert.Equal(t, 5, env.variants.quantity(v1, "1kg"), "rien à restocker, rien n'a été décompté")
	assertConservation(t, updated)
}

func TestCardCancellationRefundsViaGateway(t *testing.T) {
	env := newTestEnv()
	items := seedTwoItemCart(env)
	order := place(t, env, models.PayCard, "", items)
	order = markPaidViaWebhook(t, env, order, "pi_card")

	_, err := env.ledger.SetItemStatus(context.Background(), order.ID, order.Items[0].ID,
		models.ItemCancelled, "changement d'avis")
	require.NoError(t, err)

	require.Len(t, env.refunder.calls, 1)
	assert.Equal(t, int64(9000), env.refunder.calls[0])
	assert.Zero(t, env.wallets.balances["user-1"], "pas de crédit portefeuille pour une carte")
}

// Coupon à minimum d'achat : minimum 150€, réduction 20€, deux articles à 90€
// promo. Annuler un article fait tomber le total actif à 90€ < 150€ → coupon
// retiré, remboursement = 90€ - 20€ = 70€.
func TestCouponUnwindOnCancellation(t *testing.T) {
	env := newTestEnv()
	env.coupons.coupons["PROMO20"] = &models.Coupon{
		ID: gocql.TimeUUID(), Code: "PROMO20", DiscountCents: 2000, MinAmountCents: 15000,
		UsageLimit: 100, IsActive: true,
		StartsAt:  env.now.Add(-time.Hour),
		ExpiresAt: env.now.Add(24 * time.Hour),
	}

	items := seedTwoItemCart(env)
	order := place(t, env, models.PayUPI, "PROMO20", items)
	assert.Equal(t, int64(2000), order.CouponCents)
	assert.Equal(t, int64(16000), order.TotalCents)
	assert.Equal(t, 1, env.coupons.coupons["PROMO20"].Used)
	assertConservation(t, order)

	order = markPaidViaWebhook(t, env, order, "pi_coupon")

	updated, err := env.ledger.SetItemStatus(context.Background(), order.ID, order.Items[0].ID,
		models.ItemCancelled, "changement d'avis")
	require.NoError(t, err)

	assert.Empty(t, updated.CouponCode, "coupon retiré de la commande")
	assert.Zero(t, updated.CouponCents)
	assert.Equal(t, int64(7000), env.wallets.balances["user-1"], "la réduction défaite est déduite du remboursement")
	assertConservation(t, updated)
}

func TestCouponKeptWhenMinimumStillMet(t *testing.T) {
	env := newTestEnv()
	env.coupons.coupons["PROMO20"] = &models.Coupon{
		ID: gocql.TimeUUID(), Code: "PROMO20", DiscountCents: 2000, MinAmountCents: 5000,
		UsageLimit: 100, IsActive: true,
		StartsAt:  env.now.Add(-time.Hour),
		ExpiresAt: env.now.Add(24 * time.Hour),
	}

	items := seedTwoItemCart(env)
	order := place(t, env, models.PayUPI, "PROMO20", items)
	order = markPaidViaWebhook(t, env, order, "pi_keep")

	updated, err := env.ledger.SetItemStatus(context.Background(), order.ID, order.Items[0].ID,
		models.ItemCancelled, "changement d'avis")
	require.NoError(t, err)

	assert.Equal(t, "PROMO20", updated.CouponCode)
	assert.Equal(t, int64(9000), env.wallets.balances["user-1"], "remboursement plein, coupon conservé")
	assertConservation(t, updated)
}

func TestReferralBonusPaidOnce(t *testing.T) {
	env := newTestEnv()
	env.users.users["user-1"].ReferredBy = "sponsor-1"

	order := place(t, env, models.PayCOD, "", seedTwoItemCart(env))

	ship := func(itemID gocql.UUID) {
		_, err := env.ledger.SetItemStatus(context.Background(), order.ID, itemID, models.ItemShipped, "")
		require.NoError(t, err)
	}
	deliver := func(itemID gocql.UUID) *models.Order {
		o, err := env.ledger.SetItemStatus(context.Background(), order.ID, itemID, models.ItemDelivered, "")
		require.NoError(t, err)
		return o
	}

	ship(order.Items[0].ID)
	ship(order.Items[1].ID)
	updated := deliver(order.Items[0].ID)

	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus, "cod passe en payé à la livraison")
	assert.Equal(t, int64(ReferrerBonusCents), env.wallets.balances["sponsor-1"])
	assert.Equal(t, int64(RefereeBonusCents), env.wallets.balances["user-1"])
	assert.True(t, env.users.users["user-1"].ReferralBonusApplied)

	// Livrer le second article ne verse pas un second bonus.
	deliver(order.Items[1].ID)
	assert.Equal(t, int64(ReferrerBonusCents), env.wallets.balances["sponsor-1"])
	assert.Equal(t, int64(RefereeBonusCents), env.wallets.balances["user-1"])
}

func TestReturnWindowBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantOK  bool
	}{
		{"à 3 jours", 72 * time.Hour, true},
		{"à exactement 5 jours", 120 * time.Hour, true},
		{"à 5 jours et une heure", 121 * time.Hour, false},
		{"à 6 jours", 144 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			order := place(t, env, models.PayCOD, "", seedTwoItemCart(env))
			itemID := order.Items[0].ID

			_, err := env.ledger.SetItemStatus(context.Background(), order.ID, itemID, models.ItemShipped, "")
			require.NoError(t, err)
			_, err = env.ledger.SetItemStatus(context.Background(), order.ID, itemID, models.ItemDelivered, "")
			require.NoError(t, err)

			env.now = env.now.Add(tt.elapsed)
			_, err = env.ledger.RequestReturn(context.Background(), "user-1", order.ID, itemID, "défaut produit")
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "période de retour")
			}
		})
	}
}

func TestReturnApprovalRestocksAndRefunds(t *testing.T) {
	env := newTestEnv()
	items := seedTwoItemCart(env)
	v1, _ := gocql.ParseUUID(items[0].VariantID)

	order := place(t, env, models.PayUPI, "", items)
	order = markPaidViaWebhook(t, env, order, "pi_return")
	itemID := order.Items[0].ID

	for _, status := range []string{models.ItemShipped, models.ItemDelivered} {
		_, err := env.ledger.SetItemStatus(context.Background(), order.ID, itemID, status, "")
		require.NoError(t, err)
	}

	_, err := env.ledger.RequestReturn(context.Background(), "user-1", order.ID, itemID, "défaut produit")
	require.NoError(t, err)

	updated, err := env.ledger.ApproveReturn(context.Background(), order.ID, itemID)
	require.NoError(t, err)

	item := findItem(updated, itemID)
	assert.Equal(t, models.ItemReturned, item.Status)
	assert.False(t, item.ReturnRequest)
	assert.Equal(t, 5, env.variants.quantity(v1, "1kg"))
	assert.Equal(t, int64(9000), env.wallets.balances["user-1"])
	assertConservation(t, updated)

	// Le mouvement de stock est tracé en retour.
	last := env.variants.movements[len(env.variants.movements)-1]
	assert.Equal(t, "return", last.Type)
	assert.Equal(t, 1, last.Quantity)
}

func TestRejectReturnRevertsWithoutMoney(t *testing.T) {
	env := newTestEnv()
	order := place(t, env, models.PayCOD, "", seedTwoItemCart(env))
	itemID := order.Items[0].ID

	for _, status := range []string{models.ItemShipped, models.ItemDelivered} {
		_, err := env.ledger.SetItemStatus(context.Background(), order.ID, itemID, status, "")
		require.NoError(t, err)
	}
	_, err := env.ledger.RequestReturn(context.Background(), "user-1", order.ID, itemID, "défaut produit")
	require.NoError(t, err)

	before := env.wallets.balances["user-1"]
	updated, err := env.ledger.RejectReturn(context.Background(), order.ID, itemID)
	require.NoError(t, err)

	item := findItem(updated, itemID)
	assert.Equal(t, models.ItemDelivered, item.Status)
	assert.False(t, item.ReturnRequest)
	assert.Equal(t, before, env.wallets.balances["user-1"])
}

func TestTerminalStatesAreFinal(t *testing.T) {
	env := newTestEnv()
	order := place(t, env, models.PayCOD, "", seedTwoItemCart(env))
	itemID := order.Items[0].ID

	_, err := env.ledger.SetItemStatus(context.Background(), order.ID, itemID, models.ItemCancelled, "changement d'avis")
	require.NoError(t, err)

	for _, next := range []string{models.ItemProcessing, models.ItemShipped, models.ItemDelivered, models.ItemReturned} {
		_, err := env.ledger.SetItemStatus(context.Background(), order.ID, itemID, next, "x")
		require.Error(t, err, "transition depuis cancelled vers %s devrait échouer", next)
		assert.True(t, IsValidation(err))
	}
}

func TestIllegalTransitionNamesBothStates(t *testing.T) {
	env := newTestEnv()
	order := place(t, env, models.PayCOD, "", seedTwoItemCart(env))

	_, err := env.ledger.SetItemStatus(context.Background(), order.ID, order.Items[0].ID, models.ItemDelivered, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processing")
	assert.Contains(t, err.Error(), "delivered")
}

func TestCancellationRequiresReason(t *testing.T) {
	env := newTestEnv()
	order := place(t, env, models.PayCOD, "", seedTwoItemCart(env))

	_, err := env.ledger.SetItemStatus(context.Background(), order.ID, order.Items[0].ID, models.ItemCancelled, "")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestVersionConflictRetries(t *testing.T) {
	env := newTestEnv()
	order := place(t, env, models.PayCOD, "", seedTwoItemCart(env))

	// Simule une écriture concurrente : la version stockée a avancé.
	conflicting := &conflictOnce{memOrderStore: env.orders}
	env.ledger.Orders = conflicting

	updated, err := env.ledger.SetItemStatus(context.Background(), order.ID, order.Items[0].ID,
		models.ItemShipped, "")
	require.NoError(t, err)
	assert.Equal(t, models.ItemShipped, updated.Items[0].Status)
	assert.True(t, conflicting.conflicted, "le premier Update doit avoir rendu un conflit")
}

// conflictOnce renvoie un conflit de version sur le premier Update.
type conflictOnce struct {
	*memOrderStore
	conflicted bool
}

func (s *conflictOnce) Update(ctx context.Context, o *models.Order, expectedVersion int64) error {
	if !s.conflicted {
		s.conflicted = true
		return ErrVersionConflict
	}
	return s.memOrderStore.Update(ctx, o, expectedVersion)
}

func TestOrderNotFound(t *testing.T) {
	env := newTestEnv()
	_, err := env.ledger.SetItemStatus(context.Background(), gocql.TimeUUID(), gocql.TimeUUID(),
		models.ItemShipped, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.True(t, IsNotFound(err))
}

func TestItemNotFound(t *testing.T) {
	env := newTestEnv()
	order := place(t, env, models.PayCOD, "", seedTwoItemCart(env))

	_, err := env.ledger.SetItemStatus(context.Background(), order.ID, gocql.TimeUUID(),
		models.ItemShipped, "")
	assert.ErrorIs(t, err, ErrItemNotFound)
}
