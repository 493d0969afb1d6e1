package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"vitacart_back_end/internal/models"
)

// Fakes en mémoire des stores, pour tester le ledger sans ScyllaDB.

type memOrderStore struct {
	orders map[gocql.UUID]*models.Order
	seq    int
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[gocql.UUID]*models.Order)}
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = make([]models.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}

func (s *memOrderStore) Get(_ context.Context, orderID gocql.UUID) (*models.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *memOrderStore) GetByPaymentIntent(_ context.Context, intentID string) (*models.Order, error) {
	for _, o := range s.orders {
		if o.PaymentIntentID == intentID {
			return cloneOrder(o), nil
		}
	}
	return nil, ErrOrderNotFound
}

func (s *memOrderStore) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (s *memOrderStore) Insert(_ context.Context, o *models.Order) error {
	o.Version = 1
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *memOrderStore) Update(_ context.Context, o *models.Order, expectedVersion int64) error {
	stored, ok := s.orders[o.ID]
	if !ok {
		return ErrOrderNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	cp := cloneOrder(o)
	cp.Version = expectedVersion + 1
	s.orders[o.ID] = cp
	return nil
}

func (s *memOrderStore) NextOrderNumber(_ context.Context, t time.Time) (string, error) {
	s.seq++
	return fmt.Sprintf("VC-%s-%04d", t.Format("20060102"), s.seq), nil
}

type memVariantStore struct {
	stock     map[string]*models.PackSize
	movements []models.StockMovement
}

func newMemVariantStore() *memVariantStore {
	return &memVariantStore{stock: make(map[string]*models.PackSize)}
}

func packKey(variantID gocql.UUID, size string) string {
	return variantID.String() + "|" + size
}

func (s *memVariantStore) seed(variantID gocql.UUID, size string, priceCents, saleCents int64, qty int) {
	s.stock[packKey(variantID, size)] = &models.PackSize{
		VariantID:      variantID,
		Size:           size,
		PriceCents:     priceCents,
		SalePriceCents: saleCents,
		Quantity:       qty,
	}
}

func (s *memVariantStore) quantity(variantID gocql.UUID, size string) int {
	return s.stock[packKey(variantID, size)].Quantity
}

func (s *memVariantStore) GetPackSize(_ context.Context, variantID gocql.UUID, size string) (*models.PackSize, error) {
	ps, ok := s.stock[packKey(variantID, size)]
	if !ok {
		return nil, ErrPackSizeNotFound
	}
	cp := *ps
	return &cp, nil
}

func (s *memVariantStore) AdjustStock(_ context.Context, variantID gocql.UUID, size string, delta int, mv models.StockMovement) error {
	ps, ok := s.stock[packKey(variantID, size)]
	if !ok {
		return ErrPackSizeNotFound
	}
	if ps.Quantity+delta < 0 {
		return validationf("stock insuffisant")
	}
	mv.PrevStock = ps.Quantity
	ps.Quantity += delta
	mv.NewStock = ps.Quantity
	s.movements = append(s.movements, mv)
	return nil
}

type memWalletStore struct {
	balances map[string]int64
	txs      []models.WalletTransaction
}

func newMemWalletStore() *memWalletStore {
	return &memWalletStore{balances: make(map[string]int64)}
}

func (s *memWalletStore) Get(_ context.Context, userID string) (*models.Wallet, error) {
	return &models.Wallet{UserID: userID, BalanceCents: s.balances[userID]}, nil
}

func (s *memWalletStore) Credit(_ context.Context, userID string, amountCents int64, memo string) error {
	s.balances[userID] += amountCents
	s.txs = append(s.txs, models.WalletTransaction{
		ID: gocql.TimeUUID(), UserID: userID, Type: models.WalletCredit,
		AmountCents: amountCents, Description: memo, CreatedAt: time.Now(),
	})
	return nil
}

func (s *memWalletStore) Debit(_ context.Context, userID string, amountCents int64, memo string) error {
	if s.balances[userID] < amountCents {
		return validationf("solde du portefeuille insuffisant")
	}
	s.balances[userID] -= amountCents
	s.txs = append(s.txs, models.WalletTransaction{
		ID: gocql.TimeUUID(), UserID: userID, Type: models.WalletDebit,
		AmountCents: amountCents, Description: memo, CreatedAt: time.Now(),
	})
	return nil
}

type memCouponStore struct {
	coupons map[string]*models.Coupon
	usages  []models.CouponUsage
}

func newMemCouponStore() *memCouponStore {
	return &memCouponStore{coupons: make(map[string]*models.Coupon)}
}

func (s *memCouponStore) Get(_ context.Context, code string) (*models.Coupon, error) {
	c, ok := s.coupons[code]
	if !ok {
		return nil, ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memCouponStore) IncrementUsed(_ context.Context, code string) error {
	c, ok := s.coupons[code]
	if !ok {
		return ErrCouponNotFound
	}
	c.Used++
	return nil
}

func (s *memCouponStore) RecordUsage(_ context.Context, code, userID string, orderID gocql.UUID) error {
	c, ok := s.coupons[code]
	if !ok {
		return ErrCouponNotFound
	}
	s.usages = append(s.usages, models.CouponUsage{CouponID: c.ID, UserID: userID, OrderID: orderID, UsedAt: time.Now()})
	return nil
}

type memUserStore struct {
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.User)}
}

func (s *memUserStore) Get(_ context.Context, userID string) (*models.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) MarkReferralBonusApplied(_ context.Context, userID string) error {
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.ReferralBonusApplied = true
	return nil
}

type memCartStore struct {
	cleared map[string]int
}

func newMemCartStore() *memCartStore {
	return &memCartStore{cleared: make(map[string]int)}
}

func (s *memCartStore) Clear(_ context.Context, userID string) error {
	s.cleared[userID]++
	return nil
}

type fakeRefunder struct {
	calls []int64
}

func (f *fakeRefunder) RefundCard(_ context.Context, _ string, amountCents int64) (string, error) {
	f.calls = append(f.calls, amountCents)
	return fmt.Sprintf("re_%d", len(f.calls)), nil
}

// testEnv regroupe le ledger et ses fakes.
type testEnv struct {
	ledger   *Ledger
	orders   *memOrderStore
	variants *memVariantStore
	wallets  *memWalletStore
	coupons  *memCouponStore
	users    *memUserStore
	carts    *memCartStore
	refunder *fakeRefunder
	now      time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		orders:   newMemOrderStore(),
		variants: newMemVariantStore(),
		wallets:  newMemWalletStore(),
		coupons:  newMemCouponStore(),
		users:    newMemUserStore(),
		carts:    newMemCartStore(),
		refunder: &fakeRefunder{},
		now:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	env.users.users["user-1"] = &models.User{ID: "user-1", Email: "client@example.com"}
	env.ledger = &Ledger{
		Orders:   env.orders,
		Variants: env.variants,
		Wallets:  env.wallets,
		Coupons:  env.coupons,
		Users:    env.users,
		Carts:    env.carts,
		Refunds:  env.refunder,
		Now:      func() time.Time { return env.now },
	}
	return env
}
