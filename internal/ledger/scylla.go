package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
)

// Implémentations ScyllaDB/Redis des stores du ledger. Les articles d'une
// commande sont sérialisés en JSON dans la colonne items ; la colonne
// version porte la concurrence optimiste via LWT.

const casAttempts = 5

var (
	_ OrderStore   = (*ScyllaOrderStore)(nil)
	_ VariantStore = (*ScyllaVariantStore)(nil)
	_ WalletStore  = (*ScyllaWalletStore)(nil)
	_ CouponStore  = (*ScyllaCouponStore)(nil)
	_ UserStore    = (*ScyllaUserStore)(nil)
	_ CartStore    = (*RedisCartStore)(nil)
)

// NewScyllaLedger câble le ledger sur les stores ScyllaDB/Redis de
// production. Le refunder (Stripe) est optionnel : sans lui, les
// remboursements carte échouent proprement.
func NewScyllaLedger(refunder Refunder) *Ledger {
	return &Ledger{
		Orders:        &ScyllaOrderStore{},
		Variants:      &ScyllaVariantStore{},
		Wallets:       &ScyllaWalletStore{},
		Coupons:       &ScyllaCouponStore{},
		Users:         &ScyllaUserStore{},
		Carts:         &RedisCartStore{},
		Refunds:       refunder,
		AdminOverride: os.Getenv("LEDGER_ADMIN_OVERRIDE") == "true",
	}
}

// --- Commandes ---

type ScyllaOrderStore struct{}

const orderColumns = `order_id, order_number, user_id, address_id, items, shipping_id, shipping_name,
	shipping_cents, payment_method, payment_status, payment_intent_id, status, coupon_code,
	coupon_cents, subtotal_cents, discount_cents, total_cents, inventory_taken, version,
	created_at, updated_at`

func scanOrder(scan func(...interface{}) error) (*models.Order, error) {
	var o models.Order
	var itemsJSON string
	if err := scan(&o.ID, &o.OrderNumber, &o.UserID, &o.AddressID, &itemsJSON, &o.ShippingID,
		&o.ShippingName, &o.ShippingCents, &o.PaymentMethod, &o.PaymentStatus, &o.PaymentIntentID,
		&o.Status, &o.CouponCode, &o.CouponCents, &o.SubtotalCents, &o.DiscountCents,
		&o.TotalCents, &o.InventoryTaken, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, fmt.Errorf("articles de commande illisibles: %v", err)
	}
	return &o, nil
}

func (s *ScyllaOrderStore) Get(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}
	q := session.Query(`SELECT `+orderColumns+` FROM ks_orders.orders WHERE order_id = ?`, orderID).WithContext(ctx)
	o, err := scanOrder(q.Scan)
	if err == gocql.ErrNotFound {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func (s *ScyllaOrderStore) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}
	q := session.Query(`SELECT `+orderColumns+` FROM ks_orders.orders WHERE payment_intent_id = ? LIMIT 1 ALLOW FILTERING`,
		intentID).WithContext(ctx)
	o, err := scanOrder(q.Scan)
	if err == gocql.ErrNotFound {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// ListByUser retourne les commandes d'un utilisateur, plus récentes d'abord.
func (s *ScyllaOrderStore) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}
	iter := session.Query(`SELECT `+orderColumns+` FROM ks_orders.orders WHERE user_id = ? ALLOW FILTERING`,
		userID).WithContext(ctx).Iter()

	var orders []models.Order
	scanRow := func(dest ...interface{}) error {
		if !iter.Scan(dest...) {
			return gocql.ErrNotFound
		}
		return nil
	}
	for {
		o, err := scanOrder(scanRow)
		if err != nil {
			break
		}
		orders = append(orders, *o)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	// Tri décroissant par date de création (pas d'ORDER BY avec filtering).
	for i := 1; i < len(orders); i++ {
		for j := i; j > 0 && orders[j].CreatedAt.After(orders[j-1].CreatedAt); j-- {
			orders[j], orders[j-1] = orders[j-1], orders[j]
		}
	}
	return orders, nil
}

func (s *ScyllaOrderStore) Insert(ctx context.Context, o *models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	o.Version = 1
	return session.Query(`INSERT INTO ks_orders.orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, o.UserID, o.AddressID, string(itemsJSON), o.ShippingID, o.ShippingName,
		o.ShippingCents, o.PaymentMethod, o.PaymentStatus, o.PaymentIntentID, o.Status, o.CouponCode,
		o.CouponCents, o.SubtotalCents, o.DiscountCents, o.TotalCents, o.InventoryTaken, o.Version,
		o.CreatedAt, o.UpdatedAt,
	).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) Update(ctx context.Context, o *models.Order, expectedVersion int64) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	applied, err := session.Query(`UPDATE ks_orders.orders SET items = ?, payment_status = ?,
		payment_intent_id = ?, status = ?, coupon_code = ?, coupon_cents = ?, subtotal_cents = ?,
		discount_cents = ?, total_cents = ?, inventory_taken = ?, version = ?, updated_at = ?
		WHERE order_id = ? IF version = ?`,
		string(itemsJSON), o.PaymentStatus, o.PaymentIntentID, o.Status, o.CouponCode, o.CouponCents,
		o.SubtotalCents, o.DiscountCents, o.TotalCents, o.InventoryTaken, expectedVersion+1,
		o.UpdatedAt, o.ID, expectedVersion,
	).WithContext(ctx).ScanCAS()
	if err != nil {
		return err
	}
	if !applied {
		return ErrVersionConflict
	}
	return nil
}

// NextOrderNumber génère un numéro daté avec séquence journalière,
// ex: VC-20260830-0042. La séquence vit dans Redis.
func (s *ScyllaOrderStore) NextOrderNumber(ctx context.Context, t time.Time) (string, error) {
	day := t.Format("20060102")
	seq, err := database.Redis.Incr(ctx, "order_seq:"+day).Result()
	if err != nil {
		return "", err
	}
	if seq == 1 {
		database.Redis.Expire(ctx, "order_seq:"+day, 48*time.Hour)
	}
	return fmt.Sprintf("VC-%s-%04d", day, seq), nil
}

// --- Stock par conditionnement ---

type ScyllaVariantStore struct{}

func (s *ScyllaVariantStore) GetPackSize(ctx context.Context, variantID gocql.UUID, size string) (*models.PackSize, error) {
	session, err := database.GetCatalogSession()
	if err != nil {
		return nil, err
	}
	ps := models.PackSize{VariantID: variantID, Size: size}
	err = session.Query(`SELECT price_cents, sale_price_cents, quantity, updated_at
		FROM ks_catalog.pack_sizes WHERE variant_id = ? AND size = ?`, variantID, size).
		WithContext(ctx).Scan(&ps.PriceCents, &ps.SalePriceCents, &ps.Quantity, &ps.UpdatedAt)
	if err == gocql.ErrNotFound {
		return nil, ErrPackSizeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ps, nil
}

func (s *ScyllaVariantStore) AdjustStock(ctx context.Context, variantID gocql.UUID, size string, delta int, mv models.StockMovement) error {
	session, err := database.GetCatalogSession()
	if err != nil {
		return err
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		var current int
		err := session.Query(`SELECT quantity FROM ks_catalog.pack_sizes WHERE variant_id = ? AND size = ?`,
			variantID, size).WithContext(ctx).Scan(&current)
		if err == gocql.ErrNotFound {
			return ErrPackSizeNotFound
		}
		if err != nil {
			return err
		}

		next := current + delta
		if next < 0 {
			return validationf(fmt.Sprintf("stock insuffisant (%s): %d disponible, %d demandé", size, current, -delta))
		}

		applied, err := session.Query(`UPDATE ks_catalog.pack_sizes SET quantity = ?, updated_at = ?
			WHERE variant_id = ? AND size = ? IF quantity = ?`,
			next, time.Now(), variantID, size, current).WithContext(ctx).ScanCAS()
		if err != nil {
			return err
		}
		if !applied {
			continue // le stock a bougé entre-temps, on relit
		}

		mv.PrevStock = current
		mv.NewStock = next
		return session.Query(`INSERT INTO ks_catalog.stock_movements
			(id, variant_id, pack_size, type, quantity, prev_stock, new_stock, reason, order_id, user_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			mv.ID, mv.VariantID, mv.PackSize, mv.Type, mv.Quantity, mv.PrevStock, mv.NewStock,
			mv.Reason, mv.OrderID, mv.UserID, mv.CreatedAt,
		).WithContext(ctx).Exec()
	}
	return fmt.Errorf("ajustement de stock abandonné après %d tentatives (variante %s, %s)", casAttempts, variantID, size)
}

// --- Portefeuille ---

type ScyllaWalletStore struct{}

func (s *ScyllaWalletStore) Get(ctx context.Context, userID string) (*models.Wallet, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}
	w := models.Wallet{UserID: userID}
	err = session.Query(`SELECT balance_cents, updated_at FROM ks_users.wallets WHERE user_id = ?`, userID).
		WithContext(ctx).Scan(&w.BalanceCents, &w.UpdatedAt)
	if err == gocql.ErrNotFound {
		// Portefeuille implicite à zéro tant qu'aucune écriture n'existe.
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Transactions retourne l'historique du portefeuille, plus récent d'abord.
func (s *ScyllaWalletStore) Transactions(ctx context.Context, userID string, limit int) ([]models.WalletTransaction, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}
	iter := session.Query(`SELECT id, type, amount_cents, description, created_at
		FROM ks_users.wallet_transactions WHERE user_id = ? LIMIT ?`, userID, limit).
		WithContext(ctx).Iter()

	var txs []models.WalletTransaction
	var tx models.WalletTransaction
	for iter.Scan(&tx.ID, &tx.Type, &tx.AmountCents, &tx.Description, &tx.CreatedAt) {
		tx.UserID = userID
		txs = append(txs, tx)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *ScyllaWalletStore) Credit(ctx context.Context, userID string, amountCents int64, memo string) error {
	return s.apply(ctx, userID, amountCents, models.WalletCredit, memo)
}

func (s *ScyllaWalletStore) Debit(ctx context.Context, userID string, amountCents int64, memo string) error {
	return s.apply(ctx, userID, -amountCents, models.WalletDebit, memo)
}

// apply ajoute delta au solde (LWT, jamais sous zéro) puis journalise la
// transaction en append-only.
func (s *ScyllaWalletStore) apply(ctx context.Context, userID string, delta int64, txType, memo string) error {
	session, err := database.GetUsersSession()
	if err != nil {
		return err
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		var balance int64
		err := session.Query(`SELECT balance_cents FROM ks_users.wallets WHERE user_id = ?`, userID).
			WithContext(ctx).Scan(&balance)
		missing := err == gocql.ErrNotFound
		if err != nil && !missing {
			return err
		}

		next := balance + delta
		if next < 0 {
			return validationf(fmt.Sprintf("solde du portefeuille insuffisant: %.2f€ disponible", float64(balance)/100))
		}

		var applied bool
		if missing {
			applied, err = session.Query(`INSERT INTO ks_users.wallets (user_id, balance_cents, updated_at)
				VALUES (?, ?, ?) IF NOT EXISTS`, userID, next, time.Now()).WithContext(ctx).ScanCAS()
		} else {
			applied, err = session.Query(`UPDATE ks_users.wallets SET balance_cents = ?, updated_at = ?
				WHERE user_id = ? IF balance_cents = ?`, next, time.Now(), userID, balance).
				WithContext(ctx).ScanCAS()
		}
		if err != nil {
			return err
		}
		if !applied {
			continue
		}

		amount := delta
		if amount < 0 {
			amount = -amount
		}
		return session.Query(`INSERT INTO ks_users.wallet_transactions
			(user_id, id, type, amount_cents, description, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			userID, gocql.TimeUUID(), txType, amount, memo, time.Now(),
		).WithContext(ctx).Exec()
	}
	return fmt.Errorf("écriture portefeuille abandonnée après %d tentatives (%s)", casAttempts, userID)
}

// --- Coupons ---

type ScyllaCouponStore struct{}

func (s *ScyllaCouponStore) Get(ctx context.Context, code string) (*models.Coupon, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}
	var c models.Coupon
	err = session.Query(`SELECT id, code, discount_cents, min_amount_cents, usage_limit, used,
		starts_at, expires_at, is_active, created_by, created_at, updated_at
		FROM ks_orders.coupons WHERE code = ?`, normalizeCouponCode(code)).
		WithContext(ctx).Scan(&c.ID, &c.Code, &c.DiscountCents, &c.MinAmountCents, &c.UsageLimit,
		&c.Used, &c.StartsAt, &c.ExpiresAt, &c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err == gocql.ErrNotFound {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ScyllaCouponStore) IncrementUsed(ctx context.Context, code string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	code = normalizeCouponCode(code)

	for attempt := 0; attempt < casAttempts; attempt++ {
		var used, limit int
		err := session.Query(`SELECT used, usage_limit FROM ks_orders.coupons WHERE code = ?`, code).
			WithContext(ctx).Scan(&used, &limit)
		if err == gocql.ErrNotFound {
			return ErrCouponNotFound
		}
		if err != nil {
			return err
		}
		if limit > 0 && used >= limit {
			return validationf("ce coupon a atteint sa limite d'utilisation")
		}
		applied, err := session.Query(`UPDATE ks_orders.coupons SET used = ?, updated_at = ?
			WHERE code = ? IF used = ?`, used+1, time.Now(), code, used).WithContext(ctx).ScanCAS()
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("incrément du coupon %s abandonné après %d tentatives", code, casAttempts)
}

func (s *ScyllaCouponStore) RecordUsage(ctx context.Context, code, userID string, orderID gocql.UUID) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	coupon, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	return session.Query(`INSERT INTO ks_orders.coupon_usage (id, coupon_id, user_id, order_id, used_at)
		VALUES (?, ?, ?, ?, ?)`,
		gocql.TimeUUID(), coupon.ID, userID, orderID, time.Now(),
	).WithContext(ctx).Exec()
}

// --- Utilisateurs ---

type ScyllaUserStore struct{}

func (s *ScyllaUserStore) Get(ctx context.Context, userID string) (*models.User, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	u := models.User{ID: userID}
	err = session.Query(`SELECT email, name, role, referral_code, referred_by, referral_bonus_applied
		FROM ks_users.users WHERE user_id = ?`, gocql.UUID(uid)).
		WithContext(ctx).Scan(&u.Email, &u.Name, &u.Role, &u.ReferralCode, &u.ReferredBy, &u.ReferralBonusApplied)
	if err == gocql.ErrNotFound {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *ScyllaUserStore) MarkReferralBonusApplied(ctx context.Context, userID string) error {
	session, err := database.GetUsersSession()
	if err != nil {
		return err
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrUserNotFound
	}
	return session.Query(`UPDATE ks_users.users SET referral_bonus_applied = true, updated_at = ?
		WHERE user_id = ?`, time.Now(), gocql.UUID(uid)).WithContext(ctx).Exec()
}

// --- Panier (Redis) ---

type RedisCartStore struct{}

func (s *RedisCartStore) Clear(ctx context.Context, userID string) error {
	if err := database.Redis.Del(ctx, "cart:"+userID).Err(); err != nil {
		return err
	}
	// Notifie les clients WebSocket abonnés au panier.
	database.Redis.Publish(ctx, "cart:"+userID, "cleared")
	return nil
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
