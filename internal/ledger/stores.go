package ledger

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"vitacart_back_end/internal/models"
)

// OrderStore persiste les commandes. Update est une écriture conditionnelle :
// elle n'aboutit que si la version stockée vaut expectedVersion, sinon elle
// retourne ErrVersionConflict.
type OrderStore interface {
	Get(ctx context.Context, orderID gocql.UUID) (*models.Order, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	Insert(ctx context.Context, o *models.Order) error
	Update(ctx context.Context, o *models.Order, expectedVersion int64) error
	NextOrderNumber(ctx context.Context, t time.Time) (string, error)
}

// VariantStore expose le stock par conditionnement.
type VariantStore interface {
	GetPackSize(ctx context.Context, variantID gocql.UUID, size string) (*models.PackSize, error)
	// AdjustStock applique delta au stock du conditionnement et
	// enregistre le mouvement. Le stock ne descend jamais sous zéro.
	AdjustStock(ctx context.Context, variantID gocql.UUID, size string, delta int, mv models.StockMovement) error
}

// WalletStore gère le portefeuille. Debit échoue par validation si le solde
// est insuffisant ; Credit ne peut pas échouer pour raison de solde.
type WalletStore interface {
	Get(ctx context.Context, userID string) (*models.Wallet, error)
	Credit(ctx context.Context, userID string, amountCents int64, memo string) error
	Debit(ctx context.Context, userID string, amountCents int64, memo string) error
}

type CouponStore interface {
	Get(ctx context.Context, code string) (*models.Coupon, error)
	IncrementUsed(ctx context.Context, code string) error
	RecordUsage(ctx context.Context, code, userID string, orderID gocql.UUID) error
}

type UserStore interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	MarkReferralBonusApplied(ctx context.Context, userID string) error
}

// CartStore vide le panier d'un utilisateur à la confirmation du paiement.
type CartStore interface {
	Clear(ctx context.Context, userID string) error
}

// Refunder rembourse un paiement carte vers sa source (passerelle de
// paiement). Retourne l'identifiant du remboursement côté passerelle.
type Refunder interface {
	RefundCard(ctx context.Context, paymentIntentID string, amountCents int64) (string, error)
}
