package ledger

import "errors"

// Erreurs sentinelles — les handlers les traduisent en 404.
var (
	ErrOrderNotFound    = errors.New("commande introuvable")
	ErrItemNotFound     = errors.New("article introuvable")
	ErrPackSizeNotFound = errors.New("conditionnement introuvable")
	ErrWalletNotFound   = errors.New("portefeuille introuvable")
	ErrCouponNotFound   = errors.New("coupon introuvable")
	ErrUserNotFound     = errors.New("utilisateur introuvable")
)

// ErrVersionConflict est retournée par OrderStore.Update quand la version
// attendue ne correspond plus (écriture concurrente). Le ledger réessaie.
var ErrVersionConflict = errors.New("conflit de version sur la commande")

// ValidationError est traduite en 400 par les handlers.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(msg string) error { return &ValidationError{Msg: msg} }

// IsValidation indique si err est une erreur de validation métier.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound regroupe les erreurs "introuvable" du ledger.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrPackSizeNotFound) ||
		errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrCouponNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
