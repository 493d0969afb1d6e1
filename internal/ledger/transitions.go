package ledger

import (
	"fmt"

	"vitacart_back_end/internal/models"
)

// Table des transitions autorisées pour un article de commande.
// Les transitions sont strictement avant, sauf le chemin de retour :
// delivered → return_requested → (returned | delivered).
// cancelled et returned sont terminaux.
var allowedTransitions = map[string][]string{
	models.ItemProcessing:      {models.ItemShipped, models.ItemCancelled},
	models.ItemShipped:         {models.ItemDelivered, models.ItemCancelled},
	models.ItemDelivered:       {models.ItemReturnRequested, models.ItemCancelled},
	models.ItemReturnRequested: {models.ItemReturned, models.ItemDelivered},
	models.ItemCancelled:       {},
	models.ItemReturned:        {},
}

// ValidStatus indique si s est un statut d'article connu.
func ValidStatus(s string) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal indique si un article dans ce statut ne peut plus bouger.
func IsTerminal(s string) bool {
	return s == models.ItemCancelled || s == models.ItemReturned
}

// CanTransition vérifie que from → to est une transition autorisée.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition retourne une erreur de validation nommant les deux états
// si la transition est refusée. adminOverride court-circuite la table, sauf
// pour sortir d'un état terminal.
func checkTransition(from, to string, adminOverride bool) error {
	if !ValidStatus(to) {
		return validationf(fmt.Sprintf("statut inconnu: %q", to))
	}
	if IsTerminal(from) {
		return validationf(fmt.Sprintf("l'article est en statut terminal %q, transition vers %q refusée", from, to))
	}
	if adminOverride {
		return nil
	}
	if !CanTransition(from, to) {
		return validationf(fmt.Sprintf("transition interdite: %q → %q", from, to))
	}
	return nil
}

// DeriveOrderStatus recalcule le statut global d'une commande à partir des
// statuts de ses articles. Priorité (la plus haute gagne) :
// delivered > shipped > processing > cancelled (tous) > returned (tous).
// Un article en demande de retour a été livré : il compte comme delivered.
func DeriveOrderStatus(items []models.OrderItem) string {
	var anyDelivered, anyShipped, anyProcessing bool
	allCancelled, allReturned := len(items) > 0, len(items) > 0

	for _, it := range items {
		switch it.Status {
		case models.ItemDelivered, models.ItemReturnRequested:
			anyDelivered = true
		case models.ItemShipped:
			anyShipped = true
		case models.ItemProcessing:
			anyProcessing = true
		}
		if it.Status != models.ItemCancelled {
			allCancelled = false
		}
		if it.Status != models.ItemReturned {
			allReturned = false
		}
	}

	switch {
	case anyDelivered:
		return models.ItemDelivered
	case anyShipped:
		return models.ItemShipped
	case anyProcessing:
		return models.ItemProcessing
	case allCancelled:
		return models.ItemCancelled
	case allReturned:
		return models.ItemReturned
	default:
		// Mélange de cancelled et returned uniquement.
		return models.ItemCancelled
	}
}
