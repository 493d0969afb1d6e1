package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Types d'écriture du portefeuille.
const (
	WalletCredit = "credit"
	WalletDebit  = "debit"
)

// Wallet est le portefeuille d'un utilisateur. Le solde est toujours égal
// à la somme des transactions : les remboursements sont des crédits, jamais
// des débits.
type Wallet struct {
	UserID       string    `json:"user_id"`
	BalanceCents int64     `json:"balance_cents"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type WalletTransaction struct {
	ID          gocql.UUID `json:"id"`
	UserID      string     `json:"user_id"`
	Type        string     `json:"type"` // credit, debit
	AmountCents int64      `json:"amount_cents"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}
