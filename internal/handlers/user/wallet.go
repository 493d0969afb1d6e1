package user

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vitacart_back_end/internal/ledger"
	"vitacart_back_end/internal/models"
)

// GetMyWallet retourne le solde du portefeuille et les dernières écritures.
// Le portefeuille reçoit les remboursements (paiements wallet/UPI) et les
// bonus de parrainage ; il peut régler une commande au checkout.
func GetMyWallet(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := &ledger.ScyllaWalletStore{}

	wallet, err := store.Get(ctx, userID)
	if err != nil {
		// Pas encore de portefeuille : solde zéro, pas une erreur.
		wallet = &models.Wallet{UserID: userID, BalanceCents: 0}
	}

	txs, err := store.Transactions(ctx, userID, limit)
	if err != nil {
		log.Println("❌ Erreur récupération transactions portefeuille:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération portefeuille"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":       wallet,
		"transactions": txs,
	})
}
