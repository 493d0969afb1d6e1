package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"vitacart_back_end/internal/database"
)

// Cache les vérifications de mot de passe réussies : Argon2id coûte ~20ms
// par vérification, inutile de le repayer à chaque requête de login.
const AuthCacheTTL = 15 * time.Minute

// GetPasswordHashFromCache vérifie si cette combinaison email/mot de passe
// a déjà été validée récemment.
func GetPasswordHashFromCache(email, password string) (bool, error) {
	ctx := context.Background()

	passwordHash := sha256.Sum256([]byte(password))
	cacheKey := "auth:" + email + ":" + hex.EncodeToString(passwordHash[:])

	result, err := database.Redis.Get(ctx, cacheKey).Result()
	if err == nil && result == "valid" {
		return true, nil
	}

	return false, err
}

// SetPasswordHashInCache met en cache une vérification de mot de passe réussie
func SetPasswordHashInCache(email, password string) {
	ctx := context.Background()

	passwordHash := sha256.Sum256([]byte(password))
	cacheKey := "auth:" + email + ":" + hex.EncodeToString(passwordHash[:])

	database.Redis.Set(ctx, cacheKey, "valid", AuthCacheTTL)
}

// InvalidateAuthCache invalide le cache d'authentification pour un email
func InvalidateAuthCache(email string) {
	ctx := context.Background()

	pattern := "auth:" + email + ":*"
	iter := database.Redis.Scan(ctx, 0, pattern, 100).Iterator()

	for iter.Next(ctx) {
		database.Redis.Del(ctx, iter.Val())
	}
}
