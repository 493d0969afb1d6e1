package user

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/markbates/goth/gothic"

	"vitacart_back_end/internal/cache"
	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
	"vitacart_back_end/internal/utils"
)

type ctxKey string

const providerKey ctxKey = "provider"

// BeginAuth démarre le flux OAuth (Google / Facebook)
func BeginAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "aucun provider spécifié"})
		return
	}

	c.Request = c.Request.WithContext(
		context.WithValue(c.Request.Context(), providerKey, provider),
	)

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// CallbackAuth termine le flux OAuth : crée le compte au premier passage,
// puis redirige vers le front avec un JWT.
func CallbackAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "aucun provider spécifié"})
		return
	}

	c.Request = c.Request.WithContext(
		context.WithValue(c.Request.Context(), providerKey, provider),
	)

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(gothUser.Email))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le provider n'a pas fourni d'email"})
		return
	}

	user, err := findOrCreateOAuthUser(email, gothUser.Name, provider, gothUser.UserID)
	if err != nil {
		log.Printf("❌ Erreur OAuth %s pour %s: %v", provider, email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}

	token, err := utils.GenerateJWT(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	refreshToken := newRandomToken()
	if err := cache.StoreRefreshToken(user.ID, refreshToken, 30*24*time.Hour); err != nil {
		log.Printf("⚠️ Erreur stockage refresh token: %v", err)
	}

	utils.LogAction(c, utils.ACTION_LOGIN_SUCCESS, utils.RESOURCE_AUTH, user.ID, nil, nil)

	frontend := os.Getenv("FRONTEND_URL")
	if frontend == "" {
		frontend = "https://vitacart.shop"
	}
	c.Redirect(http.StatusTemporaryRedirect,
		frontend+"/auth/callback?token="+token+"&refresh_token="+refreshToken)
}

// Retourne le compte lié à cet email, ou le crée avec le provider OAuth.
func findOrCreateOAuthUser(email, name, provider, providerID string) (*models.User, error) {
	var userID gocql.UUID
	if err := database.GetPreparedGetUserByEmail().Bind(email).Scan(&userID); err == nil {
		var (
			dbEmail, password, dbName, role, dbProvider, dbProviderID string
			referralCode, referredBy                                  string
			referralBonusApplied                                      bool
		)
		if err := database.GetPreparedGetUserByID().Bind(userID).Scan(
			&dbEmail, &password, &dbName, &role, &dbProvider, &dbProviderID,
			&referralCode, &referredBy, &referralBonusApplied,
		); err != nil {
			return nil, err
		}
		return &models.User{
			ID:           userID.String(),
			Name:         dbName,
			Email:        dbEmail,
			Role:         role,
			Provider:     dbProvider,
			ReferralCode: referralCode,
			ReferredBy:   referredBy,
		}, nil
	}

	// Premier passage : création du compte (pas de mot de passe local)
	userID = gocql.TimeUUID()
	referralCode := newReferralCode()
	now := time.Now()

	if err := database.GetPreparedInsertUser().Bind(
		userID, email, "", name, "customer", provider, providerID,
		referralCode, "", false, now, now,
	).Exec(); err != nil {
		return nil, err
	}
	if err := database.GetPreparedInsertUserByEmail().Bind(email, userID).Exec(); err != nil {
		return nil, err
	}

	go func() {
		if err := utils.SendWelcomeEmail(email, name, referralCode); err != nil {
			log.Printf("⚠️ Envoi email de bienvenue échoué pour %s: %v", email, err)
		}
	}()

	log.Printf("🆕 Utilisateur OAuth créé: %s (%s)", email, provider)

	return &models.User{
		ID:           userID.String(),
		Name:         name,
		Email:        email,
		Role:         "customer",
		Provider:     provider,
		ReferralCode: referralCode,
	}, nil
}
