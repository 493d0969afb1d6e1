package user

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vitacart_back_end/internal/cache"
	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
	"vitacart_back_end/internal/utils"
)

// ================== AUTH LOCALE ==================

func Register(c *gin.Context) {
	var input struct {
		Name         string `json:"name" binding:"required"`
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required,min=8"`
		ReferralCode string `json:"referral_code"` // code du parrain, optionnel
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Email déjà pris ?
	var existingID string
	if err := database.GetPreparedGetUserByEmail().Bind(email).Scan(&existingID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Un compte avec cet email existe déjà"})
		return
	}

	// Résoudre le code de parrainage vers l'ID du parrain
	referredBy := ""
	if input.ReferralCode != "" {
		session, err := database.GetUsersSession()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
			return
		}
		code := strings.ToUpper(strings.TrimSpace(input.ReferralCode))
		var sponsorID gocql.UUID
		if err := session.Query("SELECT user_id FROM users WHERE referral_code = ? ALLOW FILTERING", code).Scan(&sponsorID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Code de parrainage inconnu"})
			return
		}
		referredBy = sponsorID.String()
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}

	userID := gocql.TimeUUID()
	referralCode := newReferralCode()
	now := time.Now()

	if err := database.GetPreparedInsertUser().Bind(
		userID, email, hashedPassword, input.Name, "customer", "local", "",
		referralCode, referredBy, false, now, now,
	).Exec(); err != nil {
		log.Printf("❌ Erreur insertion utilisateur: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}
	if err := database.GetPreparedInsertUserByEmail().Bind(email, userID).Exec(); err != nil {
		log.Printf("❌ Erreur insertion users_by_email: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}

	user := models.User{
		ID:           userID.String(),
		Name:         input.Name,
		Email:        email,
		Role:         "customer",
		Provider:     "local",
		ReferralCode: referralCode,
		ReferredBy:   referredBy,
	}

	token, err := utils.GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	go func() {
		if err := utils.SendWelcomeEmail(email, input.Name, referralCode); err != nil {
			log.Printf("⚠️ Envoi email de bienvenue échoué pour %s: %v", email, err)
		}
	}()

	log.Printf("🆕 Utilisateur créé: %s (parrainé: %v)", email, referredBy != "")

	c.JSON(http.StatusCreated, gin.H{
		"token":         token,
		"userId":        user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"role":          user.Role,
		"referral_code": user.ReferralCode,
	})
}

func Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var userID gocql.UUID
	if err := database.GetPreparedGetUserByEmail().Bind(email).Scan(&userID); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	var (
		dbEmail, password, name, role, provider, providerID string
		referralCode, referredBy                            string
		referralBonusApplied                                bool
	)
	if err := database.GetPreparedGetUserByID().Bind(userID).Scan(
		&dbEmail, &password, &name, &role, &provider, &providerID,
		&referralCode, &referredBy, &referralBonusApplied,
	); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	// Fast path : vérification déjà validée récemment
	valid, _ := cache.GetPasswordHashFromCache(email, input.Password)
	if !valid {
		ok, err := utils.VerifyPassword(input.Password, password)
		if err != nil || !ok {
			utils.LogFailedAction(c, utils.ACTION_LOGIN_FAILED, utils.RESOURCE_AUTH, email, "mot de passe incorrect")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
			return
		}
		cache.SetPasswordHashInCache(email, input.Password)
	}

	user := models.User{
		ID:           userID.String(),
		Name:         name,
		Email:        dbEmail,
		Role:         role,
		Provider:     provider,
		ReferralCode: referralCode,
		ReferredBy:   referredBy,
	}

	token, err := utils.GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	refreshToken := newRandomToken()
	if err := cache.StoreRefreshToken(user.ID, refreshToken, 30*24*time.Hour); err != nil {
		log.Printf("⚠️ Erreur stockage refresh token: %v", err)
	}

	utils.LogAction(c, utils.ACTION_LOGIN_SUCCESS, utils.RESOURCE_AUTH, user.ID, nil, nil)

	c.JSON(http.StatusOK, gin.H{
		"token":         token,
		"refresh_token": refreshToken,
		"userId":        user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"role":          user.Role,
		"referral_code": user.ReferralCode,
	})
}

func Logout(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	if err := cache.DeleteRefreshToken(userID); err != nil {
		log.Printf("⚠️ Erreur suppression refresh token: %v", err)
	}

	// Révoquer le token d'accès jusqu'à son expiration naturelle
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		raw := strings.TrimPrefix(authHeader, "Bearer ")
		if err := cache.BlacklistToken(raw, 24*time.Hour); err != nil {
			log.Printf("⚠️ Erreur blacklist token: %v", err)
		}
	}
	utils.LogAction(c, utils.ACTION_LOGOUT, utils.RESOURCE_AUTH, userID, nil, nil)

	c.JSON(http.StatusOK, gin.H{"message": "Déconnexion réussie"})
}

// RefreshToken échange un refresh token valide contre un nouveau JWT.
// Le refresh token est tourné à chaque utilisation.
func RefreshToken(c *gin.Context) {
	var input struct {
		UserID       string `json:"user_id" binding:"required"`
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	stored, err := cache.GetRefreshToken(input.UserID)
	if err != nil || stored == "" || stored != input.RefreshToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token invalide ou expiré"})
		return
	}

	user, err := cache.GetUserFromCache(input.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	token, err := utils.GenerateJWT(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	newRefresh := newRandomToken()
	if err := cache.StoreRefreshToken(user.ID, newRefresh, 30*24*time.Hour); err != nil {
		log.Printf("⚠️ Erreur stockage refresh token: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"token":         token,
		"refresh_token": newRefresh,
	})
}

// UpdateProfile met à jour le nom de l'utilisateur connecté.
func UpdateProfile(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	var input struct {
		Name string `json:"name" binding:"required,min=2,max=100"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	user, err := cache.GetUserFromCache(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	uid, err := gocql.ParseUUID(userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID utilisateur invalide"})
		return
	}

	if err := database.GetPreparedUpdateUser().Bind(input.Name, user.Role, time.Now(), uid).Exec(); err != nil {
		log.Printf("❌ Erreur mise à jour profil: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour profil"})
		return
	}

	cache.InvalidateUserCache(userID)
	utils.LogAction(c, utils.ACTION_USER_UPDATE, utils.RESOURCE_USER, userID, gin.H{"name": user.Name}, gin.H{"name": input.Name})

	c.JSON(http.StatusOK, gin.H{"message": "Profil mis à jour", "name": input.Name})
}

// Me retourne le profil de l'utilisateur connecté (avec cache Redis).
func Me(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	user, err := cache.GetUserFromCache(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":        user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"role":          user.Role,
		"provider":      user.Provider,
		"referral_code": user.ReferralCode,
	})
}

// GetReferralInfo retourne le code de parrainage et l'état du bonus.
func GetReferralInfo(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	user, err := cache.GetUserFromCache(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"referral_code":          user.ReferralCode,
		"referred_by":            user.ReferredBy,
		"referral_bonus_applied": user.ReferralBonusApplied,
		"referrer_bonus":         "50.00€",
		"referee_bonus":          "25.00€",
	})
}

// newReferralCode génère un code de parrainage court et lisible.
func newReferralCode() string {
	b := make([]byte, 4)
	rand.Read(b)
	return "VITA-" + strings.ToUpper(hex.EncodeToString(b))
}

func newRandomToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
