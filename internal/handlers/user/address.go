package user

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"vitacart_back_end/internal/database"
	"vitacart_back_end/internal/models"
)

//
// --- HANDLERS ADRESSES ---
//

// 🟢 GET /api/addresses/mine
func ListMyAddresses(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	var results []models.Address

	iter := session.Query(`SELECT address_id, user_id, name, street, city, postal_code, country, phone, is_default
		FROM ks_users.addresses WHERE user_id = ? ALLOW FILTERING`, userID).Iter()
	var (
		addressID                                       gocql.UUID
		userIDDB, name, street, city, postalCode, phone string
		country                                         string
		isDefault                                       bool
	)
	for iter.Scan(&addressID, &userIDDB, &name, &street, &city, &postalCode, &country, &phone, &isDefault) {
		results = append(results, models.Address{
			ID:         addressID,
			UserID:     userIDDB,
			Name:       name,
			Street:     street,
			City:       city,
			PostalCode: postalCode,
			Country:    country,
			Phone:      phone,
			IsDefault:  isDefault,
		})
	}
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Erreur fermeture iter: %v", err)
	}

	c.JSON(http.StatusOK, results)
}

// 🟢 POST /api/addresses
func CreateAddress(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "non authentifié"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	var input struct {
		Name       string `json:"name" binding:"required"`
		Street     string `json:"street" binding:"required"`
		City       string `json:"city" binding:"required"`
		PostalCode string `json:"postal_code" binding:"required"`
		Country    string `json:"country" binding:"required"`
		Phone      string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Println("❌ Erreur de binding JSON:", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Données invalides"})
		return
	}

	addressID := gocql.TimeUUID()
	address := models.Address{
		ID:         addressID,
		UserID:     userID,
		Name:       input.Name,
		Street:     input.Street,
		City:       input.City,
		PostalCode: input.PostalCode,
		Country:    input.Country,
		Phone:      input.Phone,
		IsDefault:  false,
	}

	err = session.Query(`INSERT INTO ks_users.addresses (address_id, user_id, name, street, city, postal_code, country, phone, is_default)
	                     VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		addressID, userID, input.Name, input.Street, input.City, input.PostalCode, input.Country, input.Phone, false).Exec()
	if err != nil {
		log.Printf("❌ Erreur insertion adresse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Impossible d'ajouter l'adresse"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Adresse créée",
		"address": address,
	})
}

// 🟢 POST /api/addresses/:id/default
func MakeDefaultAddress(c *gin.Context) {
	idParam := c.Param("id")
	userID := c.GetString("user_id")

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	addressID, err := uuid.Parse(idParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID invalide"})
		return
	}
	addressUUID := gocql.UUID(addressID)

	// Vérifier que l'adresse appartient à l'utilisateur
	var userIDDB string
	err = session.Query("SELECT user_id FROM ks_users.addresses WHERE address_id = ?", addressUUID).Scan(&userIDDB)
	if err != nil || userIDDB != userID {
		c.JSON(http.StatusNotFound, gin.H{"message": "Adresse non trouvée"})
		return
	}

	// Désactiver toutes les autres (pas d'UPDATE conditionnel côté ScyllaDB)
	iter := session.Query("SELECT address_id FROM ks_users.addresses WHERE user_id = ? ALLOW FILTERING", userID).Iter()
	var otherID gocql.UUID
	for iter.Scan(&otherID) {
		if otherID != addressUUID {
			session.Query("UPDATE ks_users.addresses SET is_default = ? WHERE address_id = ?", false, otherID).Exec()
		}
	}
	iter.Close()

	err = session.Query("UPDATE ks_users.addresses SET is_default = ? WHERE address_id = ?", true, addressUUID).Exec()
	if err != nil {
		log.Printf("❌ Erreur mise à jour adresse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Impossible de définir par défaut"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Adresse mise par défaut", "id": idParam})
}

// 🟢 DELETE /api/addresses/:id
func DeleteAddress(c *gin.Context) {
	idParam := c.Param("id")
	userID := c.GetString("user_id")

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	addressID, err := uuid.Parse(idParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID invalide"})
		return
	}
	addressUUID := gocql.UUID(addressID)

	// Vérifier que l'adresse appartient à l'utilisateur
	var userIDDB string
	err = session.Query("SELECT user_id FROM ks_users.addresses WHERE address_id = ?", addressUUID).Scan(&userIDDB)
	if err != nil || userIDDB != userID {
		c.JSON(http.StatusNotFound, gin.H{"message": "Adresse non trouvée"})
		return
	}

	err = session.Query("DELETE FROM ks_users.addresses WHERE address_id = ?", addressUUID).Exec()
	if err != nil {
		log.Printf("❌ Erreur suppression adresse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Suppression impossible"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Adresse supprimée"})
}
