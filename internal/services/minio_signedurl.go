package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"vitacart_back_end/internal/database"
)

// Génère une URL signée temporaire pour un objet du bucket.
// Accepte soit un chemin objet relatif, soit une URL complète (on ne garde que la clé).
func GenerateSignedURL(ctx context.Context, objectPath string, duration time.Duration) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	bucket := os.Getenv("MINIO_BUCKET")
	key := objectPath

	// Si on a stocké une URL complète, on retire le schéma + endpoint + bucket
	if strings.HasPrefix(objectPath, "http://") || strings.HasPrefix(objectPath, "https://") {
		prefix := fmt.Sprintf("://%s/%s/", os.Getenv("MINIO_ENDPOINT"), bucket)
		if idx := strings.Index(objectPath, prefix); idx >= 0 {
			key = objectPath[idx+len(prefix):]
		}
	}

	reqParams := make(url.Values)
	presignedURL, err := database.MinIO.PresignedGetObject(ctx, bucket, key, duration, reqParams)
	if err != nil {
		return "", err
	}

	return presignedURL.String(), nil
}
