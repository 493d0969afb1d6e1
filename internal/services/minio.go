package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path"

	"github.com/minio/minio-go/v7"

	"vitacart_back_end/internal/database"
)

// Dépose un fichier dans le bucket MinIO et renvoie le chemin objet (pas d'URL signée ici)
func UploadFile(objectPrefix string, file *multipart.FileHeader) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	bucket := os.Getenv("MINIO_BUCKET")
	objectName := path.Join(objectPrefix, file.Filename)

	_, err = database.MinIO.PutObject(context.Background(), bucket, objectName, f, file.Size,
		minio.PutObjectOptions{ContentType: file.Header.Get("Content-Type")})
	if err != nil {
		return "", err
	}

	return objectName, nil
}

// Supprime un objet du bucket
func DeleteFile(ctx context.Context, objectName string) error {
	if database.MinIO == nil {
		return fmt.Errorf("MinIO non initialisé")
	}
	bucket := os.Getenv("MINIO_BUCKET")
	return database.MinIO.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{})
}
