package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxLogoSize     = 2 * 1024 * 1024 // 2 MB
	presignedURLTTL = 15 * time.Minute
	logoPathPrefix  = "logos"
)

var (
	ErrFileTooBig           = errors.New("file size exceeds 2MB limit")
	ErrInvalidFileType      = errors.New("invalid file type, only JPEG and PNG images are allowed")
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	ErrUploadFailed         = errors.New("failed to upload file")
	ErrDeleteFailed         = errors.New("failed to delete file")
	ErrURLGenerationFailed  = errors.New("failed to generate presigned URL")

	allowedLogoContentTypes = map[string]struct{}{
		"image/jpeg": {},
		"image/png":  {},
	}
)

// StorageService stores clinic logos for peripheral nodes.
type StorageService interface {
	// UploadLogo uploads a node's logo and returns the object key.
	UploadLogo(ctx context.Context, nodeID uint, file io.Reader, fileSize int64, contentType string) (string, error)

	// DeleteLogo deletes a node's logo by object key.
	DeleteLogo(ctx context.Context, objectKey string) error

	// GenerateLogoURL generates a presigned URL for logo access.
	GenerateLogoURL(ctx context.Context, objectKey string) (string, error)
}

// MinIOStorageService implements StorageService against MinIO or any
// S3-compatible store.
type MinIOStorageService struct {
	client     *minio.Client
	bucketName string
}

func NewMinIOStorageService(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOStorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStorageService{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// ensureBucketExists runs lazily on first upload so an unreachable store
// never blocks startup.
func (s *MinIOStorageService) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
		}
	}

	return nil
}

// UploadLogo validates size and content type, then stores the logo under a
// node-scoped object key.
func (s *MinIOStorageService) UploadLogo(ctx context.Context, nodeID uint, file io.Reader, fileSize int64, contentType string) (string, error) {
	if fileSize > maxLogoSize {
		return "", ErrFileTooBig
	}

	normalizedContentType := strings.ToLower(strings.TrimSpace(contentType))
	if _, allowed := allowedLogoContentTypes[normalizedContentType]; !allowed {
		return "", ErrInvalidFileType
	}

	if err := s.ensureBucketExists(ctx); err != nil {
		return "", err
	}

	fileExt := contentTypeToExtension(normalizedContentType)
	objectKey := fmt.Sprintf("%s/node-%d/%s%s", logoPathPrefix, nodeID, uuid.New().String(), fileExt)

	metadata := map[string]string{
		"Content-Type": normalizedContentType,
		"Node-ID":      fmt.Sprintf("%d", nodeID),
		"Uploaded-At":  time.Now().UTC().Format(time.RFC3339),
	}

	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, file, fileSize, minio.PutObjectOptions{
		ContentType:  normalizedContentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return objectKey, nil
}

// DeleteLogo deletes a logo object. Empty keys are a no-op.
func (s *MinIOStorageService) DeleteLogo(ctx context.Context, objectKey string) error {
	if strings.TrimSpace(objectKey) == "" {
		return nil
	}

	err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	return nil
}

// GenerateLogoURL generates a presigned GET URL for logo access.
func (s *MinIOStorageService) GenerateLogoURL(ctx context.Context, objectKey string) (string, error) {
	if strings.TrimSpace(objectKey) == "" {
		return "", fmt.Errorf("%w: empty object key", ErrURLGenerationFailed)
	}

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, presignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrURLGenerationFailed, err)
	}

	return presignedURL.String(), nil
}

func contentTypeToExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}
