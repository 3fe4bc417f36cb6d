package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/blogverse/blogverse/internal/observability"
)

const (
	maxAvatarSize    = 5 * 1024 * 1024 // 5 MB
	presignedURLTTL  = 15 * time.Minute
	avatarPathPrefix = "avatars"
)

var (
	ErrFileTooBig           = errors.New("file size exceeds 5MB limit")
	ErrInvalidFileType      = errors.New("invalid file type, only JPEG and PNG images are allowed")
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	ErrUploadFailed         = errors.New("failed to upload file")
	ErrDeleteFailed         = errors.New("failed to delete file")
	ErrURLGenerationFailed  = errors.New("failed to generate presigned URL")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to resource")

	allowedAvatarTypes = map[string]struct{}{
		"image/jpeg": {},
		"image/png":  {},
	}
)

// AvatarStorage stores and serves profile images.
type AvatarStorage interface {
	UploadAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, fileSize int64) (string, error)
	DeleteAvatar(ctx context.Context, userID uuid.UUID, objectKey string) error
	AvatarURL(ctx context.Context, objectKey string) (string, error)
}

// MinIOAvatarStorage keeps avatars in an S3-compatible bucket, one prefix
// per user. Bucket creation is deferred to first use so a missing MinIO
// does not block startup.
type MinIOAvatarStorage struct {
	client     *minio.Client
	bucketName string
	initOnce   sync.Once
	initErr    error
}

func NewMinIOAvatarStorage(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOAvatarStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOAvatarStorage{client: client, bucketName: bucketName}, nil
}

// Client exposes the underlying connection for health probes.
func (s *MinIOAvatarStorage) Client() *minio.Client { return s.client }

// Bucket reports the configured bucket name.
func (s *MinIOAvatarStorage) Bucket() string { return s.bucketName }

func (s *MinIOAvatarStorage) lazyInit(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
			return
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
				s.initErr = fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
			}
		}
	})
	return s.initErr
}

// UploadAvatar sniffs the content type from the bytes themselves; the
// client-supplied header is never trusted.
func (s *MinIOAvatarStorage) UploadAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, fileSize int64) (string, error) {
	if fileSize > maxAvatarSize {
		return "", ErrFileTooBig
	}

	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("%w: read file for content detection: %v", ErrUploadFailed, err)
	}
	buf = buf[:n]

	contentType := strings.ToLower(strings.TrimSpace(http.DetectContentType(buf)))
	if _, allowed := allowedAvatarTypes[contentType]; !allowed {
		return "", ErrInvalidFileType
	}

	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}

	fullFile := io.MultiReader(bytes.NewReader(buf), file)
	objectKey := fmt.Sprintf("%s/user-%s/%s%s", avatarPathPrefix, userID, uuid.NewString(), avatarExtension(contentType))

	_, err = s.client.PutObject(ctx, s.bucketName, objectKey, fullFile, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"User-ID":     userID.String(),
			"Uploaded-At": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		observability.RecordAvatarStorageEvent(ctx, "upload", "error")
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	observability.RecordAvatarStorageEvent(ctx, "upload", "success")
	return objectKey, nil
}

// DeleteAvatar removes an object after checking it lives under the user's
// own prefix.
func (s *MinIOAvatarStorage) DeleteAvatar(ctx context.Context, userID uuid.UUID, objectKey string) error {
	if strings.TrimSpace(objectKey) == "" {
		return nil
	}
	if strings.Contains(objectKey, "..") {
		return ErrUnauthorizedAccess
	}
	expectedPrefix := fmt.Sprintf("%s/user-%s/", avatarPathPrefix, userID)
	if !strings.HasPrefix(objectKey, expectedPrefix) {
		return ErrUnauthorizedAccess
	}

	if err := s.lazyInit(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		observability.RecordAvatarStorageEvent(ctx, "delete", "error")
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	observability.RecordAvatarStorageEvent(ctx, "delete", "success")
	return nil
}

func (s *MinIOAvatarStorage) AvatarURL(ctx context.Context, objectKey string) (string, error) {
	if strings.TrimSpace(objectKey) == "" {
		return "", fmt.Errorf("%w: empty object key", ErrURLGenerationFailed)
	}
	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}
	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, presignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrURLGenerationFailed, err)
	}
	return presignedURL.String(), nil
}

func avatarExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}
