package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/groupchat/backend/internal/config"
	"github.com/groupchat/backend/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrInvalidObjectURL = errors.New("url does not reference a stored object")

type MinIOStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinIOStore(cfg config.MediaConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

func (m *MinIOStore) Upload(ctx context.Context, folder string, file Upload) (string, error) {
	key := objectKey(folder, file)
	_, err := m.client.PutObject(ctx, m.bucket, key, file.Reader, file.Size, minio.PutObjectOptions{
		ContentType: file.ContentType,
	})
	if err != nil {
		logger.Error("media_upload_failed", err, map[string]interface{}{
			"object_name":  key,
			"size":         file.Size,
			"content_type": file.ContentType,
			"bucket":       m.bucket,
		})
		return "", err
	}

	logger.Info("media_upload_success", map[string]interface{}{
		"object_name": key,
		"size":        file.Size,
		"bucket":      m.bucket,
	})
	return m.ObjectURL(key), nil
}

func (m *MinIOStore) Delete(ctx context.Context, folder string, rawURL string) error {
	key, err := ObjectKeyFromURL(rawURL, folder)
	if err != nil {
		return err
	}

	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		logger.Error("media_delete_failed", err, map[string]interface{}{
			"object_name": key,
			"bucket":      m.bucket,
		})
		return err
	}

	logger.Info("media_delete_success", map[string]interface{}{
		"object_name": key,
		"bucket":      m.bucket,
	})
	return nil
}

func (m *MinIOStore) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", m.publicURL, m.bucket, key)
}

// EnsureBucket creates the bucket if needed and lets anonymous clients read
// objects, since the returned URLs are embedded directly by the frontend.
func (m *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed creating bucket %s: %w", m.bucket, err)
		}
	}

	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, m.bucket)
	if err := m.client.SetBucketPolicy(ctx, m.bucket, policy); err != nil {
		return fmt.Errorf("failed setting read policy on bucket %s: %w", m.bucket, err)
	}
	return nil
}

// ObjectKeyFromURL recovers the object key from a URL produced by Upload:
// folder plus the last path segment.
func ObjectKeyFromURL(rawURL, folder string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidObjectURL, err)
	}

	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "", ErrInvalidObjectURL
	}
	return folder + "/" + name, nil
}

func objectKey(folder string, file Upload) string {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		if exts, err := mime.ExtensionsByType(file.ContentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return folder + "/" + uuid.NewString() + ext
}
