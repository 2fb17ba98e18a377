// Package storage provides object storage access backed by MinIO.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"estate_crm_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client wraps the MinIO SDK with the small surface the application needs.
type Client struct {
	mc          *minio.Client
	maxFileSize int64
}

// New connects to the configured MinIO endpoint. Returns nil when object
// storage is disabled; callers must treat a nil Client as "no storage".
func New(cfg config.MinIOConfig) (*Client, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, nil
	}

	mc, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &Client{mc: mc, maxFileSize: cfg.GetMinIOMaxFileSize()}, nil
}

// MaxFileSize is the configured upload size cap in bytes.
func (c *Client) MaxFileSize() int64 {
	if c == nil {
		return 0
	}
	return c.maxFileSize
}

// EnsureBucket creates the bucket if it does not exist.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	if c == nil {
		return fmt.Errorf("object storage not configured")
	}

	exists, err := c.mc.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("bucket check: %w", err)
	}
	if exists {
		return nil
	}
	if err := c.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

// Upload streams an object into the bucket.
func (c *Client) Upload(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) error {
	if c == nil {
		return fmt.Errorf("object storage not configured")
	}

	_, err := c.mc.PutObject(ctx, bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// PresignedGetURL returns a temporary download link for an object.
func (c *Client) PresignedGetURL(ctx context.Context, bucket, object string, expiry time.Duration) (string, error) {
	if c == nil {
		return "", fmt.Errorf("object storage not configured")
	}

	u, err := c.mc.PresignedGetObject(ctx, bucket, object, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

// Remove deletes an object.
func (c *Client) Remove(ctx context.Context, bucket, object string) error {
	if c == nil {
		return fmt.Errorf("object storage not configured")
	}
	return c.mc.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{})
}
