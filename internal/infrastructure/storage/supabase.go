package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrStorageDisabled = errors.New("slip storage is not configured")

// Uploader stores a slip image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

// SupabaseUploader writes objects through the Supabase Storage REST API.
type SupabaseUploader struct {
	baseURL string
	apiKey  string
	bucket  string
	client  *http.Client
	now     func() time.Time
	logger  *zap.Logger
}

func NewSupabaseUploader(baseURL, apiKey, bucket string, logger *zap.Logger) *SupabaseUploader {
	return &SupabaseUploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
		logger:  logger,
	}
}

func (u *SupabaseUploader) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if u.baseURL == "" || u.apiKey == "" || u.bucket == "" {
		return "", ErrStorageDisabled
	}

	objectPath := fmt.Sprintf("slips/%d_%s", u.now().Unix(), path.Base(filename))
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", u.baseURL, u.bucket, escapePath(objectPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.apiKey)
	req.Header.Set("apikey", u.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload slip %s: %w", objectPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("storage returned status %d for %s: %s", resp.StatusCode, objectPath, strings.TrimSpace(string(body)))
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", u.baseURL, u.bucket, escapePath(objectPath))
	u.logger.Info("Slip uploaded", zap.String("path", objectPath), zap.String("public_url", publicURL))
	return publicURL, nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
