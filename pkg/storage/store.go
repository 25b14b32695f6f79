package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Operation identifies what a presigned URL allows.
type Operation string

const (
	OperationUpload   Operation = "PUT"
	OperationDownload Operation = "GET"
)

// PresignedURL is a time-limited URL granting a single operation on one object.
type PresignedURL struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// UploadLimits bind a presigned upload to the validated file. A zero MaxSize leaves the size unbounded.
type UploadLimits struct {
	ContentType string
	MaxSize     int64
}

// ObjectStore abstracts the blob backend used by the upload and download flows.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key string, limits UploadLimits, expiry time.Duration) (*PresignedURL, error)
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (*PresignedURL, error)
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// CleanKey normalises an object key and rejects traversal attempts.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", fmt.Errorf("object key required")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return "", fmt.Errorf("invalid object key %q", key)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}
