package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// contentLengthRangeHeader makes GCS reject uploads outside the signed byte range.
const contentLengthRangeHeader = "x-goog-content-length-range"

// GCSConfig configures the Google Cloud Storage backend.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	SignerEmail     string
	PublicBaseURL   string
}

// GCSStore issues V4 signed URLs and writes objects to a GCS bucket.
type GCSStore struct {
	client     *gcs.Client
	bucket     string
	signer     string
	publicBase string
}

// NewGCSStore creates a storage client scoped to read/write.
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("storage bucket required")
	}
	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = "https://storage.googleapis.com/" + cfg.Bucket
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, signer: cfg.SignerEmail, publicBase: publicBase}, nil
}

// PresignUpload returns a V4 signed PUT URL bound to the content type and size cap.
// The client must send every returned header unchanged.
func (s *GCSStore) PresignUpload(_ context.Context, key string, limits UploadLimits, expiry time.Duration) (*PresignedURL, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(expiry)
	opts, headers := s.uploadOptions(limits, expiresAt)
	signed, err := s.client.Bucket(s.bucket).SignedURL(key, opts)
	if err != nil {
		return nil, fmt.Errorf("sign upload url: %w", err)
	}
	return &PresignedURL{
		URL:       signed,
		Method:    "PUT",
		Headers:   headers,
		ExpiresAt: expiresAt,
	}, nil
}

// PresignDownload returns a V4 signed GET URL.
func (s *GCSStore) PresignDownload(_ context.Context, key string, expiry time.Duration) (*PresignedURL, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(expiry)
	signed, err := s.client.Bucket(s.bucket).SignedURL(key, s.signedOptions("GET", "", expiresAt))
	if err != nil {
		return nil, fmt.Errorf("sign download url: %w", err)
	}
	return &PresignedURL{URL: signed, Method: "GET", ExpiresAt: expiresAt}, nil
}

// Put streams the object in a single write.
func (s *GCSStore) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	return nil
}

// Delete removes an object; a missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the CDN or bucket URL for the object.
func (s *GCSStore) PublicURL(key string) string {
	cleaned, err := CleanKey(key)
	if err != nil {
		return ""
	}
	segments := strings.Split(cleaned, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBase + "/" + strings.Join(segments, "/")
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) uploadOptions(limits UploadLimits, expiresAt time.Time) (*gcs.SignedURLOptions, map[string]string) {
	opts := s.signedOptions("PUT", limits.ContentType, expiresAt)
	headers := map[string]string{}
	if limits.ContentType != "" {
		headers["Content-Type"] = limits.ContentType
	}
	if limits.MaxSize > 0 {
		rangeValue := fmt.Sprintf("0,%d", limits.MaxSize)
		opts.Headers = append(opts.Headers, contentLengthRangeHeader+":"+rangeValue)
		headers[contentLengthRangeHeader] = rangeValue
	}
	return opts, headers
}

func (s *GCSStore) signedOptions(method, contentType string, expiresAt time.Time) *gcs.SignedURLOptions {
	opts := &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  method,
		Expires: expiresAt,
	}
	if contentType != "" {
		opts.ContentType = contentType
	}
	if s.signer != "" {
		opts.GoogleAccessID = s.signer
	}
	return opts
}
