package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"time"
)

// LocalStore serves presigned URLs from the API itself, backed by LocalStorage.
type LocalStore struct {
	files   *LocalStorage
	signer  *SignedURLSigner
	baseURL string
}

// NewLocalStore builds a local object store. baseURL prefixes the token endpoints.
func NewLocalStore(files *LocalStorage, signer *SignedURLSigner, baseURL string) *LocalStore {
	return &LocalStore{
		files:   files,
		signer:  signer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// PresignUpload returns a signed PUT URL whose token carries the content type and size cap.
func (s *LocalStore) PresignUpload(_ context.Context, key string, limits UploadLimits, expiry time.Duration) (*PresignedURL, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Issue(Grant{
		Op:          OperationUpload,
		Key:         key,
		ContentType: limits.ContentType,
		MaxSize:     limits.MaxSize,
	}, expiry)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{}
	if limits.ContentType != "" {
		headers["Content-Type"] = limits.ContentType
	}
	return &PresignedURL{
		URL:       s.baseURL + "/" + token,
		Method:    string(OperationUpload),
		Headers:   headers,
		ExpiresAt: expiresAt,
	}, nil
}

// PresignDownload returns a signed GET URL.
func (s *LocalStore) PresignDownload(_ context.Context, key string, expiry time.Duration) (*PresignedURL, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(OperationDownload, key, expiry)
	if err != nil {
		return nil, err
	}
	return &PresignedURL{URL: s.baseURL + "/" + token, Method: string(OperationDownload), ExpiresAt: expiresAt}, nil
}

// Put writes the object to disk.
func (s *LocalStore) Put(_ context.Context, key, _ string, r io.Reader) error {
	_, err := s.files.SaveStream(key, r)
	return err
}

// Delete removes the object from disk.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	return s.files.Delete(key)
}

// PublicURL is always empty: local objects are only reachable through signed download links.
func (s *LocalStore) PublicURL(string) string {
	return ""
}

// Resolve validates a token for op and returns what it grants.
func (s *LocalStore) Resolve(token string, op Operation) (*Grant, error) {
	return s.signer.Verify(token, op)
}

// Files exposes the underlying disk storage for the token handlers.
func (s *LocalStore) Files() *LocalStorage {
	return s.files
}

// Open returns the stored object for the download token handler.
func (s *LocalStore) Open(key string) (*os.File, error) {
	return s.files.Open(key)
}
