package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner creates and validates HMAC tokens for the local object store.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Grant is what a verified token allows. ContentType and MaxSize are only set on upload grants.
type Grant struct {
	Op          Operation
	Key         string
	ContentType string
	MaxSize     int64
	ExpiresAt   time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and default TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token allowing op on key until the returned expiry. A non-positive ttl uses the default.
func (s *SignedURLSigner) Generate(op Operation, key string, ttl time.Duration) (string, time.Time, error) {
	return s.Issue(Grant{Op: op, Key: key}, ttl)
}

// Issue signs g into a token. The content type and size cap are covered by the signature.
func (s *SignedURLSigner) Issue(g Grant, ttl time.Duration) (string, time.Time, error) {
	if g.Op == "" || g.Key == "" {
		return "", time.Time{}, fmt.Errorf("operation and key required")
	}
	if g.MaxSize < 0 {
		return "", time.Time{}, fmt.Errorf("negative size limit")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	expiresAt := s.now().Add(ttl)
	parts := []string{
		string(g.Op),
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(g.Key)),
		base64.RawURLEncoding.EncodeToString([]byte(g.ContentType)),
		strconv.FormatInt(g.MaxSize, 10),
	}
	token := strings.Join(append(parts, s.sign(parts)), ".")
	return token, expiresAt, nil
}

// Parse validates a token for the expected operation and returns the embedded key.
func (s *SignedURLSigner) Parse(token string, op Operation) (key string, expiresAt time.Time, err error) {
	grant, err := s.Verify(token, op)
	if err != nil {
		return "", time.Time{}, err
	}
	return grant.Key, grant.ExpiresAt, nil
}

// Verify validates a token for the expected operation and returns everything it grants.
func (s *SignedURLSigner) Verify(token string, op Operation) (*Grant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 6 {
		return nil, fmt.Errorf("invalid token format")
	}
	if parts[0] != string(op) {
		return nil, fmt.Errorf("token not valid for %s", op)
	}
	expected := s.sign(parts[:5])
	if !hmac.Equal([]byte(expected), []byte(parts[5])) {
		return nil, fmt.Errorf("invalid token signature")
	}

	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp")
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	rawType, err := base64.RawURLEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("decode content type: %w", err)
	}
	maxSize, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil || maxSize < 0 {
		return nil, fmt.Errorf("invalid size limit")
	}
	expiresAt := time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return nil, fmt.Errorf("token expired")
	}
	return &Grant{
		Op:          op,
		Key:         string(rawKey),
		ContentType: string(rawType),
		MaxSize:     maxSize,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *SignedURLSigner) sign(parts []string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
