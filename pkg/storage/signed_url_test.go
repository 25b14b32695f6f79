package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate(OperationUpload, "resume/u-1/cv.pdf", 0)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	key, parsedExpiry, err := signer.Parse(token, OperationUpload)
	require.NoError(t, err)
	require.Equal(t, "resume/u-1/cv.pdf", key)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerCarriesUploadLimits(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Issue(Grant{
		Op:          OperationUpload,
		Key:         "profile_image/u-1/avatar.png",
		ContentType: "image/png",
		MaxSize:     1024,
	}, time.Minute)
	require.NoError(t, err)

	grant, err := signer.Verify(token, OperationUpload)
	require.NoError(t, err)
	require.Equal(t, "profile_image/u-1/avatar.png", grant.Key)
	require.Equal(t, "image/png", grant.ContentType)
	require.Equal(t, int64(1024), grant.MaxSize)
}

func TestSignedURLSignerRejectsRaisedLimit(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Issue(Grant{Op: OperationUpload, Key: "a/b.png", ContentType: "image/png", MaxSize: 1024}, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[4] = "10485760"
	_, err = signer.Verify(strings.Join(parts, "."), OperationUpload)
	require.Error(t, err)

	parts = strings.Split(token, ".")
	parts[3] = "YXBwbGljYXRpb24veC1tc2Rvd25sb2Fk"
	_, err = signer.Verify(strings.Join(parts, "."), OperationUpload)
	require.Error(t, err)
}

func TestSignedURLSignerRejectsOtherOperation(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate(OperationDownload, "a/b.pdf", time.Minute)
	require.NoError(t, err)

	_, _, err = signer.Parse(token, OperationUpload)
	require.Error(t, err)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := signer.Generate(OperationDownload, "a/b.pdf", time.Minute)
	require.NoError(t, err)

	signer.now = time.Now
	_, _, err = signer.Parse(token, OperationDownload)
	require.Error(t, err)
}

func TestSignedURLSignerTampered(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate(OperationDownload, "a/b.pdf", time.Minute)
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, err = other.Parse(token, OperationDownload)
	require.Error(t, err)
}
