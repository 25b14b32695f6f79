package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGCSUploadOptionsBindSizeAndType(t *testing.T) {
	store := &GCSStore{bucket: "campus", signer: "signer@campus.iam.gserviceaccount.com"}
	expiresAt := time.Now().Add(15 * time.Minute)

	opts, headers := store.uploadOptions(UploadLimits{ContentType: "image/png", MaxSize: 1024}, expiresAt)
	assert.Equal(t, "PUT", opts.Method)
	assert.Equal(t, "image/png", opts.ContentType)
	assert.Equal(t, []string{"x-goog-content-length-range:0,1024"}, opts.Headers)
	assert.Equal(t, "signer@campus.iam.gserviceaccount.com", opts.GoogleAccessID)
	assert.Equal(t, map[string]string{
		"Content-Type":                "image/png",
		"x-goog-content-length-range": "0,1024",
	}, headers)
}

func TestGCSUploadOptionsWithoutSizeCap(t *testing.T) {
	store := &GCSStore{bucket: "campus"}

	opts, headers := store.uploadOptions(UploadLimits{ContentType: "application/pdf"}, time.Now().Add(time.Minute))
	assert.Empty(t, opts.Headers)
	assert.Equal(t, map[string]string{"Content-Type": "application/pdf"}, headers)
}
