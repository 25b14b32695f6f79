package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	files, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewLocalStore(files, NewSignedURLSigner("secret", time.Hour), "http://localhost:8080/api/upload/local/")
}

func TestLocalStorePresignAndResolve(t *testing.T) {
	store := newLocalStore(t)

	limits := UploadLimits{ContentType: "video/mp4", MaxSize: 50 << 20}
	upload, err := store.PresignUpload(context.Background(), "course_video/c-1/intro.mp4", limits, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "PUT", upload.Method)
	assert.Equal(t, "video/mp4", upload.Headers["Content-Type"])
	assert.True(t, strings.HasPrefix(upload.URL, "http://localhost:8080/api/upload/local/PUT."))

	token := strings.TrimPrefix(upload.URL, "http://localhost:8080/api/upload/local/")
	grant, err := store.Resolve(token, OperationUpload)
	require.NoError(t, err)
	assert.Equal(t, "course_video/c-1/intro.mp4", grant.Key)
	assert.Equal(t, "video/mp4", grant.ContentType)
	assert.Equal(t, int64(50<<20), grant.MaxSize)

	_, err = store.Resolve(token, OperationDownload)
	assert.Error(t, err)
}

func TestLocalStoreHasNoPublicURL(t *testing.T) {
	store := newLocalStore(t)
	assert.Empty(t, store.PublicURL("profile_image/u-1/avatar.png"))
}

func TestLocalStorePutOpenDelete(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "resume/u-1/cv.pdf", "application/pdf", strings.NewReader("%PDF-1.4")))
	file, err := store.Files().Open("resume/u-1/cv.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(ctx, "resume/u-1/cv.pdf"))
	_, err = store.Files().Open("resume/u-1/cv.pdf")
	assert.Error(t, err)
}

func TestCleanKeyRejectsTraversal(t *testing.T) {
	_, err := CleanKey("../etc/passwd")
	assert.Error(t, err)
	_, err = CleanKey("")
	assert.Error(t, err)

	key, err := CleanKey("/resume//u-1/cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, "resume/u-1/cv.pdf", key)
}
