package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/storage"
)

func newTestUploadService() (*UploadService, *memoryObjectStore) {
	store := newMemoryObjectStore()
	courses := ownedCourses{"11111111-1111-4111-8111-111111111111": mentorActor.UserID}
	return NewUploadService(store, courses, 0, nil, zap.NewNop()), store
}

func TestValidateFile(t *testing.T) {
	rule := UploadRules[models.UploadResume]

	assert.NoError(t, ValidateFile(models.FileInfo{Name: "cv.pdf", ContentType: "application/pdf", Size: 1024}, rule.AllowedTypes, rule.MaxSize))
	assert.NoError(t, ValidateFile(models.FileInfo{Name: "cv.pdf", ContentType: "Application/PDF; charset=binary", Size: 1024}, rule.AllowedTypes, rule.MaxSize))
	assert.Equal(t, "VALIDATION_ERROR", errCode(ValidateFile(models.FileInfo{Name: "cv.pdf", ContentType: "application/pdf"}, rule.AllowedTypes, rule.MaxSize)))
	assert.Equal(t, "FILE_TOO_LARGE", errCode(ValidateFile(models.FileInfo{Name: "cv.pdf", ContentType: "application/pdf", Size: rule.MaxSize + 1}, rule.AllowedTypes, rule.MaxSize)))
	assert.Equal(t, "INVALID_FILE_TYPE", errCode(ValidateFile(models.FileInfo{Name: "cv.exe", ContentType: "application/x-msdownload", Size: 10}, rule.AllowedTypes, rule.MaxSize)))
}

func TestPresignUploadRejectsWithoutStorageCall(t *testing.T) {
	svc, store := newTestUploadService()
	ctx := context.Background()

	_, err := svc.PresignUpload(ctx, studentActor, models.PresignUploadRequest{
		Category: models.UploadResume, FileName: "cv.png", ContentType: "image/png", FileSize: 1024,
	})
	assert.Equal(t, "INVALID_FILE_TYPE", errCode(err))

	_, err = svc.PresignUpload(ctx, studentActor, models.PresignUploadRequest{
		Category: models.UploadProfileImage, FileName: "me.jpg", ContentType: "image/jpeg", FileSize: 3 * mib,
	})
	assert.Equal(t, "FILE_TOO_LARGE", errCode(err))
	assert.Zero(t, store.calls())
}

func TestPresignUploadResume(t *testing.T) {
	svc, store := newTestUploadService()

	out, err := svc.PresignUpload(context.Background(), studentActor, models.PresignUploadRequest{
		Category: models.UploadResume, FileName: "../My CV (final).pdf", ContentType: "application/pdf", FileSize: 2048,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.FileKey, "resume/student-1/"))
	assert.True(t, strings.HasSuffix(out.FileKey, "-My_CV_final_.pdf"), out.FileKey)
	assert.Equal(t, "PUT", out.Method)
	assert.Equal(t, "https://cdn.test/"+out.FileKey, out.FileURL)
	assert.Len(t, store.presigned, 1)
}

func TestPresignUploadBindsDeclaredFile(t *testing.T) {
	svc, store := newTestUploadService()

	out, err := svc.PresignUpload(context.Background(), studentActor, models.PresignUploadRequest{
		Category: models.UploadProfileImage, FileName: "me.png", ContentType: "Image/PNG", FileSize: 1024,
	})
	require.NoError(t, err)
	require.Len(t, store.limits, 1)
	assert.Equal(t, storage.UploadLimits{ContentType: "image/png", MaxSize: 1024}, store.limits[0])
	assert.Equal(t, "image/png", out.Headers["Content-Type"])
}

func TestPresignUploadCourseCategoryNeedsOwnership(t *testing.T) {
	svc, store := newTestUploadService()
	ctx := context.Background()
	courseID := "11111111-1111-4111-8111-111111111111"
	req := models.PresignUploadRequest{Category: models.UploadCourseVideo, FileName: "intro.mp4", ContentType: "video/mp4", FileSize: 10 * mib}

	_, err := svc.PresignUpload(ctx, mentorActor, req)
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))

	req.CourseID = &courseID
	_, err = svc.PresignUpload(ctx, models.Actor{UserID: "mentor-2", Role: models.RoleMentor}, req)
	assert.Equal(t, "NOT_FOUND", errCode(err))
	assert.Zero(t, store.calls())

	out, err := svc.PresignUpload(ctx, mentorActor, req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.FileKey, "course_video/"+courseID+"/"))
}

func TestPresignDownloadScopes(t *testing.T) {
	svc, _ := newTestUploadService()
	ctx := context.Background()

	_, err := svc.PresignDownload(ctx, studentActor, models.PresignDownloadRequest{FileKey: "resume/student-1/1700000000-abcd1234-cv.pdf"})
	require.NoError(t, err)

	_, err = svc.PresignDownload(ctx, studentActor, models.PresignDownloadRequest{FileKey: "resume/student-2/1700000000-abcd1234-cv.pdf"})
	assert.Equal(t, "NOT_FOUND", errCode(err))

	_, err = svc.PresignDownload(ctx, adminActor, models.PresignDownloadRequest{FileKey: "resume/student-2/1700000000-abcd1234-cv.pdf"})
	require.NoError(t, err)

	_, err = svc.PresignDownload(ctx, mentorActor, models.PresignDownloadRequest{FileKey: "course_document/11111111-1111-4111-8111-111111111111/1-a-notes.pdf"})
	require.NoError(t, err)

	_, err = svc.PresignDownload(ctx, studentActor, models.PresignDownloadRequest{FileKey: "../etc/passwd"})
	assert.Error(t, err)
}

func TestUploadCourseContent(t *testing.T) {
	svc, store := newTestUploadService()
	courseID := "11111111-1111-4111-8111-111111111111"
	body := strings.NewReader("%PDF-1.4 test")

	stored, err := svc.UploadCourseContent(context.Background(), mentorActor, courseID, models.UploadCourseDocument,
		models.FileInfo{Name: "slides.pdf", ContentType: "application/pdf", Size: int64(body.Len())}, body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(store.objects[stored.FileKey]))
	assert.Equal(t, "application/pdf", stored.ContentType)

	_, err = svc.UploadCourseContent(context.Background(), mentorActor, courseID, models.UploadResume,
		models.FileInfo{Name: "cv.pdf", ContentType: "application/pdf", Size: 10}, strings.NewReader("x"))
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))
}

func TestSanitizeObjectName(t *testing.T) {
	assert.Equal(t, "report.pdf", sanitizeObjectName("C:\\Users\\me\\report.pdf"))
	assert.Equal(t, "file", sanitizeObjectName("..."))
	long := strings.Repeat("a", 150) + ".pdf"
	got := sanitizeObjectName(long)
	assert.Len(t, got, 100)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}
