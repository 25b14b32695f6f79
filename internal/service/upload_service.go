package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/logger"
	"github.com/noah-isme/campus-connect-api/pkg/storage"
)

const (
	mib = int64(1 << 20)

	mimePDF  = "application/pdf"
	mimeDoc  = "application/msword"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePpt  = "application/vnd.ms-powerpoint"
	mimePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeZip  = "application/zip"
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
	mimeWebP = "image/webp"
)

// UploadRule is the allowed MIME set and size limit of a category.
type UploadRule struct {
	AllowedTypes []string
	MaxSize      int64
	CourseScoped bool
}

// UploadRules is the static category table.
var UploadRules = map[models.UploadCategory]UploadRule{
	models.UploadCourseVideo:     {AllowedTypes: []string{"video/mp4", "video/webm", "video/quicktime"}, MaxSize: 500 * mib, CourseScoped: true},
	models.UploadCourseDocument:  {AllowedTypes: []string{mimePDF, mimeDoc, mimeDocx, mimePptx, mimePpt}, MaxSize: 50 * mib, CourseScoped: true},
	models.UploadCourseResource:  {AllowedTypes: []string{mimePDF, mimeZip, mimeDocx, mimeXlsx, mimePptx, mimePNG, mimeJPEG}, MaxSize: 100 * mib, CourseScoped: true},
	models.UploadCourseThumbnail: {AllowedTypes: []string{mimeJPEG, mimePNG, mimeWebP}, MaxSize: 5 * mib, CourseScoped: true},
	models.UploadResume:          {AllowedTypes: []string{mimePDF, mimeDoc, mimeDocx}, MaxSize: 5 * mib},
	models.UploadProfileImage:    {AllowedTypes: []string{mimeJPEG, mimePNG, mimeWebP}, MaxSize: 2 * mib},
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

type courseOwnerCheck interface {
	CourseCheck(ctx context.Context, courseID string, actor models.Actor) error
}

// ValidateFile rejects empty, oversize and disallowed files before any storage call.
func ValidateFile(file models.FileInfo, allowedTypes []string, maxSize int64) error {
	if file.Size <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if maxSize > 0 && file.Size > maxSize {
		return appErrors.WithDetails(appErrors.ErrFileTooLarge, map[string]interface{}{"maxSize": maxSize, "size": file.Size})
	}
	contentType := normalizeContentType(file.ContentType)
	for _, allowed := range allowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return appErrors.WithDetails(appErrors.ErrInvalidFileType, map[string]interface{}{"contentType": contentType, "allowedTypes": allowedTypes})
}

// UploadService issues presigned URLs and performs buffered single-part uploads.
type UploadService struct {
	store     storage.ObjectStore
	courses   courseOwnerCheck
	expiry    time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUploadService constructs an UploadService.
func NewUploadService(store storage.ObjectStore, courses courseOwnerCheck, expiry time.Duration, validate *validator.Validate, logger *zap.Logger) *UploadService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &UploadService{store: store, courses: courses, expiry: expiry, validator: validate, logger: logger, now: time.Now}
}

// PresignUpload validates the declared file and returns a direct upload URL.
func (s *UploadService) PresignUpload(ctx context.Context, actor models.Actor, req models.PresignUploadRequest) (*models.PresignedUpload, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid upload request")
	}
	rule := UploadRules[req.Category]
	if err := ValidateFile(models.FileInfo{Name: req.FileName, ContentType: req.ContentType, Size: req.FileSize}, rule.AllowedTypes, rule.MaxSize); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx, actor, req.Category, rule, req.CourseID)
	if err != nil {
		return nil, err
	}
	key := s.objectKey(req.Category, scope, req.FileName)
	contentType := normalizeContentType(req.ContentType)
	limits := storage.UploadLimits{ContentType: contentType, MaxSize: req.FileSize}
	presigned, err := s.store.PresignUpload(ctx, key, limits, s.expiry)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to presign upload")
	}
	return &models.PresignedUpload{
		UploadURL: presigned.URL,
		Method:    presigned.Method,
		Headers:   presigned.Headers,
		FileKey:   key,
		FileURL:   s.store.PublicURL(key),
		ExpiresAt: presigned.ExpiresAt,
	}, nil
}

// PresignDownload returns a download URL for a key under the caller's own scope or a course the caller owns.
func (s *UploadService) PresignDownload(ctx context.Context, actor models.Actor, req models.PresignDownloadRequest) (*models.PresignedDownload, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid download request")
	}
	key, err := storage.CleanKey(req.FileKey)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid fileKey")
	}
	if err := s.authorizeKey(ctx, actor, key); err != nil {
		return nil, err
	}
	presigned, err := s.store.PresignDownload(ctx, key, s.expiry)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to presign download")
	}
	return &models.PresignedDownload{DownloadURL: presigned.URL, ExpiresAt: presigned.ExpiresAt}, nil
}

// UploadCourseContent stores a buffered file for a course the actor owns in a single put.
func (s *UploadService) UploadCourseContent(ctx context.Context, actor models.Actor, courseID string, category models.UploadCategory, file models.FileInfo, body io.Reader) (*models.StoredFile, error) {
	rule, ok := UploadRules[category]
	if !ok || !rule.CourseScoped {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category must be a course upload category")
	}
	if err := ValidateFile(file, rule.AllowedTypes, rule.MaxSize); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx, actor, category, rule, &courseID)
	if err != nil {
		return nil, err
	}
	key := s.objectKey(category, scope, file.Name)
	contentType := normalizeContentType(file.ContentType)
	if err := s.store.Put(ctx, key, contentType, io.LimitReader(body, rule.MaxSize+1)); err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to store file")
	}
	logger.For(ctx, s.logger).Info("course file stored", zap.String("key", key), zap.Int64("size", file.Size), zap.String("user_id", actor.UserID))
	return &models.StoredFile{FileKey: key, FileURL: s.store.PublicURL(key), Size: file.Size, ContentType: contentType}, nil
}

func (s *UploadService) scope(ctx context.Context, actor models.Actor, category models.UploadCategory, rule UploadRule, courseID *string) (string, error) {
	if !rule.CourseScoped {
		return actor.UserID, nil
	}
	if courseID == nil || strings.TrimSpace(*courseID) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("courseId is required for %s uploads", category))
	}
	if err := s.courses.CourseCheck(ctx, *courseID, actor); err != nil {
		return "", err
	}
	return *courseID, nil
}

func (s *UploadService) authorizeKey(ctx context.Context, actor models.Actor, key string) error {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	if actor.IsAdmin() {
		return nil
	}
	rule, ok := UploadRules[models.UploadCategory(parts[0])]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	if !rule.CourseScoped {
		if parts[1] != actor.UserID {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil
	}
	if err := s.courses.CourseCheck(ctx, parts[1], actor); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return nil
}

func (s *UploadService) objectKey(category models.UploadCategory, scope, fileName string) string {
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%s/%d-%s-%s", category, scope, s.now().Unix(), rnd, sanitizeObjectName(fileName))
}

func sanitizeObjectName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeFileChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "file"
	}
	if len(base) > 100 {
		ext := path.Ext(base)
		if len(ext) > 10 {
			ext = ""
		}
		base = base[:100-len(ext)] + ext
	}
	return base
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}
