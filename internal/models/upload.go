package models

import "time"

// UploadCategory selects the allowed MIME types and size limit of an upload.
type UploadCategory string

const (
	UploadCourseVideo     UploadCategory = "course_video"
	UploadCourseDocument  UploadCategory = "course_document"
	UploadCourseResource  UploadCategory = "course_resource"
	UploadCourseThumbnail UploadCategory = "course_thumbnail"
	UploadResume          UploadCategory = "resume"
	UploadProfileImage    UploadCategory = "profile_image"
)

// FileInfo describes a file before it reaches storage.
type FileInfo struct {
	Name        string
	ContentType string
	Size        int64
}

// PresignUploadRequest asks for a direct-to-storage upload URL.
type PresignUploadRequest struct {
	Category    UploadCategory `json:"category" validate:"required,oneof=course_video course_document course_resource course_thumbnail resume profile_image"`
	FileName    string         `json:"fileName" validate:"required,max=255"`
	ContentType string         `json:"contentType" validate:"required,max=127"`
	FileSize    int64          `json:"fileSize" validate:"required,gt=0"`
	CourseID    *string        `json:"courseId" validate:"omitempty,uuid"`
}

// PresignedUpload is returned to the client, which PUTs the bytes to UploadURL.
type PresignedUpload struct {
	UploadURL string            `json:"uploadUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	FileKey   string            `json:"fileKey"`
	FileURL   string            `json:"fileUrl"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// PresignDownloadRequest asks for a time-limited download URL.
type PresignDownloadRequest struct {
	FileKey string `json:"fileKey" validate:"required,max=512"`
}

// PresignedDownload is a time-limited download link.
type PresignedDownload struct {
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// StoredFile is the result of a buffered server-side upload.
type StoredFile struct {
	FileKey     string `json:"fileKey"`
	FileURL     string `json:"fileUrl"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}
