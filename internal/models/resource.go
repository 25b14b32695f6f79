package models

import "time"

// Resource is a downloadable file attached to a course.
type Resource struct {
	ID            string    `db:"id" json:"id"`
	CourseID      string    `db:"course_id" json:"courseId"`
	ChapterID     *string   `db:"chapter_id" json:"chapterId,omitempty"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	FileKey       string    `db:"file_key" json:"fileKey"`
	FileName      string    `db:"file_name" json:"fileName"`
	FileSize      int64     `db:"file_size" json:"fileSize"`
	MimeType      string    `db:"mime_type" json:"mimeType"`
	IsFree        bool      `db:"is_free" json:"isFree"`
	DownloadCount int       `db:"download_count" json:"downloadCount"`
	CreatedBy     string    `db:"created_by" json:"createdBy"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// CreateResourceRequest registers an uploaded object as a course resource.
type CreateResourceRequest struct {
	ChapterID   *string `json:"chapterId" validate:"omitempty,uuid"`
	Title       string  `json:"title" validate:"required,min=2,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	FileKey     string  `json:"fileKey" validate:"required,max=512"`
	FileName    string  `json:"fileName" validate:"required,max=255"`
	FileSize    int64   `json:"fileSize" validate:"required,gt=0"`
	MimeType    string  `json:"mimeType" validate:"required"`
	IsFree      bool    `json:"isFree"`
}

// ResourceDownload is the presigned link handed to an authorised downloader.
type ResourceDownload struct {
	ResourceID  string    `json:"resourceId"`
	FileName    string    `json:"fileName"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
