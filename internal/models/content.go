package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ContentType selects the schema of Content.ContentData.
type ContentType string

const (
	ContentTypeVideo      ContentType = "video"
	ContentTypeDocument   ContentType = "document"
	ContentTypeQuiz       ContentType = "quiz"
	ContentTypeAssignment ContentType = "assignment"
)

// Content is one lesson item inside a chapter.
type Content struct {
	ID              string         `db:"id" json:"id"`
	ChapterID       string         `db:"chapter_id" json:"chapterId"`
	Title           string         `db:"title" json:"title"`
	Type            ContentType    `db:"type" json:"type"`
	ContentData     types.JSONText `db:"content_data" json:"contentData,omitempty"`
	OrderIndex      int            `db:"order_index" json:"orderIndex"`
	DurationMinutes int            `db:"duration_minutes" json:"durationMinutes"`
	IsPreview       bool           `db:"is_preview" json:"isPreview"`
	IsPublished     bool           `db:"is_published" json:"isPublished"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// CreateContentRequest payload for adding chapter content.
type CreateContentRequest struct {
	Title           string         `json:"title" validate:"required,min=2,max=200"`
	Type            ContentType    `json:"type" validate:"required,oneof=video document quiz assignment"`
	ContentData     types.JSONText `json:"contentData" validate:"required"`
	OrderIndex      *int           `json:"orderIndex" validate:"omitempty,gte=0"`
	DurationMinutes int            `json:"durationMinutes" validate:"gte=0,lte=1440"`
	IsPreview       bool           `json:"isPreview"`
	IsPublished     bool           `json:"isPublished"`
}

// UpdateContentRequest partially updates content. ContentData is revalidated against the stored type.
type UpdateContentRequest struct {
	Title           *string         `json:"title" validate:"omitempty,min=2,max=200"`
	ContentData     *types.JSONText `json:"contentData"`
	OrderIndex      *int            `json:"orderIndex" validate:"omitempty,gte=0"`
	DurationMinutes *int            `json:"durationMinutes" validate:"omitempty,gte=0,lte=1440"`
	IsPreview       *bool           `json:"isPreview"`
	IsPublished     *bool           `json:"isPublished"`
}

// VideoContent is the payload of a video lesson.
type VideoContent struct {
	VideoURL        string `json:"videoUrl" validate:"required,url"`
	DurationSeconds int    `json:"durationSeconds" validate:"required,gt=0"`
	ThumbnailURL    string `json:"thumbnailUrl" validate:"omitempty,url"`
	Transcript      string `json:"transcript"`
}

// DocumentContent is the payload of a document lesson.
type DocumentContent struct {
	FileURL   string `json:"fileUrl" validate:"required,url"`
	FileName  string `json:"fileName" validate:"required,max=255"`
	FileSize  int64  `json:"fileSize" validate:"gte=0"`
	PageCount int    `json:"pageCount" validate:"gte=0"`
}

// QuizQuestion is a single multiple-choice question.
type QuizQuestion struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,max=8,dive,required"`
	CorrectOption int      `json:"correctOption" validate:"gte=0"`
	Points        int      `json:"points" validate:"gte=0"`
	Explanation   string   `json:"explanation"`
}

// QuizContent is the payload of a quiz lesson.
type QuizContent struct {
	Questions        []QuizQuestion `json:"questions" validate:"required,min=1,dive"`
	PassingScore     int            `json:"passingScore" validate:"gte=0,lte=100"`
	TimeLimitMinutes int            `json:"timeLimitMinutes" validate:"gte=0"`
}

// AssignmentContent is the payload of an assignment lesson.
type AssignmentContent struct {
	Instructions   string `json:"instructions" validate:"required,min=10"`
	MaxScore       int    `json:"maxScore" validate:"required,gt=0"`
	DueInDays      int    `json:"dueInDays" validate:"gte=0"`
	SubmissionType string `json:"submissionType" validate:"required,oneof=file text link"`
}
