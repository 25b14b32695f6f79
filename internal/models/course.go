package models

import "time"

// CourseStatus tracks the publication lifecycle of a course.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// CourseLevel is the advertised difficulty.
type CourseLevel string

const (
	CourseLevelBeginner     CourseLevel = "beginner"
	CourseLevelIntermediate CourseLevel = "intermediate"
	CourseLevelAdvanced     CourseLevel = "advanced"
)

// Course is a mentor-owned learning track.
type Course struct {
	ID           string       `db:"id" json:"id"`
	MentorID     string       `db:"mentor_id" json:"mentorId"`
	Title        string       `db:"title" json:"title"`
	Slug         string       `db:"slug" json:"slug"`
	Description  string       `db:"description" json:"description"`
	Category     string       `db:"category" json:"category"`
	Level        CourseLevel  `db:"level" json:"level"`
	Price        int64        `db:"price" json:"price"`
	Status       CourseStatus `db:"status" json:"status"`
	ThumbnailURL *string      `db:"thumbnail_url" json:"thumbnailUrl,omitempty"`
	PublishedAt  *time.Time   `db:"published_at" json:"publishedAt,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	MentorID  string
	Category  string
	Level     CourseLevel
	Status    CourseStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateCourseRequest payload for POST /courses.
type CreateCourseRequest struct {
	Title        string       `json:"title" validate:"required,min=3,max=200"`
	Description  string       `json:"description" validate:"required,min=10"`
	Category     string       `json:"category" validate:"required,max=80"`
	Level        CourseLevel  `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	Price        int64        `json:"price" validate:"gte=0"`
	Status       CourseStatus `json:"status" validate:"omitempty,oneof=draft published"`
	ThumbnailURL *string      `json:"thumbnailUrl" validate:"omitempty,url"`
}

// UpdateCourseRequest partially updates a course.
type UpdateCourseRequest struct {
	Title        *string       `json:"title" validate:"omitempty,min=3,max=200"`
	Description  *string       `json:"description" validate:"omitempty,min=10"`
	Category     *string       `json:"category" validate:"omitempty,max=80"`
	Level        *CourseLevel  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Price        *int64        `json:"price" validate:"omitempty,gte=0"`
	Status       *CourseStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
	ThumbnailURL *string       `json:"thumbnailUrl" validate:"omitempty,url"`
}

// Chapter groups ordered content within a course.
type Chapter struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"courseId"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	OrderIndex  int       `db:"order_index" json:"orderIndex"`
	IsPublished bool      `db:"is_published" json:"isPublished"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// CreateChapterRequest payload for adding a chapter. A nil OrderIndex appends.
type CreateChapterRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=2000"`
	OrderIndex  *int   `json:"orderIndex" validate:"omitempty,gte=0"`
	IsPublished bool   `json:"isPublished"`
}

// UpdateChapterRequest partially updates a chapter.
type UpdateChapterRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	OrderIndex  *int    `json:"orderIndex" validate:"omitempty,gte=0"`
	IsPublished *bool   `json:"isPublished"`
}

// ReorderChaptersRequest lists chapter ids in their new order.
type ReorderChaptersRequest struct {
	ChapterIDs []string `json:"chapterIds" validate:"required,min=1,dive,uuid"`
}

// CourseStructure is the nested course outline.
type CourseStructure struct {
	Course   Course             `json:"course"`
	Chapters []ChapterStructure `json:"chapters"`
	Enrolled bool               `json:"enrolled"`
	IsOwner  bool               `json:"isOwner"`
}

// ChapterStructure is a chapter with its ordered content.
type ChapterStructure struct {
	Chapter
	Content []Content `json:"content"`
}
