package models

import (
	"time"

	"github.com/lib/pq"
)

// JobStatus tracks the lifecycle of a job posting.
type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusPublished JobStatus = "published"
	JobStatusClosed    JobStatus = "closed"
	JobStatusArchived  JobStatus = "archived"
)

// JobType classifies the engagement.
type JobType string

const (
	JobTypeInternship JobType = "internship"
	JobTypeFullTime   JobType = "full_time"
	JobTypePartTime   JobType = "part_time"
	JobTypeContract   JobType = "contract"
	JobTypeFreelance  JobType = "freelance"
)

// WorkMode describes where the work happens.
type WorkMode string

const (
	WorkModeRemote WorkMode = "remote"
	WorkModeOnsite WorkMode = "onsite"
	WorkModeHybrid WorkMode = "hybrid"
)

// JobPosting is an employer-owned opening.
type JobPosting struct {
	ID                  string         `db:"id" json:"id"`
	EmployerID          string         `db:"employer_id" json:"employerId"`
	Title               string         `db:"title" json:"title"`
	Description         string         `db:"description" json:"description"`
	CompanyName         string         `db:"company_name" json:"companyName"`
	Location            string         `db:"location" json:"location"`
	JobType             JobType        `db:"job_type" json:"jobType"`
	WorkMode            WorkMode       `db:"work_mode" json:"workMode"`
	StipendMin          *int64         `db:"stipend_min" json:"stipendMin,omitempty"`
	StipendMax          *int64         `db:"stipend_max" json:"stipendMax,omitempty"`
	Skills              pq.StringArray `db:"skills" json:"skills"`
	Requirements        string         `db:"requirements" json:"requirements"`
	Openings            int            `db:"openings" json:"openings"`
	ApplicationDeadline time.Time      `db:"application_deadline" json:"applicationDeadline"`
	Status              JobStatus      `db:"status" json:"status"`
	ApplicationsCount   int            `db:"applications_count" json:"applicationsCount"`
	PublishedAt         *time.Time     `db:"published_at" json:"publishedAt,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updatedAt"`
}

// AcceptsApplicationsAt reports whether the posting is open at t.
func (j *JobPosting) AcceptsApplicationsAt(t time.Time) bool {
	return j.Status == JobStatusPublished && t.Before(j.ApplicationDeadline)
}

// JobFilter narrows job listings. Zero values mean "no constraint".
type JobFilter struct {
	EmployerID string
	Status     JobStatus
	AnyStatus  bool
	Location   string
	JobType    JobType
	WorkMode   WorkMode
	StipendMin *int64
	StipendMax *int64
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// CreateJobRequest payload for POST /jobs.
type CreateJobRequest struct {
	Title               string    `json:"title" validate:"required,min=3,max=200"`
	Description         string    `json:"description" validate:"required,min=20"`
	CompanyName         string    `json:"companyName" validate:"required,max=200"`
	Location            string    `json:"location" validate:"required,max=200"`
	JobType             JobType   `json:"jobType" validate:"required,oneof=internship full_time part_time contract freelance"`
	WorkMode            WorkMode  `json:"workMode" validate:"required,oneof=remote onsite hybrid"`
	StipendMin          *int64    `json:"stipendMin" validate:"omitempty,gte=0"`
	StipendMax          *int64    `json:"stipendMax" validate:"omitempty,gte=0"`
	Skills              []string  `json:"skills" validate:"max=30,dive,min=1,max=50"`
	Requirements        string    `json:"requirements" validate:"max=5000"`
	Openings            int       `json:"openings" validate:"omitempty,gte=1,lte=1000"`
	ApplicationDeadline time.Time `json:"applicationDeadline" validate:"required"`
	Status              JobStatus `json:"status" validate:"omitempty,oneof=draft published"`
}

// UpdateJobRequest partially updates a posting.
type UpdateJobRequest struct {
	Title               *string    `json:"title" validate:"omitempty,min=3,max=200"`
	Description         *string    `json:"description" validate:"omitempty,min=20"`
	CompanyName         *string    `json:"companyName" validate:"omitempty,max=200"`
	Location            *string    `json:"location" validate:"omitempty,max=200"`
	JobType             *JobType   `json:"jobType" validate:"omitempty,oneof=internship full_time part_time contract freelance"`
	WorkMode            *WorkMode  `json:"workMode" validate:"omitempty,oneof=remote onsite hybrid"`
	StipendMin          *int64     `json:"stipendMin" validate:"omitempty,gte=0"`
	StipendMax          *int64     `json:"stipendMax" validate:"omitempty,gte=0"`
	Skills              []string   `json:"skills" validate:"omitempty,max=30,dive,min=1,max=50"`
	Requirements        *string    `json:"requirements" validate:"omitempty,max=5000"`
	Openings            *int       `json:"openings" validate:"omitempty,gte=1,lte=1000"`
	ApplicationDeadline *time.Time `json:"applicationDeadline"`
}

// UpdateJobStatusRequest changes the posting status.
type UpdateJobStatusRequest struct {
	Status JobStatus `json:"status" validate:"required,oneof=draft published closed archived"`
}
