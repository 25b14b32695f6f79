package models

import "time"

// ApplicationStatus tracks a candidate through the hiring pipeline.
type ApplicationStatus string

const (
	ApplicationStatusPending            ApplicationStatus = "pending"
	ApplicationStatusReviewed           ApplicationStatus = "reviewed"
	ApplicationStatusShortlisted        ApplicationStatus = "shortlisted"
	ApplicationStatusInterviewScheduled ApplicationStatus = "interview_scheduled"
	ApplicationStatusSelected           ApplicationStatus = "selected"
	ApplicationStatusRejected           ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn          ApplicationStatus = "withdrawn"
)

// IsFinal reports whether the applicant can no longer withdraw.
func (s ApplicationStatus) IsFinal() bool {
	return s == ApplicationStatusSelected || s == ApplicationStatusRejected || s == ApplicationStatusWithdrawn
}

// InterviewMode is how an interview takes place.
type InterviewMode string

const (
	InterviewModeOnline InterviewMode = "online"
	InterviewModeOnsite InterviewMode = "onsite"
	InterviewModePhone  InterviewMode = "phone"
)

// JobApplication is one student's application to a posting.
type JobApplication struct {
	ID                       string            `db:"id" json:"id"`
	JobPostingID             string            `db:"job_posting_id" json:"jobPostingId"`
	ApplicantID              string            `db:"applicant_id" json:"applicantId"`
	Status                   ApplicationStatus `db:"status" json:"status"`
	CoverLetter              string            `db:"cover_letter" json:"coverLetter"`
	ResumeURL                *string           `db:"resume_url" json:"resumeUrl,omitempty"`
	Notes                    *string           `db:"notes" json:"notes,omitempty"`
	InterviewAt              *time.Time        `db:"interview_at" json:"interviewAt,omitempty"`
	InterviewDurationMinutes *int              `db:"interview_duration_minutes" json:"interviewDurationMinutes,omitempty"`
	InterviewMode            *InterviewMode    `db:"interview_mode" json:"interviewMode,omitempty"`
	InterviewLink            *string           `db:"interview_link" json:"interviewLink,omitempty"`
	AppliedAt                time.Time         `db:"applied_at" json:"appliedAt"`
	UpdatedAt                time.Time         `db:"updated_at" json:"updatedAt"`
}

// ApplicantView is an application joined with applicant identity for employers.
type ApplicantView struct {
	JobApplication
	ApplicantName  string `db:"applicant_name" json:"applicantName"`
	ApplicantEmail string `db:"applicant_email" json:"applicantEmail"`
}

// MyApplicationView is an application joined with its posting for the applicant.
type MyApplicationView struct {
	JobApplication
	JobTitle    string    `db:"job_title" json:"jobTitle"`
	CompanyName string    `db:"company_name" json:"companyName"`
	JobType     JobType   `db:"job_type" json:"jobType"`
	JobStatus   JobStatus `db:"job_status" json:"jobStatus"`
}

// ApplicationStatusHistory is one status transition.
type ApplicationStatusHistory struct {
	ID            string             `db:"id" json:"id"`
	ApplicationID string             `db:"application_id" json:"applicationId"`
	FromStatus    *ApplicationStatus `db:"from_status" json:"fromStatus,omitempty"`
	ToStatus      ApplicationStatus  `db:"to_status" json:"toStatus"`
	ChangedBy     string             `db:"changed_by" json:"changedBy"`
	Notes         *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"createdAt"`
}

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	JobPostingID string
	ApplicantID  string
	Status       ApplicationStatus
	Page         int
	PageSize     int
}

// ApplyRequest payload for POST /jobs/{id}/apply.
type ApplyRequest struct {
	CoverLetter string  `json:"coverLetter" validate:"required,min=20,max=5000"`
	ResumeURL   *string `json:"resumeUrl" validate:"omitempty,url"`
}

// UpdateApplicationStatusRequest is an employer-driven status change.
type UpdateApplicationStatusRequest struct {
	Status ApplicationStatus `json:"status" validate:"required,oneof=reviewed shortlisted interview_scheduled selected rejected"`
	Notes  *string           `json:"notes" validate:"omitempty,max=2000"`
}

// BulkUpdateApplicationsRequest applies one status to many applications of a job.
type BulkUpdateApplicationsRequest struct {
	ApplicationIDs []string          `json:"applicationIds" validate:"required,min=1,max=100,dive,uuid"`
	Status         ApplicationStatus `json:"status" validate:"required,oneof=reviewed shortlisted interview_scheduled selected rejected"`
	Notes          *string           `json:"notes" validate:"omitempty,max=2000"`
}

// BulkUpdateResult reports how many rows were changed.
type BulkUpdateResult struct {
	UpdatedCount int `json:"updatedCount"`
}

// ScheduleInterviewRequest sets interview details and moves the application to interview_scheduled.
type ScheduleInterviewRequest struct {
	ScheduledAt     time.Time     `json:"scheduledAt" validate:"required"`
	DurationMinutes int           `json:"durationMinutes" validate:"required,gte=15,lte=480"`
	Mode            InterviewMode `json:"mode" validate:"required,oneof=online onsite phone"`
	MeetingLink     *string       `json:"meetingLink" validate:"omitempty,url"`
	Notes           *string       `json:"notes" validate:"omitempty,max=2000"`
}
