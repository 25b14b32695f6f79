package models

import (
	"time"

	"github.com/lib/pq"
)

// StudentProfile is the career profile employers see.
type StudentProfile struct {
	UserID         string         `db:"user_id" json:"userId"`
	Headline       string         `db:"headline" json:"headline"`
	Bio            string         `db:"bio" json:"bio"`
	College        string         `db:"college" json:"college"`
	Degree         string         `db:"degree" json:"degree"`
	GraduationYear *int           `db:"graduation_year" json:"graduationYear,omitempty"`
	Skills         pq.StringArray `db:"skills" json:"skills"`
	ResumeURL      *string        `db:"resume_url" json:"resumeUrl,omitempty"`
	PortfolioURL   *string        `db:"portfolio_url" json:"portfolioUrl,omitempty"`
	LinkedInURL    *string        `db:"linkedin_url" json:"linkedinUrl,omitempty"`
	GithubURL      *string        `db:"github_url" json:"githubUrl,omitempty"`
	Location       string         `db:"location" json:"location"`
	OpenToWork     bool           `db:"open_to_work" json:"openToWork"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// UpsertProfileRequest replaces the caller's career profile.
type UpsertProfileRequest struct {
	Headline       string   `json:"headline" validate:"max=200"`
	Bio            string   `json:"bio" validate:"max=5000"`
	College        string   `json:"college" validate:"max=200"`
	Degree         string   `json:"degree" validate:"max=200"`
	GraduationYear *int     `json:"graduationYear" validate:"omitempty,gte=1950,lte=2100"`
	Skills         []string `json:"skills" validate:"max=60,dive,max=50"`
	ResumeURL      *string  `json:"resumeUrl" validate:"omitempty,url"`
	PortfolioURL   *string  `json:"portfolioUrl" validate:"omitempty,url"`
	LinkedInURL    *string  `json:"linkedinUrl" validate:"omitempty,url"`
	GithubURL      *string  `json:"githubUrl" validate:"omitempty,url"`
	Location       string   `json:"location" validate:"max=200"`
	OpenToWork     bool     `json:"openToWork"`
}
