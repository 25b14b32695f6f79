package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/export"
)

// ExportFormat selects the applicant export renderer.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type applicantLister interface {
	ListByJob(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicantView, int, error)
}

type renderer interface {
	ContentType() string
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a posting's applicants as CSV or PDF.
type ExportService struct {
	applications applicantLister
	jobs         jobReader
	csv          renderer
	pdf          renderer
	logger       *zap.Logger
	now          func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(applications applicantLister, jobs jobReader, logger *zap.Logger, csv renderer, pdf renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{applications: applications, jobs: jobs, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Applicants exports every application of a posting owned by the actor.
func (s *ExportService) Applicants(ctx context.Context, jobID string, actor models.Actor, format ExportFormat, status models.ApplicationStatus) (*ExportFile, error) {
	var r renderer
	switch format {
	case ExportFormatCSV, "":
		format, r = ExportFormatCSV, s.csv
	case ExportFormatPDF:
		r = s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, jobLookupError(err)
	}
	if job.EmployerID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorizedJob, "")
	}

	rows, _, err := s.applications.ListByJob(ctx, models.ApplicationFilter{JobPostingID: job.ID, Status: status})
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load applicants")
	}

	generated := s.now().UTC()
	dataset := export.Dataset{
		Title: fmt.Sprintf("Applicants: %s (%s)", job.Title, job.CompanyName),
		Columns: []export.Column{
			{Key: "name", Label: "Name", Width: 2},
			{Key: "email", Label: "Email", Width: 2.5},
			{Key: "status", Label: "Status", Width: 1.3},
			{Key: "appliedAt", Label: "Applied", Width: 1.3},
			{Key: "interviewAt", Label: "Interview", Width: 1.5},
			{Key: "resume", Label: "Resume", Width: 2.5},
		},
		GeneratedAt: generated,
	}
	for _, row := range rows {
		interview := ""
		if row.InterviewAt != nil {
			interview = row.InterviewAt.UTC().Format("2006-01-02 15:04")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"name":        row.ApplicantName,
			"email":       row.ApplicantEmail,
			"status":      string(row.Status),
			"appliedAt":   row.AppliedAt.UTC().Format("2006-01-02"),
			"interviewAt": interview,
			"resume":      deref(row.ResumeURL),
		})
	}

	payload, err := r.Render(dataset)
	if err != nil {
		return nil, appErrors.Rewrap(appErrors.ErrInternal, err, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("applicants_%s_%s.%s", sanitizeFilename(job.Title), generated.Format("20060102_150405"), format),
		ContentType: r.ContentType(),
		Data:        payload,
	}, nil
}

func jobLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	return appErrors.Rewrap(appErrors.ErrInternal, err, "failed to load job")
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 60 {
		return result[:60]
	}
	return result
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
