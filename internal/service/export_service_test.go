package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

func seededExport(t *testing.T) (*ExportService, *mockJobRepo) {
	t.Helper()
	jobs := newMockJobRepo()
	apps := newMockApplicationRepo(jobs)
	jobs.put(models.JobPosting{ID: "job-x", EmployerID: employerActor.UserID, Title: "Data Analyst", CompanyName: "Acme", Status: models.JobStatusPublished, ApplicationDeadline: time.Now().Add(time.Hour)})
	ctx := context.Background()
	require.NoError(t, apps.Create(ctx, &models.JobApplication{JobPostingID: "job-x", ApplicantID: "s1", ResumeURL: strPtr("https://cdn.test/cv1.pdf")}))
	require.NoError(t, apps.Create(ctx, &models.JobApplication{JobPostingID: "job-x", ApplicantID: "=cmd"}))
	return NewExportService(apps, jobs, zap.NewNop(), nil, nil), jobs
}

func TestExportApplicantsCSV(t *testing.T) {
	svc, _ := seededExport(t)

	file, err := svc.Applicants(context.Background(), "job-x", employerActor, ExportFormatCSV, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "applicants_data_analyst_"))
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Name")
	assert.Contains(t, string(file.Data), "https://cdn.test/cv1.pdf")
	assert.Contains(t, string(file.Data), "'=cmd")
}

func TestExportApplicantsPDF(t *testing.T) {
	svc, _ := seededExport(t)

	file, err := svc.Applicants(context.Background(), "job-x", adminActor, ExportFormatPDF, models.ApplicationStatusPending)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportApplicantsAccess(t *testing.T) {
	svc, _ := seededExport(t)
	ctx := context.Background()

	_, err := svc.Applicants(ctx, "job-x", otherEmployer, ExportFormatCSV, "")
	assert.Equal(t, "UNAUTHORIZED_JOB_ACCESS", errCode(err))

	_, err = svc.Applicants(ctx, "missing", employerActor, ExportFormatCSV, "")
	assert.Equal(t, "NOT_FOUND", errCode(err))

	_, err = svc.Applicants(ctx, "job-x", employerActor, "xlsx", "")
	assert.Equal(t, "VALIDATION_ERROR", errCode(err))
}
