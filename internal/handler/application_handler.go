package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/service"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type applicationService interface {
	Apply(ctx context.Context, jobID string, actor models.Actor, req models.ApplyRequest) (*models.JobApplication, error)
	ListForJob(ctx context.Context, jobID string, actor models.Actor, filter models.ApplicationFilter) ([]models.ApplicantView, *models.Pagination, error)
	ListMine(ctx context.Context, actor models.Actor, filter models.ApplicationFilter) ([]models.MyApplicationView, *models.Pagination, error)
	UpdateStatus(ctx context.Context, jobID, applicationID string, actor models.Actor, req models.UpdateApplicationStatusRequest) (*models.JobApplication, error)
	BulkUpdateStatus(ctx context.Context, jobID string, actor models.Actor, req models.BulkUpdateApplicationsRequest) (*models.BulkUpdateResult, error)
	ScheduleInterview(ctx context.Context, jobID, applicationID string, actor models.Actor, req models.ScheduleInterviewRequest) (*models.JobApplication, error)
	Withdraw(ctx context.Context, applicationID string, actor models.Actor) (*models.JobApplication, error)
	History(ctx context.Context, applicationID string, actor models.Actor) ([]models.ApplicationStatusHistory, error)
}

type applicantExporter interface {
	Applicants(ctx context.Context, jobID string, actor models.Actor, format service.ExportFormat, status models.ApplicationStatus) (*service.ExportFile, error)
}

// ApplicationHandler serves the application pipeline for students and employers.
type ApplicationHandler struct {
	service  applicationService
	exporter applicantExporter
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service applicationService, exporter applicantExporter) *ApplicationHandler {
	return &ApplicationHandler{service: service, exporter: exporter}
}

// Apply godoc
// @Summary Apply to a job
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param payload body models.ApplyRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /jobs/{id}/apply [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ApplyRequest
	if !bindJSON(c, &req, "invalid application payload") {
		return
	}
	app, err := h.service.Apply(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// ListForJob godoc
// @Summary List applicants
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /jobs/{id}/applications [get]
func (h *ApplicationHandler) ListForJob(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	filter := models.ApplicationFilter{Status: models.ApplicationStatus(strings.TrimSpace(c.Query("status"))), Page: page, PageSize: size}
	items, pagination, err := h.service.ListForJob(c.Request.Context(), c.Param("id"), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listed(c, items, pagination)
}

// Mine godoc
// @Summary List my applications
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /applications/me [get]
func (h *ApplicationHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	filter := models.ApplicationFilter{Status: models.ApplicationStatus(strings.TrimSpace(c.Query("status"))), Page: page, PageSize: size}
	items, pagination, err := h.service.ListMine(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listed(c, items, pagination)
}

// UpdateStatus godoc
// @Summary Move an application
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param appId path string true "Application ID"
// @Param payload body models.UpdateApplicationStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/applications/{appId} [put]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateApplicationStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	app, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), c.Param("appId"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// BulkUpdate godoc
// @Summary Move many applications
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param payload body models.BulkUpdateApplicationsRequest true "Ids and status"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/applications/bulk [put]
func (h *ApplicationHandler) BulkUpdate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.BulkUpdateApplicationsRequest
	if !bindJSON(c, &req, "invalid bulk payload") {
		return
	}
	result, err := h.service.BulkUpdateStatus(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ScheduleInterview godoc
// @Summary Schedule an interview
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param appId path string true "Application ID"
// @Param payload body models.ScheduleInterviewRequest true "Interview"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/applications/{appId}/interview [post]
func (h *ApplicationHandler) ScheduleInterview(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ScheduleInterviewRequest
	if !bindJSON(c, &req, "invalid interview payload") {
		return
	}
	app, err := h.service.ScheduleInterview(c.Request.Context(), c.Param("id"), c.Param("appId"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// Withdraw godoc
// @Summary Withdraw my application
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/withdraw [put]
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	app, err := h.service.Withdraw(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// History godoc
// @Summary Application status history
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/history [get]
func (h *ApplicationHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.History(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Export godoc
// @Summary Export applicants
// @Tags Applications
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param format query string false "csv or pdf"
// @Param status query string false "Status filter"
// @Success 200 {file} file
// @Router /jobs/{id}/applications/export [get]
func (h *ApplicationHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportFormatCSV))))
	status := models.ApplicationStatus(strings.TrimSpace(c.Query("status")))
	file, err := h.exporter.Applicants(c.Request.Context(), c.Param("id"), actor, format, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
