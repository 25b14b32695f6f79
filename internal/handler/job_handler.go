package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/middleware"
	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type jobService interface {
	List(ctx context.Context, filter models.JobFilter) ([]models.JobPosting, *models.Pagination, bool, error)
	ListMine(ctx context.Context, actor models.Actor, filter models.JobFilter) ([]models.JobPosting, *models.Pagination, error)
	Get(ctx context.Context, id string, actor models.Actor) (*models.JobPosting, error)
	Create(ctx context.Context, actor models.Actor, req models.CreateJobRequest) (*models.JobPosting, error)
	Update(ctx context.Context, id string, actor models.Actor, req models.UpdateJobRequest) (*models.JobPosting, error)
	UpdateStatus(ctx context.Context, id string, actor models.Actor, req models.UpdateJobStatusRequest) (*models.JobPosting, error)
	Delete(ctx context.Context, id string, actor models.Actor) error
}

// JobHandler serves the job board.
type JobHandler struct {
	service jobService
}

// NewJobHandler constructs the handler.
func NewJobHandler(service jobService) *JobHandler {
	return &JobHandler{service: service}
}

// List godoc
// @Summary Search the job board
// @Tags Jobs
// @Produce json
// @Param location query string false "Location substring"
// @Param jobType query string false "internship, full_time, part_time, contract or freelance"
// @Param workMode query string false "remote, onsite or hybrid"
// @Param stipendMin query int false "Minimum stipend"
// @Param stipendMax query int false "Maximum stipend"
// @Param search query string false "Title, description or company"
// @Param sort query string false "created_at, application_deadline, stipend_max or title"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	filter, err := jobFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, hit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	listed(c, items, pagination)
}

// Mine godoc
// @Summary List my postings
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /jobs/mine [get]
func (h *JobHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, err := jobFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.Status = models.JobStatus(strings.TrimSpace(c.Query("status")))
	items, pagination, err := h.service.ListMine(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listed(c, items, pagination)
}

// Get godoc
// @Summary Get a posting
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.service.Get(c.Request.Context(), c.Param("id"), optionalActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// Create godoc
// @Summary Post a job
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateJobRequest true "Posting"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateJobRequest
	if !bindJSON(c, &req, "invalid job payload") {
		return
	}
	job, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// Update godoc
// @Summary Update a posting
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param payload body models.UpdateJobRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [put]
func (h *JobHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateJobRequest
	if !bindJSON(c, &req, "invalid job payload") {
		return
	}
	job, err := h.service.Update(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// UpdateStatus godoc
// @Summary Change posting status
// @Tags Jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param payload body models.UpdateJobStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/status [put]
func (h *JobHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateJobStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	job, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// Delete godoc
// @Summary Delete a posting
// @Tags Jobs
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /jobs/{id} [delete]
func (h *JobHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func jobFilterFromQuery(c *gin.Context) (models.JobFilter, error) {
	page, size := pageParams(c)
	filter := models.JobFilter{
		Location:  strings.TrimSpace(c.Query("location")),
		JobType:   models.JobType(strings.TrimSpace(c.Query("jobType"))),
		WorkMode:  models.WorkMode(strings.TrimSpace(c.Query("workMode"))),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
		Page:      page,
		PageSize:  size,
	}
	var err error
	if filter.StipendMin, err = optionalInt64Query(c, "stipendMin"); err != nil {
		return filter, err
	}
	if filter.StipendMax, err = optionalInt64Query(c, "stipendMax"); err != nil {
		return filter, err
	}
	return filter, nil
}
