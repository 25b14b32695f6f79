package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error)
	Get(ctx context.Context, id string, actor models.Actor) (*models.Course, error)
	Create(ctx context.Context, actor models.Actor, req models.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, id string, actor models.Actor) error
	Structure(ctx context.Context, id string, actor models.Actor) (*models.CourseStructure, error)
}

type enrollmentService interface {
	Enroll(ctx context.Context, courseID string, actor models.Actor) (*models.Enrollment, error)
	ListMine(ctx context.Context, actor models.Actor) ([]models.EnrollmentDetail, error)
}

// CourseHandler serves course catalogue and enrollment endpoints.
type CourseHandler struct {
	courses     courseService
	enrollments enrollmentService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(courses courseService, enrollments enrollmentService) *CourseHandler {
	return &CourseHandler{courses: courses, enrollments: enrollments}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param search query string false "Title or description search"
// @Param category query string false "Category"
// @Param level query string false "beginner, intermediate or advanced"
// @Param mentorId query string false "Mentor filter"
// @Param status query string false "Status (default published)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.CourseFilter{
		MentorID:  strings.TrimSpace(c.Query("mentorId")),
		Category:  strings.TrimSpace(c.Query("category")),
		Level:     models.CourseLevel(strings.TrimSpace(c.Query("level"))),
		Status:    models.CourseStatus(strings.TrimSpace(c.Query("status"))),
		Search:    strings.TrimSpace(c.Query("search")),
		Page:      page,
		PageSize:  size,
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	items, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listed(c, items, pagination)
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"), optionalActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Structure godoc
// @Summary Course structure
// @Description Course with ordered chapters and their content. Locked content bodies are omitted.
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/structure [get]
func (h *CourseHandler) Structure(c *gin.Context) {
	structure, err := h.courses.Structure(c.Request.Context(), c.Param("id"), optionalActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, structure)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body models.UpdateCourseRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req models.UpdateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.courses.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Enroll godoc
// @Summary Enroll in a course
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/enroll [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, enrollment, nil)
}

// MyEnrollments godoc
// @Summary List my enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /enrollments/me [get]
func (h *CourseHandler) MyEnrollments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.enrollments.ListMine(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
