package service

import (
	"context"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/repository"
)

type courseFixture struct {
	courses     *mockCourseRepo
	chapters    *mockChapterRepo
	contents    *mockContentRepo
	resources   *mockResourceRepo
	enrollments enrolledSet
	store       *memoryObjectStore
	svc         *CourseService
	chapterSvc  *ChapterService
	contentSvc  *ContentService
	resourceSvc *ResourceService
}

func newCourseFixture() *courseFixture {
	f := &courseFixture{
		courses:     newMockCourseRepo(),
		chapters:    &mockChapterRepo{},
		contents:    &mockContentRepo{},
		resources:   newMockResourceRepo(),
		enrollments: enrolledSet{},
		store:       newMemoryObjectStore(),
	}
	f.svc = NewCourseService(f.courses, f.chapters, f.contents, f.enrollments, nil, nil, zap.NewNop())
	f.chapterSvc = NewChapterService(f.chapters, f.courses, nil, zap.NewNop())
	f.contentSvc = NewContentService(f.contents, f.chapters, f.courses, f.enrollments, nil, zap.NewNop())
	f.resourceSvc = NewResourceService(f.resources, f.courses, f.chapters, f.enrollments, f.store, 0, nil, zap.NewNop())
	return f
}

func (f *courseFixture) publishedCourse(id string) {
	f.courses.courses[id] = &models.Course{ID: id, MentorID: mentorActor.UserID, Title: "Go Fundamentals", Slug: id, Status: models.CourseStatusPublished}
}

func validCourseRequest() models.CreateCourseRequest {
	return models.CreateCourseRequest{
		Title:       "Intro to Go",
		Description: "Learn Go from the ground up.",
		Category:    "programming",
		Level:       models.CourseLevelBeginner,
	}
}

func TestCourseServiceCreateDerivesSlug(t *testing.T) {
	f := newCourseFixture()

	course, err := f.svc.Create(context.Background(), mentorActor, validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, "intro-to-go", course.Slug)
	assert.Equal(t, mentorActor.UserID, course.MentorID)
	assert.Equal(t, models.CourseStatusDraft, course.Status)
	assert.Nil(t, course.PublishedAt)
}

func TestCourseServiceCreateRetriesSlugCollision(t *testing.T) {
	f := newCourseFixture()
	f.courses.slugs["intro-to-go"] = true

	course, err := f.svc.Create(context.Background(), mentorActor, validCourseRequest())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(course.Slug, "intro-to-go-"))
	assert.Len(t, course.Slug, len("intro-to-go-")+6)
}

func TestCourseServiceCreateRetriesLostSlugRace(t *testing.T) {
	f := newCourseFixture()
	f.courses.createErrs = []error{&repository.DuplicateError{Constraint: "courses_slug_key"}}

	course, err := f.svc.Create(context.Background(), mentorActor, validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, f.courses.creates)
	assert.NotEqual(t, "intro-to-go", course.Slug)
}

func TestCourseServiceCreateGivesUpOnPersistentCollision(t *testing.T) {
	f := newCourseFixture()
	for i := 0; i < maxSlugAttempts; i++ {
		f.courses.createErrs = append(f.courses.createErrs, &repository.DuplicateError{Constraint: "courses_slug_key"})
	}

	_, err := f.svc.Create(context.Background(), mentorActor, validCourseRequest())
	assert.Equal(t, "CONFLICT", errCode(err))
	assert.Equal(t, maxSlugAttempts, f.courses.creates)
	assert.Empty(t, f.courses.courses)
}

func TestCourseServiceDraftHiddenFromVisitors(t *testing.T) {
	f := newCourseFixture()
	f.courses.courses["draft"] = &models.Course{ID: "draft", MentorID: mentorActor.UserID, Status: models.CourseStatusDraft}

	_, err := f.svc.Get(context.Background(), "draft", studentActor)
	assert.Equal(t, "NOT_FOUND", errCode(err))

	_, err = f.svc.Get(context.Background(), "draft", mentorActor)
	assert.NoError(t, err)
	_, err = f.svc.Get(context.Background(), "draft", adminActor)
	assert.NoError(t, err)
}

func TestCourseServiceStructureVisibility(t *testing.T) {
	f := newCourseFixture()
	f.publishedCourse("course-1")
	f.chapters.chapters = []*models.Chapter{
		{ID: "ch-1", CourseID: "course-1", OrderIndex: 0, IsPublished: true},
		{ID: "ch-2", CourseID: "course-1", OrderIndex: 1, IsPublished: false},
	}
	body := types.JSONText(`{"videoUrl":"https://cdn.test/v.mp4","durationSeconds":60}`)
	f.contents.items = []*models.Content{
		{ID: "preview", ChapterID: "ch-1", OrderIndex: 0, IsPreview: true, IsPublished: true, ContentData: body},
		{ID: "lesson", ChapterID: "ch-1", OrderIndex: 1, IsPublished: true, ContentData: body},
		{ID: "unpublished", ChapterID: "ch-1", OrderIndex: 2, ContentData: body},
		{ID: "hidden", ChapterID: "ch-2", OrderIndex: 0, IsPublished: true, ContentData: body},
	}
	ctx := context.Background()

	visitor, err := f.svc.Structure(ctx, "course-1", studentActor)
	require.NoError(t, err)
	assert.False(t, visitor.Enrolled)
	assert.False(t, visitor.IsOwner)
	require.Len(t, visitor.Chapters, 1)
	require.Len(t, visitor.Chapters[0].Content, 2)
	assert.Equal(t, "preview", visitor.Chapters[0].Content[0].ID)
	assert.NotNil(t, visitor.Chapters[0].Content[0].ContentData)
	assert.Equal(t, "lesson", visitor.Chapters[0].Content[1].ID)
	assert.Nil(t, visitor.Chapters[0].Content[1].ContentData)

	f.enrollments["course-1/"+studentActor.UserID] = true
	enrolled, err := f.svc.Structure(ctx, "course-1", studentActor)
	require.NoError(t, err)
	assert.True(t, enrolled.Enrolled)
	require.Len(t, enrolled.Chapters, 1)
	assert.NotNil(t, enrolled.Chapters[0].Content[1].ContentData)

	owner, err := f.svc.Structure(ctx, "course-1", mentorActor)
	require.NoError(t, err)
	assert.True(t, owner.IsOwner)
	require.Len(t, owner.Chapters, 2)
	assert.Len(t, owner.Chapters[0].Content, 3)
	assert.Len(t, owner.Chapters[1].Content, 1)
}

func TestCourseServiceUpdateStampsPublishedAt(t *testing.T) {
	f := newCourseFixture()
	f.courses.courses["course-1"] = &models.Course{ID: "course-1", MentorID: mentorActor.UserID, Title: "Old", Status: models.CourseStatusDraft}
	published := models.CourseStatusPublished
	title := "  New title  "

	course, err := f.svc.Update(context.Background(), "course-1", models.UpdateCourseRequest{Title: &title, Status: &published})
	require.NoError(t, err)
	assert.Equal(t, "New title", course.Title)
	require.NotNil(t, course.PublishedAt)

	_, err = f.svc.Update(context.Background(), "missing", models.UpdateCourseRequest{Title: &title})
	assert.Equal(t, "NOT_FOUND", errCode(err))
}
