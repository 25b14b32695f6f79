package router

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/handler"
	"github.com/noah-isme/campus-connect-api/internal/middleware"
	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/pkg/config"
	"github.com/noah-isme/campus-connect-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-connect-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-connect-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth        *handler.AuthHandler
	Course      *handler.CourseHandler
	Chapter     *handler.ChapterHandler
	Resource    *handler.ResourceHandler
	Job         *handler.JobHandler
	Application *handler.ApplicationHandler
	Ambassador  *handler.AmbassadorHandler
	Profile     *handler.ProfileHandler
	Upload      *handler.UploadHandler
	Session     *handler.SessionHandler
	Metrics     *handler.MetricsHandler
}

// OwnershipChecks resolves whether the caller owns the addressed course or session.
type OwnershipChecks interface {
	CourseCheck(ctx context.Context, courseID string, actor models.Actor) error
	SessionCheck(ctx context.Context, sessionID string, actor models.Actor) error
}

// Dependencies carries the collaborators used by the route guards.
type Dependencies struct {
	Tokens    middleware.TokenValidator
	Ownership OwnershipChecks
	Counter   middleware.WindowCounter
	Audit     middleware.AuditRecorder
	Observer  middleware.RequestObserver
	Logger    *zap.Logger
}

var (
	adminRoles     = []models.UserRole{models.RoleAdmin, models.RoleSuperAdmin}
	mentorRoles    = withAdmins(models.RoleMentor)
	employerRoles  = withAdmins(models.RoleEmployer)
	studentRoles   = []models.UserRole{models.RoleStudent}
	reviewerRoles  = withAdmins(models.RoleEmployer, models.RoleMentor)
	historyRoles   = withAdmins(models.RoleStudent, models.RoleEmployer)
	ambassadorOnly = []models.UserRole{models.RoleAmbassador}
)

func withAdmins(roles ...models.UserRole) []models.UserRole {
	return append(roles, adminRoles...)
}

// New builds the gin engine with every API route registered.
func New(cfg *config.Config, h Handlers, deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.Metrics(deps.Observer))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authn := middleware.JWT(deps.Tokens)
	optional := middleware.OptionalJWT(deps.Tokens)
	limited := middleware.RateLimit(deps.Counter, rateLimitRequests(cfg), cfg.RateLimit.Window, log)
	courseOwner := middleware.RequireOwnership("id", deps.Ownership.CourseCheck)
	sessionOwner := middleware.RequireOwnership("id", deps.Ownership.SessionCheck)
	audit := func(action, resource, idParam string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, action, resource, idParam, log)
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", limited, h.Auth.Register)
	auth.POST("/login", limited, h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", authn, h.Auth.Logout)
	auth.POST("/change-password", authn, h.Auth.ChangePassword)
	auth.GET("/me", authn, h.Auth.Me)

	courses := api.Group("/courses")
	courses.GET("", optional, h.Course.List)
	courses.POST("", authn, middleware.RequireRoles(mentorRoles...), h.Course.Create)
	courses.GET("/:id", optional, h.Course.Get)
	courses.GET("/:id/structure", optional, h.Course.Structure)
	courses.GET("/:id/chapters", optional, h.Chapter.List)
	courses.GET("/:id/chapters/:chapterId/content", optional, h.Chapter.ListContent)
	courses.GET("/:id/resources", optional, h.Resource.List)
	courses.GET("/:id/resources/:resourceId/download", authn, h.Resource.Download)
	courses.POST("/:id/enroll", authn, middleware.RequireRoles(studentRoles...), h.Course.Enroll)

	owned := courses.Group("/:id", authn, middleware.RequireRoles(mentorRoles...), courseOwner)
	owned.PUT("", h.Course.Update)
	owned.DELETE("", audit(models.AuditActionCourseDelete, "course", "id"), h.Course.Delete)
	owned.POST("/chapters", h.Chapter.Create)
	owned.PUT("/chapters/reorder", h.Chapter.Reorder)
	owned.PUT("/chapters/:chapterId", h.Chapter.Update)
	owned.DELETE("/chapters/:chapterId", h.Chapter.Delete)
	owned.POST("/chapters/:chapterId/content", h.Chapter.CreateContent)
	owned.PUT("/chapters/:chapterId/content/:contentId", h.Chapter.UpdateContent)
	owned.DELETE("/chapters/:chapterId/content/:contentId", h.Chapter.DeleteContent)
	owned.POST("/resources", h.Resource.Create)
	owned.DELETE("/resources/:resourceId", h.Resource.Delete)

	api.GET("/enrollments/me", authn, middleware.RequireRoles(studentRoles...), h.Course.MyEnrollments)

	jobs := api.Group("/jobs")
	jobs.GET("", h.Job.List)
	jobs.GET("/:id", optional, h.Job.Get)
	employer := jobs.Group("", authn, middleware.RequireRoles(employerRoles...))
	employer.GET("/mine", h.Job.Mine)
	employer.POST("", audit(models.AuditActionJobCreate, "job", ""), h.Job.Create)
	employer.PUT("/:id", audit(models.AuditActionJobUpdate, "job", "id"), h.Job.Update)
	employer.PUT("/:id/status", audit(models.AuditActionJobUpdate, "job", "id"), h.Job.UpdateStatus)
	employer.DELETE("/:id", audit(models.AuditActionJobDelete, "job", "id"), h.Job.Delete)
	employer.GET("/:id/applications", h.Application.ListForJob)
	employer.GET("/:id/applications/export", h.Application.Export)
	employer.PUT("/:id/applications/bulk", audit(models.AuditActionApplicationBulk, "job", "id"), h.Application.BulkUpdate)
	employer.PUT("/:id/applications/:appId", audit(models.AuditActionApplicationStatus, "application", "appId"), h.Application.UpdateStatus)
	employer.POST("/:id/applications/:appId/interview", audit(models.AuditActionApplicationStatus, "application", "appId"), h.Application.ScheduleInterview)
	jobs.POST("/:id/apply", authn, middleware.RequireRoles(studentRoles...), h.Application.Apply)

	applications := api.Group("/applications", authn)
	applications.GET("/me", middleware.RequireRoles(studentRoles...), h.Application.Mine)
	applications.PUT("/:id/withdraw", middleware.RequireRoles(studentRoles...), h.Application.Withdraw)
	applications.GET("/:id/history", middleware.RequireRoles(historyRoles...), h.Application.History)

	ambassadors := api.Group("/ambassadors", authn)
	ambassadors.GET("/leaderboard", h.Ambassador.Leaderboard)
	self := ambassadors.Group("", middleware.RequireRoles(ambassadorOnly...))
	self.POST("", h.Ambassador.Register)
	self.GET("/me", h.Ambassador.Me)
	self.PUT("/me", h.Ambassador.Update)
	self.GET("/me/referrals", h.Ambassador.Referrals)
	self.POST("/me/payouts", h.Ambassador.RequestPayout)
	self.GET("/me/payouts", h.Ambassador.MyPayouts)
	api.GET("/referrals/:code/validate", h.Ambassador.ValidateCode)

	admin := api.Group("/admin", authn, middleware.RequireRoles(adminRoles...))
	admin.GET("/payouts", h.Ambassador.ListPayouts)
	admin.PUT("/payouts/:id", audit(models.AuditActionPayoutReview, "payout", "id"), h.Ambassador.ReviewPayout)
	admin.GET("/metrics", h.Metrics.Snapshot)

	api.GET("/profile/career", authn, middleware.RequireRoles(studentRoles...), h.Profile.Mine)
	api.PUT("/profile/career", authn, middleware.RequireRoles(studentRoles...), h.Profile.Upsert)
	api.GET("/students/:id/profile", authn, middleware.RequireRolesOrSelf("id", reviewerRoles...), h.Profile.Student)

	notifications := api.Group("/notifications", authn)
	notifications.GET("", h.Profile.Notifications)
	notifications.PUT("/read-all", h.Profile.MarkAllRead)
	notifications.PUT("/:id/read", h.Profile.MarkRead)

	upload := api.Group("/upload")
	upload.POST("/presigned-url", authn, h.Upload.PresignUpload)
	upload.POST("/presigned-download", authn, h.Upload.PresignDownload)
	upload.POST("/course-content", authn, middleware.RequireRoles(mentorRoles...), h.Upload.CourseContent)
	upload.PUT("/local/:token", h.Upload.LocalPut)
	upload.GET("/local/:token", h.Upload.LocalGet)

	sessions := api.Group("/sessions")
	sessions.GET("", optional, h.Session.List)
	sessions.POST("", authn, middleware.RequireRoles(mentorRoles...), h.Session.Create)
	sessions.GET("/:id", optional, h.Session.Get)
	sessions.GET("/:id/state", authn, h.Session.State)
	sessions.GET("/:id/ws", middleware.JWTQuery(deps.Tokens), h.Session.Connect)
	hosted := sessions.Group("/:id", authn, middleware.RequireRoles(mentorRoles...), sessionOwner)
	hosted.PUT("", h.Session.Update)
	hosted.PUT("/status", h.Session.UpdateStatus)
	hosted.DELETE("", h.Session.Delete)

	return r
}

func rateLimitRequests(cfg *config.Config) int {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.Window <= 0 {
		return 0
	}
	return cfg.RateLimit.Requests
}
