package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-connect-api/api/swagger"
	"github.com/noah-isme/campus-connect-api/internal/handler"
	"github.com/noah-isme/campus-connect-api/internal/realtime"
	"github.com/noah-isme/campus-connect-api/internal/repository"
	"github.com/noah-isme/campus-connect-api/internal/router"
	"github.com/noah-isme/campus-connect-api/internal/service"
	"github.com/noah-isme/campus-connect-api/pkg/cache"
	"github.com/noah-isme/campus-connect-api/pkg/calendar"
	"github.com/noah-isme/campus-connect-api/pkg/config"
	"github.com/noah-isme/campus-connect-api/pkg/database"
	"github.com/noah-isme/campus-connect-api/pkg/export"
	"github.com/noah-isme/campus-connect-api/pkg/jobs"
	"github.com/noah-isme/campus-connect-api/pkg/logger"
	"github.com/noah-isme/campus-connect-api/pkg/mail"
	"github.com/noah-isme/campus-connect-api/pkg/payout"
	"github.com/noah-isme/campus-connect-api/pkg/storage"
	"github.com/noah-isme/campus-connect-api/pkg/tracing"
)

// @title Campus Connect API
// @version 1.0.0
// @description Courses, placements, ambassadors and live sessions for campus communities
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to init tracing", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, cache and rate limiting disabled", zap.Error(err))
		rdb = nil
	}

	store, local, err := buildStore(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to init object storage", zap.Error(err))
	}

	app := wire(ctx, cfg, logr, db, rdb, store, local)

	app.queue.Start(ctx)
	if err := app.relay.Start(ctx); err != nil {
		logr.Fatal("failed to start realtime relay", zap.Error(err))
	}
	if app.scheduler != nil {
		app.scheduler.Start()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	app.queue.Stop()
	if err := app.bus.Close(); err != nil {
		logr.Warn("realtime bus close", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Warn("tracing shutdown", zap.Error(err))
	}
}

type application struct {
	engine    *gin.Engine
	queue     *jobs.Queue
	relay     *realtime.Relay
	bus       realtime.Bus
	scheduler *jobs.Scheduler
}

func wire(ctx context.Context, cfg *config.Config, logr *zap.Logger, db *sqlx.DB, rdb *redis.Client, store storage.ObjectStore, local *storage.LocalStore) *application {
	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	chapters := repository.NewChapterRepository(db)
	contents := repository.NewContentRepository(db)
	resources := repository.NewResourceRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	jobPostings := repository.NewJobRepository(db)
	applications := repository.NewApplicationRepository(db)
	ambassadors := repository.NewAmbassadorRepository(db)
	payouts := repository.NewPayoutRepository(db)
	profiles := repository.NewProfileRepository(db)
	notifications := repository.NewNotificationRepository(db)
	sessions := repository.NewSessionRepository(db)
	cacheRepo := repository.NewCacheRepository(rdb, logr)

	cal := buildCalendar(ctx, cfg, logr)
	mailer := buildMailer(cfg, logr)
	gateway := buildGateway(cfg, logr)

	notifier := service.NewNotificationService(notifications, users, nil, mailer, logr)
	queue := jobs.NewQueue("notifications", notifier.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		MaxRetries: cfg.Notifications.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	if cfg.Notifications.EmailEnabled {
		notifier.SetQueue(queue)
	}

	jobCache := service.NewCacheService(cacheRepo, metrics, cfg.Cache.JobsTTL, logr, cfg.Cache.Enabled && rdb != nil)
	ownership := service.NewOwnershipService(courses, chapters, sessions)
	ambassadorSvc := service.NewAmbassadorService(ambassadors, cfg.Ambassador.PointsPerReferral, validate, logr)
	payoutSvc := service.NewPayoutService(payouts, ambassadors, gateway, metrics, service.PayoutConfig{
		PointValue: cfg.Payout.PointValue,
		MinPoints:  cfg.Payout.MinPoints,
		Currency:   cfg.Payout.Currency,
	}, validate, logr)
	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	}, ambassadorSvc)
	courseSvc := service.NewCourseService(courses, chapters, contents, enrollments, users, validate, logr)
	chapterSvc := service.NewChapterService(chapters, courses, validate, logr)
	contentSvc := service.NewContentService(contents, chapters, courses, enrollments, validate, logr)
	resourceSvc := service.NewResourceService(resources, courses, chapters, enrollments, store, cfg.Storage.PresignExpiry, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollments, courses, ambassadorSvc, logr)
	jobSvc := service.NewJobService(jobPostings, jobCache, validate, logr)
	applicationSvc := service.NewApplicationService(applications, jobPostings, service.ApplicationDeps{
		Profiles: profiles,
		Users:    users,
		Notifier: notifier,
		Calendar: cal,
		Metrics:  metrics,
		JobCache: jobCache,
	}, validate, logr)
	exportSvc := service.NewExportService(applications, jobPostings, logr, export.NewCSVExporter(), export.NewPDFExporter())
	profileSvc := service.NewProfileService(profiles, validate, logr)
	uploadSvc := service.NewUploadService(store, ownership, cfg.Storage.PresignExpiry, validate, logr)
	sessionSvc := service.NewSessionService(sessions, ownership, enrollments, cal, notifier, validate, logr)

	var bus realtime.Bus = realtime.NewLocalBus()
	if cfg.Realtime.UseRedis && rdb != nil {
		redisBus, err := realtime.NewRedisBus(rdb, cfg.Realtime.Channel, logr)
		if err != nil {
			logr.Fatal("failed to init realtime bus", zap.Error(err))
		}
		bus = redisBus
	}
	hub := realtime.NewHub(cfg.Realtime.ClientBuffer, metrics, logr)
	relay := realtime.NewRelay(hub, bus, sessionSvc, cfg.Realtime.AllowedOrigins, logr)

	checks := map[string]handler.Pinger{"postgres": db}
	if rdb != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	var localObjects handler.LocalObjects
	if local != nil {
		localObjects = local
	}

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Course:      handler.NewCourseHandler(courseSvc, enrollmentSvc),
		Chapter:     handler.NewChapterHandler(chapterSvc, contentSvc),
		Resource:    handler.NewResourceHandler(resourceSvc),
		Job:         handler.NewJobHandler(jobSvc),
		Application: handler.NewApplicationHandler(applicationSvc, exportSvc),
		Ambassador:  handler.NewAmbassadorHandler(ambassadorSvc, payoutSvc),
		Profile:     handler.NewProfileHandler(profileSvc, notifier),
		Upload:      handler.NewUploadHandler(uploadSvc, localObjects),
		Session:     handler.NewSessionHandler(sessionSvc, relay, logr),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
	}
	deps := router.Dependencies{
		Tokens:    authSvc,
		Ownership: ownership,
		Audit:     users,
		Observer:  metrics,
		Logger:    logr,
	}
	if rdb != nil {
		deps.Counter = cacheRepo
	}

	var scheduler *jobs.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = jobs.NewScheduler(time.UTC, 5*time.Minute, logr)
		if err := scheduler.Register("close-expired-jobs", cfg.Scheduler.JobSweepSpec, jobSvc.CloseExpired); err != nil {
			logr.Fatal("failed to schedule job sweep", zap.Error(err))
		}
		if err := scheduler.Register("session-reminders", cfg.Scheduler.ReminderSpec, sessionSvc.SendReminders); err != nil {
			logr.Fatal("failed to schedule session reminders", zap.Error(err))
		}
	}

	return &application{
		engine:    router.New(cfg, handlers, deps),
		queue:     queue,
		relay:     relay,
		bus:       bus,
		scheduler: scheduler,
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, *storage.LocalStore, error) {
	if cfg.Storage.Provider == "gcs" {
		store, err := storage.NewGCSStore(ctx, storage.GCSConfig{
			Bucket:          cfg.Storage.Bucket,
			CredentialsFile: cfg.Storage.CredentialsFile,
			SignerEmail:     cfg.Storage.SignerEmail,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
	files, err := storage.NewLocalStorage(cfg.Storage.LocalDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.PresignExpiry)
	base := strings.TrimRight(cfg.PublicURL, "/") + cfg.APIPrefix
	store := storage.NewLocalStore(files, signer, base+"/upload/local")
	return store, store, nil
}

func buildCalendar(ctx context.Context, cfg *config.Config, logr *zap.Logger) calendar.Provider {
	if !cfg.Calendar.Enabled {
		return calendar.Noop{}
	}
	cal, err := calendar.NewGoogleCalendar(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID, cfg.Calendar.TimeZone)
	if err != nil {
		logr.Warn("calendar sync disabled", zap.Error(err))
		return calendar.Noop{}
	}
	return cal
}

func buildMailer(cfg *config.Config, logr *zap.Logger) mail.Mailer {
	if cfg.Mail.Provider != "sendgrid" {
		return mail.NewLogMailer(logr)
	}
	mailer, err := mail.NewSendGridMailer(cfg.Mail.APIKey, cfg.AppName, cfg.Mail.FromEmail, cfg.Mail.FromName)
	if err != nil {
		logr.Warn("sendgrid unavailable, logging emails instead", zap.Error(err))
		return mail.NewLogMailer(logr)
	}
	return mailer
}

func buildGateway(cfg *config.Config, logr *zap.Logger) payout.Gateway {
	if cfg.Payout.GatewayURL == "" {
		logr.Info("payout gateway not configured, approvals are settled manually")
		return payout.ManualGateway{}
	}
	gateway, err := payout.NewHTTPGateway(cfg.Payout.GatewayURL, cfg.Payout.APIKey, cfg.Payout.Timeout)
	if err != nil {
		logr.Fatal("failed to init payout gateway", zap.Error(err))
	}
	return gateway
}
