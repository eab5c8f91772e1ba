package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-scheduling-api/api/swagger"
	"github.com/noah-isme/course-scheduling-api/internal/handler"
	"github.com/noah-isme/course-scheduling-api/internal/middleware"
	"github.com/noah-isme/course-scheduling-api/internal/repository"
	"github.com/noah-isme/course-scheduling-api/internal/service"
	"github.com/noah-isme/course-scheduling-api/internal/timegrid"
	"github.com/noah-isme/course-scheduling-api/pkg/cache"
	"github.com/noah-isme/course-scheduling-api/pkg/config"
	"github.com/noah-isme/course-scheduling-api/pkg/database"
	"github.com/noah-isme/course-scheduling-api/pkg/jobs"
	"github.com/noah-isme/course-scheduling-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-scheduling-api/pkg/middleware/requestid"
	"github.com/noah-isme/course-scheduling-api/pkg/storage"
)

// @title Course Scheduling API
// @version 1.0.0
// @description Time grid, conflict detection, enrollment gate and semester close.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type cacheBackend interface {
	service.CacheRepository
	Close() error
}

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

	gridCfg, err := timegrid.FromSettings(cfg.TimeGrid)
	if err != nil {
		logr.Fatal("invalid time grid constants", zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	backend := newCacheBackend(cfg, logr)
	defer backend.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	caches := service.NewCacheService(backend, metrics, cfg.Cache.CatalogTTL, logr, true)
	validate := validator.New()
	tx := database.NewTxRunner(db)

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	semesters := repository.NewSemesterRepository(db)
	sections := repository.NewSectionRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	grades := repository.NewGradeRepository(db)
	commitments := repository.NewCommitmentRepository(db)
	slots := repository.NewTimeSlotRepository(db)
	closeRuns := repository.NewCloseRunRepository(db)

	files, err := storage.NewLocalStorage(cfg.SemesterClose.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare close report storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.SemesterClose.SignedURLSecret, cfg.SemesterClose.SignedURLTTL)

	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	gridSvc := service.NewTimeGridService(gridCfg, slots, tx, caches, metrics, logr)
	conflictSvc := service.NewConflictService(commitments, sections, users, gridSvc.Validator(), validate, metrics, logr)
	sectionSvc := service.NewSectionService(sections, courses, semesters, users, conflictSvc, gridSvc.Validator(), tx, validate, metrics, logr)
	enrollmentSvc := service.NewEnrollmentService(sections, users, assignments, semesters, conflictSvc, tx, validate, metrics, logr, service.EnrollmentConfig{
		EnforceWindow:   cfg.Enrollment.EnforceWindow,
		EnforceCapacity: cfg.Enrollment.EnforceCapacity,
	})
	gradeSvc := service.NewGradeService(assignments, sections, semesters, users, grades, validate, logr)
	closeSvc := service.NewSemesterCloseService(semesters, assignments, grades, metrics, logr)
	exportSvc := service.NewExportService(grades, files, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr)
	timetableSvc := service.NewTimetableService(commitments, users, semesters, logr)

	worker := service.NewCloseRunWorker(closeRuns, closeSvc, exportSvc, cfg.SemesterClose.WorkerRetries, logr)
	queue := jobs.NewQueue(service.CloseRunJobType, worker.Handle, jobs.QueueConfig{
		Workers:    cfg.SemesterClose.WorkerConcurrency,
		MaxRetries: cfg.SemesterClose.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	closeRunSvc := service.NewCloseRunService(closeRuns, semesters, queue, exportSvc, caches, logr, service.CloseRunConfig{
		DefaultFormat: cfg.SemesterClose.ReportFormat,
		StatusTTL:     cfg.Cache.CatalogTTL,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue.Start(rootCtx)
	if n := closeRunSvc.RecoverPendingJobs(rootCtx); n > 0 {
		logr.Info("re-enqueued pending close runs", zap.Int("count", n))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	ops := handler.NewMetricsHandler(metrics, db)
	r.GET("/metrics", ops.Prometheus)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		TimeGrid:      handler.NewTimeGridHandler(gridSvc),
		Sections:      handler.NewSectionHandler(sectionSvc, conflictSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:        handler.NewGradeHandler(gradeSvc),
		SemesterClose: handler.NewSemesterCloseHandler(closeSvc, closeRunSvc),
		Timetable:     handler.NewTimetableHandler(timetableSvc),
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	queue.Stop()
}

func newCacheBackend(cfg *config.Config, logr *zap.Logger) cacheBackend {
	if cfg.Cache.Driver == config.CacheDriverRedis {
		client, err := cache.NewRedis(cfg.Redis)
		if err == nil {
			return repository.NewCacheRepository(client, logr)
		}
		logr.Warn("redis unavailable, falling back to in-process cache", zap.Error(err))
	}
	return repository.NewMemoryCacheRepository(cache.NewMemory(cfg.Cache.CatalogTTL))
}
