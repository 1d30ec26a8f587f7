package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-exam-api/api/swagger"
	"github.com/noah-isme/sma-exam-api/internal/handler"
	"github.com/noah-isme/sma-exam-api/internal/middleware"
	"github.com/noah-isme/sma-exam-api/internal/repository"
	"github.com/noah-isme/sma-exam-api/internal/service"
	"github.com/noah-isme/sma-exam-api/pkg/cache"
	"github.com/noah-isme/sma-exam-api/pkg/config"
	"github.com/noah-isme/sma-exam-api/pkg/database"
	"github.com/noah-isme/sma-exam-api/pkg/export"
	"github.com/noah-isme/sma-exam-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-exam-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-exam-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-exam-api/pkg/notify"
	"github.com/noah-isme/sma-exam-api/pkg/storage"
)

// @title SMA Exam API
// @version 0.1.0
// @description Exam lifecycle and results engine: eligibility, seating, grading, publication
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report card caching disabled", "error", err)
		redisClient = nil
	}

	paperStore, err := storage.NewLocalStorage(cfg.Papers.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init paper storage", "error", err)
	}

	dispatcher := notify.NewDispatcher(notify.NopHandler(logr), notify.Config{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	// Repositories.
	examRepo := repository.NewExamRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	hallRepo := repository.NewHallRepository(db)
	seatRepo := repository.NewSeatAllocationRepository(db)
	markRepo := repository.NewMarkRepository(db)
	resultRepo := repository.NewResultRepository(db)
	gradingScaleRepo := repository.NewGradingScaleRepository(db)
	paperRepo := repository.NewQuestionPaperRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	eligibilitySvc := service.NewEligibilityService(examRepo, attendanceRepo, feeRepo, service.EligibilityConfig{
		AttendanceThreshold: cfg.Eligibility.AttendanceThreshold,
		FeeTolerance:        cfg.Eligibility.FeeTolerance,
	}, logr)
	gradingSvc := service.NewGradingService(gradingScaleRepo, logr)
	resultSvc := service.NewResultService(scheduleRepo, markRepo, resultRepo, gradingSvc, metricsSvc, logr)
	seatingSvc := service.NewSeatingService(scheduleRepo, studentRepo, hallRepo, eligibilitySvc, seatRepo, auditRepo, dispatcher, metricsSvc, logr)
	paperSigner := storage.NewSignedURLSigner(cfg.Papers.SignedURLSecret, cfg.Papers.SignedURLTTL)
	paperSvc := service.NewPaperService(paperRepo, scheduleRepo, paperStore, paperSigner, auditRepo, nil, logr)
	publishSvc := service.NewPublishService(resultRepo, examRepo, auditRepo, cacheRepo, dispatcher, metricsSvc, logr)
	examSvc := service.NewExamService(examRepo, scheduleRepo, auditRepo, dispatcher, repository.IsUniqueViolation, nil, logr)
	reportCardSvc := service.NewReportCardService(resultRepo, scheduleRepo, markRepo, studentRepo, examRepo, seatRepo, eligibilitySvc, cacheRepo, export.NewPDFExporter(), cfg.ReportCards.CacheTTL, logr)
	auditSvc := service.NewAuditService(auditRepo)

	// Handlers.
	examHandler := handler.NewExamHandler(examSvc, auditSvc)
	eligibilityHandler := handler.NewEligibilityHandler(eligibilitySvc)
	seatingHandler := handler.NewSeatingHandler(seatingSvc)
	resultHandler := handler.NewResultHandler(resultSvc, publishSvc)
	paperHandler := handler.NewPaperHandler(paperSvc, paperStore, cfg.Papers.MaxFileSizeBytes)
	gradingHandler := handler.NewGradingHandler(gradingSvc)
	reportCardHandler := handler.NewReportCardHandler(reportCardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	// Token-authorized, so outside the JWT group.
	r.GET("/papers/download", paperHandler.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))
	{
		staff := middleware.RBAC(middleware.RoleAdmin, middleware.RoleTeacher)
		admin := middleware.RBAC(middleware.RoleAdmin)
		readers := middleware.RBAC(middleware.RoleAdmin, middleware.RoleTeacher, middleware.RoleStudent, middleware.RoleGuardian, "SELF")

		api.POST("/exams", admin, examHandler.Create)
		api.GET("/exams", staff, examHandler.List)
		api.GET("/exams/:id", staff, examHandler.Get)
		api.POST("/exams/:id/schedules", admin, examHandler.CreateSchedule)
		api.GET("/exams/:id/schedules", staff, examHandler.ListSchedules)

		api.GET("/exams/:id/eligibility/:studentId", staff, eligibilityHandler.Check)
		api.POST("/exams/:id/eligibility", staff, eligibilityHandler.Batch)

		api.POST("/schedules/:id/seating", staff, seatingHandler.Generate)
		api.GET("/schedules/:id/seating", staff, seatingHandler.Get)
		api.GET("/schedules/:id/seating/export", staff, seatingHandler.Export)

		api.POST("/results/process", staff, resultHandler.Process)
		api.POST("/exams/:id/publish", admin, resultHandler.Publish)
		api.GET("/exams/:id/results/:studentId/published", readers, resultHandler.PublishedStatus)

		api.POST("/schedules/:id/papers", staff, paperHandler.Upload)
		api.POST("/schedules/:id/papers/lock", admin, paperHandler.Lock)
		api.GET("/schedules/:id/papers", staff, paperHandler.Versions)
		api.GET("/schedules/:id/papers/download-url", staff, paperHandler.DownloadURL)

		api.GET("/grading/resolve", staff, gradingHandler.Resolve)

		api.GET("/exams/:id/report-card/:studentId", readers, reportCardHandler.ReportCard)
		api.GET("/schedules/:id/hall-ticket/:studentId", readers, reportCardHandler.HallTicket)

		api.GET("/audit", admin, examHandler.AuditTrail)
		api.GET("/stats", admin, metricsHandler.Stats)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
