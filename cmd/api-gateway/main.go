package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classmark/classmark-api/api/swagger"
	"github.com/classmark/classmark-api/internal/handler"
	"github.com/classmark/classmark-api/internal/middleware"
	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/repository"
	"github.com/classmark/classmark-api/internal/service"
	syncpkg "github.com/classmark/classmark-api/internal/sync"
	"github.com/classmark/classmark-api/pkg/cache"
	"github.com/classmark/classmark-api/pkg/config"
	"github.com/classmark/classmark-api/pkg/database"
	"github.com/classmark/classmark-api/pkg/jobs"
	"github.com/classmark/classmark-api/pkg/logger"
	corsmiddleware "github.com/classmark/classmark-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classmark/classmark-api/pkg/middleware/requestid"
)

// @title Classmark API
// @version 0.1.0
// @description Grade aggregation, ranking and credential issuance for a single class
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Without redis the mirrors still serve their initial load and the
		// derived-view cache is disabled.
		logr.Sugar().Warnw("redis unavailable, running without cache and live reloads", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	gradeRepo := repository.NewGradeRecordRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	gradeMirror := syncpkg.NewMirror(func(ctx context.Context) ([]models.GradeRecord, error) {
		start := time.Now()
		records, err := gradeRepo.ListByPartition(ctx, cfg.Access.GradePartitionID)
		if err == nil {
			metricsSvc.ObserveDBQuery("grades_snapshot", time.Since(start))
			metricsSvc.ObserveMirrorReload(syncpkg.CollectionGrades)
		}
		return records, err
	})
	credentialMirror := syncpkg.NewMirror(func(ctx context.Context) ([]models.Credential, error) {
		start := time.Now()
		credentials, err := credentialRepo.ListAll(ctx)
		if err == nil {
			metricsSvc.ObserveDBQuery("credentials_snapshot", time.Since(start))
			metricsSvc.ObserveMirrorReload(syncpkg.CollectionCredentials)
		}
		return credentials, err
	})

	gradeWatcher := syncpkg.NewWatcher(redisClient, syncpkg.CollectionGrades, cfg.Access.GradePartitionID, gradeMirror, logr)
	credentialWatcher := syncpkg.NewWatcher(redisClient, syncpkg.CollectionCredentials, service.SharedCredentialPartition, credentialMirror, logr)
	go func() {
		if err := gradeWatcher.Run(ctx); err != nil {
			logr.Sugar().Errorw("grade watcher stopped", "error", err)
		}
	}()
	go func() {
		if err := credentialWatcher.Run(ctx); err != nil {
			logr.Sugar().Errorw("credential watcher stopped", "error", err)
		}
	}()

	notifier := syncpkg.NewNotifier(redisClient, logr)
	validate := validator.New()

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Results.CacheTTL, logr, redisClient != nil)
	credentialSvc := service.NewCredentialService(credentialRepo, credentialMirror, notifier, logr)

	repairQueue := jobs.NewQueue("credential-repair", service.CredentialRepairHandler(credentialSvc, logr), jobs.Options{
		Workers:    1,
		MaxRetries: 5,
		RetryDelay: 10 * time.Second,
		Logger:     logr,
	})
	repairQueue.Start(ctx)
	defer repairQueue.Stop()

	gradeSvc := service.NewGradeService(gradeRepo, credentialSvc, gradeMirror, notifier, repairQueue, cfg.Access.GradePartitionID, validate, logr)
	accessSvc := service.NewAccessService(credentialSvc, gradeRepo, validate, logr, service.AccessConfig{
		TeacherPin:  cfg.Access.TeacherPin,
		PartitionID: cfg.Access.GradePartitionID,
		JWTSecret:   cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "classmark-api",
	})

	var narrativeSvc *service.NarrativeService
	if cfg.Narrative.Enabled {
		narrativeSvc = service.NewNarrativeService(cfg.Narrative.BaseURL, cfg.Narrative.Timeout, cfg.Narrative.MaxAttempts, logr)
	}
	resultSvc := service.NewResultService(gradeMirror, cacheSvc, narrativeSvc, logr)
	exportSvc := service.NewExportService(credentialSvc, gradeMirror, logr)

	authHandler := handler.NewAuthHandler(accessSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	resultHandler := handler.NewResultHandler(resultSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/student/login", authHandler.StudentLogin)
	auth.POST("/teacher/login", authHandler.TeacherLogin)
	auth.GET("/session", middleware.JWT(accessSvc), authHandler.Session)

	teacherOnly := api.Group("")
	teacherOnly.Use(middleware.JWT(accessSvc), middleware.RequireRoles(models.RoleTeacher))
	teacherOnly.GET("/grades", gradeHandler.List)
	teacherOnly.POST("/grades", gradeHandler.Create)
	teacherOnly.PUT("/grades/:id", gradeHandler.Update)
	teacherOnly.DELETE("/grades/:id", gradeHandler.Delete)
	teacherOnly.GET("/exams/:exam/summary", resultHandler.ExamSummary)
	teacherOnly.GET("/exams/:exam/rankings", resultHandler.ExamRankings)
	teacherOnly.GET("/credentials/export.csv", exportHandler.CredentialsCSV)
	teacherOnly.GET("/reports/:student/card.pdf", exportHandler.ReportCardPDF)

	studentOnly := api.Group("/results")
	studentOnly.Use(middleware.JWT(accessSvc), middleware.RequireRoles(models.RoleStudent))
	studentOnly.GET("/me", resultHandler.MyResult)
	studentOnly.GET("/me/overview", resultHandler.MyOverview)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
