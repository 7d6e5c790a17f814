package main

import (
	"context"
	"errors"
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
	"go.uber.org/zap"

	_ "github.com/schoolpulse/insights-api/api/swagger"
	"github.com/schoolpulse/insights-api/internal/handler"
	"github.com/schoolpulse/insights-api/internal/middleware"
	"github.com/schoolpulse/insights-api/internal/repository"
	"github.com/schoolpulse/insights-api/internal/service"
	"github.com/schoolpulse/insights-api/pkg/cache"
	"github.com/schoolpulse/insights-api/pkg/config"
	"github.com/schoolpulse/insights-api/pkg/database"
	"github.com/schoolpulse/insights-api/pkg/logger"
	corsmiddleware "github.com/schoolpulse/insights-api/pkg/middleware/cors"
	reqidmiddleware "github.com/schoolpulse/insights-api/pkg/middleware/requestid"
)

// @title SchoolPulse Insights API
// @version 1.0.0
// @description Read-only engagement analytics over assessments, activities, webinars and app usage
// @BasePath /api/v1/analytics
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
		logr.Sugar().Fatalw("postgres connect failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.OverviewCacheTTL, logr, cfg.Analytics.CacheEnabled)

	cohortRepo := repository.NewCohortRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	assessmentRepo := repository.NewAssessmentReportRepository(db)
	activityRepo := repository.NewActivityReportRepository(db)
	webinarRepo := repository.NewWebinarReportRepository(db)
	observationRepo := repository.NewObservationRepository(db)

	windowDays := cfg.Analytics.DefaultWindowDays
	overviewSvc := service.NewOverviewService(cohortRepo, engagementRepo, webinarRepo, cacheSvc, metricsSvc, logr,
		service.OverviewConfig{CacheTTL: cfg.Analytics.OverviewCacheTTL, WindowDays: windowDays})
	classSvc := service.NewClassAnalyticsService(cohortRepo, engagementRepo, webinarRepo, cacheSvc, metricsSvc, logr,
		service.ClassAnalyticsConfig{CacheTTL: cfg.Analytics.ClassCacheTTL, WindowDays: windowDays})
	trendSvc := service.NewTrendService(cohortRepo, engagementRepo, cacheSvc, metricsSvc, logr,
		service.TrendConfig{CacheTTL: cfg.Analytics.TrendCacheTTL, WindowDays: windowDays})
	leaderboardSvc := service.NewLeaderboardService(cohortRepo, engagementRepo, cacheSvc, metricsSvc, logr,
		service.LeaderboardConfig{CacheTTL: cfg.Analytics.LeaderboardCacheTTL, WindowDays: windowDays})
	studentSvc := service.NewStudentInsightsService(cohortRepo, engagementRepo, assessmentRepo, activityRepo, webinarRepo, validator.New(), metricsSvc, logr,
		service.StudentInsightsConfig{WindowDays: windowDays})
	profileSvc := service.NewProfileService(cohortRepo, engagementRepo, assessmentRepo, activityRepo, webinarRepo, observationRepo, metricsSvc, logr,
		service.ProfileConfig{WindowDays: windowDays})
	assessReportSvc := service.NewAssessmentReportService(assessmentRepo, cohortRepo, cacheSvc, metricsSvc, logr,
		service.AssessmentReportConfig{CacheTTL: cfg.Analytics.ReportCacheTTL})
	activityReportSvc := service.NewActivityReportService(activityRepo, cohortRepo, cacheSvc, metricsSvc, logr,
		service.ActivityReportConfig{CacheTTL: cfg.Analytics.ReportCacheTTL})
	webinarReportSvc := service.NewWebinarReportService(webinarRepo, cohortRepo, cacheSvc, metricsSvc, logr,
		service.WebinarReportConfig{CacheTTL: cfg.Analytics.ReportCacheTTL})
	exportSvc := service.NewExportService(overviewSvc, classSvc, studentSvc, logr, nil, nil,
		service.ExportConfig{MaxRows: cfg.Exports.MaxRows})

	analyticsHandler := handler.NewAnalyticsHandler(overviewSvc, classSvc, trendSvc, leaderboardSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, profileSvc)
	reportHandler := handler.NewReportHandler(assessReportSvc, activityReportSvc, webinarReportSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	analytics := api.Group("/analytics")
	{
		analytics.GET("/overview", analyticsHandler.Overview)
		analytics.GET("/classes", analyticsHandler.Classes)
		analytics.GET("/classes/:id", analyticsHandler.ClassDetail)
		analytics.GET("/trends", analyticsHandler.Trends)
		analytics.GET("/leaderboard", analyticsHandler.Leaderboard)
		analytics.GET("/students", studentHandler.List)
		analytics.GET("/students/:id/assessments", studentHandler.Assessments)
		analytics.GET("/students/:id/activities", studentHandler.Activities)
		analytics.GET("/students/:id/webinars", studentHandler.Webinars)
		analytics.GET("/students/:id/streak", studentHandler.Streak)
		analytics.GET("/students/:id/profile", studentHandler.Profile)
		analytics.GET("/assessments", reportHandler.Assessments)
		analytics.GET("/assessments/:templateId", reportHandler.AssessmentDetail)
		analytics.GET("/assessments/:templateId/students/:studentId/responses", reportHandler.StudentResponses)
		analytics.GET("/activities", reportHandler.Activities)
		analytics.GET("/activities/:id", reportHandler.ActivityDetail)
		analytics.GET("/webinars", reportHandler.Webinars)
		analytics.GET("/webinars/:id", reportHandler.WebinarDetail)
		if cfg.Exports.Enabled {
			analytics.GET("/export", reportHandler.Export)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Sugar().Errorw("shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}
	logr.Sugar().Infow("server stopped")
}
