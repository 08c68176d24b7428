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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/eduportal-api/api/swagger"
	"github.com/noah-isme/eduportal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/eduportal-api/internal/middleware"
	"github.com/noah-isme/eduportal-api/internal/recurrence"
	"github.com/noah-isme/eduportal-api/internal/repository"
	"github.com/noah-isme/eduportal-api/internal/service"
	"github.com/noah-isme/eduportal-api/internal/temporal"
	"github.com/noah-isme/eduportal-api/pkg/cache"
	"github.com/noah-isme/eduportal-api/pkg/config"
	"github.com/noah-isme/eduportal-api/pkg/database"
	"github.com/noah-isme/eduportal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/eduportal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/eduportal-api/pkg/middleware/requestid"
)

// @title EduPortal Class Sessions API
// @version 1.0.0
// @description Recurring class sessions, calendar views and attendance matrices
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Attendance.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, attendance cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.Schedule.Location()
	validate := validator.New()
	metrics := service.NewMetricsService()

	sessionRepo := repository.NewClassSessionRepository(db)
	recordRepo := repository.NewAttendanceRecordRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Attendance.CacheTTL, logr, cfg.Attendance.CacheEnabled && redisClient != nil)
	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	dispatcher := service.NewNotificationDispatcher(service.NewLogNotifier(logr), cfg.Notifications, metrics, logr)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	sessionSvc := service.NewSessionService(service.SessionServiceParams{
		Store:      sessionRepo,
		Classes:    classRepo,
		Expander:   recurrence.NewExpander(loc, cfg.Schedule.MaxOccurrences),
		Classifier: temporal.NewClassifier(loc),
		Clock:      service.SystemClock{},
		Cache:      cacheSvc,
		Notifier:   dispatcher,
		Metrics:    metrics,
		Validator:  validate,
		Logger:     logr,
	})
	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceParams{
		Records:   recordRepo,
		Roster:    enrollmentRepo,
		Sessions:  sessionRepo,
		Classes:   classRepo,
		Cache:     cacheSvc,
		CacheTTL:  cfg.Attendance.CacheTTL,
		Metrics:   metrics,
		Location:  loc,
		Clock:     service.SystemClock{},
		Validator: validate,
		Logger:    logr,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.ResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, db, dispatcher)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Sessions:   handler.NewSessionHandler(sessionSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Auth:       internalmiddleware.JWT(authSvc),
		Logger:     logr,
	}.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "schedule_zone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
