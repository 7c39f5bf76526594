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

	_ "github.com/noah-isme/pitch-engagement-api/api/swagger"
	"github.com/noah-isme/pitch-engagement-api/internal/handler"
	"github.com/noah-isme/pitch-engagement-api/internal/middleware"
	"github.com/noah-isme/pitch-engagement-api/internal/repository"
	"github.com/noah-isme/pitch-engagement-api/internal/service"
	"github.com/noah-isme/pitch-engagement-api/pkg/cache"
	"github.com/noah-isme/pitch-engagement-api/pkg/config"
	"github.com/noah-isme/pitch-engagement-api/pkg/database"
	"github.com/noah-isme/pitch-engagement-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/pitch-engagement-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/pitch-engagement-api/pkg/middleware/requestid"
)

// @title Pitch Engagement API
// @version 1.0.0
// @description Shareable pitches with anonymised view tracking and engagement analytics
// @BasePath /api/v1
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

	metricsSvc := service.NewMetricsService()

	db, err := database.Open(cfg.Database, database.Options{
		Logger:             logr.Named("db"),
		Observer:           metricsSvc.ObserveDBQuery,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logr.Fatal("failed to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Stats.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, stats cache disabled", zap.Error(err))
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled && redisClient != nil)

	pitchRepo := repository.NewPitchRepository(db)
	viewRepo := repository.NewViewRepository(db)

	pitchSvc := service.NewPitchService(pitchRepo, cacheSvc, validator.New(), logr)
	engagementSvc := service.NewEngagementService(viewRepo, pitchRepo, cacheSvc, metricsSvc, logr).
		WithTransactions(service.ExecutorTransactions(db))
	exportSvc := service.NewExportService(pitchRepo, engagementSvc, metricsSvc, logr, nil, nil)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Pitches:   handler.NewPitchHandler(pitchSvc),
		Share:     handler.NewShareHandler(pitchSvc, engagementSvc, logr),
		Analytics: handler.NewAnalyticsHandler(engagementSvc, exportSvc),
	}.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "db_driver", cfg.Database.Driver)
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
