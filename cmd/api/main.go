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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/jondumad/EcoPulse-Backend/api/swagger"
	"github.com/jondumad/EcoPulse-Backend/internal/events"
	"github.com/jondumad/EcoPulse-Backend/internal/handler"
	"github.com/jondumad/EcoPulse-Backend/internal/middleware"
	"github.com/jondumad/EcoPulse-Backend/internal/repository"
	"github.com/jondumad/EcoPulse-Backend/internal/service"
	"github.com/jondumad/EcoPulse-Backend/pkg/cache"
	"github.com/jondumad/EcoPulse-Backend/pkg/config"
	"github.com/jondumad/EcoPulse-Backend/pkg/database"
	"github.com/jondumad/EcoPulse-Backend/pkg/jobs"
	"github.com/jondumad/EcoPulse-Backend/pkg/logger"
	corsmiddleware "github.com/jondumad/EcoPulse-Backend/pkg/middleware/cors"
	reqidmiddleware "github.com/jondumad/EcoPulse-Backend/pkg/middleware/requestid"
	"github.com/jondumad/EcoPulse-Backend/pkg/mq"
	"github.com/jondumad/EcoPulse-Backend/pkg/qrtoken"
)

// @title EcoPulse Lifecycle API
// @version 1.0.0
// @description Mission registration, waitlist, check-in and settlement.
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{"postgres": db}

	var notificationSinks []events.NotificationSink
	broadcastSinks := []events.BroadcastSink{}
	var cacheRepo service.CacheRepository

	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
		cacheRepo = repository.NewCacheRepository(client, "ecopulse:cache", logger.Named(logr, "cache"))
		broadcastSinks = append(broadcastSinks, events.NewRedisBroadcastSink(client, cfg.Events.BroadcastPrefix))
	}

	if cfg.RabbitMQ.Enabled {
		publisher, err := mq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger.Named(logr, "mq"))
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer publisher.Close() //nolint:errcheck
		notificationSinks = append(notificationSinks, events.NewRabbitMQNotificationSink(publisher))
	}

	if len(notificationSinks) == 0 || len(broadcastSinks) == 0 {
		logSink := events.NewLogSink(logger.Named(logr, "events"))
		if len(notificationSinks) == 0 {
			notificationSinks = append(notificationSinks, logSink)
		}
		if len(broadcastSinks) == 0 {
			broadcastSinks = append(broadcastSinks, logSink)
		}
	}

	dispatcher := events.NewDispatcher(jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.RetryDelay,
	}, logger.Named(logr, "events"),
		events.WithNotificationSinks(notificationSinks...),
		events.WithBroadcastSinks(broadcastSinks...),
		events.WithFailureRecorder(metrics),
	)
	dispatcher.Start(ctx)

	store := repository.NewPostgresStore(db, cfg.Database.TxTimeout)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.CheckIn.MissionCacheTTL, logger.Named(logr, "cache"), cfg.CheckIn.MissionCacheOn && cacheRepo != nil)
	authSvc := service.NewAuthService(logger.Named(logr, "auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	tokens := qrtoken.New(cfg.CheckIn.QRSecret, cfg.CheckIn.QRTokenTTL)

	registrations := service.NewRegistrationService(store, dispatcher, metrics, logger.Named(logr, "registration"), nil)
	attendance := service.NewAttendanceService(store, tokens, cacheSvc, dispatcher, metrics, nil, logger.Named(logr, "attendance"), service.AttendanceConfig{
		GeofenceRadius:      cfg.CheckIn.GeofenceRadius,
		EarlyWindow:         cfg.CheckIn.EarlyWindow,
		RecentActivityLimit: cfg.CheckIn.RecentActivityCap,
	}, nil)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metrics))
	}

	exported := metrics
	if !cfg.Metrics.Enabled {
		exported = nil
	}
	handler.Routes{
		Prefix:        cfg.APIPrefix,
		Auth:          authSvc,
		Registrations: handler.NewRegistrationHandler(registrations),
		Attendance:    handler.NewAttendanceHandler(attendance),
		Metrics:       handler.NewMetricsHandler(exported, checks),
	}.Register(r)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	dispatcher.Stop(shutdownCtx)
	return nil
}
