package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richxcame/parking-lot/internal/parking"
	"github.com/richxcame/parking-lot/pkg/common"
	"github.com/richxcame/parking-lot/pkg/config"
	"github.com/richxcame/parking-lot/pkg/errors"
	"github.com/richxcame/parking-lot/pkg/eventbus"
	"github.com/richxcame/parking-lot/pkg/logger"
	"github.com/richxcame/parking-lot/pkg/middleware"
	redisclient "github.com/richxcame/parking-lot/pkg/redis"
	"github.com/richxcame/parking-lot/pkg/tracing"
	"go.uber.org/zap"
)

const (
	serviceName = "parking-service"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := logger.Init(cfg.Server.Environment, cfg.Server.LogLevel); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting parking service",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
		zap.Int("capacity", cfg.Parking.Capacity),
		zap.String("timezone", cfg.Parking.Timezone),
	)

	// Initialize Sentry for error tracking
	sentryConfig := errors.DefaultSentryConfig(cfg.Sentry.DSN, cfg.Server.Environment, cfg.Sentry.Release, serviceName)
	if err := errors.InitSentry(sentryConfig); err != nil {
		if stderrors.Is(err, errors.ErrSentryDisabled) {
			logger.Info("Sentry DSN not set, error tracking disabled")
		} else {
			logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
		}
	} else {
		defer errors.Flush(2 * time.Second)
		logger.Info("Sentry error tracking initialized successfully")
	}

	tp, err := tracing.InitTracer(rootCtx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	}, logger.Get())
	if err != nil {
		logger.Warn("Failed to initialize tracing, continuing without it", zap.Error(err))
	} else if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Failed to flush traces", zap.Error(err))
			}
		}()
	}

	facility, err := parking.NewFacility(cfg.Parking.Capacity, parking.WithLocation(cfg.Parking.Location))
	if err != nil {
		logger.Fatal("Failed to create parking facility", zap.Error(err))
	}
	service := parking.NewService(facility)

	healthChecks := make(map[string]func() error)

	if cfg.NATS.Enabled {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.NATS.URL
		busCfg.StreamName = cfg.NATS.Stream
		busCfg.Name = serviceName

		bus, err := eventbus.New(rootCtx, busCfg)
		if err != nil {
			logger.Warn("Failed to connect event bus, lot events will not be published", zap.Error(err))
		} else {
			defer bus.Close()
			service.SetEventBus(bus)
			healthChecks["nats"] = func() error {
				if !bus.Connected() {
					return stderrors.New("nats not connected")
				}
				return nil
			}
		}
	}

	var redisClient *redisclient.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewRedisClient(rootCtx, &cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize redis for idempotency", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}()

		healthChecks["redis"] = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		}
		logger.Info("Idempotency keys enabled", zap.String("redis", cfg.Redis.RedisAddr()))
	}

	handler := parking.NewHandler(service)

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithSentry()) // Custom recovery with Sentry
	router.Use(middleware.SentryMiddleware())   // Sentry integration
	router.Use(middleware.CorrelationID())
	if tp != nil {
		router.Use(middleware.TracingMiddleware(serviceName))
	}
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.Metrics(serviceName))
	if redisClient != nil {
		router.Use(middleware.Idempotency(redisClient))
	}

	// Add Sentry error handler (should be near the end of middleware chain)
	router.Use(middleware.ErrorHandler())

	// Health check endpoints
	router.GET("/healthz", common.LivenessProbe(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, healthChecks))

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"version": version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
