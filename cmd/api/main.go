package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/visitq-api/internal/config"
	"github.com/jwalitptl/visitq-api/internal/handler"
	bookingHandler "github.com/jwalitptl/visitq-api/internal/handler/booking"
	hospitalHandler "github.com/jwalitptl/visitq-api/internal/handler/hospital"
	queueHandler "github.com/jwalitptl/visitq-api/internal/handler/queue"
	"github.com/jwalitptl/visitq-api/internal/middleware"
	"github.com/jwalitptl/visitq-api/internal/repository/postgres"
	"github.com/jwalitptl/visitq-api/internal/router"
	bookingService "github.com/jwalitptl/visitq-api/internal/service/booking"
	eventService "github.com/jwalitptl/visitq-api/internal/service/event"
	hospitalService "github.com/jwalitptl/visitq-api/internal/service/hospital"
	queueService "github.com/jwalitptl/visitq-api/internal/service/queue"
	"github.com/jwalitptl/visitq-api/pkg/auth"
	"github.com/jwalitptl/visitq-api/pkg/logger"
	redisbroker "github.com/jwalitptl/visitq-api/pkg/messaging/redis"
	"github.com/jwalitptl/visitq-api/pkg/metrics"
	"github.com/jwalitptl/visitq-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("visitq", "api")

	queueRepo := postgres.NewQueueRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	hospitalRepo := postgres.NewHospitalRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	eventSvc := eventService.NewService(outboxRepo)
	bookingSvc := bookingService.NewService(queueRepo, appointmentRepo, hospitalRepo, eventSvc, m, appLogger, bookingService.Config{
		AutoCreateDepartments: cfg.Queue.AutoCreateDepartments,
		DefaultAvgMinutes:     cfg.Queue.DefaultAvgMinutes,
		StorageTimeout:        cfg.Queue.StorageTimeout,
		HistoryLimit:          cfg.Queue.HistoryLimit,
	})
	queueSvc := queueService.NewService(queueRepo, appointmentRepo, eventSvc, m, appLogger, queueService.Config{
		StorageTimeout:   cfg.Queue.StorageTimeout,
		SnapshotCacheTTL: cfg.Queue.SnapshotCacheTTL,
	})
	hospitalSvc := hospitalService.NewService(hospitalRepo, queueRepo, appointmentRepo, appLogger)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	var pinger handler.Pinger
	if p, ok := broker.(handler.Pinger); ok {
		pinger = p
	}
	h := handler.NewHandler(db, pinger)

	r := router.NewRouter(
		authMiddleware,
		bookingHandler.NewHandler(bookingSvc),
		queueHandler.NewHandler(queueSvc),
		hospitalHandler.NewHandler(hospitalSvc),
		h,
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.RateLimit.RPS),
			RateBurst:     cfg.RateLimit.Burst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "visitq_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
		EventChannel:  cfg.Outbox.EventChannel,
	}, appLogger, m)
	go outboxProcessor.Start(ctx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
