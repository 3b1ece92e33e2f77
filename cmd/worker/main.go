package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/visitq-api/internal/repository/postgres"
	"github.com/jwalitptl/visitq-api/pkg/logger"
	redisbroker "github.com/jwalitptl/visitq-api/pkg/messaging/redis"
	"github.com/jwalitptl/visitq-api/pkg/metrics"
	"github.com/jwalitptl/visitq-api/pkg/worker"
)

// workerConfig is read from the environment so the worker can run as a
// standalone deployment without the API's config file.
type workerConfig struct {
	DatabaseURL      string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL         string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	EventChannel     string        `envconfig:"EVENT_CHANNEL" default:"visitq.events"`
	BatchSize        int           `envconfig:"BATCH_SIZE" default:"100"`
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`
	RetryAttempts    int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay       time.Duration `envconfig:"RETRY_DELAY" default:"5s"`
	CleanupInterval  time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`
	CleanupRetention time.Duration `envconfig:"CLEANUP_RETENTION" default:"168h"`
	HealthPort       int           `envconfig:"HEALTH_PORT" default:"8081"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("VISITQ", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:        cfg.RedisURL,
		MaxRetries: 3,
		PoolSize:   10,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.BatchSize,
		PollInterval:  cfg.PollInterval,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		EventChannel:  cfg.EventChannel,
	}, appLogger, metrics.NewMetrics("visitq", "worker"))

	setupHealthCheck(cfg.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutting down worker...")
		cancel()
	}()

	go cleanupLoop(ctx, processor, cfg.CleanupInterval, cfg.CleanupRetention, appLogger)

	processor.Start(ctx)
}

func cleanupLoop(ctx context.Context, p *worker.OutboxProcessor, interval, retention time.Duration, l *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.CleanupProcessed(ctx, retention); err != nil {
				l.Error(err, "failed to clean up processed events")
			}
		}
	}
}

func setupHealthCheck(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}
