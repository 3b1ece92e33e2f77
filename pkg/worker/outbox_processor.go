package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"

	"github.com/jwalitptl/visitq-api/pkg/logger"
	"github.com/jwalitptl/visitq-api/pkg/messaging"
	"github.com/jwalitptl/visitq-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	EventChannel  string
}

// OutboxProcessor drains the transactional outbox and publishes events to
// the broker. Delivery is at-least-once: a crash between publish and status
// update re-delivers the event, and subscribers must tolerate duplicates.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}
	if config.EventChannel == "" {
		config.EventChannel = "visitq.events"
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox events")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	var timer *prometheus.Timer
	if p.metrics != nil {
		timer = prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
		defer timer.ObserveDuration()
	}

	events, err := p.repo.GetPendingEventsWithLock(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := retry(p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.broker.Publish(ctx, p.config.EventChannel, messaging.Message{
			Type:    event.EventType,
			Payload: json.RawMessage(event.Payload),
		})
	})

	if err != nil {
		if p.metrics != nil {
			p.metrics.OutboxEventsFailed.Inc()
			p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		}
		return p.handlePublishFailure(ctx, event, err)
	}

	if p.metrics != nil {
		p.metrics.OutboxEventsProcessed.Inc()
	}
	if err := p.repo.UpdateStatusTx(ctx, nil, event.ID, string(model.OutboxStatusProcessed), nil, nil); err != nil {
		return err
	}

	return nil
}

func (p *OutboxProcessor) handlePublishFailure(ctx context.Context, event *model.OutboxEvent, pubErr error) error {
	event.RetryCount++
	errMsg := pubErr.Error()

	if event.RetryCount >= p.config.RetryAttempts {
		if err := p.repo.MoveToDeadLetter(ctx, nil, event); err != nil {
			return fmt.Errorf("failed to move event to dead letter: %w", err)
		}
		return p.repo.UpdateStatusTx(ctx, nil, event.ID, string(model.OutboxStatusFailed), &errMsg, nil)
	}

	retryAt := time.Now().Add(p.config.RetryDelay * time.Duration(event.RetryCount))
	if err := p.repo.UpdateStatusTx(ctx, nil, event.ID, string(model.OutboxStatusRetry), &errMsg, &retryAt); err != nil {
		return err
	}
	return pubErr
}

// CleanupProcessed deletes processed events older than the retention window.
func (p *OutboxProcessor) CleanupProcessed(ctx context.Context, retention time.Duration) error {
	count, err := p.repo.DeleteProcessedBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return err
	}
	if count > 0 {
		p.logger.Info("cleaned up processed outbox events", "count", count)
	}
	return nil
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
