package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
)

func (r *outboxRepository) CreateTx(ctx context.Context, tx repository.Tx, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	t, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	event.ID = uuid.New()
	event.Status = string(model.OutboxStatusPending)
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt

	_, err = t.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.RetryCount,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return wrapStorageErr("create outbox event", err)
	}
	return nil
}

// GetPendingEventsWithLock claims a batch of pending events for this worker.
// Ordered reads keep per-department event order on the wire.
func (r *outboxRepository) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, payload, status, error_message, retry_count, retry_at, created_at, processed_at, updated_at
		FROM outbox_events
		WHERE status IN ('pending', 'retry')
		AND (retry_at IS NULL OR retry_at <= NOW())
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`
	var events []*model.OutboxEvent
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, wrapStorageErr("get pending events", err)
	}
	return events, nil
}

func (r *outboxRepository) UpdateStatusTx(ctx context.Context, tx repository.Tx, id uuid.UUID, status string, errorMessage *string, retryAt *time.Time) error {
	query := `
		UPDATE outbox_events
		SET status = $1,
			error_message = $2,
			retry_count = CASE WHEN $1 = 'retry' THEN retry_count + 1 ELSE retry_count END,
			retry_at = $4,
			processed_at = CASE WHEN $1 = 'processed' THEN NOW() ELSE processed_at END,
			updated_at = NOW()
		WHERE id = $3
	`
	if tx != nil {
		t, err := sqlxTx(tx)
		if err != nil {
			return err
		}
		if _, err := t.ExecContext(ctx, query, status, errorMessage, id, retryAt); err != nil {
			return wrapStorageErr("update event status", err)
		}
		return nil
	}
	if _, err := r.db.ExecContext(ctx, query, status, errorMessage, id, retryAt); err != nil {
		return wrapStorageErr("update event status", err)
	}
	return nil
}

func (r *outboxRepository) MoveToDeadLetter(ctx context.Context, tx repository.Tx, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events_deadletter (
			event_id, event_type, payload, error_message,
			retry_count, last_retry_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	args := []interface{}{event.ID, event.EventType, event.Payload, event.ErrorMessage, event.RetryCount, event.RetryAt}

	if tx != nil {
		t, err := sqlxTx(tx)
		if err != nil {
			return err
		}
		if _, err := t.ExecContext(ctx, query, args...); err != nil {
			return wrapStorageErr("move event to dead letter", err)
		}
		return nil
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapStorageErr("move event to dead letter", err)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, wrapStorageErr("delete processed events", err)
	}
	return result.RowsAffected()
}
