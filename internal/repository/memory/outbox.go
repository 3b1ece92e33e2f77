package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
)

type OutboxRepository struct {
	s *Store
}

func NewOutboxRepository(s *Store) *OutboxRepository {
	return &OutboxRepository{s: s}
}

func (r *OutboxRepository) BeginTx(ctx context.Context) (repository.Tx, error) {
	return r.s.begin(), nil
}

func (r *OutboxRepository) CreateTx(ctx context.Context, tx repository.Tx, event *model.OutboxEvent) error {
	event.ID = uuid.New()
	event.Status = string(model.OutboxStatusPending)
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	cp := *event
	r.s.st.events = append(r.s.st.events, &cp)
	return nil
}

func (r *OutboxRepository) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	var out []*model.OutboxEvent
	for _, event := range r.s.st.events {
		if len(out) >= limit {
			break
		}
		switch event.Status {
		case string(model.OutboxStatusPending):
		case string(model.OutboxStatusRetry):
			if event.RetryAt != nil && event.RetryAt.After(now) {
				continue
			}
		default:
			continue
		}
		cp := *event
		out = append(out, &cp)
	}
	return out, nil
}

func (r *OutboxRepository) UpdateStatusTx(ctx context.Context, tx repository.Tx, id uuid.UUID, status string, errorMessage *string, retryAt *time.Time) error {
	if tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	for _, event := range r.s.st.events {
		if event.ID == id {
			event.Status = status
			event.ErrorMessage = errorMessage
			event.RetryAt = retryAt
			if status == string(model.OutboxStatusRetry) {
				event.RetryCount++
			}
			if status == string(model.OutboxStatusProcessed) {
				now := time.Now()
				event.ProcessedAt = &now
			}
			event.UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

func (r *OutboxRepository) MoveToDeadLetter(ctx context.Context, tx repository.Tx, event *model.OutboxEvent) error {
	if tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	cp := *event
	r.s.st.deadLetters = append(r.s.st.deadLetters, &cp)
	return nil
}

func (r *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var kept []*model.OutboxEvent
	var removed int64
	for _, event := range r.s.st.events {
		if event.Status == string(model.OutboxStatusProcessed) && event.ProcessedAt != nil && event.ProcessedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	r.s.st.events = kept
	return removed, nil
}
