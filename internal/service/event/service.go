package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
)

// Service writes change events to the transactional outbox. Events ride in
// the same transaction as the state change they describe, so an event exists
// if and only if the mutation committed. Delivery to subscribers is handled
// by the outbox processor: at-least-once, duplicates possible.
type Service struct {
	outboxRepo repository.OutboxRepository
}

func NewService(outboxRepo repository.OutboxRepository) *Service {
	return &Service{outboxRepo: outboxRepo}
}

// EmitTx stages an event inside the caller's transaction.
func (s *Service) EmitTx(ctx context.Context, tx repository.Tx, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
	}

	if err := s.outboxRepo.CreateTx(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
