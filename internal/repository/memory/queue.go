package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
)

type QueueRepository struct {
	s *Store
}

func NewQueueRepository(s *Store) *QueueRepository {
	return &QueueRepository{s: s}
}

func (r *QueueRepository) BeginTx(ctx context.Context) (repository.Tx, error) {
	return r.s.begin(), nil
}

func (r *QueueRepository) IssueToken(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID, autoCreate bool) (int64, error) {
	k := queueKey{hospitalID, departmentID}
	queue, ok := r.s.st.queues[k]
	if !ok {
		if !autoCreate {
			return 0, apperrors.NotFound("department queue", nil)
		}
		queue = &model.DepartmentQueue{HospitalID: hospitalID, DepartmentID: departmentID}
		r.s.st.queues[k] = queue
	}
	queue.TotalIssued++
	queue.UpdatedAt = time.Now()
	return queue.TotalIssued, nil
}

func (r *QueueRepository) GetForUpdate(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID) (*model.DepartmentQueue, error) {
	queue, ok := r.s.st.queues[queueKey{hospitalID, departmentID}]
	if !ok {
		return nil, apperrors.NotFound("department queue", nil)
	}
	cp := *queue
	return &cp, nil
}

func (r *QueueRepository) SetCurrentToken(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID, token int64) error {
	queue, ok := r.s.st.queues[queueKey{hospitalID, departmentID}]
	if !ok {
		return apperrors.NotFound("department queue", nil)
	}
	queue.CurrentToken = token
	queue.UpdatedAt = time.Now()
	return nil
}

func (r *QueueRepository) ResetCounters(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID) error {
	queue, ok := r.s.st.queues[queueKey{hospitalID, departmentID}]
	if !ok {
		return apperrors.NotFound("department queue", nil)
	}
	queue.CurrentToken = 0
	queue.TotalIssued = 0
	queue.UpdatedAt = time.Now()
	return nil
}

func (r *QueueRepository) CreateTx(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID) error {
	k := queueKey{hospitalID, departmentID}
	if _, ok := r.s.st.queues[k]; ok {
		return nil
	}
	r.s.st.queues[k] = &model.DepartmentQueue{
		HospitalID:   hospitalID,
		DepartmentID: departmentID,
		UpdatedAt:    time.Now(),
	}
	return nil
}

func (r *QueueRepository) Get(ctx context.Context, hospitalID, departmentID uuid.UUID) (*model.DepartmentQueue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	queue, ok := r.s.st.queues[queueKey{hospitalID, departmentID}]
	if !ok {
		return nil, apperrors.NotFound("department queue", nil)
	}
	cp := *queue
	return &cp, nil
}
