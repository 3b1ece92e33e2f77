package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/visitq-api/pkg/auth"
	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
	"github.com/jwalitptl/visitq-api/pkg/logger"
	"github.com/jwalitptl/visitq-api/pkg/metrics"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
	"github.com/jwalitptl/visitq-api/internal/service/event"
)

type Config struct {
	StorageTimeout   time.Duration
	SnapshotCacheTTL time.Duration
}

// Service is the queue advancement engine. It owns the appointment state
// machine:
//
//	waiting --(advance, token called)--------> ready
//	ready   --(advance, next token called)---> completed
//	waiting --(reset)------------------------> cancelled
//
// completed and cancelled are terminal. All multi-step transitions run in a
// single transaction holding the department's ledger row lock.
type Service struct {
	queueRepo repository.QueueRepository
	apptRepo  repository.AppointmentRepository
	events    *event.Service
	metrics   *metrics.Metrics
	logger    *logger.Logger
	snapshots *gocache.Cache
	cfg       Config
}

func NewService(
	queueRepo repository.QueueRepository,
	apptRepo repository.AppointmentRepository,
	events *event.Service,
	m *metrics.Metrics,
	l *logger.Logger,
	cfg Config,
) *Service {
	ttl := cfg.SnapshotCacheTTL
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &Service{
		queueRepo: queueRepo,
		apptRepo:  apptRepo,
		events:    events,
		metrics:   m,
		logger:    l,
		snapshots: gocache.New(ttl, 10*ttl),
		cfg:       cfg,
	}
}

// AdvanceQueue moves the department's current token forward by one and
// applies the resulting appointment transitions. The counter always
// advances, even when no waiting appointment holds the called token
// (cancelled or never issued) or the counter has passed total_issued.
func (s *Service) AdvanceQueue(ctx context.Context, hospitalID, departmentID uuid.UUID, actor *auth.Claims) (int64, error) {
	if err := s.authorize(hospitalID, actor); err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.queueRepo.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	queue, err := s.queueRepo.GetForUpdate(ctx, tx, hospitalID, departmentID)
	if err != nil {
		return 0, err
	}

	next := queue.CurrentToken + 1
	if err := s.queueRepo.SetCurrentToken(ctx, tx, hospitalID, departmentID, next); err != nil {
		return 0, err
	}

	now := time.Now()
	called, err := s.apptRepo.TransitionByTokenTx(ctx, tx, hospitalID, departmentID, next,
		model.AppointmentStatusWaiting, model.AppointmentStatusReady)
	if err != nil {
		return 0, err
	}

	served, err := s.apptRepo.TransitionByTokenTx(ctx, tx, hospitalID, departmentID, next-1,
		model.AppointmentStatusReady, model.AppointmentStatusCompleted)
	if err != nil {
		return 0, err
	}

	if err := s.events.EmitTx(ctx, tx, model.EventTypeTokenAdvanced, model.QueueChangeEvent{
		HospitalID:   hospitalID,
		DepartmentID: departmentID,
		CurrentToken: next,
		Timestamp:    now,
	}); err != nil {
		return 0, err
	}
	for _, appointment := range []*model.Appointment{called, served} {
		if appointment == nil {
			continue
		}
		if err := s.emitStatusChange(ctx, tx, appointment, now); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.StorageUnavailable(err)
	}

	s.snapshots.Delete(snapshotKey(hospitalID, departmentID))
	if s.metrics != nil {
		s.metrics.QueueAdvances.WithLabelValues(hospitalID.String(), departmentID.String()).Inc()
		if called == nil {
			s.metrics.EmptyAdvances.WithLabelValues(hospitalID.String(), departmentID.String()).Inc()
		}
	}
	if s.logger != nil {
		s.logger.ZL.Info().
			Str("hospital_id", hospitalID.String()).
			Str("department_id", departmentID.String()).
			Int64("current_token", next).
			Bool("empty_advance", called == nil).
			Msg("queue advanced")
	}

	return next, nil
}

// ResetQueue zeroes the department's counters and cancels all waiting
// appointments. Ready, completed and already-cancelled appointments are left
// untouched. Destructive and non-reversible.
func (s *Service) ResetQueue(ctx context.Context, hospitalID, departmentID uuid.UUID, actor *auth.Claims) error {
	if err := s.authorize(hospitalID, actor); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.queueRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.queueRepo.GetForUpdate(ctx, tx, hospitalID, departmentID); err != nil {
		return err
	}
	if err := s.queueRepo.ResetCounters(ctx, tx, hospitalID, departmentID); err != nil {
		return err
	}

	cancelled, err := s.apptRepo.CancelWaitingTx(ctx, tx, hospitalID, departmentID)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := s.events.EmitTx(ctx, tx, model.EventTypeQueueReset, model.QueueChangeEvent{
		HospitalID:   hospitalID,
		DepartmentID: departmentID,
		CurrentToken: 0,
		Timestamp:    now,
	}); err != nil {
		return err
	}
	for _, appointment := range cancelled {
		if err := s.emitStatusChange(ctx, tx, appointment, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.StorageUnavailable(err)
	}

	s.snapshots.Delete(snapshotKey(hospitalID, departmentID))
	if s.metrics != nil {
		s.metrics.QueueResets.WithLabelValues(hospitalID.String(), departmentID.String()).Inc()
	}
	if s.logger != nil {
		s.logger.ZL.Warn().
			Str("hospital_id", hospitalID.String()).
			Str("department_id", departmentID.String()).
			Int("cancelled", len(cancelled)).
			Msg("queue reset")
	}

	return nil
}

// GetSnapshot returns a display view of the queue. Served from a short TTL
// cache; staleness is acceptable here, never for issuance or advancement.
func (s *Service) GetSnapshot(ctx context.Context, hospitalID, departmentID uuid.UUID) (*model.QueueSnapshot, error) {
	key := snapshotKey(hospitalID, departmentID)
	if cached, ok := s.snapshots.Get(key); ok {
		return cached.(*model.QueueSnapshot), nil
	}

	queue, err := s.queueRepo.Get(ctx, hospitalID, departmentID)
	if err != nil {
		return nil, err
	}
	waiting, err := s.apptRepo.CountWaiting(ctx, hospitalID, departmentID)
	if err != nil {
		return nil, err
	}

	snapshot := &model.QueueSnapshot{
		HospitalID:   queue.HospitalID,
		DepartmentID: queue.DepartmentID,
		CurrentToken: queue.CurrentToken,
		TotalIssued:  queue.TotalIssued,
		WaitingCount: waiting,
		UpdatedAt:    queue.UpdatedAt,
	}
	s.snapshots.SetDefault(key, snapshot)
	return snapshot, nil
}

func (s *Service) authorize(hospitalID uuid.UUID, actor *auth.Claims) error {
	if actor == nil || !actor.AdminOf(hospitalID) {
		return apperrors.Unauthorized(fmt.Errorf("caller does not administer hospital %s", hospitalID))
	}
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StorageTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.StorageTimeout)
	}
	return ctx, func() {}
}

func (s *Service) emitStatusChange(ctx context.Context, tx repository.Tx, appointment *model.Appointment, now time.Time) error {
	return s.events.EmitTx(ctx, tx, model.EventTypeStatusChanged, model.AppointmentStatusEvent{
		AppointmentID: appointment.ID,
		HospitalID:    appointment.HospitalID,
		DepartmentID:  appointment.DepartmentID,
		TokenNumber:   appointment.TokenNumber,
		Status:        appointment.Status,
		Timestamp:     now,
	})
}

func snapshotKey(hospitalID, departmentID uuid.UUID) string {
	return hospitalID.String() + ":" + departmentID.String()
}
