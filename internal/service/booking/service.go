package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
	"github.com/jwalitptl/visitq-api/pkg/logger"
	"github.com/jwalitptl/visitq-api/pkg/metrics"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
	"github.com/jwalitptl/visitq-api/internal/service/estimate"
	"github.com/jwalitptl/visitq-api/internal/service/event"
)

type Config struct {
	AutoCreateDepartments bool
	DefaultAvgMinutes     int
	StorageTimeout        time.Duration
	HistoryLimit          int
}

// Service is the appointment store. Booking issues a token and persists the
// appointment in one transaction, so a token is never burned on a failed
// booking and a booking never exists without its token.
type Service struct {
	queueRepo    repository.QueueRepository
	apptRepo     repository.AppointmentRepository
	hospitalRepo repository.HospitalRepository
	events       *event.Service
	metrics      *metrics.Metrics
	logger       *logger.Logger
	cfg          Config
}

func NewService(
	queueRepo repository.QueueRepository,
	apptRepo repository.AppointmentRepository,
	hospitalRepo repository.HospitalRepository,
	events *event.Service,
	m *metrics.Metrics,
	l *logger.Logger,
	cfg Config,
) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.DefaultAvgMinutes <= 0 {
		cfg.DefaultAvgMinutes = 10
	}
	return &Service{
		queueRepo:    queueRepo,
		apptRepo:     apptRepo,
		hospitalRepo: hospitalRepo,
		events:       events,
		metrics:      m,
		logger:       l,
		cfg:          cfg,
	}
}

func (s *Service) BookAppointment(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if s.cfg.StorageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StorageTimeout)
		defer cancel()
	}

	avgMinutes := s.avgMinutesPerPatient(ctx, req.HospitalID, req.DepartmentID)

	tx, err := s.queueRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	token, err := s.issueFreeToken(ctx, tx, req.HospitalID, req.DepartmentID)
	if err != nil {
		return nil, err
	}

	queue, err := s.queueRepo.GetForUpdate(ctx, tx, req.HospitalID, req.DepartmentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	position := estimate.Position(token, queue.CurrentToken)
	appointment := &model.Appointment{
		HospitalID:    req.HospitalID,
		DepartmentID:  req.DepartmentID,
		PatientID:     req.PatientID,
		PatientName:   req.PatientName,
		ContactPhone:  req.ContactPhone,
		ContactEmail:  req.ContactEmail,
		TokenNumber:   token,
		Status:        model.AppointmentStatusWaiting,
		EstimatedTime: estimate.ETA(now, position, avgMinutes),
	}

	if err := s.apptRepo.CreateTx(ctx, tx, appointment); err != nil {
		return nil, err
	}

	if err := s.events.EmitTx(ctx, tx, model.EventTypeAppointmentBooked, model.AppointmentStatusEvent{
		AppointmentID: appointment.ID,
		HospitalID:    appointment.HospitalID,
		DepartmentID:  appointment.DepartmentID,
		TokenNumber:   appointment.TokenNumber,
		Status:        appointment.Status,
		Timestamp:     now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.StorageUnavailable(err)
	}

	if s.metrics != nil {
		s.metrics.TokensIssued.WithLabelValues(req.HospitalID.String(), req.DepartmentID.String()).Inc()
		s.metrics.BookingsCreated.WithLabelValues(req.HospitalID.String(), req.DepartmentID.String()).Inc()
	}
	if s.logger != nil {
		s.logger.ZL.Info().
			Str("hospital_id", req.HospitalID.String()).
			Str("department_id", req.DepartmentID.String()).
			Int64("token", token).
			Msg("appointment booked")
	}

	return appointment, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.apptRepo.Get(ctx, id)
}

// ListByPatient returns the patient's bookings, most recent first, capped at
// the configured history limit.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	return s.apptRepo.ListByPatient(ctx, patientID, s.cfg.HistoryLimit)
}

// GetPosition recomputes the appointment's place in line from live ledger
// state. The stored estimated_time is advisory only and never refreshed.
func (s *Service) GetPosition(ctx context.Context, id uuid.UUID) (*model.PositionResponse, error) {
	appointment, err := s.apptRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	queue, err := s.queueRepo.Get(ctx, appointment.HospitalID, appointment.DepartmentID)
	if err != nil {
		return nil, err
	}

	avgMinutes := s.avgMinutesPerPatient(ctx, appointment.HospitalID, appointment.DepartmentID)
	position := estimate.Position(appointment.TokenNumber, queue.CurrentToken)
	if appointment.Status.Terminal() || appointment.Status == model.AppointmentStatusReady {
		position = 0
	}

	return &model.PositionResponse{
		AppointmentID:        appointment.ID,
		TokenNumber:          appointment.TokenNumber,
		CurrentToken:         queue.CurrentToken,
		Position:             position,
		EstimatedWaitMinutes: estimate.WaitMinutes(position, avgMinutes),
		Status:               appointment.Status,
	}, nil
}

// issueFreeToken increments the ledger until it lands on a token no
// non-cancelled appointment holds. After a reset, completed and ready
// appointments keep their token numbers, so the restarted counter skips
// those deterministically instead of colliding. The ledger row lock taken
// by IssueToken keeps concurrent bookings from racing the check.
func (s *Service) issueFreeToken(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID) (int64, error) {
	token, err := s.queueRepo.IssueToken(ctx, tx, hospitalID, departmentID, s.cfg.AutoCreateDepartments)
	if err != nil {
		return 0, err
	}
	for {
		inUse, err := s.apptRepo.TokenInUseTx(ctx, tx, hospitalID, departmentID, token)
		if err != nil {
			return 0, err
		}
		if !inUse {
			return token, nil
		}
		token, err = s.queueRepo.IssueToken(ctx, tx, hospitalID, departmentID, false)
		if err != nil {
			return 0, err
		}
	}
}

func (s *Service) avgMinutesPerPatient(ctx context.Context, hospitalID, departmentID uuid.UUID) int {
	department, err := s.hospitalRepo.GetDepartment(ctx, hospitalID, departmentID)
	if err != nil || department.AvgMinutesPerPatient <= 0 {
		return s.cfg.DefaultAvgMinutes
	}
	return department.AvgMinutesPerPatient
}
