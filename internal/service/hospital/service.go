package hospital

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
	"github.com/jwalitptl/visitq-api/pkg/logger"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
)

// Service maintains the hospital/department registry. It exists to give the
// queue core something to hang off; identity and rich facility management
// live outside this system.
type Service struct {
	hospitalRepo repository.HospitalRepository
	queueRepo    repository.QueueRepository
	apptRepo     repository.AppointmentRepository
	logger       *logger.Logger
}

func NewService(
	hospitalRepo repository.HospitalRepository,
	queueRepo repository.QueueRepository,
	apptRepo repository.AppointmentRepository,
	l *logger.Logger,
) *Service {
	return &Service{
		hospitalRepo: hospitalRepo,
		queueRepo:    queueRepo,
		apptRepo:     apptRepo,
		logger:       l,
	}
}

func (s *Service) RegisterHospital(ctx context.Context, req *model.CreateHospitalRequest) (*model.Hospital, error) {
	hospital := &model.Hospital{Name: req.Name}
	if err := s.hospitalRepo.CreateHospital(ctx, hospital); err != nil {
		return nil, err
	}
	return hospital, nil
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*model.Hospital, error) {
	return s.hospitalRepo.GetHospital(ctx, id)
}

// RegisterDepartment creates the department and its zeroed ledger row in one
// transaction.
func (s *Service) RegisterDepartment(ctx context.Context, hospitalID uuid.UUID, req *model.CreateDepartmentRequest) (*model.Department, error) {
	if _, err := s.hospitalRepo.GetHospital(ctx, hospitalID); err != nil {
		return nil, err
	}

	department := &model.Department{
		HospitalID:           hospitalID,
		Name:                 req.Name,
		AvgMinutesPerPatient: req.AvgMinutesPerPatient,
	}

	tx, err := s.hospitalRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.hospitalRepo.CreateDepartmentTx(ctx, tx, department); err != nil {
		return nil, err
	}
	if err := s.queueRepo.CreateTx(ctx, tx, hospitalID, department.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.StorageUnavailable(err)
	}

	return department, nil
}

func (s *Service) ListDepartments(ctx context.Context, hospitalID uuid.UUID) ([]*model.Department, error) {
	return s.hospitalRepo.ListDepartments(ctx, hospitalID)
}

// DeleteDepartment refuses to remove a department that still has waiting or
// ready appointments.
func (s *Service) DeleteDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) error {
	hasActive, err := s.apptRepo.HasActive(ctx, hospitalID, departmentID)
	if err != nil {
		return err
	}
	if hasActive {
		return apperrors.Conflict("department has active appointments", nil)
	}
	return s.hospitalRepo.DeleteDepartment(ctx, hospitalID, departmentID)
}
