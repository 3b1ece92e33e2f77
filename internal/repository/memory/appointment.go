package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
)

type AppointmentRepository struct {
	s *Store
}

func NewAppointmentRepository(s *Store) *AppointmentRepository {
	return &AppointmentRepository{s: s}
}

func (r *AppointmentRepository) CreateTx(ctx context.Context, tx repository.Tx, appointment *model.Appointment) error {
	if r.s.FailAppointmentCreate != nil {
		return r.s.FailAppointmentCreate
	}
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt
	cp := *appointment
	r.s.st.appointments[cp.ID] = &cp
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appointment, ok := r.s.st.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	cp := *appointment
	return &cp, nil
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Appointment
	for _, appointment := range r.s.st.appointments {
		if appointment.PatientID == patientID {
			cp := *appointment
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *AppointmentRepository) TokenInUseTx(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID, tokenNumber int64) (bool, error) {
	for _, appointment := range r.s.st.appointments {
		if appointment.HospitalID == hospitalID &&
			appointment.DepartmentID == departmentID &&
			appointment.TokenNumber == tokenNumber &&
			appointment.Status != model.AppointmentStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r *AppointmentRepository) TransitionByTokenTx(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID, tokenNumber int64, from, to model.AppointmentStatus) (*model.Appointment, error) {
	for _, appointment := range r.s.st.appointments {
		if appointment.HospitalID == hospitalID &&
			appointment.DepartmentID == departmentID &&
			appointment.TokenNumber == tokenNumber &&
			appointment.Status == from {
			appointment.Status = to
			appointment.UpdatedAt = time.Now()
			cp := *appointment
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *AppointmentRepository) CancelWaitingTx(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, appointment := range r.s.st.appointments {
		if appointment.HospitalID == hospitalID &&
			appointment.DepartmentID == departmentID &&
			appointment.Status == model.AppointmentStatusWaiting {
			appointment.Status = model.AppointmentStatusCancelled
			appointment.UpdatedAt = time.Now()
			cp := *appointment
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *AppointmentRepository) CountWaiting(ctx context.Context, hospitalID, departmentID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, appointment := range r.s.st.appointments {
		if appointment.HospitalID == hospitalID &&
			appointment.DepartmentID == departmentID &&
			appointment.Status == model.AppointmentStatusWaiting {
			count++
		}
	}
	return count, nil
}

func (r *AppointmentRepository) HasActive(ctx context.Context, hospitalID, departmentID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, appointment := range r.s.st.appointments {
		if appointment.HospitalID == hospitalID &&
			appointment.DepartmentID == departmentID &&
			(appointment.Status == model.AppointmentStatusWaiting || appointment.Status == model.AppointmentStatusReady) {
			return true, nil
		}
	}
	return false, nil
}
