package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
)

const appointmentColumns = `
	id, hospital_id, department_id, patient_id, patient_name,
	contact_phone, contact_email, token_number, status,
	estimated_time, created_at, updated_at
`

func (r *appointmentRepository) CreateTx(ctx context.Context, tx repository.Tx, appointment *model.Appointment) error {
	t, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO appointments (
			id, hospital_id, department_id, patient_id, patient_name,
			contact_phone, contact_email, token_number, status,
			estimated_time, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	_, err = t.ExecContext(ctx, query,
		appointment.ID,
		appointment.HospitalID,
		appointment.DepartmentID,
		appointment.PatientID,
		appointment.PatientName,
		appointment.ContactPhone,
		appointment.ContactEmail,
		appointment.TokenNumber,
		appointment.Status,
		appointment.EstimatedTime,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return wrapStorageErr("create appointment", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, wrapStorageErr("get appointment", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, patientID, limit); err != nil {
		return nil, wrapStorageErr("list appointments by patient", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) TokenInUseTx(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID, tokenNumber int64) (bool, error) {
	t, err := sqlxTx(tx)
	if err != nil {
		return false, err
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE hospital_id = $1 AND department_id = $2
			AND token_number = $3 AND status != $4
		)
	`
	var inUse bool
	if err := t.GetContext(ctx, &inUse, query, hospitalID, departmentID, tokenNumber, model.AppointmentStatusCancelled); err != nil {
		return false, wrapStorageErr("check token in use", err)
	}
	return inUse, nil
}

func (r *appointmentRepository) TransitionByTokenTx(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID, tokenNumber int64, from, to model.AppointmentStatus) (*model.Appointment, error) {
	t, err := sqlxTx(tx)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE appointments
		SET status = $5, updated_at = NOW()
		WHERE hospital_id = $1 AND department_id = $2
		AND token_number = $3 AND status = $4
		RETURNING ` + appointmentColumns
	var appointment model.Appointment
	if err := t.GetContext(ctx, &appointment, query, hospitalID, departmentID, tokenNumber, from, to); err != nil {
		// No holder of this token in the source status: the transition is
		// empty, not an error.
		if isNoRows(err) {
			return nil, nil
		}
		return nil, wrapStorageErr("transition appointment", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) CancelWaitingTx(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID) ([]*model.Appointment, error) {
	t, err := sqlxTx(tx)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE appointments
		SET status = $3, updated_at = NOW()
		WHERE hospital_id = $1 AND department_id = $2 AND status = $4
		RETURNING ` + appointmentColumns
	var appointments []*model.Appointment
	err = t.SelectContext(ctx, &appointments, query,
		hospitalID, departmentID,
		model.AppointmentStatusCancelled, model.AppointmentStatusWaiting,
	)
	if err != nil {
		return nil, wrapStorageErr("cancel waiting appointments", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) CountWaiting(ctx context.Context, hospitalID, departmentID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM appointments
		WHERE hospital_id = $1 AND department_id = $2 AND status = $3
	`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, hospitalID, departmentID, model.AppointmentStatusWaiting); err != nil {
		return 0, wrapStorageErr("count waiting appointments", err)
	}
	return count, nil
}

func (r *appointmentRepository) HasActive(ctx context.Context, hospitalID, departmentID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE hospital_id = $1 AND department_id = $2
			AND status IN ($3, $4)
		)
	`
	var hasActive bool
	err := r.db.GetContext(ctx, &hasActive, query,
		hospitalID, departmentID,
		model.AppointmentStatusWaiting, model.AppointmentStatusReady,
	)
	if err != nil {
		return false, wrapStorageErr("check active appointments", err)
	}
	return hasActive, nil
}
