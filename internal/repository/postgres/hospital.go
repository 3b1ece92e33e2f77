package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
)

func (r *hospitalRepository) CreateHospital(ctx context.Context, hospital *model.Hospital) error {
	query := `
		INSERT INTO hospitals (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	if hospital.ID == uuid.Nil {
		hospital.ID = uuid.New()
	}
	hospital.CreatedAt = time.Now()
	hospital.UpdatedAt = hospital.CreatedAt

	if _, err := r.db.ExecContext(ctx, query, hospital.ID, hospital.Name, hospital.CreatedAt, hospital.UpdatedAt); err != nil {
		return wrapStorageErr("create hospital", err)
	}
	return nil
}

func (r *hospitalRepository) GetHospital(ctx context.Context, id uuid.UUID) (*model.Hospital, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM hospitals
		WHERE id = $1
	`
	var hospital model.Hospital
	if err := r.db.GetContext(ctx, &hospital, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("hospital", err)
		}
		return nil, wrapStorageErr("get hospital", err)
	}
	return &hospital, nil
}

func (r *hospitalRepository) CreateDepartmentTx(ctx context.Context, tx repository.Tx, department *model.Department) error {
	t, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO departments (id, hospital_id, name, avg_minutes_per_patient, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if department.ID == uuid.Nil {
		department.ID = uuid.New()
	}
	department.CreatedAt = time.Now()
	department.UpdatedAt = department.CreatedAt

	_, err = t.ExecContext(ctx, query,
		department.ID,
		department.HospitalID,
		department.Name,
		department.AvgMinutesPerPatient,
		department.CreatedAt,
		department.UpdatedAt,
	)
	if err != nil {
		return wrapStorageErr("create department", err)
	}
	return nil
}

func (r *hospitalRepository) GetDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) (*model.Department, error) {
	query := `
		SELECT id, hospital_id, name, avg_minutes_per_patient, created_at, updated_at
		FROM departments
		WHERE hospital_id = $1 AND id = $2
	`
	var department model.Department
	if err := r.db.GetContext(ctx, &department, query, hospitalID, departmentID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("department", err)
		}
		return nil, wrapStorageErr("get department", err)
	}
	return &department, nil
}

func (r *hospitalRepository) ListDepartments(ctx context.Context, hospitalID uuid.UUID) ([]*model.Department, error) {
	query := `
		SELECT id, hospital_id, name, avg_minutes_per_patient, created_at, updated_at
		FROM departments
		WHERE hospital_id = $1
		ORDER BY name ASC
	`
	var departments []*model.Department
	if err := r.db.SelectContext(ctx, &departments, query, hospitalID); err != nil {
		return nil, wrapStorageErr("list departments", err)
	}
	return departments, nil
}

// DeleteDepartment removes the department and its ledger row together.
// Appointment history keeps its rows.
func (r *hospitalRepository) DeleteDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) error {
	return r.WithTx(ctx, func(t *sqlx.Tx) error {
		result, err := t.ExecContext(ctx, `DELETE FROM departments WHERE hospital_id = $1 AND id = $2`, hospitalID, departmentID)
		if err != nil {
			return wrapStorageErr("delete department", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return wrapStorageErr("delete department", err)
		}
		if rows == 0 {
			return apperrors.NotFound("department", nil)
		}
		if _, err := t.ExecContext(ctx, `DELETE FROM department_queues WHERE hospital_id = $1 AND department_id = $2`, hospitalID, departmentID); err != nil {
			return wrapStorageErr("delete department queue", err)
		}
		return nil
	})
}
