package postgres

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
)

// Token ledger. Every mutating statement touches exactly one ledger row and
// keeps its row lock until the surrounding transaction commits, which is what
// serializes issuance, advancement and reset per department.

func (r *queueRepository) IssueToken(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID, autoCreate bool) (int64, error) {
	t, err := sqlxTx(tx)
	if err != nil {
		return 0, err
	}

	var query string
	if autoCreate {
		query = `
			INSERT INTO department_queues (hospital_id, department_id, current_token, total_issued, updated_at)
			VALUES ($1, $2, 0, 1, NOW())
			ON CONFLICT (hospital_id, department_id)
			DO UPDATE SET total_issued = department_queues.total_issued + 1, updated_at = NOW()
			RETURNING total_issued
		`
	} else {
		query = `
			UPDATE department_queues
			SET total_issued = total_issued + 1, updated_at = NOW()
			WHERE hospital_id = $1 AND department_id = $2
			RETURNING total_issued
		`
	}

	var token int64
	if err := t.GetContext(ctx, &token, query, hospitalID, departmentID); err != nil {
		if isNoRows(err) {
			return 0, apperrors.NotFound("department queue", err)
		}
		return 0, wrapStorageErr("issue token", err)
	}
	return token, nil
}

func (r *queueRepository) GetForUpdate(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID) (*model.DepartmentQueue, error) {
	t, err := sqlxTx(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT hospital_id, department_id, current_token, total_issued, updated_at
		FROM department_queues
		WHERE hospital_id = $1 AND department_id = $2
		FOR UPDATE
	`
	var queue model.DepartmentQueue
	if err := t.GetContext(ctx, &queue, query, hospitalID, departmentID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("department queue", err)
		}
		return nil, wrapStorageErr("get queue for update", err)
	}
	return &queue, nil
}

func (r *queueRepository) SetCurrentToken(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID, token int64) error {
	t, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE department_queues
		SET current_token = $3, updated_at = NOW()
		WHERE hospital_id = $1 AND department_id = $2
	`
	result, err := t.ExecContext(ctx, query, hospitalID, departmentID, token)
	if err != nil {
		return wrapStorageErr("set current token", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrapStorageErr("set current token", err)
	}
	if rows == 0 {
		return apperrors.NotFound("department queue", nil)
	}
	return nil
}

func (r *queueRepository) ResetCounters(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID) error {
	t, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE department_queues
		SET current_token = 0, total_issued = 0, updated_at = NOW()
		WHERE hospital_id = $1 AND department_id = $2
	`
	result, err := t.ExecContext(ctx, query, hospitalID, departmentID)
	if err != nil {
		return wrapStorageErr("reset counters", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrapStorageErr("reset counters", err)
	}
	if rows == 0 {
		return apperrors.NotFound("department queue", nil)
	}
	return nil
}

func (r *queueRepository) CreateTx(ctx context.Context, tx repository.Tx, hospitalID, departmentID uuid.UUID) error {
	t, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO department_queues (hospital_id, department_id, current_token, total_issued, updated_at)
		VALUES ($1, $2, 0, 0, NOW())
		ON CONFLICT (hospital_id, department_id) DO NOTHING
	`
	if _, err := t.ExecContext(ctx, query, hospitalID, departmentID); err != nil {
		return wrapStorageErr("create queue", err)
	}
	return nil
}

func (r *queueRepository) Get(ctx context.Context, hospitalID, departmentID uuid.UUID) (*model.DepartmentQueue, error) {
	query := `
		SELECT hospital_id, department_id, current_token, total_issued, updated_at
		FROM department_queues
		WHERE hospital_id = $1 AND department_id = $2
	`
	var queue model.DepartmentQueue
	if err := r.db.GetContext(ctx, &queue, query, hospitalID, departmentID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("department queue", err)
		}
		return nil, wrapStorageErr("get queue", err)
	}
	return &queue, nil
}
