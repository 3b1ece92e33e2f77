package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"

	"github.com/jwalitptl/visitq-api/internal/repository"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// BeginTx starts a transaction. The returned handle is an *sqlx.Tx behind
// the repository.Tx interface.
func (r *BaseRepository) BeginTx(ctx context.Context) (repository.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.StorageUnavailable(err)
	}
	return tx, nil
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.StorageUnavailable(err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// sqlxTx unwraps the repository.Tx handle created by BeginTx.
func sqlxTx(tx repository.Tx) (*sqlx.Tx, error) {
	t, ok := tx.(*sqlx.Tx)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	return t, nil
}

// wrapStorageErr classifies a driver error into the application taxonomy.
// Unique and serialization violations surface as Conflict (safe to retry);
// everything else transient maps to StorageUnavailable.
func wrapStorageErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return apperrors.Conflict(fmt.Sprintf("%s: concurrent modification", op), err)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return apperrors.Conflict(fmt.Sprintf("%s: transaction conflict", op), err)
		}
	}
	return apperrors.StorageUnavailable(fmt.Errorf("%s: %w", op, err))
}

// isNoRows reports whether err means the query matched nothing.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
