package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visitq-api/internal/model"
)

// Tx is a storage transaction handle. Repositories accept it so services can
// compose multi-step state changes into one all-or-nothing unit.
type Tx interface {
	Commit() error
	Rollback() error
}

// TxBeginner starts transactions.
type TxBeginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// QueueRepository is the token ledger. All mutating methods must hold the
// department's row lock for the life of the transaction, so token issuance,
// advancement and reset for one department are mutually exclusive while
// different departments proceed independently.
type QueueRepository interface {
	TxBeginner

	// IssueToken atomically increments total_issued and returns the new
	// value. With autoCreate a zeroed ledger row is created on first use;
	// without it a missing row is ErrNotFound.
	IssueToken(ctx context.Context, tx Tx, hospitalID, departmentID uuid.UUID, autoCreate bool) (int64, error)

	// GetForUpdate loads the ledger row under FOR UPDATE.
	GetForUpdate(ctx context.Context, tx Tx, hospitalID, departmentID uuid.UUID) (*model.DepartmentQueue, error)

	SetCurrentToken(ctx context.Context, tx Tx, hospitalID, departmentID uuid.UUID, token int64) error
	ResetCounters(ctx context.Context, tx Tx, hospitalID, departmentID uuid.UUID) error
	CreateTx(ctx context.Context, tx Tx, hospitalID, departmentID uuid.UUID) error

	// Get is a plain read; no lock taken, staleness acceptable.
	Get(ctx context.Context, hospitalID, departmentID uuid.UUID) (*model.DepartmentQueue, error)
}

type AppointmentRepository interface {
	CreateTx(ctx context.Context, tx Tx, appointment *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Appointment, error)

	// TokenInUseTx reports whether a non-cancelled appointment already holds
	// tokenNumber. Callers must hold the department's ledger row lock so the
	// answer cannot go stale before their insert.
	TokenInUseTx(ctx context.Context, tx Tx, hospitalID, departmentID uuid.UUID, tokenNumber int64) (bool, error)

	// TransitionByTokenTx moves the appointment holding tokenNumber from one
	// status to another. Returns nil when no appointment matches; callers
	// must tolerate empty transitions.
	TransitionByTokenTx(ctx context.Context, tx Tx, hospitalID, departmentID uuid.UUID, tokenNumber int64, from, to model.AppointmentStatus) (*model.Appointment, error)

	// CancelWaitingTx cancels every waiting appointment in the department
	// and returns the affected rows.
	CancelWaitingTx(ctx context.Context, tx Tx, hospitalID, departmentID uuid.UUID) ([]*model.Appointment, error)

	CountWaiting(ctx context.Context, hospitalID, departmentID uuid.UUID) (int64, error)
	HasActive(ctx context.Context, hospitalID, departmentID uuid.UUID) (bool, error)
}

type HospitalRepository interface {
	TxBeginner
	CreateHospital(ctx context.Context, hospital *model.Hospital) error
	GetHospital(ctx context.Context, id uuid.UUID) (*model.Hospital, error)
	CreateDepartmentTx(ctx context.Context, tx Tx, department *model.Department) error
	GetDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) (*model.Department, error)
	ListDepartments(ctx context.Context, hospitalID uuid.UUID) ([]*model.Department, error)
	DeleteDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) error
}

type OutboxRepository interface {
	TxBeginner
	CreateTx(ctx context.Context, tx Tx, event *model.OutboxEvent) error
	GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatusTx(ctx context.Context, tx Tx, id uuid.UUID, status string, errorMessage *string, retryAt *time.Time) error
	MoveToDeadLetter(ctx context.Context, tx Tx, event *model.OutboxEvent) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
