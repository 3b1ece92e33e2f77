package model

import (
	"time"

	"github.com/google/uuid"
)

// DepartmentQueue is the per-department token ledger. CurrentToken is the
// token being served (0 = none yet); TotalIssued counts tokens ever issued.
// CurrentToken may exceed TotalIssued after empty advances; that signals an
// empty queue and is not an error.
type DepartmentQueue struct {
	HospitalID   uuid.UUID `db:"hospital_id" json:"hospital_id"`
	DepartmentID uuid.UUID `db:"department_id" json:"department_id"`
	CurrentToken int64     `db:"current_token" json:"current_token"`
	TotalIssued  int64     `db:"total_issued" json:"total_issued"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// QueueSnapshot is a read-only view for display. It may be slightly stale.
type QueueSnapshot struct {
	HospitalID   uuid.UUID `json:"hospital_id"`
	DepartmentID uuid.UUID `json:"department_id"`
	CurrentToken int64     `json:"current_token"`
	TotalIssued  int64     `json:"total_issued"`
	WaitingCount int64     `json:"waiting_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}
