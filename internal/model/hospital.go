package model

import (
	"time"

	"github.com/google/uuid"
)

type Hospital struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Department struct {
	ID         uuid.UUID `db:"id" json:"id"`
	HospitalID uuid.UUID `db:"hospital_id" json:"hospital_id"`
	Name       string    `db:"name" json:"name"`
	// AvgMinutesPerPatient feeds the wait-time estimator; advisory only.
	AvgMinutesPerPatient int       `db:"avg_minutes_per_patient" json:"avg_minutes_per_patient"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

type CreateHospitalRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

type CreateDepartmentRequest struct {
	Name                 string `json:"name" binding:"required,max=200"`
	AvgMinutesPerPatient int    `json:"avg_minutes_per_patient" binding:"omitempty,min=1,max=240"`
}
