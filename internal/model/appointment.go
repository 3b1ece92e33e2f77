package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusWaiting   AppointmentStatus = "waiting"
	AppointmentStatusReady     AppointmentStatus = "ready"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

type Appointment struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	HospitalID   uuid.UUID         `db:"hospital_id" json:"hospital_id"`
	DepartmentID uuid.UUID         `db:"department_id" json:"department_id"`
	PatientID    uuid.UUID         `db:"patient_id" json:"patient_id"`
	PatientName  string            `db:"patient_name" json:"patient_name"`
	ContactPhone string            `db:"contact_phone" json:"contact_phone,omitempty"`
	ContactEmail string            `db:"contact_email" json:"contact_email,omitempty"`
	TokenNumber  int64             `db:"token_number" json:"token_number"`
	Status       AppointmentStatus `db:"status" json:"status"`
	// EstimatedTime is computed once at booking and never refreshed.
	// Position and wait are recomputed on demand instead.
	EstimatedTime time.Time `db:"estimated_time" json:"estimated_time"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type BookAppointmentRequest struct {
	HospitalID   uuid.UUID `json:"hospital_id" binding:"required"`
	DepartmentID uuid.UUID `json:"department_id" binding:"required"`
	PatientID    uuid.UUID `json:"patient_id" binding:"required"`
	PatientName  string    `json:"patient_name" binding:"required,max=200"`
	ContactPhone string    `json:"contact_phone" binding:"omitempty,max=30"`
	ContactEmail string    `json:"contact_email" binding:"omitempty,email"`
}

// PositionResponse is the on-demand view of an appointment's place in line.
type PositionResponse struct {
	AppointmentID        uuid.UUID         `json:"appointment_id"`
	TokenNumber          int64             `json:"token_number"`
	CurrentToken         int64             `json:"current_token"`
	Position             int64             `json:"position"`
	EstimatedWaitMinutes int64             `json:"estimated_wait_minutes"`
	Status               AppointmentStatus `json:"status"`
}
