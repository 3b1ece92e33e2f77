package model

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted through the outbox. Events are idempotent descriptions
// of current state, not deltas; subscribers must tolerate duplicates.
const (
	EventTypeTokenAdvanced     = "queue.token_advanced"
	EventTypeQueueReset        = "queue.reset"
	EventTypeAppointmentBooked = "appointment.booked"
	EventTypeStatusChanged     = "appointment.status_changed"
)

type QueueChangeEvent struct {
	HospitalID   uuid.UUID `json:"hospital_id"`
	DepartmentID uuid.UUID `json:"department_id"`
	CurrentToken int64     `json:"current_token"`
	Timestamp    time.Time `json:"timestamp"`
}

type AppointmentStatusEvent struct {
	AppointmentID uuid.UUID         `json:"appointment_id"`
	HospitalID    uuid.UUID         `json:"hospital_id"`
	DepartmentID  uuid.UUID         `json:"department_id"`
	TokenNumber   int64             `json:"token_number"`
	Status        AppointmentStatus `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
}
