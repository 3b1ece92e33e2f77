package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/visitq-api/internal/repository"
)

type queueRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	BaseRepository
}

type hospitalRepository struct {
	BaseRepository
}

type outboxRepository struct {
	BaseRepository
}

func NewQueueRepository(db *sqlx.DB) repository.QueueRepository {
	return &queueRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewHospitalRepository(db *sqlx.DB) repository.HospitalRepository {
	return &hospitalRepository{NewBaseRepository(db)}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}
