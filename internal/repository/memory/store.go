// Package memory provides in-memory repository implementations backed by a
// single mutex-guarded store. A transaction snapshots the store when it
// begins and restores the snapshot on rollback; the mutex is held for the
// life of the transaction, giving callers the same mutual exclusion the SQL
// implementations get from row locks. Used by service tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository"
)

type queueKey struct {
	hospitalID   uuid.UUID
	departmentID uuid.UUID
}

type state struct {
	queues       map[queueKey]*model.DepartmentQueue
	appointments map[uuid.UUID]*model.Appointment
	hospitals    map[uuid.UUID]*model.Hospital
	departments  map[queueKey]*model.Department
	events       []*model.OutboxEvent
	deadLetters  []*model.OutboxEvent
}

func newState() state {
	return state{
		queues:       make(map[queueKey]*model.DepartmentQueue),
		appointments: make(map[uuid.UUID]*model.Appointment),
		hospitals:    make(map[uuid.UUID]*model.Hospital),
		departments:  make(map[queueKey]*model.Department),
	}
}

func (s state) clone() state {
	cp := newState()
	for k, v := range s.queues {
		q := *v
		cp.queues[k] = &q
	}
	for k, v := range s.appointments {
		a := *v
		cp.appointments[k] = &a
	}
	for k, v := range s.hospitals {
		h := *v
		cp.hospitals[k] = &h
	}
	for k, v := range s.departments {
		d := *v
		cp.departments[k] = &d
	}
	cp.events = append(cp.events, s.events...)
	cp.deadLetters = append(cp.deadLetters, s.deadLetters...)
	return cp
}

type Store struct {
	mu sync.Mutex
	st state

	// FailAppointmentCreate, when set, makes appointment creation return the
	// given error. Exercises rollback paths.
	FailAppointmentCreate error
}

func NewStore() *Store {
	return &Store{st: newState()}
}

type memTx struct {
	store *Store
	saved state
	done  bool
}

func (s *Store) begin() repository.Tx {
	s.mu.Lock()
	return &memTx{store: s, saved: s.st.clone()}
}

func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.store.st = t.saved
	t.done = true
	t.store.mu.Unlock()
	return nil
}

// Events returns a copy of all staged outbox events.
func (s *Store) Events() []*model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.OutboxEvent, 0, len(s.st.events))
	for _, e := range s.st.events {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// EventsOfType filters Events by event type.
func (s *Store) EventsOfType(eventType string) []*model.OutboxEvent {
	var out []*model.OutboxEvent
	for _, e := range s.Events() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// DeadLetters returns a copy of the dead-letter queue.
func (s *Store) DeadLetters() []*model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.OutboxEvent, 0, len(s.st.deadLetters))
	for _, e := range s.st.deadLetters {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// SeedQueue installs a ledger row directly.
func (s *Store) SeedQueue(hospitalID, departmentID uuid.UUID, currentToken, totalIssued int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.queues[queueKey{hospitalID, departmentID}] = &model.DepartmentQueue{
		HospitalID:   hospitalID,
		DepartmentID: departmentID,
		CurrentToken: currentToken,
		TotalIssued:  totalIssued,
		UpdatedAt:    time.Now(),
	}
}

// SeedDepartment installs a department row directly.
func (s *Store) SeedDepartment(department *model.Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *department
	s.st.departments[queueKey{d.HospitalID, d.ID}] = &d
}
