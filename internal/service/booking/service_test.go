package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository/memory"
	"github.com/jwalitptl/visitq-api/internal/service/booking"
	"github.com/jwalitptl/visitq-api/internal/service/event"
	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
)

func newService(store *memory.Store, cfg booking.Config) *booking.Service {
	return booking.NewService(
		memory.NewQueueRepository(store),
		memory.NewAppointmentRepository(store),
		memory.NewHospitalRepository(store),
		event.NewService(memory.NewOutboxRepository(store)),
		nil, nil, cfg,
	)
}

func bookRequest(hospitalID, departmentID uuid.UUID) *model.BookAppointmentRequest {
	return &model.BookAppointmentRequest{
		HospitalID:   hospitalID,
		DepartmentID: departmentID,
		PatientID:    uuid.New(),
		PatientName:  "Asha Rao",
	}
}

func TestBookAppointmentAssignsSequentialTokens(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, booking.Config{AutoCreateDepartments: true})
	hospitalID, departmentID := uuid.New(), uuid.New()

	for want := int64(1); want <= 5; want++ {
		appointment, err := svc.BookAppointment(context.Background(), bookRequest(hospitalID, departmentID))
		require.NoError(t, err)
		assert.Equal(t, want, appointment.TokenNumber)
		assert.Equal(t, model.AppointmentStatusWaiting, appointment.Status)
		assert.NotEqual(t, uuid.Nil, appointment.ID)
	}
}

func TestBookAppointmentConcurrentTokensUnique(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, booking.Config{AutoCreateDepartments: true})
	hospitalID, departmentID := uuid.New(), uuid.New()

	const n = 1000
	tokens := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			appointment, err := svc.BookAppointment(context.Background(), bookRequest(hospitalID, departmentID))
			if assert.NoError(t, err) {
				tokens <- appointment.TokenNumber
			}
		}()
	}
	wg.Wait()
	close(tokens)

	seen := make(map[int64]bool)
	for token := range tokens {
		assert.False(t, seen[token], "token %d issued twice", token)
		seen[token] = true
	}
	// No gaps: exactly 1..n issued.
	assert.Len(t, seen, n)
	for want := int64(1); want <= n; want++ {
		assert.True(t, seen[want], "token %d missing", want)
	}
}

func TestBookAppointmentFailureDoesNotBurnToken(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, booking.Config{AutoCreateDepartments: true})
	hospitalID, departmentID := uuid.New(), uuid.New()

	store.FailAppointmentCreate = errors.New("insert failed")
	_, err := svc.BookAppointment(context.Background(), bookRequest(hospitalID, departmentID))
	require.Error(t, err)
	assert.Empty(t, store.Events(), "no event may survive a rolled-back booking")

	store.FailAppointmentCreate = nil
	appointment, err := svc.BookAppointment(context.Background(), bookRequest(hospitalID, departmentID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), appointment.TokenNumber, "rolled-back issuance must not consume a token")
	assert.Len(t, store.EventsOfType(model.EventTypeAppointmentBooked), 1)
}

func TestBookAppointmentUnknownDepartment(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, booking.Config{AutoCreateDepartments: false})

	_, err := svc.BookAppointment(context.Background(), bookRequest(uuid.New(), uuid.New()))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestBookAppointmentStagesBookedEvent(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, booking.Config{AutoCreateDepartments: true})
	hospitalID, departmentID := uuid.New(), uuid.New()

	appointment, err := svc.BookAppointment(context.Background(), bookRequest(hospitalID, departmentID))
	require.NoError(t, err)

	events := store.EventsOfType(model.EventTypeAppointmentBooked)
	require.Len(t, events, 1)
	assert.Contains(t, string(events[0].Payload), appointment.ID.String())
}

func TestGetPosition(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, booking.Config{AutoCreateDepartments: true, DefaultAvgMinutes: 10})
	hospitalID, departmentID := uuid.New(), uuid.New()

	var appointments []*model.Appointment
	for i := 0; i < 3; i++ {
		appointment, err := svc.BookAppointment(context.Background(), bookRequest(hospitalID, departmentID))
		require.NoError(t, err)
		appointments = append(appointments, appointment)
	}

	position, err := svc.GetPosition(context.Background(), appointments[2].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), position.Position)
	assert.Equal(t, int64(30), position.EstimatedWaitMinutes)
	assert.Equal(t, int64(0), position.CurrentToken)
}

func TestGetPositionUsesDepartmentPace(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, booking.Config{AutoCreateDepartments: true, DefaultAvgMinutes: 10})
	hospitalID := uuid.New()
	department := &model.Department{ID: uuid.New(), HospitalID: hospitalID, Name: "Cardiology", AvgMinutesPerPatient: 25}
	store.SeedDepartment(department)

	appointment, err := svc.BookAppointment(context.Background(), bookRequest(hospitalID, department.ID))
	require.NoError(t, err)

	position, err := svc.GetPosition(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), position.Position)
	assert.Equal(t, int64(25), position.EstimatedWaitMinutes)
}

func TestGetPositionUnknownAppointment(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, booking.Config{})

	_, err := svc.GetPosition(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestListByPatientCapped(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, booking.Config{AutoCreateDepartments: true, HistoryLimit: 2})
	hospitalID, departmentID := uuid.New(), uuid.New()

	patientID := uuid.New()
	for i := 0; i < 4; i++ {
		req := bookRequest(hospitalID, departmentID)
		req.PatientID = patientID
		_, err := svc.BookAppointment(context.Background(), req)
		require.NoError(t, err)
	}

	appointments, err := svc.ListByPatient(context.Background(), patientID)
	require.NoError(t, err)
	assert.Len(t, appointments, 2)
}
