package queue_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository/memory"
	"github.com/jwalitptl/visitq-api/internal/service/booking"
	"github.com/jwalitptl/visitq-api/internal/service/event"
	"github.com/jwalitptl/visitq-api/internal/service/queue"
	"github.com/jwalitptl/visitq-api/pkg/auth"
	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
)

type fixture struct {
	store    *memory.Store
	queue    *queue.Service
	booking  *booking.Service
	hospital uuid.UUID
	dept     uuid.UUID
	admin    *auth.Claims
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	queueRepo := memory.NewQueueRepository(store)
	apptRepo := memory.NewAppointmentRepository(store)
	events := event.NewService(memory.NewOutboxRepository(store))

	hospitalID := uuid.New()
	return &fixture{
		store:    store,
		queue:    queue.NewService(queueRepo, apptRepo, events, nil, nil, queue.Config{}),
		booking:  booking.NewService(queueRepo, apptRepo, memory.NewHospitalRepository(store), events, nil, nil, booking.Config{AutoCreateDepartments: true}),
		hospital: hospitalID,
		dept:     uuid.New(),
		admin: &auth.Claims{
			StaffID:     uuid.New(),
			HospitalIDs: []uuid.UUID{hospitalID},
		},
	}
}

func (f *fixture) book(t *testing.T) *model.Appointment {
	t.Helper()
	appointment, err := f.booking.BookAppointment(context.Background(), &model.BookAppointmentRequest{
		HospitalID:   f.hospital,
		DepartmentID: f.dept,
		PatientID:    uuid.New(),
		PatientName:  "Ravi Menon",
	})
	require.NoError(t, err)
	return appointment
}

func (f *fixture) appointmentStatus(t *testing.T, id uuid.UUID) model.AppointmentStatus {
	t.Helper()
	appointment, err := f.booking.GetAppointment(context.Background(), id)
	require.NoError(t, err)
	return appointment.Status
}

func TestAdvanceQueueMarksCalledTokenReady(t *testing.T) {
	f := newFixture(t)
	first := f.book(t)
	second := f.book(t)

	current, err := f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, f.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)
	assert.Equal(t, model.AppointmentStatusReady, f.appointmentStatus(t, first.ID))
	assert.Equal(t, model.AppointmentStatusWaiting, f.appointmentStatus(t, second.ID))
}

func TestAdvanceQueueCompletesPreviouslyReady(t *testing.T) {
	f := newFixture(t)
	first := f.book(t)
	second := f.book(t)

	_, err := f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, f.admin)
	require.NoError(t, err)
	current, err := f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, f.admin)
	require.NoError(t, err)

	assert.Equal(t, int64(2), current)
	assert.Equal(t, model.AppointmentStatusCompleted, f.appointmentStatus(t, first.ID))
	assert.Equal(t, model.AppointmentStatusReady, f.appointmentStatus(t, second.ID))
}

func TestAdvanceQueueToleratesEmptyQueue(t *testing.T) {
	f := newFixture(t)
	f.book(t)

	// Two advances past a single booking: the counter keeps moving even when
	// no appointment holds the called token.
	for want := int64(1); want <= 3; want++ {
		current, err := f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, f.admin)
		require.NoError(t, err)
		assert.Equal(t, want, current)
	}

	advances := f.store.EventsOfType(model.EventTypeTokenAdvanced)
	assert.Len(t, advances, 3)
}

func TestAdvanceQueueUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.book(t)

	otherAdmin := &auth.Claims{StaffID: uuid.New(), HospitalIDs: []uuid.UUID{uuid.New()}}
	for _, actor := range []*auth.Claims{nil, otherAdmin} {
		_, err := f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, actor)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
	}

	snapshot, err := f.queue.GetSnapshot(context.Background(), f.hospital, f.dept)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.CurrentToken, "denied advance must not move the counter")
}

func TestAdvanceQueueUnknownDepartment(t *testing.T) {
	f := newFixture(t)

	_, err := f.queue.AdvanceQueue(context.Background(), f.hospital, uuid.New(), f.admin)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestResetQueueCancelsWaitingOnly(t *testing.T) {
	f := newFixture(t)
	served := f.book(t)
	var waiting []*model.Appointment
	for i := 0; i < 3; i++ {
		waiting = append(waiting, f.book(t))
	}

	_, err := f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, f.admin)
	require.NoError(t, err)
	require.NoError(t, f.queue.ResetQueue(context.Background(), f.hospital, f.dept, f.admin))

	assert.Equal(t, model.AppointmentStatusReady, f.appointmentStatus(t, served.ID))
	for _, appointment := range waiting {
		assert.Equal(t, model.AppointmentStatusCancelled, f.appointmentStatus(t, appointment.ID))
	}

	snapshot, err := f.queue.GetSnapshot(context.Background(), f.hospital, f.dept)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.CurrentToken)
	assert.Equal(t, int64(0), snapshot.TotalIssued)
	assert.Equal(t, int64(0), snapshot.WaitingCount)
}

func TestResetQueueEmitsStatusChanges(t *testing.T) {
	f := newFixture(t)
	f.book(t)
	f.book(t)

	require.NoError(t, f.queue.ResetQueue(context.Background(), f.hospital, f.dept, f.admin))

	assert.Len(t, f.store.EventsOfType(model.EventTypeQueueReset), 1)
	changes := f.store.EventsOfType(model.EventTypeStatusChanged)
	assert.Len(t, changes, 2)
	for _, change := range changes {
		assert.Contains(t, string(change.Payload), string(model.AppointmentStatusCancelled))
	}
}

func TestResetQueueUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.book(t)

	err := f.queue.ResetQueue(context.Background(), f.hospital, f.dept, nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
	assert.Equal(t, model.AppointmentStatusWaiting, f.appointmentStatus(t, f.book(t).ID))
}

func TestDepartmentsAdvanceIndependently(t *testing.T) {
	f := newFixture(t)
	otherDept := uuid.New()
	f.book(t)
	_, err := f.booking.BookAppointment(context.Background(), &model.BookAppointmentRequest{
		HospitalID:   f.hospital,
		DepartmentID: otherDept,
		PatientID:    uuid.New(),
		PatientName:  "Meera Iyer",
	})
	require.NoError(t, err)

	current, err := f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, f.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)

	snapshot, err := f.queue.GetSnapshot(context.Background(), f.hospital, otherDept)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.CurrentToken, "advancing one department must not touch another")
	assert.Equal(t, int64(1), snapshot.TotalIssued)
}

func TestBookingAfterResetSkipsHeldTokens(t *testing.T) {
	f := newFixture(t)
	served := f.book(t)
	require.Equal(t, int64(1), served.TokenNumber)

	// Serve token 1 to completion, then reset.
	_, err := f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, f.admin)
	require.NoError(t, err)
	_, err = f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, f.admin)
	require.NoError(t, err)
	require.Equal(t, model.AppointmentStatusCompleted, f.appointmentStatus(t, served.ID))
	require.NoError(t, f.queue.ResetQueue(context.Background(), f.hospital, f.dept, f.admin))

	// The restarted counter must not hand out token 1 again while the
	// completed appointment still holds it.
	rebooked := f.book(t)
	assert.Equal(t, int64(2), rebooked.TokenNumber)
	assert.NotEqual(t, served.TokenNumber, rebooked.TokenNumber)
	assert.Equal(t, model.AppointmentStatusWaiting, f.appointmentStatus(t, rebooked.ID))
}

func TestBookingAfterResetReusesCancelledTokens(t *testing.T) {
	f := newFixture(t)
	ready := f.book(t)
	cancelled := f.book(t)

	_, err := f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, f.admin)
	require.NoError(t, err)
	require.NoError(t, f.queue.ResetQueue(context.Background(), f.hospital, f.dept, f.admin))
	require.Equal(t, model.AppointmentStatusReady, f.appointmentStatus(t, ready.ID))
	require.Equal(t, model.AppointmentStatusCancelled, f.appointmentStatus(t, cancelled.ID))

	// Token 1 is still held by the ready appointment and must be skipped;
	// token 2 belonged to a cancelled appointment and may recur.
	rebooked := f.book(t)
	assert.Equal(t, int64(2), rebooked.TokenNumber)
}

func TestGetSnapshotCounts(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.book(t)
	}
	_, err := f.queue.AdvanceQueue(context.Background(), f.hospital, f.dept, f.admin)
	require.NoError(t, err)

	snapshot, err := f.queue.GetSnapshot(context.Background(), f.hospital, f.dept)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.CurrentToken)
	assert.Equal(t, int64(3), snapshot.TotalIssued)
	assert.Equal(t, int64(2), snapshot.WaitingCount)
}
