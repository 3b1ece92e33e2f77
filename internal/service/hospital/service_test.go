package hospital_test

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
	"github.com/jwalitptl/visitq-api/internal/service/hospital"
	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
)

func newServices(store *memory.Store) (*hospital.Service, *booking.Service) {
	queueRepo := memory.NewQueueRepository(store)
	apptRepo := memory.NewAppointmentRepository(store)
	hospitalRepo := memory.NewHospitalRepository(store)
	events := event.NewService(memory.NewOutboxRepository(store))

	hospitalSvc := hospital.NewService(hospitalRepo, queueRepo, apptRepo, nil)
	bookingSvc := booking.NewService(queueRepo, apptRepo, hospitalRepo, events, nil, nil, booking.Config{})
	return hospitalSvc, bookingSvc
}

func TestRegisterDepartmentCreatesLedgerRow(t *testing.T) {
	store := memory.NewStore()
	svc, bookingSvc := newServices(store)

	h, err := svc.RegisterHospital(context.Background(), &model.CreateHospitalRequest{Name: "City General"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, h.ID)

	department, err := svc.RegisterDepartment(context.Background(), h.ID, &model.CreateDepartmentRequest{
		Name:                 "Orthopedics",
		AvgMinutesPerPatient: 15,
	})
	require.NoError(t, err)

	// Booking without auto-create works only if registration seeded the
	// ledger row.
	appointment, err := bookingSvc.BookAppointment(context.Background(), &model.BookAppointmentRequest{
		HospitalID:   h.ID,
		DepartmentID: department.ID,
		PatientID:    uuid.New(),
		PatientName:  "Nitin Shah",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), appointment.TokenNumber)
}

func TestRegisterDepartmentUnknownHospital(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newServices(store)

	_, err := svc.RegisterDepartment(context.Background(), uuid.New(), &model.CreateDepartmentRequest{Name: "ENT"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestListDepartments(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newServices(store)

	h, err := svc.RegisterHospital(context.Background(), &model.CreateHospitalRequest{Name: "City General"})
	require.NoError(t, err)
	for _, name := range []string{"Cardiology", "Dermatology"} {
		_, err := svc.RegisterDepartment(context.Background(), h.ID, &model.CreateDepartmentRequest{Name: name})
		require.NoError(t, err)
	}

	departments, err := svc.ListDepartments(context.Background(), h.ID)
	require.NoError(t, err)
	require.Len(t, departments, 2)
	assert.Equal(t, "Cardiology", departments[0].Name)
}

func TestDeleteDepartmentRefusedWhileActive(t *testing.T) {
	store := memory.NewStore()
	svc, bookingSvc := newServices(store)

	h, err := svc.RegisterHospital(context.Background(), &model.CreateHospitalRequest{Name: "City General"})
	require.NoError(t, err)
	department, err := svc.RegisterDepartment(context.Background(), h.ID, &model.CreateDepartmentRequest{Name: "ENT"})
	require.NoError(t, err)

	_, err = bookingSvc.BookAppointment(context.Background(), &model.BookAppointmentRequest{
		HospitalID:   h.ID,
		DepartmentID: department.ID,
		PatientID:    uuid.New(),
		PatientName:  "Priya Nair",
	})
	require.NoError(t, err)

	err = svc.DeleteDepartment(context.Background(), h.ID, department.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestDeleteDepartmentWithoutActiveAppointments(t *testing.T) {
	store := memory.NewStore()
	svc, _ := newServices(store)

	h, err := svc.RegisterHospital(context.Background(), &model.CreateHospitalRequest{Name: "City General"})
	require.NoError(t, err)
	department, err := svc.RegisterDepartment(context.Background(), h.ID, &model.CreateDepartmentRequest{Name: "ENT"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDepartment(context.Background(), h.ID, department.ID))

	departments, err := svc.ListDepartments(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Empty(t, departments)
}
