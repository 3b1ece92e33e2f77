package booking_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingHandler "github.com/jwalitptl/visitq-api/internal/handler/booking"
	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/repository/memory"
	"github.com/jwalitptl/visitq-api/internal/service/booking"
	"github.com/jwalitptl/visitq-api/internal/service/event"
)

func setupRouter(store *memory.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := booking.NewService(
		memory.NewQueueRepository(store),
		memory.NewAppointmentRepository(store),
		memory.NewHospitalRepository(store),
		event.NewService(memory.NewOutboxRepository(store)),
		nil, nil,
		booking.Config{AutoCreateDepartments: true},
	)
	engine := gin.New()
	bookingHandler.NewHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestBookAppointmentEndpoint(t *testing.T) {
	engine := setupRouter(memory.NewStore())

	w := postJSON(t, engine, "/api/v1/appointments", model.BookAppointmentRequest{
		HospitalID:   uuid.New(),
		DepartmentID: uuid.New(),
		PatientID:    uuid.New(),
		PatientName:  "Kiran Desai",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Status string            `json:"status"`
		Data   model.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, int64(1), resp.Data.TokenNumber)
	assert.Equal(t, model.AppointmentStatusWaiting, resp.Data.Status)
}

func TestBookAppointmentEndpointValidation(t *testing.T) {
	engine := setupRouter(memory.NewStore())

	// Missing patient name fails binding.
	w := postJSON(t, engine, "/api/v1/appointments", map[string]interface{}{
		"hospital_id":   uuid.New(),
		"department_id": uuid.New(),
		"patient_id":    uuid.New(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAppointmentEndpoint(t *testing.T) {
	store := memory.NewStore()
	engine := setupRouter(store)

	w := postJSON(t, engine, "/api/v1/appointments", model.BookAppointmentRequest{
		HospitalID:   uuid.New(),
		DepartmentID: uuid.New(),
		PatientID:    uuid.New(),
		PatientName:  "Kiran Desai",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data model.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	get := httptest.NewRecorder()
	engine.ServeHTTP(get, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/appointments/%s", created.Data.ID), nil))
	assert.Equal(t, http.StatusOK, get.Code)
}

func TestGetAppointmentEndpointNotFound(t *testing.T) {
	engine := setupRouter(memory.NewStore())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/appointments/%s", uuid.New()), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAppointmentEndpointBadID(t *testing.T) {
	engine := setupRouter(memory.NewStore())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/appointments/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
