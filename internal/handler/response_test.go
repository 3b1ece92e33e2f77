package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondError(c, err)
	return w
}

func TestRespondErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperrors.NotFound("appointment", nil), http.StatusNotFound},
		{"bad request", apperrors.BadRequest("bad input", nil), http.StatusBadRequest},
		{"unauthorized", apperrors.Unauthorized(nil), http.StatusForbidden},
		{"conflict", apperrors.Conflict("taken", nil), http.StatusConflict},
		{"invalid state", apperrors.InvalidState("terminal", nil), http.StatusUnprocessableEntity},
		{"storage unavailable", apperrors.StorageUnavailable(nil), http.StatusServiceUnavailable},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, respond(tt.err).Code)
		})
	}
}

func TestRespondErrorUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("failed to create outbox event: %w", apperrors.StorageUnavailable(errors.New("connection refused")))
	assert.Equal(t, http.StatusServiceUnavailable, respond(wrapped).Code)
}
