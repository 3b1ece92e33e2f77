package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/visitq-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewBindingErrorResponse flattens binding failures into a field-by-field
// message instead of the raw validator string.
func NewBindingErrorResponse(err error) *Response {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewErrorResponse(err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return NewErrorResponse("validation failed: " + strings.Join(fields, ", "))
}

// RespondError maps the application error taxonomy onto HTTP statuses. The
// core never formats user-facing text; this is the translation boundary.
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Code {
		case apperrors.ErrNotFound:
			status = http.StatusNotFound
		case apperrors.ErrBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrUnauthorized:
			status = http.StatusForbidden
		case apperrors.ErrConflict:
			status = http.StatusConflict
		case apperrors.ErrInvalidState:
			status = http.StatusUnprocessableEntity
		case apperrors.ErrStorageUnavailable:
			status = http.StatusServiceUnavailable
		}
	}

	c.Error(err)
	c.JSON(status, NewErrorResponse(message))
}
