package queue

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/visitq-api/internal/handler"
	"github.com/jwalitptl/visitq-api/internal/middleware"
	"github.com/jwalitptl/visitq-api/internal/service/queue"
)

type Handler struct {
	service *queue.Service
}

func NewHandler(service *queue.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) AdvanceQueue(c *gin.Context) {
	hospitalID, departmentID, ok := parseQueueParams(c)
	if !ok {
		return
	}

	current, err := h.service.AdvanceQueue(c.Request.Context(), hospitalID, departmentID, middleware.ClaimsFromContext(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"current_token": current}))
}

func (h *Handler) ResetQueue(c *gin.Context) {
	hospitalID, departmentID, ok := parseQueueParams(c)
	if !ok {
		return
	}

	if err := h.service.ResetQueue(c.Request.Context(), hospitalID, departmentID, middleware.ClaimsFromContext(c)); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) GetSnapshot(c *gin.Context) {
	hospitalID, departmentID, ok := parseQueueParams(c)
	if !ok {
		return
	}

	snapshot, err := h.service.GetSnapshot(c.Request.Context(), hospitalID, departmentID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(snapshot))
}

// RegisterRoutes mounts the read-only snapshot endpoint; mutating endpoints
// go through RegisterAdminRoutes behind authentication.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/hospitals/:hospital_id/departments/:department_id/queue", h.GetSnapshot)
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/hospitals/:hospital_id/departments/:department_id/queue/advance", h.AdvanceQueue)
	r.POST("/hospitals/:hospital_id/departments/:department_id/queue/reset", h.ResetQueue)
}

func parseQueueParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	hospitalID, err := uuid.Parse(c.Param("hospital_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid hospital ID"))
		return uuid.Nil, uuid.Nil, false
	}
	departmentID, err := uuid.Parse(c.Param("department_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid department ID"))
		return uuid.Nil, uuid.Nil, false
	}
	return hospitalID, departmentID, true
}
