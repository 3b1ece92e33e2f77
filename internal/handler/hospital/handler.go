package hospital

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/visitq-api/internal/handler"
	"github.com/jwalitptl/visitq-api/internal/middleware"
	"github.com/jwalitptl/visitq-api/internal/model"
	"github.com/jwalitptl/visitq-api/internal/service/hospital"
)

type Handler struct {
	service *hospital.Service
}

func NewHandler(service *hospital.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateHospital(c *gin.Context) {
	var req model.CreateHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewBindingErrorResponse(err))
		return
	}

	created, err := h.service.RegisterHospital(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) CreateDepartment(c *gin.Context) {
	hospitalID, ok := h.parseHospitalID(c)
	if !ok {
		return
	}
	if !h.requireAdmin(c, hospitalID) {
		return
	}

	var req model.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewBindingErrorResponse(err))
		return
	}

	department, err := h.service.RegisterDepartment(c.Request.Context(), hospitalID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(department))
}

func (h *Handler) ListDepartments(c *gin.Context) {
	hospitalID, ok := h.parseHospitalID(c)
	if !ok {
		return
	}

	departments, err := h.service.ListDepartments(c.Request.Context(), hospitalID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(departments))
}

func (h *Handler) DeleteDepartment(c *gin.Context) {
	hospitalID, ok := h.parseHospitalID(c)
	if !ok {
		return
	}
	if !h.requireAdmin(c, hospitalID) {
		return
	}

	departmentID, err := uuid.Parse(c.Param("department_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid department ID"))
		return
	}

	if err := h.service.DeleteDepartment(c.Request.Context(), hospitalID, departmentID); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/hospitals/:hospital_id/departments", h.ListDepartments)
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/hospitals", h.CreateHospital)
	r.POST("/hospitals/:hospital_id/departments", h.CreateDepartment)
	r.DELETE("/hospitals/:hospital_id/departments/:department_id", h.DeleteDepartment)
}

func (h *Handler) parseHospitalID(c *gin.Context) (uuid.UUID, bool) {
	hospitalID, err := uuid.Parse(c.Param("hospital_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid hospital ID"))
		return uuid.Nil, false
	}
	return hospitalID, true
}

func (h *Handler) requireAdmin(c *gin.Context, hospitalID uuid.UUID) bool {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil || !claims.AdminOf(hospitalID) {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("caller does not administer this hospital"))
		return false
	}
	return true
}
