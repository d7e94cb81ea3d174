package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/service"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
	"github.com/sgac-unsa/sgac-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Save godoc
// @Summary Record attendance marks for a session
// @Description Upserts the whole sheet and refreshes cached attendance percentages
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Course group ID"
// @Param payload body models.SaveAttendanceInput true "Attendance sheet"
// @Success 204
// @Router /groups/{id}/attendance [post]
func (h *AttendanceHandler) Save(c *gin.Context) {
	var req models.SaveAttendanceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Save(c.Request.Context(), c.Param("id"), claims.UserID, c.ClientIP(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SessionSheet godoc
// @Summary Attendance sheet of a session
// @Tags Attendance
// @Produce json
// @Param id path string true "Course group ID"
// @Param session path int true "Session number"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/attendance/{session} [get]
func (h *AttendanceHandler) SessionSheet(c *gin.Context) {
	sessionNumber, err := strconv.Atoi(c.Param("session"))
	if err != nil || sessionNumber < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid session number"))
		return
	}
	sheet, err := h.service.SessionSheet(c.Request.Context(), c.Param("id"), sessionNumber)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Recalculate godoc
// @Summary Recompute an enrollment's cached attendance percentage
// @Tags Attendance
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id}/attendance/recalculate [post]
func (h *AttendanceHandler) Recalculate(c *gin.Context) {
	if err := h.service.Recalculate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentHistory godoc
// @Summary Attendance history of an enrollment
// @Tags Attendance
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/attendance [get]
func (h *AttendanceHandler) StudentHistory(c *gin.Context) {
	history, err := h.service.StudentHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
