package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/service"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
	"github.com/sgac-unsa/sgac-api/pkg/response"
)

// ReservationHandler exposes classroom reservation endpoints.
type ReservationHandler struct {
	service *service.ReservationService
}

// NewReservationHandler constructs a reservation handler.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: svc}
}

// Create godoc
// @Summary Request a classroom reservation
// @Description All rule violations are reported together in a single response
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body models.CreateReservationInput true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	var req models.CreateReservationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	reservation, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reservation)
}

// List godoc
// @Summary List reservations
// @Tags Reservations
// @Produce json
// @Param classroomId query string false "Filter by classroom"
// @Param requestedBy query string false "Filter by requester"
// @Param status query string false "Filter by status"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	filter := models.ReservationFilter{
		ClassroomID: c.Query("classroomId"),
		RequestedBy: c.Query("requestedBy"),
		Status:      models.ReservationStatus(c.Query("status")),
	}
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD"))
			return
		}
		filter.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD"))
			return
		}
		filter.To = &parsed
	}

	reservations, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservations, nil)
}

// Mine godoc
// @Summary List reservations requested by the authenticated user
// @Tags Reservations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reservations/mine [get]
func (h *ReservationHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	reservations, err := h.service.List(c.Request.Context(), models.ReservationFilter{RequestedBy: claims.UserID})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservations, nil)
}

// Approve godoc
// @Summary Approve a pending reservation
// @Description Re-checks room availability before approving
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations/{id}/approve [post]
func (h *ReservationHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	reservation, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation, nil)
}

// Reject godoc
// @Summary Reject a pending reservation
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Router /reservations/{id}/reject [post]
func (h *ReservationHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	reservation, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation, nil)
}

// Cancel godoc
// @Summary Cancel an own reservation
// @Tags Reservations
// @Param id path string true "Reservation ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
