package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgac-unsa/sgac-api/internal/service"
	"github.com/sgac-unsa/sgac-api/pkg/response"
)

// SessionHandler exposes derived session calendars.
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// TheorySessions godoc
// @Summary List derived theory sessions of a course group
// @Description Sessions are generated from the weekly schedule over the semester span, numbered chronologically
// @Tags Sessions
// @Produce json
// @Param id path string true "Course group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/sessions [get]
func (h *SessionHandler) TheorySessions(c *gin.Context) {
	sessions, err := h.service.TheorySessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// LabSessions godoc
// @Summary List derived laboratory sessions of a lab group
// @Description Lab sessions start one offset after the semester start
// @Tags Sessions
// @Produce json
// @Param id path string true "Lab group ID"
// @Success 200 {object} response.Envelope
// @Router /lab-groups/{id}/sessions [get]
func (h *SessionHandler) LabSessions(c *gin.Context) {
	sessions, err := h.service.LabSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}
