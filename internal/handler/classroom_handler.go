package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/service"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
	"github.com/sgac-unsa/sgac-api/pkg/response"
)

// ClassroomHandler exposes classroom endpoints.
type ClassroomHandler struct {
	service *service.ClassroomService
}

// NewClassroomHandler constructs a classroom handler.
func NewClassroomHandler(svc *service.ClassroomService) *ClassroomHandler {
	return &ClassroomHandler{service: svc}
}

// List godoc
// @Summary List classrooms
// @Tags Classrooms
// @Produce json
// @Param type query string false "Filter by room type (REGULAR or LABORATORY)"
// @Param building query string false "Filter by building"
// @Param minSeats query int false "Minimum seat count"
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	minSeats, _ := strconv.Atoi(c.Query("minSeats"))
	filter := models.ClassroomFilter{
		Type:     models.ClassroomType(c.Query("type")),
		Building: c.Query("building"),
		MinSeats: minSeats,
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}
	rooms, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Available godoc
// @Summary Find available classrooms for a slot
// @Description Rooms free of weekly schedules for the slot, and of approved reservations when a date is given
// @Tags Classrooms
// @Produce json
// @Param type query string true "Room type (REGULAR or LABORATORY)"
// @Param day query string true "Day of week (MONDAY..SATURDAY)"
// @Param startTime query string true "Slot start (HH:MM)"
// @Param endTime query string true "Slot end (HH:MM)"
// @Param minSeats query int false "Minimum seat count"
// @Param date query string false "Concrete date (YYYY-MM-DD) to also exclude reserved rooms"
// @Success 200 {object} response.Envelope
// @Router /classrooms/available [get]
func (h *ClassroomHandler) Available(c *gin.Context) {
	start, err := models.ParseTimeOfDay(c.Query("startTime"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid startTime"))
		return
	}
	end, err := models.ParseTimeOfDay(c.Query("endTime"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid endTime"))
		return
	}
	minSeats, _ := strconv.Atoi(c.Query("minSeats"))

	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
			return
		}
		date = &parsed
	}

	rooms, err := h.service.Available(c.Request.Context(),
		models.ClassroomType(c.Query("type")), minSeats,
		models.DayOfWeek(c.Query("day")), start, end, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Get godoc
// @Summary Get classroom by id
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [get]
func (h *ClassroomHandler) Get(c *gin.Context) {
	room, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Create godoc
// @Summary Create classroom
// @Description The room code is generated from the room type sequence
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param payload body models.CreateClassroomInput true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	var req models.CreateClassroomInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// Update godoc
// @Summary Update classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body models.UpdateClassroomInput true "Classroom payload"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [put]
func (h *ClassroomHandler) Update(c *gin.Context) {
	var req models.UpdateClassroomInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}
