package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/service"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
	"github.com/sgac-unsa/sgac-api/pkg/response"
)

// GroupHandler exposes course group, lab group and schedule endpoints.
type GroupHandler struct {
	service *service.GroupService
}

// NewGroupHandler constructs a group handler.
func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{service: svc}
}

// ListCourseGroups godoc
// @Summary List course groups
// @Tags Groups
// @Produce json
// @Param semesterId query string false "Filter by semester"
// @Param courseId query string false "Filter by course"
// @Param professorId query string false "Filter by professor"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *GroupHandler) ListCourseGroups(c *gin.Context) {
	groups, err := h.service.ListCourseGroups(c.Request.Context(),
		c.Query("semesterId"), c.Query("courseId"), c.Query("professorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// GetCourseGroup godoc
// @Summary Get course group by id
// @Tags Groups
// @Produce json
// @Param id path string true "Course group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) GetCourseGroup(c *gin.Context) {
	group, err := h.service.GetCourseGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// CreateCourseGroup godoc
// @Summary Create course group
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body models.CreateCourseGroupInput true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /groups [post]
func (h *GroupHandler) CreateCourseGroup(c *gin.Context) {
	var req models.CreateCourseGroupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.service.CreateCourseGroup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// ListLabGroups godoc
// @Summary List laboratory groups of a course group
// @Tags Groups
// @Produce json
// @Param id path string true "Course group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/labs [get]
func (h *GroupHandler) ListLabGroups(c *gin.Context) {
	labs, err := h.service.ListLabGroups(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, labs, nil)
}

// CreateLabGroup godoc
// @Summary Create laboratory group
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body models.CreateLabGroupInput true "Lab group payload"
// @Success 201 {object} response.Envelope
// @Router /lab-groups [post]
func (h *GroupHandler) CreateLabGroup(c *gin.Context) {
	var req models.CreateLabGroupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lab, err := h.service.CreateLabGroup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lab)
}

// DeleteLabGroup godoc
// @Summary Delete laboratory group
// @Description Blocked while an enrollment campaign for the parent course group is open
// @Tags Groups
// @Param id path string true "Lab group ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /lab-groups/{id} [delete]
func (h *GroupHandler) DeleteLabGroup(c *gin.Context) {
	if err := h.service.DeleteLabGroup(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSchedules godoc
// @Summary List weekly schedules of a group
// @Tags Schedules
// @Produce json
// @Param kind query string true "Group kind (THEORY or LAB)"
// @Param groupId query string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *GroupHandler) ListSchedules(c *gin.Context) {
	kind := models.GroupKind(c.Query("kind"))
	schedules, err := h.service.ListSchedules(c.Request.Context(), kind, c.Query("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// CreateSchedule godoc
// @Summary Create weekly schedule slot
// @Description Rejects slots outside operating hours and slots colliding with the classroom or professor agenda
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body models.CreateScheduleInput true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules [post]
func (h *GroupHandler) CreateSchedule(c *gin.Context) {
	var req models.CreateScheduleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.CreateSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// ReplaceDaySchedules godoc
// @Summary Replace a group's slots for one day
// @Description Swaps every slot the group holds on the day for the provided set; an empty set clears the day
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body models.ReplaceDaySchedulesInput true "Day replacement payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/day [put]
func (h *GroupHandler) ReplaceDaySchedules(c *gin.Context) {
	var req models.ReplaceDaySchedulesInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedules, err := h.service.ReplaceDaySchedules(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// CheckSlot godoc
// @Summary Preview schedule conflicts without persisting
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body models.CreateScheduleInput true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/check [post]
func (h *GroupHandler) CheckSlot(c *gin.Context) {
	var req models.CreateScheduleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	conflicts, err := h.service.CheckSlot(c.Request.Context(), req, c.Query("excludeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"hasConflicts": len(conflicts) > 0,
		"conflicts":    conflicts,
	}, nil)
}

// DeleteSchedule godoc
// @Summary Delete schedule slot
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *GroupHandler) DeleteSchedule(c *gin.Context) {
	if err := h.service.DeleteSchedule(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
