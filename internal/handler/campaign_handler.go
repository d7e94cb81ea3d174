package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/service"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
	"github.com/sgac-unsa/sgac-api/pkg/jobs"
	"github.com/sgac-unsa/sgac-api/pkg/response"
)

// CampaignHandler exposes laboratory enrollment campaign endpoints.
type CampaignHandler struct {
	service     *service.CampaignService
	assignQueue *jobs.Queue
}

// NewCampaignHandler constructs a campaign handler. The queue may be nil,
// in which case direct assignment always runs inline.
func NewCampaignHandler(svc *service.CampaignService, assignQueue *jobs.Queue) *CampaignHandler {
	return &CampaignHandler{service: svc, assignQueue: assignQueue}
}

// CanEnable godoc
// @Summary Check whether a campaign can be enabled for a course group
// @Description Reports lab capacity against active enrollment
// @Tags Campaigns
// @Produce json
// @Param id path string true "Course group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/campaigns/can-enable [get]
func (h *CampaignHandler) CanEnable(c *gin.Context) {
	check, err := h.service.CanEnable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}

// Enable godoc
// @Summary Open a lab enrollment campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param payload body models.EnableCampaignInput true "Campaign payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /campaigns [post]
func (h *CampaignHandler) Enable(c *gin.Context) {
	var req models.EnableCampaignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	campaign, err := h.service.Enable(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, campaign)
}

// ListByCourseGroup godoc
// @Summary List campaigns of a course group
// @Tags Campaigns
// @Produce json
// @Param id path string true "Course group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/campaigns [get]
func (h *CampaignHandler) ListByCourseGroup(c *gin.Context) {
	campaigns, err := h.service.ListByCourseGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaigns, nil)
}

// Status godoc
// @Summary Campaign status with per-lab occupancy
// @Description Cached briefly to absorb student polling during open campaigns
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/status [get]
func (h *CampaignHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Postulate godoc
// @Summary Postulate the authenticated student to a lab group
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign ID"
// @Param payload body models.PostulateInput true "Postulation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /campaigns/{id}/postulations [post]
func (h *CampaignHandler) Postulate(c *gin.Context) {
	var req models.PostulateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	postulation, err := h.service.Postulate(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, postulation)
}

// ListPostulations godoc
// @Summary List postulations of a campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/postulations [get]
func (h *CampaignHandler) ListPostulations(c *gin.Context) {
	postulations, err := h.service.ListPostulations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, postulations, nil)
}

// ListAssignments godoc
// @Summary List resolved lab seats of a campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/assignments [get]
func (h *CampaignHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.service.ListAssignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Close godoc
// @Summary Close an open campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} response.Envelope
// @Router /campaigns/{id}/close [post]
func (h *CampaignHandler) Close(c *gin.Context) {
	campaign, err := h.service.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campaign, nil)
}

// AssignDirect godoc
// @Summary Assign enrolled students to lab groups without postulation
// @Description With async=true the batch is queued and processed by the assignment workers
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Param async query bool false "Run the batch in the background"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /campaigns/{id}/assign [post]
func (h *CampaignHandler) AssignDirect(c *gin.Context) {
	campaignID := c.Param("id")

	if c.Query("async") == "true" && h.assignQueue != nil {
		job := jobs.Job{
			ID:       uuid.NewString(),
			Type:     "campaign.assign_direct",
			Payload:  campaignID,
			Enqueued: time.Now(),
		}
		if err := h.assignQueue.Enqueue(job); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue assignment batch"))
			return
		}
		response.JSON(c, http.StatusAccepted, gin.H{"jobId": job.ID, "campaignId": campaignID}, nil)
		return
	}

	report, err := h.service.AssignDirect(c.Request.Context(), campaignID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
