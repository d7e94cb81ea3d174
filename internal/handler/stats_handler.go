package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgac-unsa/sgac-api/internal/service"
	"github.com/sgac-unsa/sgac-api/pkg/response"
)

// StatsHandler exposes registrar statistics endpoints.
type StatsHandler struct {
	stats   *service.StatsService
	metrics *service.MetricsService
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(stats *service.StatsService, metrics *service.MetricsService) *StatsHandler {
	return &StatsHandler{stats: stats, metrics: metrics}
}

// SemesterStats godoc
// @Summary Registrar statistics for a semester
// @Description Counts plus per-classroom saturation, served from cache when warm
// @Tags Stats
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /stats/semesters/{id} [get]
func (h *StatsHandler) SemesterStats(c *gin.Context) {
	stats, err := h.stats.SemesterStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ActiveSemesterStats godoc
// @Summary Registrar statistics for the active semester
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/semesters/active [get]
func (h *StatsHandler) ActiveSemesterStats(c *gin.Context) {
	stats, err := h.stats.ActiveSemesterStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// SystemMetrics godoc
// @Summary Process level metrics snapshot
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/system [get]
func (h *StatsHandler) SystemMetrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
