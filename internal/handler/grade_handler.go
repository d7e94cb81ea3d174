package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/service"
	appErrors "github.com/sgac-unsa/sgac-api/pkg/errors"
	"github.com/sgac-unsa/sgac-api/pkg/response"
)

// GradeHandler exposes evaluation and grading endpoints.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// CreateEvaluation godoc
// @Summary Create an evaluation for a course group
// @Description Rejects evaluations that would push the total weight past 100
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Course group ID"
// @Param payload body models.CreateEvaluationInput true "Evaluation payload"
// @Success 201 {object} response.Envelope
// @Router /groups/{id}/evaluations [post]
func (h *GradeHandler) CreateEvaluation(c *gin.Context) {
	var req models.CreateEvaluationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	evaluation, err := h.service.CreateEvaluation(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, evaluation)
}

// ListEvaluations godoc
// @Summary List evaluations of a course group
// @Tags Grades
// @Produce json
// @Param id path string true "Course group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/evaluations [get]
func (h *GradeHandler) ListEvaluations(c *gin.Context) {
	evaluations, err := h.service.ListEvaluations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, nil)
}

// SaveBatch godoc
// @Summary Record grades for an evaluation
// @Description Saves raw and rounded scores and recomputes cached final grades in the same transaction
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.SaveGradesInput true "Grade batch"
// @Success 204
// @Router /grades [post]
func (h *GradeHandler) SaveBatch(c *gin.Context) {
	var req models.SaveGradesInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.SaveBatch(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentGrades godoc
// @Summary Grades recorded for an enrollment
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/grades [get]
func (h *GradeHandler) StudentGrades(c *gin.Context) {
	grades, err := h.service.StudentGrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Summary godoc
// @Summary Grade summary of an enrollment by curricular unit
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/grades/summary [get]
func (h *GradeHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Recalculate godoc
// @Summary Recompute an enrollment's cached final grade
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id}/grades/recalculate [post]
func (h *GradeHandler) Recalculate(c *gin.Context) {
	if err := h.service.Recalculate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EvaluationSheet godoc
// @Summary Grades recorded for an evaluation
// @Tags Grades
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id}/grades [get]
func (h *GradeHandler) EvaluationSheet(c *gin.Context) {
	grades, err := h.service.EvaluationSheet(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}
