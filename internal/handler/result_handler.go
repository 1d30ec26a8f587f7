package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-api/internal/service"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/response"
)

// ResultHandler exposes result aggregation and publication endpoints.
type ResultHandler struct {
	results *service.ResultService
	publish *service.PublishService
}

// NewResultHandler constructs handler.
func NewResultHandler(results *service.ResultService, publish *service.PublishService) *ResultHandler {
	return &ResultHandler{results: results, publish: publish}
}

type processResultRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	ExamID    string `json:"exam_id" binding:"required"`
}

// Process godoc
// @Summary Recompute the result summary after a mark write
// @Description Fire-and-forget hook for the marks-entry collaborator. Always
// @Description returns 202; aggregation failures are logged, never surfaced.
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body processResultRequest true "Mark write reference"
// @Success 202 {object} response.Envelope
// @Router /results/process [post]
func (h *ResultHandler) Process(c *gin.Context) {
	var req processResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	var schoolID string
	if claims := claimsFromContext(c); claims != nil {
		schoolID = claims.SchoolID
	}
	h.results.Process(c.Request.Context(), req.StudentID, req.ExamID, schoolID)
	response.JSON(c, http.StatusAccepted, gin.H{"status": "accepted"}, nil)
}

// Publish godoc
// @Summary Publish all results for an exam
// @Tags Results
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/publish [post]
func (h *ResultHandler) Publish(c *gin.Context) {
	var actorID string
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}
	outcome, err := h.publish.Publish(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// PublishedStatus godoc
// @Summary Check whether a student's result is published
// @Tags Results
// @Produce json
// @Param id path string true "Exam ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/results/{studentId}/published [get]
func (h *ResultHandler) PublishedStatus(c *gin.Context) {
	visible, err := h.publish.IsStudentResultPublished(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"published": visible}, nil)
}
