package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-api/internal/service"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/response"
)

// EligibilityHandler exposes eligibility evaluation endpoints.
type EligibilityHandler struct {
	eligibility *service.EligibilityService
}

// NewEligibilityHandler constructs handler.
func NewEligibilityHandler(eligibility *service.EligibilityService) *EligibilityHandler {
	return &EligibilityHandler{eligibility: eligibility}
}

// Check godoc
// @Summary Evaluate exam eligibility for one student
// @Tags Eligibility
// @Produce json
// @Param id path string true "Exam ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/eligibility/{studentId} [get]
func (h *EligibilityHandler) Check(c *gin.Context) {
	result, err := h.eligibility.Check(c.Request.Context(), c.Param("studentId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

type batchEligibilityRequest struct {
	StudentIDs []string `json:"student_ids" binding:"required,min=1"`
}

// Batch godoc
// @Summary Evaluate exam eligibility for a candidate set
// @Tags Eligibility
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body batchEligibilityRequest true "Candidate set"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/eligibility [post]
func (h *EligibilityHandler) Batch(c *gin.Context) {
	var req batchEligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results, err := h.eligibility.CheckBatch(c.Request.Context(), req.StudentIDs, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}
