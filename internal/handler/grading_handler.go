package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-api/internal/service"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/response"
)

// GradingHandler exposes grade resolution endpoints.
type GradingHandler struct {
	grading *service.GradingService
}

// NewGradingHandler constructs handler.
func NewGradingHandler(grading *service.GradingService) *GradingHandler {
	return &GradingHandler{grading: grading}
}

// Resolve godoc
// @Summary Resolve a percentage to a grade
// @Tags Grading
// @Produce json
// @Param percentage query number true "Percentage (0-100)"
// @Success 200 {object} response.Envelope
// @Router /grading/resolve [get]
func (h *GradingHandler) Resolve(c *gin.Context) {
	percentage, err := strconv.ParseFloat(c.Query("percentage"), 64)
	if err != nil || percentage < 0 || percentage > 100 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "percentage must be a number between 0 and 100"))
		return
	}
	schoolID := c.Query("schoolId")
	if claims := claimsFromContext(c); claims != nil && claims.SchoolID != "" {
		schoolID = claims.SchoolID
	}
	grade := h.grading.Resolve(c.Request.Context(), schoolID, percentage)
	response.JSON(c, http.StatusOK, grade, nil)
}
