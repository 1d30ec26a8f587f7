package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-api/internal/service"
	"github.com/noah-isme/sma-exam-api/pkg/response"
)

// SeatingHandler exposes seating allocation endpoints.
type SeatingHandler struct {
	seating *service.SeatingService
}

// NewSeatingHandler constructs handler.
func NewSeatingHandler(seating *service.SeatingService) *SeatingHandler {
	return &SeatingHandler{seating: seating}
}

// Generate godoc
// @Summary Generate the seating plan for a schedule
// @Tags Seating
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/seating [post]
func (h *SeatingHandler) Generate(c *gin.Context) {
	var userID, schoolID string
	if claims := claimsFromContext(c); claims != nil {
		userID = claims.UserID
		schoolID = claims.SchoolID
	}
	summary, err := h.seating.Generate(c.Request.Context(), c.Param("id"), userID, schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Get godoc
// @Summary Read the seating plan for a schedule
// @Tags Seating
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/seating [get]
func (h *SeatingHandler) Get(c *gin.Context) {
	seats, err := h.seating.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seats, nil)
}

// Export godoc
// @Summary Export the seating plan as CSV
// @Tags Seating
// @Produce text/csv
// @Param id path string true "Schedule ID"
// @Success 200 {string} string "CSV payload"
// @Router /schedules/{id}/seating/export [get]
func (h *SeatingHandler) Export(c *gin.Context) {
	scheduleID := c.Param("id")
	data, err := h.seating.ExportRoster(c.Request.Context(), scheduleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=seating-%s.csv", scheduleID))
	c.Data(http.StatusOK, "text/csv", data)
}
