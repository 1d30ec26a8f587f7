package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-api/internal/service"
	"github.com/noah-isme/sma-exam-api/pkg/response"
)

// ReportCardHandler serves published report cards and hall tickets.
type ReportCardHandler struct {
	reportCards *service.ReportCardService
}

// NewReportCardHandler constructs handler.
func NewReportCardHandler(reportCards *service.ReportCardService) *ReportCardHandler {
	return &ReportCardHandler{reportCards: reportCards}
}

// ReportCard godoc
// @Summary Get a published report card
// @Tags ReportCards
// @Produce json
// @Param id path string true "Exam ID"
// @Param studentId path string true "Student ID"
// @Param format query string false "Set to pdf for a rendered document"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/report-card/{studentId} [get]
func (h *ReportCardHandler) ReportCard(c *gin.Context) {
	examID := c.Param("id")
	studentID := c.Param("studentId")

	if c.Query("format") == "pdf" {
		pdf, err := h.reportCards.RenderReportCardPDF(c.Request.Context(), examID, studentID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=report-card-%s.pdf", studentID))
		c.Data(http.StatusOK, "application/pdf", pdf)
		return
	}

	card, err := h.reportCards.GetReportCard(c.Request.Context(), examID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// HallTicket godoc
// @Summary Get a hall ticket for an eligible student
// @Tags ReportCards
// @Produce application/pdf
// @Param id path string true "Schedule ID"
// @Param studentId path string true "Student ID"
// @Success 200 {string} string "PDF payload"
// @Router /schedules/{id}/hall-ticket/{studentId} [get]
func (h *ReportCardHandler) HallTicket(c *gin.Context) {
	studentID := c.Param("studentId")
	ticket, err := h.reportCards.GetHallTicket(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=hall-ticket-%s.pdf", studentID))
	c.Data(http.StatusOK, "application/pdf", ticket)
}
