package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-api/internal/service"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/response"
)

// ExamHandler exposes exam and schedule administration endpoints.
type ExamHandler struct {
	exams *service.ExamService
	audit *service.AuditService
}

// NewExamHandler constructs handler.
func NewExamHandler(exams *service.ExamService, audit *service.AuditService) *ExamHandler {
	return &ExamHandler{exams: exams, audit: audit}
}

// Create godoc
// @Summary Create an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body service.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	var req service.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims != nil {
		req.SchoolID = claims.SchoolID
		req.ActorID = claims.UserID
	}
	exam, err := h.exams.CreateExam(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// Get godoc
// @Summary Get an exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.exams.GetExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// List godoc
// @Summary List exams for the caller's school
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if claims := claimsFromContext(c); claims != nil && claims.SchoolID != "" {
		schoolID = claims.SchoolID
	}
	exams, err := h.exams.ListExams(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}

// CreateSchedule godoc
// @Summary Add a subject sitting to an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body service.CreateScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/schedules [post]
func (h *ExamHandler) CreateSchedule(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ExamID = c.Param("id")
	if claims := claimsFromContext(c); claims != nil {
		req.ActorID = claims.UserID
	}
	schedule, err := h.exams.CreateSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// ListSchedules godoc
// @Summary List subject sittings for an exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/schedules [get]
func (h *ExamHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.exams.ListSchedules(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// AuditTrail godoc
// @Summary Read the audit trail for an entity
// @Tags Audit
// @Produce json
// @Param entityType query string true "Entity type (EXAM, EXAM_SCHEDULE, QUESTION_PAPER)"
// @Param entityId query string true "Entity ID"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *ExamHandler) AuditTrail(c *gin.Context) {
	entries, err := h.audit.Trail(c.Request.Context(), c.Query("entityType"), c.Query("entityId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
