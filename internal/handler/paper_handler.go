package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-exam-api/internal/models"
	"github.com/noah-isme/sma-exam-api/internal/service"
	appErrors "github.com/noah-isme/sma-exam-api/pkg/errors"
	"github.com/noah-isme/sma-exam-api/pkg/response"
	"github.com/noah-isme/sma-exam-api/pkg/storage"
)

// PaperHandler exposes question paper version endpoints.
type PaperHandler struct {
	papers      *service.PaperService
	store       *storage.LocalStorage
	maxFileSize int64
	allowedExts map[string]struct{}
}

// NewPaperHandler constructs handler.
func NewPaperHandler(papers *service.PaperService, store *storage.LocalStorage, maxFileSize int64) *PaperHandler {
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	return &PaperHandler{
		papers:      papers,
		store:       store,
		maxFileSize: maxFileSize,
		allowedExts: map[string]struct{}{".pdf": {}, ".doc": {}, ".docx": {}},
	}
}

// Upload godoc
// @Summary Upload a question paper version
// @Tags Papers
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Schedule ID"
// @Param file formData file true "Paper file"
// @Param status formData string false "DRAFT or FINAL"
// @Success 201 {object} response.Envelope
// @Router /schedules/{id}/papers [post]
func (h *PaperHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a paper file is required"))
		return
	}
	if fileHeader.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "paper file exceeds the size limit"))
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := h.allowedExts[ext]; !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported paper file type"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read paper file"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read paper file"))
		return
	}

	var actorID string
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}
	paper, err := h.papers.Upload(c.Request.Context(), service.UploadPaperRequest{
		ScheduleID: c.Param("id"),
		ActorID:    actorID,
		FileName:   fileHeader.Filename,
		Data:       data,
		Status:     models.PaperStatus(strings.ToUpper(c.PostForm("status"))),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, paper)
}

// Lock godoc
// @Summary Lock the current question paper version
// @Tags Papers
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/papers/lock [post]
func (h *PaperHandler) Lock(c *gin.Context) {
	var actorID string
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}
	paper, err := h.papers.Lock(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paper, nil)
}

// DownloadURL godoc
// @Summary Issue a signed download link for the locked paper
// @Tags Papers
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/papers/download-url [get]
func (h *PaperHandler) DownloadURL(c *gin.Context) {
	download, err := h.papers.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, download, nil)
}

// Download godoc
// @Summary Download a question paper via a signed token
// @Tags Papers
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /papers/download [get]
func (h *PaperHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a download token is required"))
		return
	}
	relPath, err := h.papers.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(relPath))
	c.File(h.store.Path(relPath))
}

// Versions godoc
// @Summary List question paper versions for a schedule
// @Tags Papers
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/papers [get]
func (h *PaperHandler) Versions(c *gin.Context) {
	papers, err := h.papers.Versions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, papers, nil)
}
