package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushq/attendance-api/internal/service"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
	"github.com/campushq/attendance-api/pkg/response"
)

// AdminSessionHandler exposes the admin correction surface over the full
// session history.
type AdminSessionHandler struct {
	admin         *service.AdminSessionService
	participation *service.ParticipationService
}

// NewAdminSessionHandler creates a new handler.
func NewAdminSessionHandler(admin *service.AdminSessionService, participation *service.ParticipationService) *AdminSessionHandler {
	return &AdminSessionHandler{admin: admin, participation: participation}
}

// History godoc
// @Summary Full attendance history
// @Description All sessions grouped by course, newest first within a course
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/sessions [get]
func (h *AdminSessionHandler) History(c *gin.Context) {
	groups, err := h.participation.HistoryGroupedByCourse(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Detail godoc
// @Summary Per-student session breakdown
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/sessions/{id} [get]
func (h *AdminSessionHandler) Detail(c *gin.Context) {
	detail, err := h.admin.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

type replaceParticipantsRequest struct {
	CommittedIDs []string `json:"committed_ids"`
}

// ReplaceParticipants godoc
// @Summary Rewrite a session's participants
// @Description Overwrite the committed participant set in full
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param payload body replaceParticipantsRequest true "Committed student numbers"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/sessions/{id} [put]
func (h *AdminSessionHandler) ReplaceParticipants(c *gin.Context) {
	var req replaceParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid participants payload"))
		return
	}
	if req.CommittedIDs == nil {
		req.CommittedIDs = []string{}
	}

	detail, err := h.admin.ReplaceParticipants(c.Request.Context(), c.Param("id"), req.CommittedIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Import godoc
// @Summary Import legacy session records
// @Description Load session history exported from the legacy store
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body []service.LegacyImportRow true "Legacy rows"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/sessions/import [post]
func (h *AdminSessionHandler) Import(c *gin.Context) {
	var rows []service.LegacyImportRow
	if err := c.ShouldBindJSON(&rows); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}

	result, err := h.admin.ImportLegacy(c.Request.Context(), rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export attendance history
// @Description Download the session history as CSV or PDF
// @Tags Admin
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/sessions/export [get]
func (h *AdminSessionHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	payload, contentType, err := h.admin.ExportHistory(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("attendance-history-%s.%s", time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
