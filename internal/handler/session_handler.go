package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/attendance-api/internal/service"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
	"github.com/campushq/attendance-api/pkg/response"
)

// SessionHandler serves the student-facing surface: listing joinable
// sessions and walking the verification flow into one of them.
type SessionHandler struct {
	participation *service.ParticipationService
	verification  *service.VerificationService
	metrics       *service.MetricsService
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(participation *service.ParticipationService, verification *service.VerificationService, metrics *service.MetricsService) *SessionHandler {
	return &SessionHandler{participation: participation, verification: verification, metrics: metrics}
}

func (h *SessionHandler) studentNumber(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	if claims.StudentNumber == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account has no student number"))
		return "", false
	}
	return claims.StudentNumber, true
}

// Active godoc
// @Summary List joinable sessions
// @Description List open sessions the student is enrolled in
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /sessions/active [get]
func (h *SessionHandler) Active(c *gin.Context) {
	number, ok := h.studentNumber(c)
	if !ok {
		return
	}

	views, stale, err := h.participation.ActiveForStudent(c.Request.Context(), number)
	if err != nil {
		response.Error(c, err)
		return
	}

	var meta map[string]interface{}
	if stale {
		meta = map[string]interface{}{"stale": true}
	}
	response.JSON(c, http.StatusOK, views, nil, meta)
}

// SelectSession godoc
// @Summary Open a verification attempt
// @Description Start the join flow for an open session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/attempt [post]
func (h *SessionHandler) SelectSession(c *gin.Context) {
	number, ok := h.studentNumber(c)
	if !ok {
		return
	}

	attempt, err := h.verification.Select(c.Request.Context(), number, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attempt)
}

type smsProofRequest struct {
	Code string `json:"code" binding:"required"`
}

// ConfirmSMS godoc
// @Summary Confirm the SMS factor
// @Description Check the SMS code against the verification collaborator
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param payload body smsProofRequest true "SMS code"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sessions/{id}/attempt/sms [post]
func (h *SessionHandler) ConfirmSMS(c *gin.Context) {
	number, ok := h.studentNumber(c)
	if !ok {
		return
	}

	var req smsProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "sms code required"))
		return
	}

	attempt, err := h.verification.ConfirmSMS(c.Request.Context(), number, c.Param("id"), req.Code)
	if err != nil {
		h.metrics.RecordVerification("sms", verificationOutcome(err))
		response.Error(c, err)
		return
	}
	h.metrics.RecordVerification("sms", "confirmed")
	response.JSON(c, http.StatusOK, attempt, nil)
}

type faceProofRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
}

// ConfirmFace godoc
// @Summary Confirm the face factor
// @Description Check the face image against the verification collaborator
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param payload body faceProofRequest true "Face image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sessions/{id}/attempt/face [post]
func (h *SessionHandler) ConfirmFace(c *gin.Context) {
	number, ok := h.studentNumber(c)
	if !ok {
		return
	}

	var req faceProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "face image required"))
		return
	}

	attempt, err := h.verification.ConfirmFace(c.Request.Context(), number, c.Param("id"), req.ImageURL)
	if err != nil {
		h.metrics.RecordVerification("face", verificationOutcome(err))
		response.Error(c, err)
		return
	}
	h.metrics.RecordVerification("face", "confirmed")
	response.JSON(c, http.StatusOK, attempt, nil)
}

// Commit godoc
// @Summary Join the session
// @Description Record attendance once both factors are confirmed
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/commit [post]
func (h *SessionHandler) Commit(c *gin.Context) {
	number, ok := h.studentNumber(c)
	if !ok {
		return
	}

	courseName, err := h.verification.Commit(c.Request.Context(), number, c.Param("id"))
	if err != nil {
		h.metrics.RecordVerification("commit", verificationOutcome(err))
		response.Error(c, err)
		return
	}
	h.metrics.RecordVerification("commit", "confirmed")
	response.JSON(c, http.StatusOK, gin.H{
		"message":     "attendance recorded",
		"course_name": courseName,
	}, nil)
}

// AbandonAttempt godoc
// @Summary Abandon the verification attempt
// @Description Discard the open attempt and any confirmed factors
// @Tags Sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204 {object} response.Envelope
// @Router /sessions/{id}/attempt [delete]
func (h *SessionHandler) AbandonAttempt(c *gin.Context) {
	number, ok := h.studentNumber(c)
	if !ok {
		return
	}

	h.verification.Abandon(number)
	response.NoContent(c)
}

// Attempt godoc
// @Summary Inspect the open attempt
// @Description Return the current verification attempt state
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/attempt [get]
func (h *SessionHandler) Attempt(c *gin.Context) {
	number, ok := h.studentNumber(c)
	if !ok {
		return
	}

	attempt, found := h.verification.Attempt(number)
	if !found {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no verification in progress"))
		return
	}
	response.JSON(c, http.StatusOK, attempt, nil)
}

func verificationOutcome(err error) string {
	if appErrors.FromError(err).Code == appErrors.ErrConnectivity.Code {
		return "error"
	}
	return "rejected"
}
