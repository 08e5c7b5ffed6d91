package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/attendance-api/internal/service"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
	"github.com/campushq/attendance-api/pkg/response"
)

// TeacherSessionHandler drives the teacher panel: opening and closing
// attendance windows and watching the live roster.
type TeacherSessionHandler struct {
	sessions *service.SessionService
	courses  *service.CourseService
}

// NewTeacherSessionHandler creates a new handler.
func NewTeacherSessionHandler(sessions *service.SessionService, courses *service.CourseService) *TeacherSessionHandler {
	return &TeacherSessionHandler{sessions: sessions, courses: courses}
}

// Courses godoc
// @Summary List the teacher's courses
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teacher/courses [get]
func (h *TeacherSessionHandler) Courses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courses, err := h.courses.ListForTeacher(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

type startSessionRequest struct {
	CourseCode string `json:"course_code"`
}

// Start godoc
// @Summary Open an attendance session
// @Description Open an attendance window for one of the teacher's courses
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body startSessionRequest true "Course selection"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/sessions [post]
func (h *TeacherSessionHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	session, err := h.sessions.Start(c.Request.Context(), claims.Email, req.CourseCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// End godoc
// @Summary Close the running session
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/sessions/current [delete]
func (h *TeacherSessionHandler) End(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.sessions.End(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Current godoc
// @Summary Resolve the running session
// @Description Return the teacher's running session for panel resumption
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teacher/sessions/current [get]
func (h *TeacherSessionHandler) Current(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.sessions.Current(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Roster godoc
// @Summary List committed participants
// @Description List students who joined the running session
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/sessions/current/participants [get]
func (h *TeacherSessionHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, participants, err := h.sessions.Roster(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"session_id":   session.ID,
		"course_code":  session.CourseCode,
		"participants": participants,
	}, nil)
}
