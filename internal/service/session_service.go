package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

type lifecycleSessionRepository interface {
	Create(ctx context.Context, session *models.AttendanceSession) error
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	FindActiveByTeacher(ctx context.Context, email string) (*models.AttendanceSession, error)
	Complete(ctx context.Context, sessionID string, completedAt time.Time) error
}

type lifecycleCourseRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
}

type resumptionStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionService drives the teacher-facing session lifecycle: opening an
// attendance window, closing it, and resuming the current one after a page
// reload. The resumption record in Redis is convenience state; the session
// row's status always wins when they disagree.
type SessionService struct {
	sessions      lifecycleSessionRepository
	courses       lifecycleCourseRepository
	resumptions   resumptionStore
	resumptionTTL time.Duration
	logger        *zap.Logger
}

// NewSessionService constructs the lifecycle service.
func NewSessionService(sessions lifecycleSessionRepository, courses lifecycleCourseRepository, resumptions resumptionStore, resumptionTTL time.Duration, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resumptionTTL <= 0 {
		resumptionTTL = 12 * time.Hour
	}
	return &SessionService{
		sessions:      sessions,
		courses:       courses,
		resumptions:   resumptions,
		resumptionTTL: resumptionTTL,
		logger:        logger,
	}
}

// Start opens an attendance window for one of the teacher's courses. The
// roster snapshot is taken here; students enrolled later do not join this
// session's roster. The single-active-session invariant is enforced by the
// store and a rejection there is the authoritative outcome.
func (s *SessionService) Start(ctx context.Context, teacherEmail, courseCode string) (*models.AttendanceSession, error) {
	if courseCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "select a course first")
	}

	course, err := s.courses.FindByCode(ctx, courseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load course")
	}
	if !course.HasTeacher(teacherEmail) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course is not assigned to this teacher")
	}

	session := &models.AttendanceSession{
		CourseCode:   course.Code,
		CourseName:   course.Name,
		TeacherEmail: teacherEmail,
		Roster:       append([]string(nil), course.Students...),
		Participants: []string{},
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrActiveSessionExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an attendance session is already running for this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to start session")
	}

	s.storeResumption(ctx, teacherEmail, session)

	return session, nil
}

// End closes the teacher's current session. Committed participants are kept;
// only the status flips.
func (s *SessionService) End(ctx context.Context, teacherEmail string) (*models.AttendanceSession, error) {
	session, err := s.Current(ctx, teacherEmail)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no attendance session is currently running")
	}

	if err := s.sessions.Complete(ctx, session.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			// Already closed elsewhere; the server state wins.
			s.clearResumption(ctx, teacherEmail)
			return nil, appErrors.Clone(appErrors.ErrConflict, "session was already completed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to end session")
	}

	s.clearResumption(ctx, teacherEmail)
	session.Status = models.SessionCompleted
	return session, nil
}

// Current resolves the teacher's running session, preferring the resumption
// record and falling back to an authoritative lookup. A resumption pointer at
// a completed or vanished session is dropped. Returns nil when nothing is
// running.
func (s *SessionService) Current(ctx context.Context, teacherEmail string) (*models.AttendanceSession, error) {
	var record models.SessionResumption
	if s.resumptions != nil {
		if err := s.resumptions.Get(ctx, repository.ResumptionKey(teacherEmail), &record); err == nil {
			session, err := s.sessions.FindByID(ctx, record.SessionID)
			if err == nil && session.Status == models.SessionActive && session.TeacherEmail == teacherEmail {
				return session, nil
			}
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load session")
			}
			s.clearResumption(ctx, teacherEmail)
		}
	}

	session, err := s.sessions.FindActiveByTeacher(ctx, teacherEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load session")
	}

	s.storeResumption(ctx, teacherEmail, session)
	return session, nil
}

// Roster returns the committed participants of the teacher's current session.
// An empty list is a valid outcome, not an error.
func (s *SessionService) Roster(ctx context.Context, teacherEmail string) (*models.AttendanceSession, []string, error) {
	session, err := s.Current(ctx, teacherEmail)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "no attendance session is currently running")
	}

	participants := session.Participants
	if participants == nil {
		participants = []string{}
	}
	return session, participants, nil
}

func (s *SessionService) storeResumption(ctx context.Context, teacherEmail string, session *models.AttendanceSession) {
	if s.resumptions == nil {
		return
	}
	record := models.SessionResumption{
		SessionID:  session.ID,
		CourseCode: session.CourseCode,
		StartedAt:  session.CreatedAt,
	}
	if err := s.resumptions.Set(ctx, repository.ResumptionKey(teacherEmail), record, s.resumptionTTL); err != nil {
		s.logger.Warn("failed to store session resumption", zap.Error(err))
	}
}

func (s *SessionService) clearResumption(ctx context.Context, teacherEmail string) {
	if s.resumptions == nil {
		return
	}
	if err := s.resumptions.Delete(ctx, repository.ResumptionKey(teacherEmail)); err != nil {
		s.logger.Warn("failed to clear session resumption", zap.Error(err))
	}
}
