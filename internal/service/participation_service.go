package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

type participationSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	ListActiveForStudent(ctx context.Context, studentNumber string) ([]models.AttendanceSession, error)
	ListAll(ctx context.Context) ([]models.AttendanceSession, error)
	AddParticipant(ctx context.Context, sessionID, studentNumber string) error
}

type participationCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ParticipationService merges session records, rosters and commit state into
// the views the panels render.
type ParticipationService struct {
	sessions participationSessionRepository
	cache    participationCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewParticipationService constructs the service.
func NewParticipationService(sessions participationSessionRepository, cache participationCache, cacheTTL time.Duration, logger *zap.Logger) *ParticipationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ParticipationService{sessions: sessions, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// ActiveForStudent returns the open sessions the student is enrolled in, each
// annotated with whether they already committed. When the store is
// unreachable the last successfully fetched list is served instead so the
// student panel never blanks out on a failed refresh; the stale flag tells
// the caller which case it got.
func (s *ParticipationService) ActiveForStudent(ctx context.Context, studentNumber string) ([]models.StudentSessionView, bool, error) {
	if studentNumber == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student number required")
	}

	sessions, err := s.sessions.ListActiveForStudent(ctx, studentNumber)
	if err != nil {
		var cached []models.StudentSessionView
		if s.cache != nil {
			if cacheErr := s.cache.Get(ctx, repository.ActiveListKey(studentNumber), &cached); cacheErr == nil {
				s.logger.Warn("serving stale active session list", zap.String("student", studentNumber), zap.Error(err))
				return cached, true, nil
			}
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load active sessions")
	}

	views := make([]models.StudentSessionView, 0, len(sessions))
	for i := range sessions {
		session := &sessions[i]
		teacher := session.TeacherEmail
		views = append(views, models.StudentSessionView{
			SessionID:  session.ID,
			CourseCode: session.CourseCode,
			CourseName: session.CourseName,
			Teacher:    teacher,
			StartedAt:  session.CreatedAt,
			RosterSize: len(session.Roster),
			Joined:     session.HasParticipant(studentNumber),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, repository.ActiveListKey(studentNumber), views, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache active session list", zap.Error(err))
		}
	}

	return views, false, nil
}

// HistoryGroupedByCourse returns every session grouped by course, newest
// first within each group. The descending order is part of the contract the
// admin panel relies on.
func (s *ParticipationService) HistoryGroupedByCourse(ctx context.Context) ([]models.CourseHistoryGroup, error) {
	sessions, err := s.sessions.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load attendance history")
	}

	index := make(map[string]int)
	groups := make([]models.CourseHistoryGroup, 0)
	for i := range sessions {
		session := &sessions[i]
		pos, ok := index[session.CourseCode]
		if !ok {
			pos = len(groups)
			index[session.CourseCode] = pos
			groups = append(groups, models.CourseHistoryGroup{
				CourseCode: session.CourseCode,
				CourseName: session.CourseName,
			})
		}
		groups[pos].Sessions = append(groups[pos].Sessions, models.SessionSummary{
			SessionID:        session.ID,
			Status:           session.Status,
			CreatedAt:        session.CreatedAt,
			RosterSize:       len(session.Roster),
			ParticipantCount: len(session.Participants),
			AttendanceRate:   session.AttendanceRate(),
		})
	}

	for i := range groups {
		sessions := groups[i].Sessions
		sort.SliceStable(sessions, func(a, b int) bool {
			return sessions[a].CreatedAt.After(sessions[b].CreatedAt)
		})
	}

	return groups, nil
}

// Commit records the (session, student) participation edge. Committing twice
// is a safe no-op reported as success, never as a duplicate error. Students
// outside the roster snapshot are rejected.
func (s *ParticipationService) Commit(ctx context.Context, sessionID, studentNumber string) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load session")
	}

	if !session.InRoster(studentNumber) {
		return appErrors.Clone(appErrors.ErrForbidden, "student is not on the session roster")
	}

	if session.HasParticipant(studentNumber) {
		return nil
	}

	if err := s.sessions.AddParticipant(ctx, sessionID, studentNumber); err != nil {
		return appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to record attendance")
	}
	return nil
}
