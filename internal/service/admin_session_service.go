package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/attendance-api/internal/legacy"
	"github.com/campushq/attendance-api/internal/models"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
	"github.com/campushq/attendance-api/pkg/export"
)

type adminSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	ListAll(ctx context.Context) ([]models.AttendanceSession, error)
	ReplaceParticipants(ctx context.Context, sessionID string, participants []string) error
	InsertImported(ctx context.Context, session *models.AttendanceSession) error
}

type studentDirectory interface {
	FindByStudentNumbers(ctx context.Context, numbers []string) (map[string]models.User, error)
}

type tabularExporter interface {
	Render(data export.Dataset) ([]byte, error)
}

type titledExporter interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// AdminSessionService covers the admin correction surface: per-session
// participation breakdowns, full-set participant rewrites, legacy history
// import and report export.
type AdminSessionService struct {
	sessions  adminSessionRepository
	students  studentDirectory
	csv       tabularExporter
	pdf       titledExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdminSessionService constructs the service.
func NewAdminSessionService(sessions adminSessionRepository, students studentDirectory, csv tabularExporter, pdf titledExporter, validate *validator.Validate, logger *zap.Logger) *AdminSessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminSessionService{sessions: sessions, students: students, csv: csv, pdf: pdf, validator: validate, logger: logger}
}

// Detail returns the per-student breakdown for one session. Sessions imported
// from the legacy store may carry an unparseable creation date; those render
// the fixed placeholder instead of failing the whole view.
func (s *AdminSessionService) Detail(ctx context.Context, sessionID string) (*models.SessionDetail, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load session detail")
	}

	names, err := s.students.FindByStudentNumbers(ctx, session.Roster)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load student names")
	}

	detail := &models.SessionDetail{
		SessionID:        session.ID,
		CourseCode:       session.CourseCode,
		CourseName:       session.CourseName,
		Status:           session.Status,
		CreatedAt:        session.CreatedAt,
		CreatedAtDisplay: displayTime(session.CreatedAt),
		Students:         make([]models.StudentBreakdown, 0, len(session.Roster)),
	}

	for _, number := range session.Roster {
		entry := models.StudentBreakdown{
			StudentNumber: number,
			Joined:        session.HasParticipant(number),
		}
		if user, ok := names[number]; ok {
			entry.FullName = user.FullName
		}
		detail.Students = append(detail.Students, entry)
	}

	return detail, nil
}

// ReplaceParticipants overwrites a session's committed-participant set in
// full. The admin edit always wins over whatever was committed before,
// including student self-commits that landed after the admin loaded the
// detail; this is the documented last-write-wins contract of the edit
// surface. Ids outside the roster snapshot are dropped.
func (s *AdminSessionService) ReplaceParticipants(ctx context.Context, sessionID string, participantIDs []string) (*models.SessionDetail, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load session")
	}

	filtered := make([]string, 0, len(participantIDs))
	seen := make(map[string]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if session.InRoster(id) {
			filtered = append(filtered, id)
		} else {
			s.logger.Warn("dropping participant outside roster", zap.String("session", sessionID), zap.String("student", id))
		}
	}

	if err := s.sessions.ReplaceParticipants(ctx, sessionID, filtered); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to save participation changes")
	}

	return s.Detail(ctx, sessionID)
}

// LegacyImportRow is one session record from a legacy export. Identifier and
// date fields arrive in whatever encoding the old store produced.
type LegacyImportRow struct {
	ID           interface{} `json:"_id"`
	CourseCode   string      `json:"course_code" validate:"required"`
	CourseName   string      `json:"course_name" validate:"required"`
	TeacherEmail string      `json:"teacher_email"`
	Date         interface{} `json:"date"`
	Roster       []string    `json:"roster"`
	Participants []string    `json:"participants"`
}

// ImportResult summarises a legacy import run.
type ImportResult struct {
	Imported     int      `json:"imported"`
	InvalidDates int      `json:"invalid_dates"`
	Failed       []string `json:"failed,omitempty"`
}

// ImportLegacy stores sessions recovered from a legacy export. Unparseable
// dates are kept with a zero timestamp so the detail view renders the
// placeholder; they never abort the import.
func (s *AdminSessionService) ImportLegacy(ctx context.Context, rows []LegacyImportRow) (*ImportResult, error) {
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no rows to import")
	}

	result := &ImportResult{}
	for i, row := range rows {
		if err := s.validator.Struct(row); err != nil {
			result.Failed = append(result.Failed, fmt.Sprintf("row %d: %v", i, err))
			continue
		}

		session := &models.AttendanceSession{
			ID:           legacy.ID(row.ID),
			CourseCode:   row.CourseCode,
			CourseName:   row.CourseName,
			TeacherEmail: row.TeacherEmail,
			Status:       models.SessionCompleted,
			Roster:       row.Roster,
			Participants: row.Participants,
		}
		if session.Roster == nil {
			session.Roster = []string{}
		}
		if session.Participants == nil {
			session.Participants = []string{}
		}

		if created, ok := legacy.Date(row.Date); ok {
			session.CreatedAt = created
		} else {
			result.InvalidDates++
		}

		if err := s.sessions.InsertImported(ctx, session); err != nil {
			result.Failed = append(result.Failed, fmt.Sprintf("row %d: %v", i, err))
			continue
		}
		result.Imported++
	}

	return result, nil
}

// ExportHistory renders the full session history as CSV or PDF.
func (s *AdminSessionService) ExportHistory(ctx context.Context, format string) ([]byte, string, error) {
	sessions, err := s.sessions.ListAll(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load attendance history")
	}

	data := export.Dataset{
		Headers: []string{"Course", "Name", "Date", "Status", "Roster", "Joined", "Rate"},
	}
	for i := range sessions {
		session := &sessions[i]
		data.Rows = append(data.Rows, map[string]string{
			"Course": session.CourseCode,
			"Name":   session.CourseName,
			"Date":   displayTime(session.CreatedAt),
			"Status": string(session.Status),
			"Roster": fmt.Sprintf("%d", len(session.Roster)),
			"Joined": fmt.Sprintf("%d", len(session.Participants)),
			"Rate":   fmt.Sprintf("%.0f%%", session.AttendanceRate()),
		})
	}

	switch format {
	case "pdf":
		payload, err := s.pdf.Render(data, "Attendance History")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	case "", "csv":
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func displayTime(t time.Time) string {
	if t.IsZero() {
		return legacy.InvalidDatePlaceholder
	}
	return t.Format("02.01.2006 15:04")
}
