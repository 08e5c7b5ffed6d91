package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushq/attendance-api/internal/models"
)

// Sentinel errors surfaced to services for invariant violations.
var (
	// ErrActiveSessionExists signals another active session for the course.
	ErrActiveSessionExists = errors.New("an active session already exists for this course")
	// ErrNoRowsAffected signals a write that matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")
)

// SessionRepository handles persistence of attendance sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, course_code, course_name, teacher_email, status, roster, participants, created_at, completed_at`

// Create opens a new session. The at-most-one-active-session-per-course
// invariant is enforced here, in the same statement as the insert, so a
// concurrent start cannot slip through between a check and a write.
func (r *SessionRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	session.Status = models.SessionActive
	const query = `INSERT INTO attendance_sessions (id, course_code, course_name, teacher_email, status, roster, participants, created_at)
        SELECT $1, $2, $3, $4, $5, $6, $7, $8
        WHERE NOT EXISTS (
            SELECT 1 FROM attendance_sessions WHERE course_code = $2 AND status = $9
        )`
	result, err := r.db.ExecContext(ctx, query, session.ID, session.CourseCode, session.CourseName,
		session.TeacherEmail, session.Status, pq.Array(session.Roster), pq.Array(session.Participants),
		session.CreatedAt, models.SessionActive)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrActiveSessionExists
	}
	return nil
}

// FindByID returns a session by its ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE id = $1`, sessionColumns)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindActiveByTeacher returns the teacher's currently open session, if any.
func (r *SessionRepository) FindActiveByTeacher(ctx context.Context, email string) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE teacher_email = $1 AND status = $2`, sessionColumns)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, email, models.SessionActive); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListActiveForStudent returns open sessions whose roster contains the student.
func (r *SessionRepository) ListActiveForStudent(ctx context.Context, studentNumber string) ([]models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE status = $1 AND $2 = ANY(roster) ORDER BY created_at DESC`, sessionColumns)
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query, models.SessionActive, studentNumber); err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

// ListAll returns every session, newest first within each course.
func (r *SessionRepository) ListAll(ctx context.Context) ([]models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions ORDER BY course_code, created_at DESC`, sessionColumns)
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// AddParticipant commits a student into the session's participant set.
// The append only happens when the student is not yet present, so a repeated
// commit is a no-op; both outcomes report success to the caller.
func (r *SessionRepository) AddParticipant(ctx context.Context, sessionID, studentNumber string) error {
	const query = `UPDATE attendance_sessions
        SET participants = array_append(participants, $2)
        WHERE id = $1 AND NOT ($2 = ANY(participants))`
	if _, err := r.db.ExecContext(ctx, query, sessionID, studentNumber); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

// ReplaceParticipants overwrites the committed-participant set in full.
func (r *SessionRepository) ReplaceParticipants(ctx context.Context, sessionID string, participants []string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attendance_sessions SET participants = $2 WHERE id = $1`,
		sessionID, pq.Array(participants))
	if err != nil {
		return fmt.Errorf("replace participants: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// Complete closes a session. Participant history stays untouched.
func (r *SessionRepository) Complete(ctx context.Context, sessionID string, completedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attendance_sessions SET status = $2, completed_at = $3 WHERE id = $1 AND status = $4`,
		sessionID, models.SessionCompleted, completedAt, models.SessionActive)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// InsertImported stores a session recovered from a legacy export. Unlike
// Create it accepts completed sessions and preserves original timestamps.
func (r *SessionRepository) InsertImported(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	const query = `INSERT INTO attendance_sessions (id, course_code, course_name, teacher_email, status, roster, participants, created_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, session.ID, session.CourseCode, session.CourseName,
		session.TeacherEmail, session.Status, pq.Array(session.Roster), pq.Array(session.Participants),
		session.CreatedAt, session.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert imported session: %w", err)
	}
	return nil
}
