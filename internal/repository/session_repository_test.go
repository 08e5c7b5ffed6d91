package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/models"
)

func newSessionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO attendance_sessions").
		WithArgs(sqlmock.AnyArg(), "CS101", "Intro", "teacher@school.edu", string(models.SessionActive),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), string(models.SessionActive)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session := &models.AttendanceSession{
		CourseCode:   "CS101",
		CourseName:   "Intro",
		TeacherEmail: "teacher@school.edu",
		Roster:       []string{"1001", "1002"},
		Participants: []string{},
	}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, models.SessionActive, session.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateConflict(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	// A second active session for the same course inserts zero rows.
	mock.ExpectExec("INSERT INTO attendance_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &models.AttendanceSession{CourseCode: "CS101"})
	assert.ErrorIs(t, err, ErrActiveSessionExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListActiveForStudent(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_code", "course_name", "teacher_email", "status", "roster", "participants", "created_at", "completed_at"}).
		AddRow("s1", "CS101", "Intro", "teacher@school.edu", "active", "{1001,1002}", "{1001}", time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, course_code, course_name, teacher_email, status, roster, participants, created_at, completed_at FROM attendance_sessions WHERE status = $1 AND $2 = ANY(roster) ORDER BY created_at DESC`)).
		WithArgs(string(models.SessionActive), "1001").
		WillReturnRows(rows)

	sessions, err := repo.ListActiveForStudent(context.Background(), "1001")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].HasParticipant("1001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryAddParticipantIdempotent(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	// Student already committed: statement matches no row but still succeeds.
	mock.ExpectExec("UPDATE attendance_sessions").
		WithArgs("s1", "1001").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AddParticipant(context.Background(), "s1", "1001")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryReplaceParticipantsMissing(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE attendance_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReplaceParticipants(context.Background(), "missing", []string{"1001"})
	assert.ErrorIs(t, err, ErrNoRowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryComplete(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE attendance_sessions").
		WithArgs("s1", string(models.SessionCompleted), sqlmock.AnyArg(), string(models.SessionActive)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Complete(context.Background(), "s1", time.Now().UTC())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
