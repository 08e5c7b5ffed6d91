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

func newCourseMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryFindByCode(t *testing.T) {
	db, mock, cleanup := newCourseMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "teachers", "students", "created_at", "updated_at"}).
		AddRow("c1", "CS101", "Intro", "{teacher@school.edu}", "{1001,1002}", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, code, name, teachers, students, created_at, updated_at FROM courses WHERE code = $1`)).
		WithArgs("CS101").
		WillReturnRows(rows)

	course, err := repo.FindByCode(context.Background(), "CS101")
	require.NoError(t, err)
	assert.True(t, course.HasTeacher("teacher@school.edu"))
	assert.True(t, course.HasStudent("1001"))
	assert.False(t, course.HasStudent("9999"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newCourseMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name"}).
		AddRow("c1", "CS101", "Intro").
		AddRow("c2", "CS202", "Algorithms")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, code, name FROM courses WHERE $1 = ANY(teachers) ORDER BY code`)).
		WithArgs("teacher@school.edu").
		WillReturnRows(rows)

	courses, err := repo.ListByTeacher(context.Background(), "teacher@school.edu")
	require.NoError(t, err)
	assert.Len(t, courses, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newCourseMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(sqlmock.AnyArg(), "CS101", "Intro", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Code: "CS101", Name: "Intro", Teachers: []string{"teacher@school.edu"}}
	err := repo.Create(context.Background(), course)
	require.NoError(t, err)
	assert.NotEmpty(t, course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateAssignmentsMissing(t *testing.T) {
	db, mock, cleanup := newCourseMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("UPDATE courses").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateAssignments(context.Background(), "NOPE", nil, nil)
	assert.ErrorIs(t, err, ErrNoRowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
