package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

type courseRepoStub struct {
	course      *models.Course
	findErr     error
	created     *models.Course
	updatedCode string
	teachers    []string
	students    []string
	updateErr   error
	deleteErr   error
	teacherList []models.CourseSummary
}

func (s *courseRepoStub) List(ctx context.Context) ([]models.Course, error) {
	if s.course == nil {
		return []models.Course{}, nil
	}
	return []models.Course{*s.course}, nil
}

func (s *courseRepoStub) ListByTeacher(ctx context.Context, email string) ([]models.CourseSummary, error) {
	return s.teacherList, nil
}

func (s *courseRepoStub) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	course := *s.course
	return &course, nil
}

func (s *courseRepoStub) Create(ctx context.Context, course *models.Course) error {
	s.created = course
	return nil
}

func (s *courseRepoStub) UpdateAssignments(ctx context.Context, code string, teachers, students []string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updatedCode = code
	s.teachers = teachers
	s.students = students
	return nil
}

func (s *courseRepoStub) Delete(ctx context.Context, code string) error {
	return s.deleteErr
}

func TestCourseCreateRejectsDuplicateCode(t *testing.T) {
	repo := &courseRepoStub{course: &models.Course{Code: "CS101", Name: "Algorithms"}}
	svc := NewCourseService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateCourseRequest{Code: "CS101", Name: "Algorithms"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCourseCreateDefaultsEmptyAssignments(t *testing.T) {
	repo := &courseRepoStub{findErr: sql.ErrNoRows}
	svc := NewCourseService(repo, nil, nil)

	course, err := svc.Create(context.Background(), CreateCourseRequest{Code: "CS101", Name: "Algorithms"})
	require.NoError(t, err)
	assert.NotNil(t, course.Teachers)
	assert.NotNil(t, course.Students)
	assert.Empty(t, course.Teachers)
}

func TestCourseUpdateRejectsNameChange(t *testing.T) {
	repo := &courseRepoStub{course: &models.Course{Code: "CS101", Name: "Algorithms"}}
	svc := NewCourseService(repo, nil, nil)

	newName := "Data Structures"
	_, err := svc.Update(context.Background(), "CS101", UpdateCourseRequest{Name: &newName})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseUpdateRewritesAssignments(t *testing.T) {
	repo := &courseRepoStub{course: &models.Course{
		Code:     "CS101",
		Name:     "Algorithms",
		Teachers: []string{"old@school.edu"},
		Students: []string{"2021001"},
	}}
	svc := NewCourseService(repo, nil, nil)

	course, err := svc.Update(context.Background(), "CS101", UpdateCourseRequest{
		Teachers: []string{"new@school.edu"},
		Students: []string{"2021001", "2021002"},
	})
	require.NoError(t, err)
	assert.Equal(t, "CS101", repo.updatedCode)
	assert.Equal(t, []string{"new@school.edu"}, []string(course.Teachers))
	assert.Equal(t, []string{"2021001", "2021002"}, []string(course.Students))
}

func TestCourseUpdateKeepsOmittedAssignments(t *testing.T) {
	repo := &courseRepoStub{course: &models.Course{
		Code:     "CS101",
		Name:     "Algorithms",
		Teachers: []string{"teacher@school.edu"},
		Students: []string{"2021001"},
	}}
	svc := NewCourseService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "CS101", UpdateCourseRequest{Students: []string{"2021002"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher@school.edu"}, repo.teachers)
	assert.Equal(t, []string{"2021002"}, repo.students)
}

func TestCourseUpdateMissingCourse(t *testing.T) {
	repo := &courseRepoStub{findErr: sql.ErrNoRows}
	svc := NewCourseService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "NOPE", UpdateCourseRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseDeleteMissing(t *testing.T) {
	repo := &courseRepoStub{deleteErr: repository.ErrNoRowsAffected}
	svc := NewCourseService(repo, nil, nil)

	err := svc.Delete(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseListForTeacherNeverNil(t *testing.T) {
	repo := &courseRepoStub{}
	svc := NewCourseService(repo, nil, nil)

	list, err := svc.ListForTeacher(context.Background(), "teacher@school.edu")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
