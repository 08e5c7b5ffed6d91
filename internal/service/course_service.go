package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	ListByTeacher(ctx context.Context, email string) ([]models.CourseSummary, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	UpdateAssignments(ctx context.Context, code string, teachers, students []string) error
	Delete(ctx context.Context, code string) error
}

// CourseService handles admin course management and teacher course listing.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// CreateCourseRequest is the admin payload for a new course.
type CreateCourseRequest struct {
	Code     string   `json:"code" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Teachers []string `json:"teachers"`
	Students []string `json:"students"`
}

// UpdateCourseRequest rewrites teacher and student assignments. Code and name
// are immutable after creation; a payload naming a different name is
// rejected rather than silently ignored.
type UpdateCourseRequest struct {
	Name     *string  `json:"name,omitempty"`
	Teachers []string `json:"teachers"`
	Students []string `json:"students"`
}

// List returns all courses.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to list courses")
	}
	return courses, nil
}

// ListForTeacher returns the courses assigned to a teacher.
func (s *CourseService) ListForTeacher(ctx context.Context, email string) ([]models.CourseSummary, error) {
	courses, err := s.repo.ListByTeacher(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.CourseSummary{}
	}
	return courses, nil
}

// Create registers a new course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to check course code")
	}

	course := &models.Course{
		Code:     req.Code,
		Name:     req.Name,
		Teachers: req.Teachers,
		Students: req.Students,
	}
	if course.Teachers == nil {
		course.Teachers = []string{}
	}
	if course.Students == nil {
		course.Students = []string{}
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to create course")
	}
	return course, nil
}

// Update rewrites a course's teacher and student assignments.
func (s *CourseService) Update(ctx context.Context, code string, req UpdateCourseRequest) (*models.Course, error) {
	course, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load course")
	}

	if req.Name != nil && *req.Name != course.Name {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course name cannot be changed after creation")
	}

	teachers := req.Teachers
	if teachers == nil {
		teachers = course.Teachers
	}
	students := req.Students
	if students == nil {
		students = course.Students
	}

	if err := s.repo.UpdateAssignments(ctx, code, teachers, students); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to update course")
	}

	course.Teachers = teachers
	course.Students = students
	return course, nil
}

// Delete removes a course. Attendance history is kept; it lives in its own
// records and is not cascaded.
func (s *CourseService) Delete(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to delete course")
	}
	return nil
}
