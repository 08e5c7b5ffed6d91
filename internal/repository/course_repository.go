package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushq/attendance-api/internal/models"
)

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, code, name, teachers, students, created_at, updated_at`

// List returns all courses ordered by code.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses ORDER BY code`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListByTeacher returns the trimmed course list a teacher is assigned to.
func (r *CourseRepository) ListByTeacher(ctx context.Context, email string) ([]models.CourseSummary, error) {
	const query = `SELECT id, code, name FROM courses WHERE $1 = ANY(teachers) ORDER BY code`
	var courses []models.CourseSummary
	if err := r.db.SelectContext(ctx, &courses, query, email); err != nil {
		return nil, fmt.Errorf("list teacher courses: %w", err)
	}
	return courses, nil
}

// FindByCode returns a course by its unique code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE code = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, name, teachers, students, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, course.ID, course.Code, course.Name,
		pq.Array(course.Teachers), pq.Array(course.Students), course.CreatedAt, course.UpdatedAt)
	return err
}

// UpdateAssignments replaces the teacher and student sets of a course. Code and
// name are fixed at creation and deliberately not updatable here.
func (r *CourseRepository) UpdateAssignments(ctx context.Context, code string, teachers, students []string) error {
	const query = `UPDATE courses SET teachers = $2, students = $3, updated_at = $4 WHERE code = $1`
	result, err := r.db.ExecContext(ctx, query, code, pq.Array(teachers), pq.Array(students), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update course assignments: %w", err)
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

// Delete removes a course. Attendance history is independent and untouched.
func (r *CourseRepository) Delete(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
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
