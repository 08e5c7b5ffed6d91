package models

import (
	"time"

	"github.com/lib/pq"
)

// Course represents a taught course. The display name is fixed at creation:
// admin edits may change teacher and student assignments but never the name
// or the code.
type Course struct {
	ID        string         `db:"id" json:"id"`
	Code      string         `db:"code" json:"code"`
	Name      string         `db:"name" json:"name"`
	Teachers  pq.StringArray `db:"teachers" json:"teachers"`
	Students  pq.StringArray `db:"students" json:"students"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// HasTeacher reports whether the given teacher email is assigned to the course.
func (c *Course) HasTeacher(email string) bool {
	for _, t := range c.Teachers {
		if t == email {
			return true
		}
	}
	return false
}

// HasStudent reports whether the student number is enrolled in the course.
func (c *Course) HasStudent(studentNumber string) bool {
	for _, s := range c.Students {
		if s == studentNumber {
			return true
		}
	}
	return false
}

// CourseSummary is the trimmed course view returned to teachers.
type CourseSummary struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}
