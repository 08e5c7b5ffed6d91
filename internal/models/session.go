package models

import (
	"time"

	"github.com/lib/pq"
)

// SessionStatus marks whether an attendance window is open.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Valid returns true when the status is a supported value.
func (s SessionStatus) Valid() bool {
	return s == SessionActive || s == SessionCompleted
}

// AttendanceSession is one open or closed attendance window for a course.
// Roster is the enrolled-student snapshot taken when the session opened;
// Participants is the committed subset and may be rewritten by an admin edit
// for the whole lifetime of the record.
type AttendanceSession struct {
	ID           string         `db:"id" json:"id"`
	CourseCode   string         `db:"course_code" json:"course_code"`
	CourseName   string         `db:"course_name" json:"course_name"`
	TeacherEmail string         `db:"teacher_email" json:"teacher_email"`
	Status       SessionStatus  `db:"status" json:"status"`
	Roster       pq.StringArray `db:"roster" json:"roster"`
	Participants pq.StringArray `db:"participants" json:"participants"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	CompletedAt  *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}

// HasParticipant reports whether the student has already committed.
func (s *AttendanceSession) HasParticipant(studentNumber string) bool {
	for _, p := range s.Participants {
		if p == studentNumber {
			return true
		}
	}
	return false
}

// InRoster reports whether the student was enrolled when the session opened.
func (s *AttendanceSession) InRoster(studentNumber string) bool {
	for _, r := range s.Roster {
		if r == studentNumber {
			return true
		}
	}
	return false
}

// AttendanceRate returns committed/roster as a percentage. An empty or absent
// roster yields 0, never NaN or Inf.
func (s *AttendanceSession) AttendanceRate() float64 {
	if len(s.Roster) == 0 {
		return 0
	}
	return float64(len(s.Participants)) / float64(len(s.Roster)) * 100
}

// StudentSessionView annotates an active session with the requesting
// student's committed flag. It gates the join action client-side and is
// recomputed on every fetch, never stored.
type StudentSessionView struct {
	SessionID  string    `json:"session_id"`
	CourseCode string    `json:"course_code"`
	CourseName string    `json:"course_name"`
	Teacher    string    `json:"teacher"`
	StartedAt  time.Time `json:"started_at"`
	RosterSize int       `json:"roster_size"`
	Joined     bool      `json:"joined"`
}

// CourseHistoryGroup bundles a course's sessions for the admin history view.
// Sessions are ordered most recent first.
type CourseHistoryGroup struct {
	CourseCode string           `json:"course_code"`
	CourseName string           `json:"course_name"`
	Sessions   []SessionSummary `json:"sessions"`
}

// SessionSummary is a single history row with its attendance rate.
type SessionSummary struct {
	SessionID        string        `json:"session_id"`
	Status           SessionStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	RosterSize       int           `json:"roster_size"`
	ParticipantCount int           `json:"participant_count"`
	AttendanceRate   float64       `json:"attendance_rate"`
}

// SessionDetail is the admin per-student breakdown of one session.
type SessionDetail struct {
	SessionID        string             `json:"session_id"`
	CourseCode       string             `json:"course_code"`
	CourseName       string             `json:"course_name"`
	Status           SessionStatus      `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	CreatedAtDisplay string             `json:"created_at_display"`
	Students         []StudentBreakdown `json:"students"`
}

// StudentBreakdown is one roster entry in a session detail.
type StudentBreakdown struct {
	StudentNumber string `json:"student_number"`
	FullName      string `json:"full_name"`
	Joined        bool   `json:"joined"`
}

// SessionResumption is the teacher's locally resumable pointer at their
// current session. It is convenience state only; the session row's status is
// always authoritative on conflict.
type SessionResumption struct {
	SessionID  string    `json:"session_id"`
	CourseCode string    `json:"course_code"`
	StartedAt  time.Time `json:"started_at"`
}
