package models

import "time"

// AttemptState tracks the verification flow gating a session join.
type AttemptState string

const (
	AttemptSelected      AttemptState = "selected"
	AttemptSMSConfirmed  AttemptState = "sms_confirmed"
	AttemptFaceConfirmed AttemptState = "face_confirmed"
	AttemptBothConfirmed AttemptState = "both_confirmed"
	AttemptCommitted     AttemptState = "committed"
)

// VerificationAttempt is the ephemeral per-student record of an in-progress
// session join. It lives only in memory: abandoning the flow or committing
// discards it, and a student holds at most one at a time.
type VerificationAttempt struct {
	SessionID     string       `json:"session_id"`
	CourseCode    string       `json:"course_code"`
	CourseName    string       `json:"course_name"`
	StudentNumber string       `json:"student_number"`
	SMSVerified   bool         `json:"sms_verified"`
	FaceVerified  bool         `json:"face_verified"`
	State         AttemptState `json:"state"`
	StartedAt     time.Time    `json:"started_at"`
}

// BothConfirmed reports whether both proofs are done.
func (a *VerificationAttempt) BothConfirmed() bool {
	return a.SMSVerified && a.FaceVerified
}

// Refresh recomputes the state from the proof flags.
func (a *VerificationAttempt) Refresh() {
	switch {
	case a.SMSVerified && a.FaceVerified:
		a.State = AttemptBothConfirmed
	case a.SMSVerified:
		a.State = AttemptSMSConfirmed
	case a.FaceVerified:
		a.State = AttemptFaceConfirmed
	default:
		a.State = AttemptSelected
	}
}
