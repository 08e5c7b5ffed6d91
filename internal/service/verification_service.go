package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/attendance-api/internal/models"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

type attemptSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
}

type membershipCommitter interface {
	Commit(ctx context.Context, sessionID, studentNumber string) error
}

type faceVerifier interface {
	Verify(ctx context.Context, studentNumber, imageURL string) (bool, error)
}

type smsVerifier interface {
	Check(ctx context.Context, studentNumber, code string) (bool, error)
}

// VerificationService runs the two-factor flow that gates a student's entry
// into an open session. Attempts are ephemeral and held in memory only: one
// per student, discarded on abandon or commit. Joining requires both the SMS
// and the face proof, in any order, before a commit is accepted.
type VerificationService struct {
	sessions   attemptSessionReader
	membership membershipCommitter
	face       faceVerifier
	sms        smsVerifier
	logger     *zap.Logger
	attemptTTL time.Duration

	mu       sync.Mutex
	attempts map[string]*models.VerificationAttempt
	inFlight map[string]bool
}

// NewVerificationService constructs the verification gate.
func NewVerificationService(sessions attemptSessionReader, membership membershipCommitter, face faceVerifier, sms smsVerifier, attemptTTL time.Duration, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if attemptTTL <= 0 {
		attemptTTL = 15 * time.Minute
	}
	return &VerificationService{
		sessions:   sessions,
		membership: membership,
		face:       face,
		sms:        sms,
		logger:     logger,
		attemptTTL: attemptTTL,
		attempts:   make(map[string]*models.VerificationAttempt),
		inFlight:   make(map[string]bool),
	}
}

// Select opens a fresh attempt for the student against the given session.
// Both proofs start unconfirmed regardless of any earlier abandoned attempt.
func (s *VerificationService) Select(ctx context.Context, studentNumber, sessionID string) (*models.VerificationAttempt, error) {
	if studentNumber == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student number required")
	}

	s.mu.Lock()
	if existing, ok := s.attempts[studentNumber]; ok && !s.expired(existing) {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, "a verification is already in progress")
	}
	s.mu.Unlock()

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "failed to load session")
	}
	if session.Status != models.SessionActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session is no longer open")
	}
	if !session.InRoster(studentNumber) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in this course")
	}
	if session.HasParticipant(studentNumber) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for this session")
	}

	attempt := &models.VerificationAttempt{
		SessionID:     session.ID,
		CourseCode:    session.CourseCode,
		CourseName:    session.CourseName,
		StudentNumber: studentNumber,
		State:         models.AttemptSelected,
		StartedAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	s.attempts[studentNumber] = attempt
	s.mu.Unlock()

	view := *attempt
	return &view, nil
}

// ConfirmSMS runs the remote-factor proof. Confirming an already confirmed or
// currently running factor is rejected rather than rerun.
func (s *VerificationService) ConfirmSMS(ctx context.Context, studentNumber, sessionID, code string) (*models.VerificationAttempt, error) {
	if err := s.beginProof(studentNumber, sessionID, factorSMS); err != nil {
		return nil, err
	}

	passed, err := s.sms.Check(ctx, studentNumber, code)
	if err != nil {
		s.endProof(studentNumber, factorSMS)
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "sms verification request failed")
	}
	if !passed {
		s.endProof(studentNumber, factorSMS)
		return nil, appErrors.Clone(appErrors.ErrValidation, "sms verification failed")
	}

	return s.recordProof(studentNumber, sessionID, factorSMS, func(a *models.VerificationAttempt) {
		a.SMSVerified = true
	})
}

// ConfirmFace runs the biometric-factor proof, symmetric to ConfirmSMS.
func (s *VerificationService) ConfirmFace(ctx context.Context, studentNumber, sessionID, imageURL string) (*models.VerificationAttempt, error) {
	if err := s.beginProof(studentNumber, sessionID, factorFace); err != nil {
		return nil, err
	}

	passed, err := s.face.Verify(ctx, studentNumber, imageURL)
	if err != nil {
		s.endProof(studentNumber, factorFace)
		return nil, appErrors.Wrap(err, appErrors.ErrConnectivity.Code, appErrors.ErrConnectivity.Status, "face verification request failed")
	}
	if !passed {
		s.endProof(studentNumber, factorFace)
		return nil, appErrors.Clone(appErrors.ErrValidation, "face verification failed")
	}

	return s.recordProof(studentNumber, sessionID, factorFace, func(a *models.VerificationAttempt) {
		a.FaceVerified = true
	})
}

// Commit records the student into the session once both proofs are done. A
// failed commit keeps the confirmed proofs so the student can retry without
// redoing verification. The committed course name is returned for the
// success notification.
func (s *VerificationService) Commit(ctx context.Context, studentNumber, sessionID string) (string, error) {
	attempt, err := s.openAttempt(studentNumber, sessionID)
	if err != nil {
		return "", err
	}
	if !attempt.BothConfirmed() {
		return "", appErrors.Clone(appErrors.ErrValidation, "complete all verifications before joining")
	}

	key := inFlightKey(studentNumber, opCommit)
	s.mu.Lock()
	if s.inFlight[key] {
		s.mu.Unlock()
		return "", appErrors.Clone(appErrors.ErrConflict, "commit already in progress")
	}
	s.inFlight[key] = true
	s.mu.Unlock()

	commitErr := s.membership.Commit(ctx, sessionID, studentNumber)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)

	current, ok := s.attempts[studentNumber]
	if !ok || current.SessionID != sessionID {
		// Abandoned while the request was in flight; discard the result.
		return "", appErrors.Clone(appErrors.ErrConflict, "verification was abandoned")
	}

	if commitErr != nil {
		// Proofs stay confirmed; the student may retry the commit.
		return "", commitErr
	}

	courseName := current.CourseName
	delete(s.attempts, studentNumber)
	return courseName, nil
}

// Abandon discards the student's open attempt, if any. A later Select starts
// from scratch with both proofs unconfirmed.
func (s *VerificationService) Abandon(studentNumber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, studentNumber)
}

// Attempt returns a copy of the student's current attempt.
func (s *VerificationService) Attempt(studentNumber string) (*models.VerificationAttempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[studentNumber]
	if !ok || s.expired(attempt) {
		return nil, false
	}
	view := *attempt
	return &view, true
}

func (s *VerificationService) openAttempt(studentNumber, sessionID string) (*models.VerificationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[studentNumber]
	if !ok || s.expired(attempt) {
		delete(s.attempts, studentNumber)
		return nil, appErrors.Clone(appErrors.ErrValidation, "no verification in progress, select a session first")
	}
	if attempt.SessionID != sessionID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "verification in progress for a different session")
	}
	view := *attempt
	return &view, nil
}

const (
	factorSMS  = "sms"
	factorFace = "face"
	opCommit   = "commit"
)

func inFlightKey(studentNumber, op string) string {
	return op + ":" + studentNumber
}

// beginProof checks the attempt, the factor's confirmed flag and the factor's
// in-flight marker under one lock, so parallel confirms of the same factor
// cannot both reach the collaborator.
func (s *VerificationService) beginProof(studentNumber, sessionID, factor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[studentNumber]
	if !ok || s.expired(attempt) {
		delete(s.attempts, studentNumber)
		return appErrors.Clone(appErrors.ErrValidation, "no verification in progress, select a session first")
	}
	if attempt.SessionID != sessionID {
		return appErrors.Clone(appErrors.ErrConflict, "verification in progress for a different session")
	}
	confirmed := attempt.SMSVerified
	if factor == factorFace {
		confirmed = attempt.FaceVerified
	}
	if confirmed {
		return appErrors.Clone(appErrors.ErrConflict, factor+" verification already completed")
	}
	key := inFlightKey(studentNumber, factor)
	if s.inFlight[key] {
		return appErrors.Clone(appErrors.ErrConflict, factor+" verification already in progress")
	}
	s.inFlight[key] = true
	return nil
}

func (s *VerificationService) endProof(studentNumber, factor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, inFlightKey(studentNumber, factor))
}

func (s *VerificationService) recordProof(studentNumber, sessionID, factor string, apply func(*models.VerificationAttempt)) (*models.VerificationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, inFlightKey(studentNumber, factor))
	attempt, ok := s.attempts[studentNumber]
	if !ok || attempt.SessionID != sessionID {
		// Abandoned while the proof was in flight; discard the result.
		return nil, appErrors.Clone(appErrors.ErrConflict, "verification was abandoned")
	}
	apply(attempt)
	attempt.Refresh()
	view := *attempt
	return &view, nil
}

func (s *VerificationService) expired(attempt *models.VerificationAttempt) bool {
	return time.Since(attempt.StartedAt) > s.attemptTTL
}
