package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/models"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

type participationRepoStub struct {
	sessions []models.AttendanceSession
	byID     *models.AttendanceSession
	listErr  error
	findErr  error
	added    [][2]string
	addErr   error
}

func (s *participationRepoStub) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	session := *s.byID
	return &session, nil
}

func (s *participationRepoStub) ListActiveForStudent(ctx context.Context, studentNumber string) ([]models.AttendanceSession, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.sessions, nil
}

func (s *participationRepoStub) ListAll(ctx context.Context) ([]models.AttendanceSession, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.sessions, nil
}

func (s *participationRepoStub) AddParticipant(ctx context.Context, sessionID, studentNumber string) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, [2]string{sessionID, studentNumber})
	return nil
}

type cacheStub struct {
	entries map[string][]byte
	getErr  error
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: map[string][]byte{}}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	payload, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = payload
	return nil
}

func (c *cacheStub) Delete(ctx context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func TestActiveForStudentAnnotatesJoined(t *testing.T) {
	repo := &participationRepoStub{sessions: []models.AttendanceSession{
		{ID: "s1", CourseCode: "CS101", Status: models.SessionActive, Roster: []string{"2021001"}, Participants: []string{"2021001"}},
		{ID: "s2", CourseCode: "MA201", Status: models.SessionActive, Roster: []string{"2021001"}, Participants: []string{}},
	}}
	svc := NewParticipationService(repo, newCacheStub(), time.Minute, nil)

	views, stale, err := svc.ActiveForStudent(context.Background(), "2021001")
	require.NoError(t, err)
	assert.False(t, stale)
	require.Len(t, views, 2)
	assert.True(t, views[0].Joined)
	assert.False(t, views[1].Joined)
}

func TestActiveForStudentServesStaleListOnOutage(t *testing.T) {
	repo := &participationRepoStub{sessions: []models.AttendanceSession{
		{ID: "s1", CourseCode: "CS101", Status: models.SessionActive, Roster: []string{"2021001"}},
	}}
	cache := newCacheStub()
	svc := NewParticipationService(repo, cache, time.Minute, nil)

	views, stale, err := svc.ActiveForStudent(context.Background(), "2021001")
	require.NoError(t, err)
	assert.False(t, stale)
	require.Len(t, views, 1)

	repo.listErr = errors.New("connection refused")
	views, stale, err = svc.ActiveForStudent(context.Background(), "2021001")
	require.NoError(t, err)
	assert.True(t, stale)
	require.Len(t, views, 1)
	assert.Equal(t, "s1", views[0].SessionID)
}

func TestActiveForStudentOutageWithoutCache(t *testing.T) {
	repo := &participationRepoStub{listErr: errors.New("connection refused")}
	svc := NewParticipationService(repo, newCacheStub(), time.Minute, nil)

	_, _, err := svc.ActiveForStudent(context.Background(), "2021001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConnectivity.Code, appErrors.FromError(err).Code)
}

func TestHistoryGroupedByCourseOrdersNewestFirst(t *testing.T) {
	base := time.Date(2023, 11, 1, 9, 0, 0, 0, time.UTC)
	repo := &participationRepoStub{sessions: []models.AttendanceSession{
		{ID: "t1", CourseCode: "CS101", CourseName: "Algorithms", CreatedAt: base, Roster: []string{"a", "b", "c", "d"}, Participants: []string{"a"}},
		{ID: "t2", CourseCode: "CS101", CourseName: "Algorithms", CreatedAt: base.Add(24 * time.Hour), Roster: []string{"a", "b", "c", "d"}, Participants: []string{}},
		{ID: "t3", CourseCode: "CS101", CourseName: "Algorithms", CreatedAt: base.Add(48 * time.Hour), Roster: []string{"a", "b", "c", "d"}, Participants: []string{"a", "b"}},
		{ID: "m1", CourseCode: "MA201", CourseName: "Calculus", CreatedAt: base, Roster: []string{}, Participants: []string{}},
	}}
	svc := NewParticipationService(repo, nil, time.Minute, nil)

	groups, err := svc.HistoryGroupedByCourse(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	cs := groups[0]
	assert.Equal(t, "CS101", cs.CourseCode)
	require.Len(t, cs.Sessions, 3)
	assert.Equal(t, "t3", cs.Sessions[0].SessionID)
	assert.Equal(t, "t2", cs.Sessions[1].SessionID)
	assert.Equal(t, "t1", cs.Sessions[2].SessionID)

	assert.InDelta(t, 50, cs.Sessions[0].AttendanceRate, 0.01)
	assert.InDelta(t, 0, cs.Sessions[1].AttendanceRate, 0.01)
	assert.InDelta(t, 25, cs.Sessions[2].AttendanceRate, 0.01)

	// Empty roster yields zero, never a division error.
	assert.InDelta(t, 0, groups[1].Sessions[0].AttendanceRate, 0.01)
}

func TestCommitIsIdempotent(t *testing.T) {
	repo := &participationRepoStub{byID: &models.AttendanceSession{
		ID:           "s1",
		Status:       models.SessionActive,
		Roster:       []string{"2021001"},
		Participants: []string{"2021001"},
	}}
	svc := NewParticipationService(repo, nil, time.Minute, nil)

	err := svc.Commit(context.Background(), "s1", "2021001")
	require.NoError(t, err)
	assert.Empty(t, repo.added)
}

func TestCommitRejectsOutsideRoster(t *testing.T) {
	repo := &participationRepoStub{byID: &models.AttendanceSession{
		ID:     "s1",
		Status: models.SessionActive,
		Roster: []string{"2021001"},
	}}
	svc := NewParticipationService(repo, nil, time.Minute, nil)

	err := svc.Commit(context.Background(), "s1", "9999999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCommitMissingSession(t *testing.T) {
	repo := &participationRepoStub{findErr: sql.ErrNoRows}
	svc := NewParticipationService(repo, nil, time.Minute, nil)

	err := svc.Commit(context.Background(), "s1", "2021001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCommitAddsNewParticipant(t *testing.T) {
	repo := &participationRepoStub{byID: &models.AttendanceSession{
		ID:           "s1",
		Status:       models.SessionActive,
		Roster:       []string{"2021001"},
		Participants: []string{},
	}}
	svc := NewParticipationService(repo, nil, time.Minute, nil)

	err := svc.Commit(context.Background(), "s1", "2021001")
	require.NoError(t, err)
	require.Len(t, repo.added, 1)
	assert.Equal(t, [2]string{"s1", "2021001"}, repo.added[0])
}
