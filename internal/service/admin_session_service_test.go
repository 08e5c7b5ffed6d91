package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/legacy"
	"github.com/campushq/attendance-api/internal/models"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
	"github.com/campushq/attendance-api/pkg/export"
)

type adminRepoStub struct {
	session  *models.AttendanceSession
	sessions []models.AttendanceSession
	findErr  error
	replaced []string
	imported []models.AttendanceSession
}

func (s *adminRepoStub) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	session := *s.session
	return &session, nil
}

func (s *adminRepoStub) ListAll(ctx context.Context) ([]models.AttendanceSession, error) {
	return s.sessions, nil
}

func (s *adminRepoStub) ReplaceParticipants(ctx context.Context, sessionID string, participants []string) error {
	s.replaced = participants
	s.session.Participants = participants
	return nil
}

func (s *adminRepoStub) InsertImported(ctx context.Context, session *models.AttendanceSession) error {
	s.imported = append(s.imported, *session)
	return nil
}

type directoryStub struct {
	users map[string]models.User
}

func (s directoryStub) FindByStudentNumbers(ctx context.Context, numbers []string) (map[string]models.User, error) {
	return s.users, nil
}

type csvStub struct{ rendered *export.Dataset }

func (s *csvStub) Render(data export.Dataset) ([]byte, error) {
	s.rendered = &data
	return []byte("csv"), nil
}

type pdfStub struct{ title string }

func (s *pdfStub) Render(data export.Dataset, title string) ([]byte, error) {
	s.title = title
	return []byte("%PDF"), nil
}

func adminTestSession() *models.AttendanceSession {
	return &models.AttendanceSession{
		ID:           "sess-1",
		CourseCode:   "CS101",
		CourseName:   "Algorithms",
		Status:       models.SessionCompleted,
		Roster:       []string{"2021001", "2021002", "2021003"},
		Participants: []string{"2021001"},
		CreatedAt:    time.Date(2023, 11, 14, 22, 13, 0, 0, time.UTC),
	}
}

func newAdminService(repo *adminRepoStub) *AdminSessionService {
	directory := directoryStub{users: map[string]models.User{
		"2021001": {FullName: "Alice Smith"},
		"2021002": {FullName: "Bob Jones"},
	}}
	return NewAdminSessionService(repo, directory, &csvStub{}, &pdfStub{}, nil, nil)
}

func TestAdminDetailMarksJoinedStudents(t *testing.T) {
	repo := &adminRepoStub{session: adminTestSession()}
	svc := newAdminService(repo)

	detail, err := svc.Detail(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, detail.Students, 3)
	assert.Equal(t, "Alice Smith", detail.Students[0].FullName)
	assert.True(t, detail.Students[0].Joined)
	assert.False(t, detail.Students[1].Joined)
	assert.Equal(t, "14.11.2023 22:13", detail.CreatedAtDisplay)

	// Student without a directory entry still appears, just unnamed.
	assert.Equal(t, "2021003", detail.Students[2].StudentNumber)
	assert.Empty(t, detail.Students[2].FullName)
}

func TestAdminDetailPlaceholderForUnparseableDate(t *testing.T) {
	session := adminTestSession()
	session.CreatedAt = time.Time{}
	repo := &adminRepoStub{session: session}
	svc := newAdminService(repo)

	detail, err := svc.Detail(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, legacy.InvalidDatePlaceholder, detail.CreatedAtDisplay)
}

func TestAdminDetailMissingSession(t *testing.T) {
	repo := &adminRepoStub{findErr: sql.ErrNoRows}
	svc := newAdminService(repo)

	_, err := svc.Detail(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdminReplaceParticipantsOverwritesSet(t *testing.T) {
	repo := &adminRepoStub{session: adminTestSession()}
	svc := newAdminService(repo)

	detail, err := svc.ReplaceParticipants(context.Background(), "sess-1", []string{"2021002", "2021003"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2021002", "2021003"}, repo.replaced)

	// The previously committed student is no longer marked joined.
	assert.False(t, detail.Students[0].Joined)
	assert.True(t, detail.Students[1].Joined)
}

func TestAdminReplaceParticipantsFiltersRosterAndDuplicates(t *testing.T) {
	repo := &adminRepoStub{session: adminTestSession()}
	svc := newAdminService(repo)

	_, err := svc.ReplaceParticipants(context.Background(), "sess-1", []string{"2021001", "2021001", "9999999"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2021001"}, repo.replaced)
}

func TestAdminReplaceParticipantsEmptySetClears(t *testing.T) {
	repo := &adminRepoStub{session: adminTestSession()}
	svc := newAdminService(repo)

	detail, err := svc.ReplaceParticipants(context.Background(), "sess-1", []string{})
	require.NoError(t, err)
	assert.Empty(t, repo.replaced)
	for _, student := range detail.Students {
		assert.False(t, student.Joined)
	}
}

func TestAdminImportLegacyDecodesWrappedFields(t *testing.T) {
	repo := &adminRepoStub{session: adminTestSession()}
	svc := newAdminService(repo)

	rows := []LegacyImportRow{
		{
			ID:           map[string]interface{}{"$oid": "653f1c2d9a1b"},
			CourseCode:   "CS101",
			CourseName:   "Algorithms",
			Date:         map[string]interface{}{"$date": float64(1700000000000)},
			Roster:       []string{"2021001"},
			Participants: []string{"2021001"},
		},
		{
			ID:         "plain-id",
			CourseCode: "MA201",
			CourseName: "Calculus",
			Date:       "not-a-date",
		},
	}

	result, err := svc.ImportLegacy(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.InvalidDates)
	assert.Empty(t, result.Failed)

	require.Len(t, repo.imported, 2)
	assert.Equal(t, "653f1c2d9a1b", repo.imported[0].ID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), repo.imported[0].CreatedAt.UTC())
	assert.Equal(t, models.SessionCompleted, repo.imported[0].Status)

	assert.True(t, repo.imported[1].CreatedAt.IsZero())
	assert.NotNil(t, repo.imported[1].Roster)
	assert.NotNil(t, repo.imported[1].Participants)
}

func TestAdminImportLegacyRejectsEmptyBatch(t *testing.T) {
	svc := newAdminService(&adminRepoStub{})

	_, err := svc.ImportLegacy(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdminImportLegacyCollectsRowFailures(t *testing.T) {
	svc := newAdminService(&adminRepoStub{})

	rows := []LegacyImportRow{{ID: "x", CourseCode: "", CourseName: ""}}
	result, err := svc.ImportLegacy(context.Background(), rows)
	require.NoError(t, err)
	assert.Zero(t, result.Imported)
	require.Len(t, result.Failed, 1)
}

func TestAdminExportHistoryFormats(t *testing.T) {
	repo := &adminRepoStub{sessions: []models.AttendanceSession{*adminTestSession()}}
	csv := &csvStub{}
	pdf := &pdfStub{}
	directory := directoryStub{}
	svc := NewAdminSessionService(repo, directory, csv, pdf, nil, nil)

	payload, contentType, err := svc.ExportHistory(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, []byte("csv"), payload)
	require.NotNil(t, csv.rendered)
	require.Len(t, csv.rendered.Rows, 1)
	assert.Equal(t, "33%", csv.rendered.Rows[0]["Rate"])

	_, contentType, err = svc.ExportHistory(context.Background(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "Attendance History", pdf.title)

	_, _, err = svc.ExportHistory(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
