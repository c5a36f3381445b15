package queries

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/common/logger"
	"medclaim-portal/internal/common/validation"
	"medclaim-portal/internal/models"
)

// fakeStore keeps the whole data set in memory and applies mutations the
// way the Postgres store does, so the state machine can be driven
// end to end without a database.
type fakeStore struct {
	applications map[string]*models.Application
	queries      map[string]*models.Query
	messages     map[string][]*models.Message
	attachments  map[string][]*models.Attachment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		applications: make(map[string]*models.Application),
		queries:      make(map[string]*models.Query),
		messages:     make(map[string][]*models.Message),
		attachments:  make(map[string][]*models.Attachment),
	}
}

func (f *fakeStore) GetApplication(_ context.Context, id string) (*models.Application, error) {
	app, ok := f.applications[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Application", id)
	}
	return app, nil
}

func (f *fakeStore) CreateQuery(_ context.Context, q *models.Query, first *models.Message) error {
	cp := *q
	f.queries[q.ID] = &cp
	f.messages[q.ID] = []*models.Message{first}
	return nil
}

func (f *fakeStore) GetQuery(_ context.Context, id string) (*models.Query, error) {
	q, ok := f.queries[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Query", id)
	}
	cp := *q
	return &cp, nil
}

func (f *fakeStore) GetQueryByToken(_ context.Context, token string) (*models.Query, error) {
	for _, q := range f.queries {
		if q.AccessToken == token {
			cp := *q
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("Query", "token")
}

func (f *fakeStore) ListQueries(_ context.Context, filter models.QueryFilter, restrictIDs []string) ([]*models.Query, error) {
	var restrict map[string]bool
	if restrictIDs != nil {
		restrict = make(map[string]bool, len(restrictIDs))
		for _, id := range restrictIDs {
			restrict[id] = true
		}
	}

	var out []*models.Query
	for _, q := range f.queries {
		if restrict != nil && !restrict[q.ID] {
			continue
		}
		if filter.ApplicationID != "" && q.ApplicationID != filter.ApplicationID {
			continue
		}
		if filter.Status != "" && q.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && q.Priority != filter.Priority {
			continue
		}
		cp := *q
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) ListMessages(_ context.Context, queryID string, includeInternal bool) ([]*models.Message, error) {
	var out []*models.Message
	for _, m := range f.messages[queryID] {
		if m.IsInternalNote && !includeInternal {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) AppendMessage(_ context.Context, m *models.Message, mut messageMutation) error {
	q, ok := f.queries[m.QueryID]
	if !ok {
		return apperrors.NewNotFoundError("Query", m.QueryID)
	}
	f.messages[m.QueryID] = append(f.messages[m.QueryID], m)
	q.TotalMessages++
	q.UpdatedAt = m.CreatedAt
	if mut.TouchLastMessage {
		q.Status = mut.NewStatus
		q.UnreadByAdmin = mut.UnreadByAdmin
		q.UnreadByUser = mut.UnreadByUser
		at := m.CreatedAt
		q.LastMessageAt = &at
		q.LastMessageBy = string(m.SenderType)
	}
	return nil
}

func (f *fakeStore) MarkResolved(_ context.Context, id, resolvedBy string, at time.Time) error {
	q := f.queries[id]
	q.Status = models.QueryStatusResolved
	q.ResolvedAt = &at
	q.ResolvedBy = resolvedBy
	q.UpdatedAt = at
	return nil
}

func (f *fakeStore) MarkClosed(_ context.Context, id, closedBy string, at time.Time) error {
	q := f.queries[id]
	q.Status = models.QueryStatusClosed
	q.ResolvedAt = &at
	q.ResolvedBy = closedBy
	q.UpdatedAt = at
	return nil
}

func (f *fakeStore) MarkReopened(_ context.Context, id string, at time.Time, newToken string, newExpiry time.Time) error {
	q := f.queries[id]
	q.Status = models.QueryStatusOpen
	q.ResolvedAt = nil
	q.ResolvedBy = ""
	q.UpdatedAt = at
	if newToken != "" {
		q.AccessToken = newToken
		q.TokenExpiresAt = newExpiry
	}
	return nil
}

func (f *fakeStore) InsertAttachment(_ context.Context, a *models.Attachment) error {
	f.attachments[a.QueryID] = append(f.attachments[a.QueryID], a)
	return nil
}

func (f *fakeStore) ListAttachments(_ context.Context, queryID string) ([]*models.Attachment, error) {
	return f.attachments[queryID], nil
}

func (f *fakeStore) DeleteAttachment(_ context.Context, id string) error {
	for qid, list := range f.attachments {
		for i, a := range list {
			if a.ID == id {
				f.attachments[qid] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return apperrors.NewNotFoundError("Attachment", id)
}

func (f *fakeStore) UnreadStats(_ context.Context) (*models.QueryStats, error) {
	stats := &models.QueryStats{}
	for _, q := range f.queries {
		if q.UnreadByAdmin {
			stats.UnreadCount++
		}
		switch q.Status {
		case models.QueryStatusOpen:
			stats.OpenCount++
		case models.QueryStatusUserReplied:
			stats.UserRepliedCount++
		}
	}
	return stats, nil
}

type fakeSearch struct {
	indexed []string
	ids     []string
	err     error
}

func (f *fakeSearch) Index(_ context.Context, q *models.Query, _ string) {
	f.indexed = append(f.indexed, q.ID)
}

func (f *fakeSearch) SearchIDs(_ context.Context, _ string) ([]string, error) {
	return f.ids, f.err
}

type fakeNotifier struct {
	created []string
	replied []string
	urgent  []string
	lastURL string
	err     error
}

func (f *fakeNotifier) QueryCreated(_ context.Context, q *models.Query, _ *models.Application, publicURL string) error {
	f.created = append(f.created, q.ID)
	f.lastURL = publicURL
	return f.err
}

func (f *fakeNotifier) AdminReplied(_ context.Context, q *models.Query, publicURL string) error {
	f.replied = append(f.replied, q.ID)
	f.lastURL = publicURL
	return f.err
}

func (f *fakeNotifier) UrgentQuery(_ context.Context, q *models.Query, _ *models.Application) error {
	f.urgent = append(f.urgent, q.ID)
	return f.err
}

type fakeStats struct {
	cached      *models.QueryStats
	sets        int
	invalidated int
}

func (f *fakeStats) Get(_ context.Context) *models.QueryStats { return f.cached }

func (f *fakeStats) Set(_ context.Context, stats *models.QueryStats) {
	f.cached = stats
	f.sets++
}

func (f *fakeStats) Invalidate(_ context.Context) {
	f.cached = nil
	f.invalidated++
}

const testAppID = "app-0042"

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeSearch, *fakeNotifier, *fakeStats) {
	t.Helper()

	store := newFakeStore()
	store.applications[testAppID] = &models.Application{
		ID:                testAppID,
		ApplicationNumber: "MED-2025-0042",
		EmployeeName:      "A. Sharma",
		EmployeeEmail:     "a.sharma@example.gov.in",
		Status:            models.ClaimStatusUnderReview,
	}

	search := &fakeSearch{}
	notifier := &fakeNotifier{}
	stats := &fakeStats{}

	svc := NewService(
		store,
		search,
		notifier,
		stats,
		NewTokenIssuer(30),
		validation.UploadPolicy{
			MaxSizeBytes: 10 << 20,
			AllowedTypes: []string{"application/pdf", "image/jpeg", "image/png", "image/webp"},
		},
		"https://claims.example.gov.in",
		logger.NewTestLogger(t),
	)
	return svc, store, search, notifier, stats
}

var obcUser = models.AdminUser{ID: "admin-1", Name: "R. Verma", Email: "r.verma@example.gov.in", Role: "obc_cell"}

func TestCreateQuery(t *testing.T) {
	ctx := context.Background()
	svc, store, search, notifier, stats := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "Need Additional Medical Documents",
		Message:       "Please upload the discharge summary.",
		Priority:      models.PriorityHigh,
	}, obcUser)
	require.NoError(t, err)

	assert.Equal(t, models.QueryStatusOpen, q.Status)
	assert.Equal(t, 1, q.TotalMessages)
	assert.True(t, q.UnreadByUser)
	assert.False(t, q.UnreadByAdmin)
	assert.Equal(t, string(models.SenderAdmin), q.LastMessageBy)
	assert.NotEmpty(t, q.AccessToken)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), q.TokenExpiresAt, time.Minute)
	assert.Equal(t, "a.sharma@example.gov.in", q.EmployeeEmail)

	messages, err := store.ListMessages(ctx, q.ID, true)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.SenderAdmin, messages[0].SenderType)

	assert.Equal(t, []string{q.ID}, search.indexed)
	assert.Equal(t, []string{q.ID}, notifier.created)
	assert.Contains(t, notifier.lastURL, "/queries/public/"+q.AccessToken)
	assert.Empty(t, notifier.urgent)
	assert.Equal(t, 1, stats.invalidated)
}

func TestCreateQueryValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := newTestService(t)

	tests := []struct {
		name string
		in   CreateInput
		code apperrors.ErrorCode
	}{
		{
			name: "missing subject",
			in:   CreateInput{ApplicationID: testAppID, Message: "body", Priority: models.PriorityNormal},
			code: apperrors.ErrCodeValidationFailed,
		},
		{
			name: "missing message",
			in:   CreateInput{ApplicationID: testAppID, Subject: "subject", Priority: models.PriorityNormal},
			code: apperrors.ErrCodeValidationFailed,
		},
		{
			name: "bad priority",
			in:   CreateInput{ApplicationID: testAppID, Subject: "subject", Message: "body", Priority: "asap"},
			code: apperrors.ErrCodeValidationFailed,
		},
		{
			name: "unknown application",
			in:   CreateInput{ApplicationID: "app-missing", Subject: "subject", Message: "body", Priority: models.PriorityNormal},
			code: apperrors.ErrCodeResourceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in, obcUser)
			require.Error(t, err)
			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.code, stdErr.Code)
		})
	}
}

func TestCreateUrgentQuerySendsAlert(t *testing.T) {
	ctx := context.Background()
	svc, _, _, notifier, _ := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "Ambulance bill mismatch",
		Message:       "Billed amount exceeds the sanctioned ceiling.",
		Priority:      models.PriorityUrgent,
	}, obcUser)
	require.NoError(t, err)

	assert.Equal(t, []string{q.ID}, notifier.urgent)
}

func TestReplyTransitions(t *testing.T) {
	ctx := context.Background()
	svc, store, _, notifier, _ := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "Need Additional Medical Documents",
		Message:       "Please upload the discharge summary.",
		Priority:      models.PriorityHigh,
	}, obcUser)
	require.NoError(t, err)

	// Employee replies over the public link.
	_, err = svc.ReplyByToken(ctx, q.AccessToken, "Uploaded the summary.", "A. Sharma")
	require.NoError(t, err)

	got, err := store.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueryStatusUserReplied, got.Status)
	assert.Equal(t, 2, got.TotalMessages)
	assert.True(t, got.UnreadByAdmin)
	assert.False(t, got.UnreadByUser)
	assert.Equal(t, string(models.SenderUser), got.LastMessageBy)

	// Admin answers back.
	_, err = svc.Reply(ctx, q.ID, ReplyInput{
		Body:       "Received, verifying now.",
		Sender:     models.SenderAdmin,
		SenderID:   obcUser.ID,
		SenderName: obcUser.Name,
		SenderRole: obcUser.Role,
	})
	require.NoError(t, err)

	got, err = store.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueryStatusAdminReplied, got.Status)
	assert.Equal(t, 3, got.TotalMessages)
	assert.True(t, got.UnreadByUser)
	assert.False(t, got.UnreadByAdmin)
	assert.Equal(t, []string{q.ID}, notifier.replied)
}

func TestInternalNoteLeavesVisibleStateAlone(t *testing.T) {
	ctx := context.Background()
	svc, store, _, notifier, _ := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "Need Additional Medical Documents",
		Message:       "Please upload the discharge summary.",
		Priority:      models.PriorityHigh,
	}, obcUser)
	require.NoError(t, err)

	_, err = svc.ReplyByToken(ctx, q.AccessToken, "Uploaded the summary.", "A. Sharma")
	require.NoError(t, err)

	before, err := store.GetQuery(ctx, q.ID)
	require.NoError(t, err)

	_, err = svc.Reply(ctx, q.ID, ReplyInput{
		Body:           "Bill numbers do not match the hospital ledger, check before approving.",
		Sender:         models.SenderAdmin,
		IsInternalNote: true,
		SenderID:       obcUser.ID,
		SenderName:     obcUser.Name,
		SenderRole:     obcUser.Role,
	})
	require.NoError(t, err)

	after, err := store.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.TotalMessages)
	assert.Equal(t, models.QueryStatusUserReplied, after.Status)
	assert.Equal(t, before.UnreadByUser, after.UnreadByUser)
	assert.Equal(t, before.LastMessageAt.Unix(), after.LastMessageAt.Unix())
	assert.Equal(t, before.LastMessageBy, after.LastMessageBy)

	// No email goes out for an internal note.
	assert.Empty(t, notifier.replied)

	// Invisible over the public channel, visible to admins.
	publicThread, err := svc.GetThreadByToken(ctx, q.AccessToken)
	require.NoError(t, err)
	assert.Len(t, publicThread.Messages, 2)

	adminThread, err := svc.GetThread(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, adminThread.Messages, 3)
}

func TestInternalNoteFromUserRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "subject",
		Message:       "body",
		Priority:      models.PriorityNormal,
	}, obcUser)
	require.NoError(t, err)

	_, err = svc.Reply(ctx, q.ID, ReplyInput{
		Body:           "note",
		Sender:         models.SenderUser,
		IsInternalNote: true,
	})
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
}

func TestResolveReopenLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _, _ := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "Need Additional Medical Documents",
		Message:       "Please upload the discharge summary.",
		Priority:      models.PriorityHigh,
	}, obcUser)
	require.NoError(t, err)

	_, err = svc.ReplyByToken(ctx, q.AccessToken, "Uploaded the summary.", "A. Sharma")
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, q.ID, obcUser)
	require.NoError(t, err)
	assert.Equal(t, models.QueryStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, obcUser.ID, resolved.ResolvedBy)

	// Resolving again is a quiet no-op.
	again, err := svc.Resolve(ctx, q.ID, obcUser)
	require.NoError(t, err)
	assert.Equal(t, models.QueryStatusResolved, again.Status)

	// Replies bounce off a resolved thread, public path included.
	_, err = svc.ReplyByToken(ctx, q.AccessToken, "One more thing.", "A. Sharma")
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeInvalidState, stdErr.Code)

	reopened, err := svc.Reopen(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueryStatusOpen, reopened.Status)
	assert.Nil(t, reopened.ResolvedAt)

	// And the thread accepts replies again.
	_, err = svc.ReplyByToken(ctx, q.AccessToken, "One more thing.", "A. Sharma")
	require.NoError(t, err)

	got, err := store.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueryStatusUserReplied, got.Status)
	assert.Equal(t, 4, got.TotalMessages)
}

func TestReopenNonTerminalRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "subject",
		Message:       "body",
		Priority:      models.PriorityNormal,
	}, obcUser)
	require.NoError(t, err)

	_, err = svc.Reopen(ctx, q.ID)
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeInvalidState, stdErr.Code)
}

func TestReopenRotatesExpiredToken(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _, _ := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "subject",
		Message:       "body",
		Priority:      models.PriorityNormal,
	}, obcUser)
	require.NoError(t, err)

	_, err = svc.Close(ctx, q.ID, obcUser)
	require.NoError(t, err)

	// Age the token past its window.
	store.queries[q.ID].TokenExpiresAt = time.Now().Add(-time.Hour)
	oldToken := q.AccessToken

	reopened, err := svc.Reopen(ctx, q.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, reopened.AccessToken)
	assert.True(t, reopened.TokenExpiresAt.After(time.Now()))

	_, err = svc.GetThreadByToken(ctx, oldToken)
	require.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _, _ := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "subject",
		Message:       "body",
		Priority:      models.PriorityNormal,
	}, obcUser)
	require.NoError(t, err)

	store.queries[q.ID].TokenExpiresAt = time.Now().Add(-time.Minute)

	_, err = svc.GetThreadByToken(ctx, q.AccessToken)
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeTokenExpired, stdErr.Code)

	_, err = svc.GetThreadByToken(ctx, "no-such-token")
	require.Error(t, err)
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeResourceNotFound, stdErr.Code)
}

func TestUploadByToken(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _, _ := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "Need Additional Medical Documents",
		Message:       "Please upload the discharge summary.",
		Priority:      models.PriorityHigh,
	}, obcUser)
	require.NoError(t, err)

	// Oversize file never reaches the store.
	_, err = svc.UploadByToken(ctx, q.AccessToken, UploadInput{
		FileName:    "scan.pdf",
		SizeBytes:   11 << 20,
		ContentType: "application/pdf",
		UserName:    "A. Sharma",
	})
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeUploadTooLarge, stdErr.Code)
	assert.Empty(t, store.attachments[q.ID])

	// Executables are blocked regardless of size.
	_, err = svc.UploadByToken(ctx, q.AccessToken, UploadInput{
		FileName:    "tool.exe",
		SizeBytes:   1 << 20,
		ContentType: "application/x-msdownload",
		UserName:    "A. Sharma",
	})
	require.Error(t, err)
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeUploadTypeBlocked, stdErr.Code)

	a, err := svc.UploadByToken(ctx, q.AccessToken, UploadInput{
		FileName:    "discharge-summary.pdf",
		SizeBytes:   9 << 20,
		ContentType: "application/pdf; charset=binary",
		UserName:    "A. Sharma",
	})
	require.NoError(t, err)
	assert.Equal(t, q.ID, a.QueryID)
	assert.Contains(t, a.StoragePath, "queries/"+q.ID+"/")
	assert.Equal(t, "application/pdf", a.MimeType)
	require.Len(t, store.attachments[q.ID], 1)
}

func TestUploadRejectedOnTerminalThread(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := newTestService(t)

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "subject",
		Message:       "body",
		Priority:      models.PriorityNormal,
	}, obcUser)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, q.ID, obcUser)
	require.NoError(t, err)

	_, err = svc.UploadByToken(ctx, q.AccessToken, UploadInput{
		FileName:    "late.pdf",
		SizeBytes:   1 << 20,
		ContentType: "application/pdf",
		UserName:    "A. Sharma",
	})
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeInvalidState, stdErr.Code)
}

func TestListWithSearchRestriction(t *testing.T) {
	ctx := context.Background()
	svc, _, search, _, _ := newTestService(t)

	q1, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "Discharge summary missing",
		Message:       "body",
		Priority:      models.PriorityNormal,
	}, obcUser)
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "Pharmacy bill clarification",
		Message:       "body",
		Priority:      models.PriorityLow,
	}, obcUser)
	require.NoError(t, err)

	search.ids = []string{q1.ID}
	got, err := svc.List(ctx, models.QueryFilter{Search: "discharge"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, q1.ID, got[0].ID)

	// No index hits means an empty page, not the full directory.
	search.ids = []string{}
	got, err = svc.List(ctx, models.QueryFilter{Search: "no-such-term"})
	require.NoError(t, err)
	assert.Empty(t, got)

	// Without a search term the index is never consulted.
	got, err = svc.List(ctx, models.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStatsCaching(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, stats := newTestService(t)

	_, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "subject",
		Message:       "body",
		Priority:      models.PriorityNormal,
	}, obcUser)
	require.NoError(t, err)

	got, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.OpenCount)
	assert.Equal(t, 0, got.UnreadCount)
	assert.Equal(t, 1, stats.sets)

	// Second read is served from cache.
	stats.cached = &models.QueryStats{OpenCount: 99}
	got, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 99, got.OpenCount)
	assert.Equal(t, 1, stats.sets)
}

func TestNotifierFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, notifier, _ := newTestService(t)
	notifier.err = assert.AnError

	q, err := svc.Create(ctx, CreateInput{
		ApplicationID: testAppID,
		Subject:       "subject",
		Message:       "body",
		Priority:      models.PriorityUrgent,
	}, obcUser)
	require.NoError(t, err)
	assert.Equal(t, models.QueryStatusOpen, q.Status)
}
