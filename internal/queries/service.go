// internal/queries/service.go
package queries

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/common/logger"
	"medclaim-portal/internal/common/metrics"
	"medclaim-portal/internal/common/validation"
	"medclaim-portal/internal/models"
)

// Store is the persistence surface the state machine drives. Implemented
// by PostgresStore; faked in tests.
type Store interface {
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	CreateQuery(ctx context.Context, q *models.Query, first *models.Message) error
	GetQuery(ctx context.Context, id string) (*models.Query, error)
	GetQueryByToken(ctx context.Context, token string) (*models.Query, error)
	ListQueries(ctx context.Context, filter models.QueryFilter, restrictIDs []string) ([]*models.Query, error)
	ListMessages(ctx context.Context, queryID string, includeInternal bool) ([]*models.Message, error)
	AppendMessage(ctx context.Context, m *models.Message, mut messageMutation) error
	MarkResolved(ctx context.Context, id, resolvedBy string, at time.Time) error
	MarkClosed(ctx context.Context, id, closedBy string, at time.Time) error
	MarkReopened(ctx context.Context, id string, at time.Time, newToken string, newExpiry time.Time) error
	InsertAttachment(ctx context.Context, a *models.Attachment) error
	ListAttachments(ctx context.Context, queryID string) ([]*models.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
	UnreadStats(ctx context.Context) (*models.QueryStats, error)
}

// Searcher is the directory's free-text accelerator.
type Searcher interface {
	Index(ctx context.Context, q *models.Query, applicationNumber string)
	SearchIDs(ctx context.Context, term string) ([]string, error)
}

// Notifier delivers employee emails and urgent-priority alerts. Failures
// are logged, never propagated: a lost email must not fail the mutation.
type Notifier interface {
	QueryCreated(ctx context.Context, q *models.Query, app *models.Application, publicURL string) error
	AdminReplied(ctx context.Context, q *models.Query, publicURL string) error
	UrgentQuery(ctx context.Context, q *models.Query, app *models.Application) error
}

// StatsCacher caches the dashboard counters between mutations.
type StatsCacher interface {
	Get(ctx context.Context) *models.QueryStats
	Set(ctx context.Context, stats *models.QueryStats)
	Invalidate(ctx context.Context)
}

// Service owns the query state machine and its invariants.
type Service struct {
	store         Store
	search        Searcher
	notifier      Notifier
	stats         StatsCacher
	tokens        *TokenIssuer
	uploads       validation.UploadPolicy
	publicBaseURL string
	logger        logger.Logger
	now           func() time.Time
}

func NewService(
	store Store,
	search Searcher,
	notifier Notifier,
	stats StatsCacher,
	tokens *TokenIssuer,
	uploads validation.UploadPolicy,
	publicBaseURL string,
	log logger.Logger,
) *Service {
	return &Service{
		store:         store,
		search:        search,
		notifier:      notifier,
		stats:         stats,
		tokens:        tokens,
		uploads:       uploads,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        log.WithFields(map[string]interface{}{"component": "query-service"}),
		now:           time.Now,
	}
}

// CreateInput is the payload for opening a clarification query.
type CreateInput struct {
	ApplicationID string
	Subject       string
	Message       string
	Priority      models.Priority
}

// Thread is a query with its visible message log and attachments.
type Thread struct {
	Query       *models.Query        `json:"query"`
	Messages    []*models.Message    `json:"messages"`
	Attachments []*models.Attachment `json:"attachments"`
}

// Create opens a new query in `open` with its first admin message, a fresh
// 30-day access token, and counters seeded for an unread employee side.
func (s *Service) Create(ctx context.Context, in CreateInput, creator models.AdminUser) (*models.Query, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return nil, apperrors.NewValidationError("subject is required")
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, apperrors.NewValidationError("message is required")
	}
	if !in.Priority.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown priority: %s", in.Priority))
	}

	app, err := s.store.GetApplication(ctx, in.ApplicationID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	token, expiry := s.tokens.Issue()

	q := &models.Query{
		ID:             uuid.New().String(),
		ApplicationID:  app.ID,
		Subject:        in.Subject,
		Status:         models.QueryStatusOpen,
		Priority:       in.Priority,
		CreatedByID:    creator.ID,
		CreatedByName:  creator.Name,
		CreatedByRole:  creator.Role,
		EmployeeEmail:  app.EmployeeEmail,
		AccessToken:    token,
		TokenExpiresAt: expiry,
		TotalMessages:  1,
		UnreadByAdmin:  false,
		UnreadByUser:   true,
		LastMessageAt:  &now,
		LastMessageBy:  string(models.SenderAdmin),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	first := &models.Message{
		ID:         uuid.New().String(),
		QueryID:    q.ID,
		Body:       in.Message,
		SenderType: models.SenderAdmin,
		SenderID:   creator.ID,
		SenderName: creator.Name,
		SenderRole: creator.Role,
		CreatedAt:  now,
	}

	if err := s.store.CreateQuery(ctx, q, first); err != nil {
		return nil, err
	}

	metrics.QueryTransitionsTotal.WithLabelValues("create").Inc()
	s.stats.Invalidate(ctx)
	s.search.Index(ctx, q, app.ApplicationNumber)

	s.notify(ctx, "query_created", func() error {
		return s.notifier.QueryCreated(ctx, q, app, s.publicURL(token))
	})
	if q.Priority == models.PriorityUrgent {
		s.notify(ctx, "urgent_alert", func() error {
			return s.notifier.UrgentQuery(ctx, q, app)
		})
	}

	return q, nil
}

// ReplyInput is the payload for appending one message to a thread.
type ReplyInput struct {
	Body           string
	Sender         models.SenderType
	IsInternalNote bool
	SenderID       string
	SenderName     string
	SenderRole     string
}

// Reply appends a message and advances the state machine. Terminal threads
// reject replies; internal notes are stored but never alter the employee-
// visible summary fields.
func (s *Service) Reply(ctx context.Context, queryID string, in ReplyInput) (*models.Message, error) {
	q, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	return s.replyTo(ctx, q, in)
}

func (s *Service) replyTo(ctx context.Context, q *models.Query, in ReplyInput) (*models.Message, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, apperrors.NewValidationError("message is required")
	}
	if !in.Sender.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown sender type: %s", in.Sender))
	}
	if in.IsInternalNote && in.Sender != models.SenderAdmin {
		return nil, apperrors.NewValidationError("internal notes are admin-only")
	}

	if q.Status.IsTerminal() {
		return nil, apperrors.NewInvalidStateError("reply", string(q.Status))
	}

	now := s.now().UTC()
	m := &models.Message{
		ID:             uuid.New().String(),
		QueryID:        q.ID,
		Body:           in.Body,
		SenderType:     in.Sender,
		SenderID:       in.SenderID,
		SenderName:     in.SenderName,
		SenderRole:     in.SenderRole,
		IsInternalNote: in.IsInternalNote,
		CreatedAt:      now,
	}

	var mut messageMutation
	switch {
	case in.IsInternalNote:
		// Admin-only side channel: bump the total, touch nothing visible.
		mut = messageMutation{TouchLastMessage: false}
	case in.Sender == models.SenderAdmin:
		mut = messageMutation{
			NewStatus:        models.QueryStatusAdminReplied,
			UnreadByUser:     true,
			UnreadByAdmin:    false,
			TouchLastMessage: true,
		}
	default:
		mut = messageMutation{
			NewStatus:        models.QueryStatusUserReplied,
			UnreadByAdmin:    true,
			UnreadByUser:     false,
			TouchLastMessage: true,
		}
	}

	if err := s.store.AppendMessage(ctx, m, mut); err != nil {
		return nil, err
	}

	metrics.QueryTransitionsTotal.WithLabelValues("reply").Inc()
	s.stats.Invalidate(ctx)

	if in.Sender == models.SenderAdmin && !in.IsInternalNote {
		s.notify(ctx, "admin_replied", func() error {
			return s.notifier.AdminReplied(ctx, q, s.publicURL(q.AccessToken))
		})
	}

	return m, nil
}

// Resolve moves a query to resolved. A thread that is already terminal is
// left alone and returned as-is.
func (s *Service) Resolve(ctx context.Context, queryID string, by models.AdminUser) (*models.Query, error) {
	q, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if q.Status.IsTerminal() {
		return q, nil
	}

	now := s.now().UTC()
	if err := s.store.MarkResolved(ctx, q.ID, by.ID, now); err != nil {
		return nil, err
	}

	metrics.QueryTransitionsTotal.WithLabelValues("resolve").Inc()
	s.stats.Invalidate(ctx)

	q.Status = models.QueryStatusResolved
	q.ResolvedAt = &now
	q.ResolvedBy = by.ID
	q.UpdatedAt = now
	return q, nil
}

// Close is the administrator override; same terminal no-op rule as Resolve.
func (s *Service) Close(ctx context.Context, queryID string, by models.AdminUser) (*models.Query, error) {
	q, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if q.Status == models.QueryStatusClosed {
		return q, nil
	}

	now := s.now().UTC()
	if err := s.store.MarkClosed(ctx, q.ID, by.ID, now); err != nil {
		return nil, err
	}

	metrics.QueryTransitionsTotal.WithLabelValues("close").Inc()
	s.stats.Invalidate(ctx)

	q.Status = models.QueryStatusClosed
	q.ResolvedAt = &now
	q.ResolvedBy = by.ID
	q.UpdatedAt = now
	return q, nil
}

// Reopen returns a terminal query to `open` — never to a replied state —
// and rotates the access token when the old one has lapsed, so the thread
// keeps exactly one active token.
func (s *Service) Reopen(ctx context.Context, queryID string) (*models.Query, error) {
	q, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if !q.Status.IsTerminal() {
		return nil, apperrors.NewInvalidStateError("reopen", string(q.Status))
	}

	now := s.now().UTC()
	newToken := ""
	var newExpiry time.Time
	if s.tokens.Expired(q.TokenExpiresAt) {
		newToken, newExpiry = s.tokens.Issue()
	}

	if err := s.store.MarkReopened(ctx, q.ID, now, newToken, newExpiry); err != nil {
		return nil, err
	}

	metrics.QueryTransitionsTotal.WithLabelValues("reopen").Inc()
	s.stats.Invalidate(ctx)

	q.Status = models.QueryStatusOpen
	q.ResolvedAt = nil
	q.ResolvedBy = ""
	q.UpdatedAt = now
	if newToken != "" {
		q.AccessToken = newToken
		q.TokenExpiresAt = newExpiry
	}
	return q, nil
}

// GetThread returns the full thread for the admin view, internal notes included.
func (s *Service) GetThread(ctx context.Context, queryID string) (*Thread, error) {
	q, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	return s.assembleThread(ctx, q, true)
}

// GetThreadByToken returns the employee view of a thread. Internal notes
// are filtered at the store; missing and expired tokens are
// indistinguishable to the caller.
func (s *Service) GetThreadByToken(ctx context.Context, token string) (*Thread, error) {
	q, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.assembleThread(ctx, q, false)
}

func (s *Service) assembleThread(ctx context.Context, q *models.Query, includeInternal bool) (*Thread, error) {
	messages, err := s.store.ListMessages(ctx, q.ID, includeInternal)
	if err != nil {
		return nil, err
	}
	attachments, err := s.store.ListAttachments(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return &Thread{Query: q, Messages: messages, Attachments: attachments}, nil
}

func (s *Service) resolveToken(ctx context.Context, token string) (*models.Query, error) {
	if token == "" {
		return nil, apperrors.NewNotFoundError("Query", "token")
	}
	q, err := s.store.GetQueryByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.tokens.Expired(q.TokenExpiresAt) {
		return nil, apperrors.NewTokenExpiredError()
	}
	return q, nil
}

// ReplyByToken is the public reply path: always sender=user, never internal.
func (s *Service) ReplyByToken(ctx context.Context, token, body, userName string) (*models.Message, error) {
	q, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.replyTo(ctx, q, ReplyInput{
		Body:       body,
		Sender:     models.SenderUser,
		SenderName: userName,
	})
}

// UploadInput describes one public file upload.
type UploadInput struct {
	FileName    string
	SizeBytes   int64
	ContentType string
	UserName    string
	MessageID   string
}

// UploadByToken validates the file against the upload policy before any
// attachment row is created, then records the metadata.
func (s *Service) UploadByToken(ctx context.Context, token string, in UploadInput) (*models.Attachment, error) {
	q, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if q.Status.IsTerminal() {
		return nil, apperrors.NewInvalidStateError("upload", string(q.Status))
	}
	if strings.TrimSpace(in.FileName) == "" {
		return nil, apperrors.NewValidationError("file name is required")
	}
	if err := s.uploads.CheckFile(in.SizeBytes, in.ContentType); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	a := &models.Attachment{
		ID:           uuid.New().String(),
		QueryID:      q.ID,
		MessageID:    in.MessageID,
		FileName:     in.FileName,
		StoragePath:  fmt.Sprintf("queries/%s/%s-%s", q.ID, uuid.New().String()[:8], in.FileName),
		SizeBytes:    in.SizeBytes,
		MimeType:     validation.NormalizeContentType(in.ContentType),
		UploaderType: string(models.SenderUser),
		UploaderName: in.UserName,
		CreatedAt:    now,
	}

	if err := s.store.InsertAttachment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAttachment removes attachment metadata. Admin-only; the public
// flow has no delete.
func (s *Service) DeleteAttachment(ctx context.Context, id string) error {
	return s.store.DeleteAttachment(ctx, id)
}

// List returns queries matching the filter. A search term is resolved to
// ids in the search index first, then hydrated from Postgres.
func (s *Service) List(ctx context.Context, filter models.QueryFilter) ([]*models.Query, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status: %s", filter.Status))
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown priority: %s", filter.Priority))
	}

	var restrictIDs []string
	if term := strings.TrimSpace(filter.Search); term != "" {
		ids, err := s.search.SearchIDs(ctx, term)
		if err != nil {
			return nil, err
		}
		restrictIDs = ids
	}

	return s.store.ListQueries(ctx, filter, restrictIDs)
}

// Stats returns the dashboard counters, served from cache when warm.
func (s *Service) Stats(ctx context.Context) (*models.QueryStats, error) {
	if cached := s.stats.Get(ctx); cached != nil {
		return cached, nil
	}

	stats, err := s.store.UnreadStats(ctx)
	if err != nil {
		return nil, err
	}
	s.stats.Set(ctx, stats)
	return stats, nil
}

func (s *Service) publicURL(token string) string {
	return fmt.Sprintf("%s/queries/public/%s", s.publicBaseURL, token)
}

func (s *Service) notify(ctx context.Context, kind string, send func() error) {
	if err := send(); err != nil {
		s.logger.Warn("notification failed", map[string]interface{}{
			"kind":  kind,
			"error": err.Error(),
		})
	}
}
