// internal/queries/store.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"medclaim-portal/internal/common/database"
	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/models"
)

// messageMutation carries the denormalized-field updates that ride along
// with a message insert. Computed by the state machine, executed by the
// store in a single transaction with the insert.
type messageMutation struct {
	NewStatus     models.QueryStatus
	UnreadByAdmin bool
	UnreadByUser  bool
	// TouchLastMessage is false for internal notes: they bump the total
	// but leave last_message_at/by and the unread flags untouched.
	TouchLastMessage bool
}

// PostgresStore is the system of record for queries, messages and attachments.
type PostgresStore struct {
	pg *database.PostgresClient
}

func NewPostgresStore(pg *database.PostgresClient) *PostgresStore {
	return &PostgresStore{pg: pg}
}

const queryColumns = `
	id, application_id, subject, status, priority,
	created_by_id, created_by_name, created_by_role, employee_email,
	access_token, token_expires_at,
	total_messages, unread_by_admin, unread_by_user,
	last_message_at, last_message_by,
	resolved_at, resolved_by, created_at, updated_at`

// GetApplication resolves the claim a query is being opened against.
func (s *PostgresStore) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	err := s.pg.QueryRow(ctx, `
		SELECT id, application_number, employee_id, employee_name, employee_email,
		       status, amount_claimed, amount_approved, created_at, updated_at
		FROM applications
		WHERE id = $1`, id).Scan(
		&app.ID, &app.ApplicationNumber, &app.EmployeeID, &app.EmployeeName,
		&app.EmployeeEmail, &app.Status, &app.AmountClaimed, &app.AmountApproved,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Application", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get_application", err)
	}
	return &app, nil
}

// CreateQuery inserts the query row and its first message atomically.
func (s *PostgresStore) CreateQuery(ctx context.Context, q *models.Query, first *models.Message) error {
	err := s.pg.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO queries (
				id, application_id, subject, status, priority,
				created_by_id, created_by_name, created_by_role, employee_email,
				access_token, token_expires_at,
				total_messages, unread_by_admin, unread_by_user,
				last_message_at, last_message_by, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
			q.ID, q.ApplicationID, q.Subject, q.Status, q.Priority,
			q.CreatedByID, q.CreatedByName, q.CreatedByRole, q.EmployeeEmail,
			q.AccessToken, q.TokenExpiresAt,
			q.TotalMessages, q.UnreadByAdmin, q.UnreadByUser,
			q.LastMessageAt, q.LastMessageBy, q.CreatedAt, q.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert query: %w", err)
		}

		return insertMessage(ctx, tx, first)
	})
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *models.Message) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO query_messages (
			id, query_id, body, sender_type, sender_id, sender_name, sender_role,
			is_internal_note, read_by_recipient, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.ID, m.QueryID, m.Body, m.SenderType,
		nullString(m.SenderID), nullString(m.SenderName), nullString(m.SenderRole),
		m.IsInternalNote, m.ReadByRecipient, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// AppendMessage inserts a message and applies the denormalized update in
// one transaction. total_messages counts every message, internal notes
// included, and only ever moves up.
func (s *PostgresStore) AppendMessage(ctx context.Context, m *models.Message, mut messageMutation) error {
	err := s.pg.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insertMessage(ctx, tx, m); err != nil {
			return err
		}

		if mut.TouchLastMessage {
			_, err := tx.ExecContext(ctx, `
				UPDATE queries SET
					total_messages = total_messages + 1,
					status = $2,
					unread_by_admin = $3,
					unread_by_user = $4,
					last_message_at = $5,
					last_message_by = $6,
					updated_at = $5
				WHERE id = $1`,
				m.QueryID, mut.NewStatus, mut.UnreadByAdmin, mut.UnreadByUser,
				m.CreatedAt, string(m.SenderType),
			)
			return err
		}

		// Internal note: invisible to the employee, so the public-facing
		// summary fields stay as they are.
		_, err := tx.ExecContext(ctx, `
			UPDATE queries SET
				total_messages = total_messages + 1,
				updated_at = $2
			WHERE id = $1`,
			m.QueryID, m.CreatedAt,
		)
		return err
	})
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// GetQuery fetches one query by id.
func (s *PostgresStore) GetQuery(ctx context.Context, id string) (*models.Query, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+queryColumns+` FROM queries WHERE id = $1`, id)
	q, err := scanQuery(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Query", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get_query", err)
	}
	return q, nil
}

// GetQueryByToken fetches one query by its public access token. Expiry is
// checked by the caller; unknown tokens surface as not-found.
func (s *PostgresStore) GetQueryByToken(ctx context.Context, token string) (*models.Query, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+queryColumns+` FROM queries WHERE access_token = $1`, token)
	q, err := scanQuery(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Query", "token")
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get_query_by_token", err)
	}
	return q, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuery(row rowScanner) (*models.Query, error) {
	var q models.Query
	var lastMessageAt, resolvedAt sql.NullTime
	var lastMessageBy, resolvedBy sql.NullString

	err := row.Scan(
		&q.ID, &q.ApplicationID, &q.Subject, &q.Status, &q.Priority,
		&q.CreatedByID, &q.CreatedByName, &q.CreatedByRole, &q.EmployeeEmail,
		&q.AccessToken, &q.TokenExpiresAt,
		&q.TotalMessages, &q.UnreadByAdmin, &q.UnreadByUser,
		&lastMessageAt, &lastMessageBy,
		&resolvedAt, &resolvedBy, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastMessageAt.Valid {
		t := lastMessageAt.Time
		q.LastMessageAt = &t
	}
	q.LastMessageBy = lastMessageBy.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		q.ResolvedAt = &t
	}
	q.ResolvedBy = resolvedBy.String
	return &q, nil
}

// ListQueries returns queries matching the filter, newest first. When
// restrictIDs is non-nil the result is limited to those ids (used by the
// search path, which resolves ids in Elasticsearch first).
func (s *PostgresStore) ListQueries(ctx context.Context, filter models.QueryFilter, restrictIDs []string) ([]*models.Query, error) {
	query := `SELECT ` + queryColumns + ` FROM queries WHERE 1=1`
	args := []interface{}{}
	argN := 1

	if filter.ApplicationID != "" {
		query += fmt.Sprintf(" AND application_id = $%d", argN)
		args = append(args, filter.ApplicationID)
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, filter.Status)
		argN++
	}
	if filter.Priority != "" {
		query += fmt.Sprintf(" AND priority = $%d", argN)
		args = append(args, filter.Priority)
		argN++
	}
	if restrictIDs != nil {
		if len(restrictIDs) == 0 {
			return []*models.Query{}, nil
		}
		query += fmt.Sprintf(" AND id = ANY($%d)", argN)
		args = append(args, pq.Array(restrictIDs))
		argN++
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_queries", err)
	}
	defer rows.Close()

	out := []*models.Query{}
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_queries_scan", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_queries_rows", err)
	}
	return out, nil
}

// ListMessages returns the ordered message log. Internal notes are removed
// here, not in the handler, so the public read path can never leak them.
func (s *PostgresStore) ListMessages(ctx context.Context, queryID string, includeInternal bool) ([]*models.Message, error) {
	query := `
		SELECT id, query_id, body, sender_type, sender_id, sender_name, sender_role,
		       is_internal_note, read_by_recipient, read_at, created_at
		FROM query_messages
		WHERE query_id = $1`
	if !includeInternal {
		query += ` AND is_internal_note = FALSE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.pg.Query(ctx, query, queryID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_messages", err)
	}
	defer rows.Close()

	out := []*models.Message{}
	for rows.Next() {
		var m models.Message
		var senderID, senderName, senderRole sql.NullString
		var readAt sql.NullTime
		if err := rows.Scan(
			&m.ID, &m.QueryID, &m.Body, &m.SenderType,
			&senderID, &senderName, &senderRole,
			&m.IsInternalNote, &m.ReadByRecipient, &readAt, &m.CreatedAt,
		); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_messages_scan", err)
		}
		m.SenderID = senderID.String
		m.SenderName = senderName.String
		m.SenderRole = senderRole.String
		if readAt.Valid {
			t := readAt.Time
			m.ReadAt = &t
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_messages_rows", err)
	}
	return out, nil
}

// MarkResolved moves a query into resolved.
func (s *PostgresStore) MarkResolved(ctx context.Context, id, resolvedBy string, at time.Time) error {
	_, err := s.pg.Exec(ctx, `
		UPDATE queries SET
			status = $2, resolved_at = $3, resolved_by = $4, updated_at = $3
		WHERE id = $1`,
		id, models.QueryStatusResolved, at, resolvedBy,
	)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("mark_resolved", err)
	}
	return nil
}

// MarkClosed moves a query into closed.
func (s *PostgresStore) MarkClosed(ctx context.Context, id, closedBy string, at time.Time) error {
	_, err := s.pg.Exec(ctx, `
		UPDATE queries SET
			status = $2, resolved_at = $3, resolved_by = $4, updated_at = $3
		WHERE id = $1`,
		id, models.QueryStatusClosed, at, closedBy,
	)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("mark_closed", err)
	}
	return nil
}

// MarkReopened resets a query to open and clears the resolution metadata.
// When newToken is non-empty the access token is rotated in the same write,
// preserving the one-active-token invariant.
func (s *PostgresStore) MarkReopened(ctx context.Context, id string, at time.Time, newToken string, newExpiry time.Time) error {
	var err error
	if newToken != "" {
		_, err = s.pg.Exec(ctx, `
			UPDATE queries SET
				status = $2, resolved_at = NULL, resolved_by = NULL,
				access_token = $3, token_expires_at = $4, updated_at = $5
			WHERE id = $1`,
			id, models.QueryStatusOpen, newToken, newExpiry, at,
		)
	} else {
		_, err = s.pg.Exec(ctx, `
			UPDATE queries SET
				status = $2, resolved_at = NULL, resolved_by = NULL, updated_at = $3
			WHERE id = $1`,
			id, models.QueryStatusOpen, at,
		)
	}
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("mark_reopened", err)
	}
	return nil
}

// InsertAttachment writes one attachment metadata row.
func (s *PostgresStore) InsertAttachment(ctx context.Context, a *models.Attachment) error {
	_, err := s.pg.Exec(ctx, `
		INSERT INTO query_attachments (
			id, query_id, message_id, file_name, storage_path, size_bytes,
			mime_type, uploader_type, uploader_name, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.QueryID, nullString(a.MessageID), a.FileName, a.StoragePath,
		a.SizeBytes, a.MimeType, a.UploaderType, nullString(a.UploaderName),
		a.CreatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// ListAttachments returns attachment metadata for a query.
func (s *PostgresStore) ListAttachments(ctx context.Context, queryID string) ([]*models.Attachment, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT id, query_id, message_id, file_name, storage_path, size_bytes,
		       mime_type, uploader_type, uploader_name, created_at
		FROM query_attachments
		WHERE query_id = $1
		ORDER BY created_at ASC`, queryID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_attachments", err)
	}
	defer rows.Close()

	out := []*models.Attachment{}
	for rows.Next() {
		var a models.Attachment
		var messageID, uploaderName sql.NullString
		if err := rows.Scan(
			&a.ID, &a.QueryID, &messageID, &a.FileName, &a.StoragePath,
			&a.SizeBytes, &a.MimeType, &a.UploaderType, &uploaderName,
			&a.CreatedAt,
		); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_attachments_scan", err)
		}
		a.MessageID = messageID.String
		a.UploaderName = uploaderName.String
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_attachments_rows", err)
	}
	return out, nil
}

// DeleteAttachment removes one attachment row by id.
func (s *PostgresStore) DeleteAttachment(ctx context.Context, id string) error {
	res, err := s.pg.Exec(ctx, `DELETE FROM query_attachments WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete_attachment", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError("Attachment", id)
	}
	return nil
}

// UnreadStats computes the admin dashboard counters.
func (s *PostgresStore) UnreadStats(ctx context.Context) (*models.QueryStats, error) {
	var stats models.QueryStats
	err := s.pg.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE unread_by_admin),
			COUNT(*) FILTER (WHERE status = 'open'),
			COUNT(*) FILTER (WHERE status = 'user_replied')
		FROM queries`).Scan(
		&stats.UnreadCount, &stats.OpenCount, &stats.UserRepliedCount,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("unread_stats", err)
	}
	return &stats, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
