// internal/claims/store.go
package claims

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"medclaim-portal/internal/common/database"
	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/models"
)

// PostgresStore persists claim applications and their status audit trail.
type PostgresStore struct {
	pg *database.PostgresClient
}

func NewPostgresStore(pg *database.PostgresClient) *PostgresStore {
	return &PostgresStore{pg: pg}
}

// GetApplication fetches one claim by id.
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

// ApplyTransition writes the new status and appends the audit row in one
// transaction. The status write is guarded on the expected current status
// so a concurrent transition loses cleanly instead of double-applying.
func (s *PostgresStore) ApplyTransition(ctx context.Context, change *models.ClaimStatusChange, at time.Time) error {
	err := s.pg.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE applications SET
				status = $3,
				amount_approved = COALESCE($4, amount_approved),
				updated_at = $5
			WHERE id = $1 AND status = $2`,
			change.ApplicationID, change.FromStatus, change.ToStatus,
			change.AmountPassed, at,
		)
		if err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return apperrors.NewInvalidStateError("transition", string(change.FromStatus))
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO claim_status_history (
				id, application_id, from_status, to_status, comments,
				amount_passed, changed_by_id, changed_by_name, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			change.ID, change.ApplicationID, change.FromStatus, change.ToStatus,
			nullString(change.Comments), change.AmountPassed,
			change.ChangedByID, change.ChangedByName, change.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
		return nil
	})
	if err != nil {
		var stdErr *apperrors.StandardError
		if stderrors.As(err, &stdErr) {
			return stdErr
		}
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// ListHistory returns the audit trail for a claim, oldest first.
func (s *PostgresStore) ListHistory(ctx context.Context, applicationID string) ([]*models.ClaimStatusChange, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT id, application_id, from_status, to_status, comments,
		       amount_passed, changed_by_id, changed_by_name, created_at
		FROM claim_status_history
		WHERE application_id = $1
		ORDER BY created_at ASC`, applicationID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_status_history", err)
	}
	defer rows.Close()

	out := []*models.ClaimStatusChange{}
	for rows.Next() {
		var c models.ClaimStatusChange
		var comments sql.NullString
		var amountPassed sql.NullFloat64
		if err := rows.Scan(
			&c.ID, &c.ApplicationID, &c.FromStatus, &c.ToStatus, &comments,
			&amountPassed, &c.ChangedByID, &c.ChangedByName, &c.CreatedAt,
		); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_status_history_scan", err)
		}
		c.Comments = comments.String
		if amountPassed.Valid {
			v := amountPassed.Float64
			c.AmountPassed = &v
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_status_history_rows", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
