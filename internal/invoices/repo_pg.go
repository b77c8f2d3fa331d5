package invoices

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const invoiceColumns = `id, user_id, session_id, file_name, status, excel_url, input_tokens, output_tokens, tokens_used, credits_used, cost, model_used, created_at, updated_at`

// CreateMany inserts one row per record.
func (r *PGRepo) CreateMany(ctx context.Context, invs []Invoice) error {
	if len(invs) == 0 {
		return nil
	}
	const query = `
INSERT INTO invoices (
    id,
    user_id,
    session_id,
    file_name,
    status,
    excel_url,
    input_tokens,
    output_tokens,
    tokens_used,
    credits_used,
    cost,
    model_used,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, inv := range invs {
		if _, err := tx.ExecContext(
			ctx,
			query,
			inv.ID,
			inv.UserID,
			inv.SessionID,
			inv.FileName,
			inv.Status,
			nullString(inv.ExcelURL),
			inv.InputTokens,
			inv.OutputTokens,
			inv.TokensUsed,
			inv.CreditsUsed,
			inv.Cost,
			nullString(inv.ModelUsed),
			inv.CreatedAt,
			inv.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListBySession returns a session's records in creation order.
func (r *PGRepo) ListBySession(ctx context.Context, userID, sessionID string) ([]Invoice, error) {
	const query = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE user_id = $1 AND session_id = $2
ORDER BY created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// GetByID fetches a record owned by userID.
func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Invoice, error) {
	const query = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE user_id = $1 AND id = $2
LIMIT 1`
	inv, err := scanInvoice(r.DB.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

// Update rewrites every mutable column.
func (r *PGRepo) Update(ctx context.Context, inv Invoice) error {
	const query = `
UPDATE invoices
SET status = $1,
    excel_url = $2,
    input_tokens = $3,
    output_tokens = $4,
    tokens_used = $5,
    credits_used = $6,
    cost = $7,
    model_used = $8,
    updated_at = $9
WHERE user_id = $10 AND id = $11`
	res, err := r.DB.ExecContext(
		ctx,
		query,
		inv.Status,
		nullString(inv.ExcelURL),
		inv.InputTokens,
		inv.OutputTokens,
		inv.TokensUsed,
		inv.CreditsUsed,
		inv.Cost,
		nullString(inv.ModelUsed),
		inv.UpdatedAt,
		inv.UserID,
		inv.ID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record owned by userID.
func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM invoices WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, userID, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser lists records newest-first, honoring limit.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Invoice, error) {
	query := `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE user_id = $1
ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// ListCompletedByUser lists completed records newest-first.
func (r *PGRepo) ListCompletedByUser(ctx context.Context, userID string) ([]Invoice, error) {
	const query = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE user_id = $1 AND status = 'completed'
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// CountByUser counts all records for a user.
func (r *PGRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM invoices WHERE user_id = $1`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountByUserStatus counts a user's records in the given status.
func (r *PGRepo) CountByUserStatus(ctx context.Context, userID, status string) (int, error) {
	const query = `SELECT COUNT(*) FROM invoices WHERE user_id = $1 AND status = $2`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, userID, status).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkSessionFailed flips a session's processing records to failed.
func (r *PGRepo) MarkSessionFailed(ctx context.Context, userID, sessionID string) (int, error) {
	const query = `
UPDATE invoices
SET status = 'failed', updated_at = NOW()
WHERE user_id = $1 AND session_id = $2 AND status = 'processing'`
	res, err := r.DB.ExecContext(ctx, query, userID, sessionID)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// LatestArtifactURL returns the freshest stored artifact URL for a session.
func (r *PGRepo) LatestArtifactURL(ctx context.Context, userID, sessionID string) (string, error) {
	const query = `
SELECT excel_url
FROM invoices
WHERE user_id = $1 AND session_id = $2 AND excel_url IS NOT NULL AND excel_url <> ''
ORDER BY updated_at DESC
LIMIT 1`
	var url string
	err := r.DB.QueryRowContext(ctx, query, userID, sessionID).Scan(&url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return url, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	var excelURL sql.NullString
	var modelUsed sql.NullString
	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.SessionID,
		&inv.FileName,
		&inv.Status,
		&excelURL,
		&inv.InputTokens,
		&inv.OutputTokens,
		&inv.TokensUsed,
		&inv.CreditsUsed,
		&inv.Cost,
		&modelUsed,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return Invoice{}, err
	}
	if excelURL.Valid {
		inv.ExcelURL = excelURL.String
	}
	if modelUsed.Valid {
		inv.ModelUsed = modelUsed.String
	}
	return inv, nil
}

func scanInvoices(rows *sql.Rows) ([]Invoice, error) {
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
