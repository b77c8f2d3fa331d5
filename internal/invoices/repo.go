package invoices

import "context"

// Repo defines persistence operations for invoice records. Every query is
// scoped by the owning user; records are never visible across owners.
type Repo interface {
	// CreateMany inserts one record per uploaded file.
	CreateMany(ctx context.Context, invs []Invoice) error
	// ListBySession returns all records for one upload batch.
	ListBySession(ctx context.Context, userID, sessionID string) ([]Invoice, error)
	// GetByID returns a record owned by userID, or ErrNotFound.
	GetByID(ctx context.Context, userID, id string) (Invoice, error)
	// Update rewrites the full record.
	Update(ctx context.Context, inv Invoice) error
	// Delete removes a record owned by userID, or returns ErrNotFound.
	Delete(ctx context.Context, userID, id string) error
	// ListByUser returns records newest-first; limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]Invoice, error)
	// ListCompletedByUser returns completed records newest-first.
	ListCompletedByUser(ctx context.Context, userID string) ([]Invoice, error)
	// CountByUser counts all records for a user.
	CountByUser(ctx context.Context, userID string) (int, error)
	// CountByUserStatus counts a user's records in the given status.
	CountByUserStatus(ctx context.Context, userID, status string) (int, error)
	// MarkSessionFailed flips a session's processing records to failed and
	// reports how many were updated. Other sessions are untouched.
	MarkSessionFailed(ctx context.Context, userID, sessionID string) (int, error)
	// LatestArtifactURL returns the most recently updated non-empty ExcelURL
	// in a session, or "" when none is stored yet.
	LatestArtifactURL(ctx context.Context, userID, sessionID string) (string, error)
}
