package invoices

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo, used in dev mode and
// tests when no database is configured.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Invoice // userId -> records
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Invoice),
	}
}

// CreateMany appends records for their owner.
func (r *MemoryRepo) CreateMany(ctx context.Context, invs []Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range invs {
		r.data[inv.UserID] = append(r.data[inv.UserID], inv)
	}
	return nil
}

// ListBySession returns a session's records in creation order.
func (r *MemoryRepo) ListBySession(ctx context.Context, userID, sessionID string) ([]Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Invoice
	for _, inv := range r.data[userID] {
		if inv.SessionID == sessionID {
			out = append(out, inv)
		}
	}
	return out, nil
}

// GetByID returns a record owned by userID.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, id string) (Invoice, error) {
	if err := ctx.Err(); err != nil {
		return Invoice{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inv := range r.data[userID] {
		if inv.ID == id {
			return inv, nil
		}
	}
	return Invoice{}, ErrNotFound
}

// Update rewrites the stored record.
func (r *MemoryRepo) Update(ctx context.Context, inv Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.data[inv.UserID]
	for i := range records {
		if records[i].ID == inv.ID {
			records[i] = inv
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes a record owned by userID.
func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.data[userID]
	for i := range records {
		if records[i].ID == id {
			r.data[userID] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// ListByUser returns records newest-first, honoring limit.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	records := append([]Invoice(nil), r.data[userID]...)
	r.mu.RUnlock()

	sortNewestFirst(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ListCompletedByUser returns completed records newest-first.
func (r *MemoryRepo) ListCompletedByUser(ctx context.Context, userID string) ([]Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Invoice
	for _, inv := range r.data[userID] {
		if inv.Status == StatusCompleted {
			out = append(out, inv)
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// CountByUser counts all records for a user.
func (r *MemoryRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data[userID]), nil
}

// CountByUserStatus counts records in the given status.
func (r *MemoryRepo) CountByUserStatus(ctx context.Context, userID, status string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, inv := range r.data[userID] {
		if inv.Status == status {
			n++
		}
	}
	return n, nil
}

// MarkSessionFailed flips a session's processing records to failed.
func (r *MemoryRepo) MarkSessionFailed(ctx context.Context, userID, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	records := r.data[userID]
	for i := range records {
		if records[i].SessionID == sessionID && records[i].Status == StatusProcessing {
			records[i].Status = StatusFailed
			n++
		}
	}
	return n, nil
}

// LatestArtifactURL returns the freshest stored artifact URL for a session.
func (r *MemoryRepo) LatestArtifactURL(ctx context.Context, userID, sessionID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best Invoice
	found := false
	for _, inv := range r.data[userID] {
		if inv.SessionID != sessionID || inv.ExcelURL == "" {
			continue
		}
		if !found || inv.UpdatedAt.After(best.UpdatedAt) {
			best = inv
			found = true
		}
	}
	if !found {
		return "", nil
	}
	return best.ExcelURL, nil
}

func sortNewestFirst(records []Invoice) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

var _ Repo = (*MemoryRepo)(nil)
