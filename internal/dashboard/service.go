package dashboard

import (
	"context"
	"math"

	"github.com/aryanjamdagni/InvoiceIQ/internal/invoices"
)

// Stats is the owner's console summary.
type Stats struct {
	TotalInvoices     int     `json:"totalInvoices"`
	ActiveExtractions int     `json:"activeExtractions"`
	TotalCredits      int64   `json:"totalCredits"`
	TotalCost         float64 `json:"totalCost"`
}

// Service aggregates per-owner extraction stats.
type Service struct {
	Repo invoices.Repo
}

// Stats counts the owner's records and sums credits and cost over completed
// extractions.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	total, err := s.Repo.CountByUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	active, err := s.Repo.CountByUserStatus(ctx, userID, invoices.StatusProcessing)
	if err != nil {
		return Stats{}, err
	}
	completed, err := s.Repo.ListCompletedByUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalInvoices: total, ActiveExtractions: active}
	for _, inv := range completed {
		stats.TotalCredits += inv.CreditsUsed
		stats.TotalCost += inv.Cost
	}
	stats.TotalCost = math.Round(stats.TotalCost*1e4) / 1e4
	return stats, nil
}
