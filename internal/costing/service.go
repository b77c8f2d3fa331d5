package costing

import (
	"context"
	"time"

	"github.com/aryanjamdagni/InvoiceIQ/internal/invoices"
)

// Entry is one completed extraction in the cost ledger.
type Entry struct {
	InvoiceID    string    `json:"invoiceId"`
	FileName     string    `json:"fileName"`
	ModelUsed    string    `json:"modelUsed"`
	InputTokens  int64     `json:"inputTokens"`
	OutputTokens int64     `json:"outputTokens"`
	TokensUsed   int64     `json:"tokensUsed"`
	Cost         float64   `json:"cost"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Ledger is the owner's spend, newest first, with running totals.
type Ledger struct {
	Entries     []Entry `json:"entries"`
	TotalTokens int64   `json:"totalTokens"`
	TotalCost   float64 `json:"totalCost"`
}

// Service builds cost ledgers from completed extraction records.
type Service struct {
	Repo invoices.Repo
}

// Ledger returns the owner's completed extractions with per-row token and
// cost figures.
func (s *Service) Ledger(ctx context.Context, userID string) (Ledger, error) {
	records, err := s.Repo.ListCompletedByUser(ctx, userID)
	if err != nil {
		return Ledger{}, err
	}

	ledger := Ledger{Entries: make([]Entry, 0, len(records))}
	for _, inv := range records {
		model := inv.ModelUsed
		if model == "" {
			model = "N/A"
		}
		ledger.Entries = append(ledger.Entries, Entry{
			InvoiceID:    inv.ID,
			FileName:     inv.FileName,
			ModelUsed:    model,
			InputTokens:  inv.InputTokens,
			OutputTokens: inv.OutputTokens,
			TokensUsed:   inv.TokensUsed,
			Cost:         inv.Cost,
			CreatedAt:    inv.CreatedAt,
		})
		ledger.TotalTokens += inv.TokensUsed
		ledger.TotalCost += inv.Cost
	}
	return ledger, nil
}
