package costing

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aryanjamdagni/InvoiceIQ/internal/invoices"
)

func TestLedgerListsCompletedNewestFirst(t *testing.T) {
	repo := invoices.NewMemoryRepo()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seed := []invoices.Invoice{
		{ID: "1", UserID: "u1", SessionID: "s1", FileName: "old.pdf", Status: invoices.StatusCompleted,
			InputTokens: 40, OutputTokens: 10, TokensUsed: 50, Cost: 0.01, ModelUsed: "gemini-2.0-flash", CreatedAt: base},
		{ID: "2", UserID: "u1", SessionID: "s2", FileName: "new.pdf", Status: invoices.StatusCompleted,
			InputTokens: 80, OutputTokens: 20, TokensUsed: 100, Cost: 0.02, CreatedAt: base.Add(time.Hour)},
		{ID: "3", UserID: "u1", SessionID: "s3", FileName: "pending.pdf", Status: invoices.StatusProcessing, CreatedAt: base.Add(2 * time.Hour)},
	}
	if err := repo.CreateMany(context.Background(), seed); err != nil {
		t.Fatalf("CreateMany: %v", err)
	}

	svc := &Service{Repo: repo}
	ledger, err := svc.Ledger(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}

	if len(ledger.Entries) != 2 {
		t.Fatalf("got %d entries, want 2 (completed only)", len(ledger.Entries))
	}
	if ledger.Entries[0].FileName != "new.pdf" {
		t.Fatalf("first entry = %s, want newest", ledger.Entries[0].FileName)
	}
	if ledger.Entries[0].ModelUsed != "N/A" {
		t.Fatalf("missing model should render as N/A, got %q", ledger.Entries[0].ModelUsed)
	}
	if ledger.Entries[1].ModelUsed != "gemini-2.0-flash" {
		t.Fatalf("model = %q", ledger.Entries[1].ModelUsed)
	}
	if ledger.TotalTokens != 150 {
		t.Fatalf("TotalTokens = %d, want 150", ledger.TotalTokens)
	}
	if math.Abs(ledger.TotalCost-0.03) > 1e-9 {
		t.Fatalf("TotalCost = %v, want 0.03", ledger.TotalCost)
	}
}
