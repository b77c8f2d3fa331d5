package invoices

import "time"

// Lifecycle statuses. Processing is the only initial state; completed and
// failed are terminal.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Invoice is the persisted extraction state of one uploaded file. Records
// created from the same upload batch share a SessionID.
type Invoice struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	SessionID    string    `json:"sessionId"`
	FileName     string    `json:"fileName"`
	Status       string    `json:"status"`
	ExcelURL     string    `json:"excelUrl,omitempty"`
	InputTokens  int64     `json:"inputTokens"`
	OutputTokens int64     `json:"outputTokens"`
	TokensUsed   int64     `json:"tokensUsed"`
	CreditsUsed  int64     `json:"creditsUsed"`
	Cost         float64   `json:"cost"`
	ModelUsed    string    `json:"modelUsed,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
