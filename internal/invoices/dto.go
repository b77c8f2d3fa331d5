package invoices

import "time"

// InvoiceResponse is the outward-facing representation of one extraction record.
type InvoiceResponse struct {
	InvoiceID    string    `json:"invoiceId"`
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

func toResponse(inv Invoice) InvoiceResponse {
	return InvoiceResponse{
		InvoiceID:    inv.ID,
		SessionID:    inv.SessionID,
		FileName:     inv.FileName,
		Status:       inv.Status,
		ExcelURL:     inv.ExcelURL,
		InputTokens:  inv.InputTokens,
		OutputTokens: inv.OutputTokens,
		TokensUsed:   inv.TokensUsed,
		CreditsUsed:  inv.CreditsUsed,
		Cost:         inv.Cost,
		ModelUsed:    inv.ModelUsed,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
}

func toResponses(list []Invoice) []InvoiceResponse {
	resp := make([]InvoiceResponse, 0, len(list))
	for _, inv := range list {
		resp = append(resp, toResponse(inv))
	}
	return resp
}

// UploadResponse reports what an upload batch started.
type UploadResponse struct {
	Message         string `json:"message"`
	SessionID       string `json:"sessionId"`
	AIStatus        string `json:"aiStatus"`
	CheckStatusURL  string `json:"checkStatusUrl,omitempty"`
	InvoicesCreated int    `json:"invoicesCreated"`
}
