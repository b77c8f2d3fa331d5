package invoices

import "strings"

// ClassifyStatus maps a free-text upstream status message to a record status.
// Completed wins over the failure keywords when a message contains both;
// anything unrecognized, including "pending" and the empty string, stays
// processing until upstream says otherwise.
func ClassifyStatus(message string) string {
	msg := strings.ToLower(message)
	if strings.Contains(msg, "completed") {
		return StatusCompleted
	}
	if strings.Contains(msg, "failed") || strings.Contains(msg, "error") || strings.Contains(msg, "skipped") {
		return StatusFailed
	}
	return StatusProcessing
}
