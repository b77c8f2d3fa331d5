package invoices

import "errors"

var (
	ErrNotFound     = errors.New("invoice not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotReady means the artifact was requested before upstream produced it.
	ErrNotReady = errors.New("artifact not ready")
)
