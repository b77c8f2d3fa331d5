package extraction

import (
	"context"
	"errors"
	"io"
)

// UploadFile is a single file forwarded to the extraction service.
type UploadFile struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// StartResult is the acknowledgment returned when a batch is accepted.
type StartResult struct {
	Status         string `json:"status"`
	CheckStatusURL string `json:"check_status_url"`
}

// Artifact is a streamed result file produced for a session.
type Artifact struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

var (
	// ErrUnavailable indicates the extraction service could not be reached,
	// timed out, or rejected the request.
	ErrUnavailable = errors.New("extraction service unavailable")
	// ErrBadGateway indicates the artifact URL responded with a non-2xx status.
	ErrBadGateway = errors.New("extraction artifact fetch failed")
)

// Client talks to the upstream extraction service.
type Client interface {
	StartExtraction(ctx context.Context, userID, sessionID string, files []UploadFile) (StartResult, error)
	SessionStatus(ctx context.Context, userID, sessionID string) (StatusPayload, error)
	FetchArtifact(ctx context.Context, downloadURL string) (Artifact, error)
}
