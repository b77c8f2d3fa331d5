package invoices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryanjamdagni/InvoiceIQ/internal/extraction"
	"github.com/aryanjamdagni/InvoiceIQ/internal/pdfcheck"
	"github.com/aryanjamdagni/InvoiceIQ/internal/queue"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/metrics"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/storage/object"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/telemetry"
)

const (
	// MaxSessionFiles bounds one upload batch.
	MaxSessionFiles = 10

	excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// FileUpload is one incoming file in an upload batch.
type FileUpload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// StartSessionResult reports what an upload created.
type StartSessionResult struct {
	SessionID       string
	AIStatus        string
	CheckStatusURL  string
	InvoicesCreated int
}

// ArtifactDownload is a resolved artifact stream ready to hand to a client.
type ArtifactDownload struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	FileName      string
}

// Service orchestrates the create -> delegate -> poll -> update cycle for
// invoice extraction sessions.
type Service struct {
	Repo    Repo
	AI      extraction.Client
	Staging object.ObjectStore
	// Queue is optional; when configured, uploads enqueue a reconcile task so
	// sessions settle even if no client keeps polling.
	Queue queue.Client

	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// StartSession stages the batch, creates one processing record per file, and
// forwards everything to the extraction service in a single request. Staged
// copies are removed regardless of outcome. If the upstream call fails, the
// records created here are flipped to failed; other in-flight sessions of the
// same owner are not touched.
func (s *Service) StartSession(ctx context.Context, userID string, files []FileUpload) (StartSessionResult, error) {
	if userID == "" {
		return StartSessionResult{}, ErrInvalidInput
	}
	if len(files) == 0 || len(files) > MaxSessionFiles {
		return StartSessionResult{}, fmt.Errorf("%w: between 1 and %d files required", ErrInvalidInput, MaxSessionFiles)
	}

	sessionID := uuid.NewString()
	now := s.clock()

	staged := make([]string, 0, len(files))
	defer func() {
		for _, key := range staged {
			if err := s.Staging.Delete(context.WithoutCancel(ctx), key); err != nil {
				telemetry.Error("session.staging_cleanup_failed", map[string]any{
					"session_id": sessionID,
					"key":        key,
					"error":      err.Error(),
				})
			}
		}
	}()

	records := make([]Invoice, 0, len(files))
	keys := make([]string, 0, len(files))
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			return StartSessionResult{}, fmt.Errorf("%w: file name required", ErrInvalidInput)
		}
		key, _, _, err := s.Staging.Save(ctx, userID, f.Name, f.Body)
		if err != nil {
			return StartSessionResult{}, fmt.Errorf("stage %s: %w", f.Name, err)
		}
		staged = append(staged, key)
		keys = append(keys, key)

		if err := s.checkPDF(ctx, key, f.Name, sessionID); err != nil {
			return StartSessionResult{}, err
		}

		records = append(records, Invoice{
			ID:        uuid.NewString(),
			UserID:    userID,
			SessionID: sessionID,
			FileName:  f.Name,
			Status:    StatusProcessing,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.Repo.CreateMany(ctx, records); err != nil {
		return StartSessionResult{}, err
	}
	metrics.IncSessionsStarted()

	result, err := s.forwardBatch(ctx, userID, sessionID, files, keys)
	if err != nil {
		failed, markErr := s.Repo.MarkSessionFailed(ctx, userID, sessionID)
		if markErr != nil {
			telemetry.Error("session.compensation_failed", map[string]any{
				"session_id": sessionID,
				"error":      markErr.Error(),
			})
		}
		metrics.IncSessionsFailed()
		telemetry.Error("session.start_failed", map[string]any{
			"session_id":     sessionID,
			"records_failed": failed,
			"error":          err.Error(),
		})
		return StartSessionResult{}, err
	}

	if s.Queue != nil {
		msg := queue.Message{
			UserID:     userID,
			SessionID:  sessionID,
			EnqueuedAt: now.Format(time.RFC3339),
			Version:    1,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			// Client-driven polling still reconciles the session.
			telemetry.Error("session.enqueue_failed", map[string]any{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}

	return StartSessionResult{
		SessionID:       sessionID,
		AIStatus:        result.Status,
		CheckStatusURL:  result.CheckStatusURL,
		InvoicesCreated: len(records),
	}, nil
}

func (s *Service) checkPDF(ctx context.Context, key, name, sessionID string) error {
	body, err := s.Staging.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open staged %s: %w", name, err)
	}
	defer body.Close()

	info, err := pdfcheck.Check(body)
	if err != nil {
		return fmt.Errorf("%w: %s is not a PDF", ErrInvalidInput, name)
	}
	if !info.Parsed {
		telemetry.Info("session.pdf_parse_degraded", map[string]any{
			"session_id": sessionID,
			"file":       name,
		})
	}
	return nil
}

func (s *Service) forwardBatch(ctx context.Context, userID, sessionID string, files []FileUpload, keys []string) (extraction.StartResult, error) {
	uploads := make([]extraction.UploadFile, 0, len(files))
	var open []io.Closer
	defer func() {
		for _, c := range open {
			c.Close()
		}
	}()

	for i, f := range files {
		body, err := s.Staging.Open(ctx, keys[i])
		if err != nil {
			return extraction.StartResult{}, fmt.Errorf("open staged %s: %w", f.Name, err)
		}
		open = append(open, body)
		uploads = append(uploads, extraction.UploadFile{
			Name:        f.Name,
			ContentType: f.ContentType,
			Body:        body,
		})
	}

	return s.AI.StartExtraction(ctx, userID, sessionID, uploads)
}

// ReconcileSessionStatus merges the current upstream status into the
// session's records and returns the raw upstream payload. It is safe to call
// repeatedly and concurrently: records are only rewritten when something
// actually changed, so a second pass over unchanged upstream data is a no-op.
func (s *Service) ReconcileSessionStatus(ctx context.Context, userID, sessionID string) (extraction.StatusPayload, error) {
	started := s.clock()
	payload, err := s.AI.SessionStatus(ctx, userID, sessionID)
	if err != nil {
		return extraction.StatusPayload{}, err
	}

	records, err := s.Repo.ListBySession(ctx, userID, sessionID)
	if err != nil {
		return extraction.StatusPayload{}, err
	}
	if len(records) == 0 {
		return payload, nil
	}

	report, err := extraction.ParseCostReport(payload.CostAnalysis)
	if err != nil {
		// Statuses still reconcile; cost fields keep their previous values
		// rather than silently zeroing.
		telemetry.Error("reconcile.cost_parse_failed", map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		report = nil
	}

	fileNames := make([]string, 0, len(records))
	for _, inv := range records {
		fileNames = append(fileNames, inv.FileName)
	}

	var distributed map[string]FileShare
	if report != nil && report.Totals != nil && len(records) > 1 {
		distributed = Distribute(SessionTotals{
			InputTokens:  report.Totals.InputTokens,
			OutputTokens: report.Totals.OutputTokens,
			Cost:         report.Totals.Cost,
		}, payload.FileSizes, fileNames)
	}

	for _, inv := range records {
		updated := s.applyUpstream(inv, payload, report, distributed, len(records))
		if updated == inv {
			continue
		}
		if updated.Status == StatusCompleted && inv.Status != StatusCompleted {
			metrics.IncInvoicesCompleted()
		}
		if updated.Status == StatusFailed && inv.Status != StatusFailed {
			metrics.IncInvoicesFailed()
		}
		updated.UpdatedAt = s.clock()
		if err := s.Repo.Update(ctx, updated); err != nil {
			return extraction.StatusPayload{}, err
		}
	}

	metrics.ObserveReconcileDurationMs(float64(s.clock().Sub(started).Microseconds()) / 1000.0)
	return payload, nil
}

// applyUpstream computes the post-reconcile state of one record. UpdatedAt is
// left untouched so callers can detect real changes by comparison.
func (s *Service) applyUpstream(inv Invoice, payload extraction.StatusPayload, report *extraction.CostReport, distributed map[string]FileShare, sessionSize int) Invoice {
	updated := inv

	// Status transitions are monotonic: terminal records only ever receive a
	// late artifact URL backfill.
	if inv.Status == StatusProcessing {
		updated.Status = ClassifyStatus(payload.Files[inv.FileName])
	}

	if payload.DownloadURL != "" {
		updated.ExcelURL = payload.DownloadURL
	}

	if report != nil {
		var input, output int64
		var cost float64
		model := ""
		switch {
		case report.PerFile != nil:
			if fc, ok := report.PerFile[inv.FileName]; ok {
				input, output, cost = fc.InputTokens, fc.OutputTokens, fc.Cost
				model = fc.ModelName
			}
		case distributed != nil:
			if share, ok := distributed[inv.FileName]; ok {
				input, output, cost = share.InputTokens, share.OutputTokens, share.Cost
			}
			model = report.Totals.ModelName
		case report.Totals != nil && sessionSize == 1:
			input, output, cost = report.Totals.InputTokens, report.Totals.OutputTokens, report.Totals.Cost
			model = report.Totals.ModelName
		}

		updated.InputTokens = input
		updated.OutputTokens = output
		updated.TokensUsed = input + output
		updated.CreditsUsed = updated.TokensUsed
		updated.Cost = cost
		if model != "" {
			updated.ModelUsed = model
		}
	}

	return updated
}

// DownloadSessionArtifact resolves and streams the session's result file.
// The stored URL wins; when absent, the upstream status is re-queried.
func (s *Service) DownloadSessionArtifact(ctx context.Context, userID, sessionID string) (ArtifactDownload, error) {
	url, err := s.Repo.LatestArtifactURL(ctx, userID, sessionID)
	if err != nil {
		return ArtifactDownload{}, err
	}
	if url == "" {
		payload, err := s.AI.SessionStatus(ctx, userID, sessionID)
		if err != nil {
			return ArtifactDownload{}, err
		}
		url = payload.DownloadURL
	}
	if url == "" {
		return ArtifactDownload{}, ErrNotReady
	}

	name := fmt.Sprintf("Extraction_Results_%s.xlsx", tail(sessionID, 6))
	return s.fetchArtifact(ctx, url, name)
}

// DownloadInvoiceArtifact streams the artifact for a single record.
func (s *Service) DownloadInvoiceArtifact(ctx context.Context, userID, id string) (ArtifactDownload, error) {
	inv, err := s.Repo.GetByID(ctx, userID, id)
	if err != nil {
		return ArtifactDownload{}, err
	}

	url := inv.ExcelURL
	if url == "" {
		payload, err := s.AI.SessionStatus(ctx, userID, inv.SessionID)
		if err != nil {
			return ArtifactDownload{}, err
		}
		url = payload.DownloadURL
	}
	if url == "" {
		return ArtifactDownload{}, ErrNotReady
	}

	name := path.Base(url)
	if name == "" || name == "." || name == "/" {
		name = "Report.xlsx"
	}
	return s.fetchArtifact(ctx, url, name)
}

func (s *Service) fetchArtifact(ctx context.Context, url, name string) (ArtifactDownload, error) {
	artifact, err := s.AI.FetchArtifact(ctx, url)
	if err != nil {
		return ArtifactDownload{}, err
	}
	contentType := artifact.ContentType
	if contentType == "" {
		contentType = excelContentType
	}
	return ArtifactDownload{
		Body:          artifact.Body,
		ContentType:   contentType,
		ContentLength: artifact.ContentLength,
		FileName:      name,
	}, nil
}

// Get returns one record owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Invoice, error) {
	return s.Repo.GetByID(ctx, userID, id)
}

// Delete removes one record owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.Repo.Delete(ctx, userID, id)
}

// Recent returns the newest records, default five.
func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.Repo.ListByUser(ctx, userID, limit)
}

// History returns the owner's full record history, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Invoice, error) {
	return s.Repo.ListByUser(ctx, userID, 0)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// IsUpstreamErr reports whether err came from the extraction service rather
// than local state.
func IsUpstreamErr(err error) bool {
	return errors.Is(err, extraction.ErrUnavailable) || errors.Is(err, extraction.ErrBadGateway)
}
