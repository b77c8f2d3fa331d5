package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultStatusTimeout = 10 * time.Second

// HTTPClient implements Client against the extraction service's REST API.
type HTTPClient struct {
	baseURL string
	// Uploads carry large attachments and get no client-side timeout;
	// status polls are short-lived and bounded.
	uploadClient *http.Client
	statusClient *http.Client
	streamClient *http.Client
}

// NewHTTPClient constructs a client for the given base URL.
func NewHTTPClient(baseURL string) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("AI_URL is required")
	}

	statusTimeout := defaultStatusTimeout
	if raw := strings.TrimSpace(os.Getenv("AI_STATUS_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			statusTimeout = time.Duration(parsed) * time.Second
		}
	}

	return &HTTPClient{
		baseURL:      baseURL,
		uploadClient: &http.Client{},
		statusClient: &http.Client{Timeout: statusTimeout},
		streamClient: &http.Client{},
	}, nil
}

// StartExtraction forwards a batch of files in one multipart request.
func (c *HTTPClient) StartExtraction(ctx context.Context, userID, sessionID string, files []UploadFile) (StartResult, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		err := writeExtractForm(form, userID, sessionID, files)
		if cerr := form.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", pr)
	if err != nil {
		return StartResult{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return StartResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return StartResult{}, fmt.Errorf("%w: extract returned %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result StartResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return StartResult{}, fmt.Errorf("%w: decode extract response: %v", ErrUnavailable, err)
	}
	return result, nil
}

func writeExtractForm(form *multipart.Writer, userID, sessionID string, files []UploadFile) error {
	if err := form.WriteField("user_id", userID); err != nil {
		return err
	}
	if err := form.WriteField("session_id", sessionID); err != nil {
		return err
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := form.CreatePart(header)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}
	return nil
}

// SessionStatus fetches the current upstream status for a session.
func (c *HTTPClient) SessionStatus(ctx context.Context, userID, sessionID string) (StatusPayload, error) {
	statusURL := fmt.Sprintf("%s/status/%s/%s", c.baseURL, url.PathEscape(userID), url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return StatusPayload{}, err
	}

	resp, err := c.statusClient.Do(req)
	if err != nil {
		return StatusPayload{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StatusPayload{}, fmt.Errorf("%w: status returned %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return StatusPayload{}, fmt.Errorf("%w: read status body: %v", ErrUnavailable, err)
	}

	var payload StatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return StatusPayload{}, fmt.Errorf("%w: decode status body: %v", ErrUnavailable, err)
	}
	payload.Raw = body
	return payload, nil
}

// FetchArtifact streams the result file at downloadURL. The caller owns the
// returned body; cancelling ctx aborts the upstream read.
func (c *HTTPClient) FetchArtifact(ctx context.Context, downloadURL string) (Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return Artifact{}, err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return Artifact{}, fmt.Errorf("%w: upstream returned %d", ErrBadGateway, resp.StatusCode)
	}

	return Artifact{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

var _ Client = (*HTTPClient)(nil)
