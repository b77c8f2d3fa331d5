package extraction

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStartExtractionSendsMultipartBatch(t *testing.T) {
	var gotUserID, gotSessionID string
	var gotFiles []string
	var gotTypes []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/extract" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotUserID = r.FormValue("user_id")
		gotSessionID = r.FormValue("session_id")
		for _, fh := range r.MultipartForm.File["files"] {
			gotFiles = append(gotFiles, fh.Filename)
			gotTypes = append(gotTypes, fh.Header.Get("Content-Type"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"started","check_status_url":"/status/u1/s1"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	result, err := client.StartExtraction(context.Background(), "u1", "s1", []UploadFile{
		{Name: "a.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF-a")},
		{Name: "b.pdf", Body: strings.NewReader("%PDF-b")},
	})
	if err != nil {
		t.Fatalf("StartExtraction: %v", err)
	}

	if result.Status != "started" || result.CheckStatusURL != "/status/u1/s1" {
		t.Fatalf("result = %+v", result)
	}
	if gotUserID != "u1" || gotSessionID != "s1" {
		t.Fatalf("form fields = %q/%q", gotUserID, gotSessionID)
	}
	if len(gotFiles) != 2 || gotFiles[0] != "a.pdf" || gotFiles[1] != "b.pdf" {
		t.Fatalf("files = %v", gotFiles)
	}
	if gotTypes[0] != "application/pdf" || gotTypes[1] != "application/octet-stream" {
		t.Fatalf("content types = %v", gotTypes)
	}
}

func TestStartExtractionUpstreamErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	_, err = client.StartExtraction(context.Background(), "u1", "s1", []UploadFile{
		{Name: "a.pdf", Body: strings.NewReader("%PDF-a")},
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestSessionStatusPreservesRawBody(t *testing.T) {
	body := `{"status":"processing","files":{"a.pdf":"extracting"},"file_sizes":{"a.pdf":1234},"completed_count":0,"total_count":1,"extra_field":"passed through"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/u1/s1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	payload, err := client.SessionStatus(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("SessionStatus: %v", err)
	}

	if payload.Status != "processing" || payload.Files["a.pdf"] != "extracting" {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.FileSizes["a.pdf"] != 1234 {
		t.Fatalf("file sizes = %v", payload.FileSizes)
	}
	if string(payload.Raw) != body {
		t.Fatalf("raw body not preserved: %s", payload.Raw)
	}
}

func TestSessionStatusNon2xxIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	if _, err := client.SessionStatus(context.Background(), "u1", "missing"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestFetchArtifactStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write([]byte("xlsx-body"))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	artifact, err := client.FetchArtifact(context.Background(), srv.URL+"/download/x.xlsx")
	if err != nil {
		t.Fatalf("FetchArtifact: %v", err)
	}
	defer artifact.Body.Close()

	data, err := io.ReadAll(artifact.Body)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "xlsx-body" {
		t.Fatalf("artifact body = %q", data)
	}
	if artifact.ContentLength != int64(len("xlsx-body")) {
		t.Fatalf("content length = %d", artifact.ContentLength)
	}
}

func TestFetchArtifactNon2xxIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	if _, err := client.FetchArtifact(context.Background(), srv.URL+"/download/x.xlsx"); !errors.Is(err, ErrBadGateway) {
		t.Fatalf("got %v, want ErrBadGateway", err)
	}
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient("   "); err == nil {
		t.Fatal("expected an error for an empty base url")
	}
}
