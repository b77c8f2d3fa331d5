package invoices

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/server/middleware"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/server/respond"
)

const maxUploadSize = 100 << 20 // 100MB across the batch

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches invoice and session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/invoices/upload", h.upload)
	rg.GET("/invoices", h.recent)
	rg.GET("/invoices/:id", h.get)
	rg.DELETE("/invoices/:id", h.remove)
	rg.GET("/invoices/:id/download", h.downloadInvoice)
	rg.GET("/history", h.history)
	rg.GET("/sessions/:sessionId/status", h.sessionStatus)
	rg.GET("/sessions/:sessionId/download", h.downloadSession)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form required", nil)
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "no files uploaded", nil)
		return
	}
	if len(headers) > MaxSessionFiles {
		respond.Error(c, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("at most %d files per upload", MaxSessionFiles), nil)
		return
	}

	uploads := make([]FileUpload, 0, len(headers))
	var open []io.Closer
	defer func() {
		for _, f := range open {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read "+fh.Filename, nil)
			return
		}
		open = append(open, f)
		uploads = append(uploads, FileUpload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}

	result, err := h.Svc.StartSession(c.Request.Context(), userID, uploads)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case IsUpstreamErr(err):
			respond.Error(c, http.StatusBadGateway, "upstream_error", "extraction service unavailable", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start extraction", nil)
		}
		return
	}

	c.Set("sessionId", result.SessionID)
	respond.JSON(c, http.StatusOK, UploadResponse{
		Message:         "Extraction started",
		SessionID:       result.SessionID,
		AIStatus:        result.AIStatus,
		CheckStatusURL:  result.CheckStatusURL,
		InvoicesCreated: result.InvoicesCreated,
	})
}

func (h *Handler) sessionStatus(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	sessionID := c.Param("sessionId")
	c.Set("sessionId", sessionID)

	payload, err := h.Svc.ReconcileSessionStatus(c.Request.Context(), userID, sessionID)
	if err != nil {
		if IsUpstreamErr(err) {
			respond.Error(c, http.StatusBadGateway, "upstream_error", "failed to fetch session status", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch session status", nil)
		return
	}

	// The upstream payload is passed through as-is so the console sees the
	// same shape whichever side answered.
	if len(payload.Raw) > 0 {
		c.Data(http.StatusOK, "application/json", payload.Raw)
		return
	}
	respond.JSON(c, http.StatusOK, payload)
}

func (h *Handler) downloadSession(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	sessionID := c.Param("sessionId")
	c.Set("sessionId", sessionID)

	dl, err := h.Svc.DownloadSessionArtifact(c.Request.Context(), userID, sessionID)
	if err != nil {
		h.respondDownloadErr(c, err)
		return
	}
	streamArtifact(c, dl)
}

func (h *Handler) downloadInvoice(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set("invoiceId", id)

	dl, err := h.Svc.DownloadInvoiceArtifact(c.Request.Context(), userID, id)
	if err != nil {
		h.respondDownloadErr(c, err)
		return
	}
	streamArtifact(c, dl)
}

func (h *Handler) respondDownloadErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "invoice not found", nil)
	case errors.Is(err, ErrNotReady):
		respond.Error(c, http.StatusNotFound, "not_ready", "Excel file not ready yet", nil)
	case IsUpstreamErr(err):
		respond.Error(c, http.StatusBadGateway, "upstream_error", "artifact download failed upstream", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to download artifact", nil)
	}
}

func streamArtifact(c *gin.Context, dl ArtifactDownload) {
	defer dl.Body.Close()

	c.Header("Content-Type", dl.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.FileName))
	if dl.ContentLength > 0 {
		c.Header("Content-Length", strconv.FormatInt(dl.ContentLength, 10))
	}
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, dl.Body)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	inv, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "invoice not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch invoice", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(inv))
}

func (h *Handler) remove(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "invoice not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete invoice", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"message": "Invoice deleted"})
}

func (h *Handler) recent(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 5
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	list, err := h.Svc.Recent(c.Request.Context(), userID, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list invoices", nil)
		return
	}

	respond.JSON(c, http.StatusOK, toResponses(list))
}

func (h *Handler) history(c *gin.Context) {
	if isGuest, ok := c.Get("isGuest"); ok {
		if guest, ok2 := isGuest.(bool); ok2 && guest {
			respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
			return
		}
	}

	userID := middleware.UserIDFromContext(c)

	list, err := h.Svc.History(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch history", nil)
		return
	}

	respond.JSON(c, http.StatusOK, toResponses(list))
}
