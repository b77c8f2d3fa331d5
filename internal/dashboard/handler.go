package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/server/middleware"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches dashboard routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard/stats", h.stats)
}

func (h *Handler) stats(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	stats, err := h.Svc.Stats(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load dashboard stats", nil)
		return
	}

	respond.JSON(c, http.StatusOK, stats)
}
