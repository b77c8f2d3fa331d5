package costing

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

// RegisterRoutes attaches costing routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/costing", h.ledger)
}

func (h *Handler) ledger(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	ledger, err := h.Svc.Ledger(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch costing data", nil)
		return
	}

	respond.JSON(c, http.StatusOK, ledger)
}
