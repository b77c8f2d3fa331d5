package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "github.com/aryanjamdagni/InvoiceIQ/internal/auth"
	"github.com/aryanjamdagni/InvoiceIQ/internal/costing"
	"github.com/aryanjamdagni/InvoiceIQ/internal/dashboard"
	"github.com/aryanjamdagni/InvoiceIQ/internal/invoices"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/config"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/metrics"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/server/middleware"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/server/respond"
	"github.com/aryanjamdagni/InvoiceIQ/internal/users"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped
// so partial wiring works in tests.
type RouterDeps struct {
	Config           config.Config
	InvoiceHandler   *invoices.Handler
	CostingHandler   *costing.Handler
	DashboardHandler *dashboard.Handler
	UserHandler      *users.Handler
	GoogleAuth       *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: 2, Burst: 10},
				"POLLING": {Rate: 5, Burst: 30},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/sessions/:sessionId/status" {
					return "POLLING"
				}
				return "DEFAULT"
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, metrics.Render())
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	registerMeRoutes(api)
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api.Group("/users"))
	}
	if deps.InvoiceHandler != nil {
		deps.InvoiceHandler.RegisterRoutes(api)
	}
	if deps.CostingHandler != nil {
		deps.CostingHandler.RegisterRoutes(api)
	}
	if deps.DashboardHandler != nil {
		deps.DashboardHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
