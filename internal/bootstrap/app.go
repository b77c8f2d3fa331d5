package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "github.com/aryanjamdagni/InvoiceIQ/internal/auth"
	"github.com/aryanjamdagni/InvoiceIQ/internal/costing"
	"github.com/aryanjamdagni/InvoiceIQ/internal/dashboard"
	"github.com/aryanjamdagni/InvoiceIQ/internal/extraction"
	"github.com/aryanjamdagni/InvoiceIQ/internal/invoices"
	"github.com/aryanjamdagni/InvoiceIQ/internal/queue"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/config"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/server"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/storage/db"
	"github.com/aryanjamdagni/InvoiceIQ/internal/shared/storage/object"
	localstore "github.com/aryanjamdagni/InvoiceIQ/internal/shared/storage/object/local"
	s3store "github.com/aryanjamdagni/InvoiceIQ/internal/shared/storage/object/s3"
	"github.com/aryanjamdagni/InvoiceIQ/internal/users"
)

// App holds shared dependencies for the API server and the reconcile worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	AI     extraction.Client

	InvoicesRepo invoices.Repo
	UsersRepo    users.Repo

	InvoiceService   *invoices.Service
	CostingService   *costing.Service
	DashboardService *dashboard.Service
	UsersService     *users.Service

	InvoiceHandler   *invoices.Handler
	CostingHandler   *costing.Handler
	DashboardHandler *dashboard.Handler
	UsersHandler     *users.Handler
	GoogleAuth       *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	aiClient, err := extraction.NewHTTPClient(cfg.AIURL)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		AI:     aiClient,
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		InvoiceHandler:   app.InvoiceHandler,
		CostingHandler:   app.CostingHandler,
		DashboardHandler: app.DashboardHandler,
		UserHandler:      app.UsersHandler,
		GoogleAuth:       app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.ReconcileQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	var invoiceRepo invoices.Repo
	var userRepo users.Repo

	if app.DB != nil {
		invoiceRepo = &invoices.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		invoiceRepo = invoices.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	invoiceSvc := &invoices.Service{
		Repo:    invoiceRepo,
		AI:      app.AI,
		Staging: app.Store,
		Queue:   app.Queue,
	}
	costingSvc := &costing.Service{Repo: invoiceRepo}
	dashboardSvc := &dashboard.Service{Repo: invoiceRepo}
	userSvc := users.NewService(userRepo)

	app.InvoicesRepo = invoiceRepo
	app.UsersRepo = userRepo
	app.InvoiceService = invoiceSvc
	app.CostingService = costingSvc
	app.DashboardService = dashboardSvc
	app.UsersService = userSvc
	app.InvoiceHandler = invoices.NewHandler(invoiceSvc)
	app.CostingHandler = costing.NewHandler(costingSvc)
	app.DashboardHandler = dashboard.NewHandler(dashboardSvc)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)
}
