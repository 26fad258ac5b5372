// Package app builds the service graph shared by the HTTP server and the republish handler.
package app

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/lltshop/shoppost/internal/auth"
	"github.com/lltshop/shoppost/internal/clients"
	"github.com/lltshop/shoppost/internal/config"
	"github.com/lltshop/shoppost/internal/database"
	"github.com/lltshop/shoppost/internal/handlers"
	"github.com/lltshop/shoppost/internal/jobs"
	"github.com/lltshop/shoppost/internal/orchestrator"
	"github.com/lltshop/shoppost/internal/services"
	"github.com/lltshop/shoppost/internal/web"
)

// App holds the wired components of one process
type App struct {
	Config *config.Config

	Pool       *database.Pool
	Products   *database.ProductStore
	Categories *database.CategoryStore
	History    *database.PostHistoryStore

	Graph        *clients.GraphClient
	Captions     services.CaptionGenerator
	Rewriter     *services.DescriptionRewriter
	Notifier     services.Notifier
	Orchestrator *orchestrator.Orchestrator
}

// New connects to the database, runs migrations and wires the publish pipeline
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	graph, err := clients.NewGraphClient(clients.GraphConfig{
		BaseURL:     cfg.Facebook.GraphURL,
		APIVersion:  cfg.Facebook.APIVersion,
		PageID:      cfg.Facebook.PageID,
		AccessToken: cfg.Facebook.AccessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph client: %w", err)
	}

	captions, textGen, err := NewCaptioner(cfg.Caption)
	if err != nil {
		return nil, err
	}

	pool, err := OpenDatabase(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Pool:       pool,
		Products:   database.NewProductStore(pool),
		Categories: database.NewCategoryStore(pool),
		History:    database.NewPostHistoryStore(pool),
		Graph:      graph,
		Captions:   captions,
		Notifier:   NewNotifier(cfg.SMTP),
	}
	if textGen != nil {
		a.Rewriter = services.NewDescriptionRewriter(textGen)
	}

	uploader := services.NewMediaUploader(graph, clients.NewAssetFetcher(clients.DefaultMaxAssetBytes), services.NewImageNormalizer())
	a.Orchestrator = orchestrator.NewOrchestrator(
		captions,
		uploader,
		services.NewPostPublisher(graph, uploader),
		a.Products,
		a.History,
		orchestrator.Options{
			UploadConcurrency: cfg.UploadConcurrency,
			Notifier:          a.Notifier,
		},
	)
	return a, nil
}

// Close releases the database pool
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// Router builds the API router over the wired components
func (a *App) Router() *web.Router {
	deps := web.RouterDeps{
		Products:   handlers.NewProductsHandler(a.Products, a.History, a.Orchestrator),
		Categories: handlers.NewCategoriesHandler(a.Categories),
		Auth: handlers.NewAuthHandler(auth.AdminAccount{
			Username:     a.Config.AdminUsername,
			PasswordHash: a.Config.AdminPasswordHash,
		}),
		Health: handlers.NewHealthHandler(a.Pool),
	}

	// keep a nil *DescriptionRewriter out of the interface
	var rewriter handlers.DescriptionRewriter
	if a.Rewriter != nil {
		rewriter = a.Rewriter
	}
	deps.Captions = handlers.NewCaptionsHandler(a.Captions, rewriter)
	return web.NewRouter(deps)
}

// TokenHealthJob builds the periodic Page token check
func (a *App) TokenHealthJob() *jobs.TokenHealthJob {
	return jobs.NewTokenHealthJob(a.Graph, a.Notifier, jobs.TokenHealthConfig{
		PageID: a.Config.Facebook.PageID,
	})
}

// =============================================================================
// Components
// =============================================================================

// DatabaseConfig resolves Postgres credentials from Secrets Manager when a secret
// name is set, or from the DB_* variables otherwise
func DatabaseConfig(ctx context.Context, db config.Database) (*database.Config, error) {
	if db.SecretName != "" {
		log.Printf("Loading database credentials from Secrets Manager: %s", db.SecretName)
		cfg, err := database.LoadConfigFromSecretsManager(ctx, db.SecretName)
		if err != nil {
			return nil, fmt.Errorf("failed to load database config: %w", err)
		}
		return cfg, nil
	}

	cfg := &database.Config{
		Host:     db.Host,
		Port:     strconv.Itoa(db.Port),
		User:     db.User,
		Password: db.Password,
		Database: db.Name,
		SSLMode:  db.SSLMode,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	return cfg, nil
}

// OpenDatabase optionally creates the database, runs migrations and opens a pool
func OpenDatabase(ctx context.Context, db config.Database) (*database.Pool, error) {
	cfg, err := DatabaseConfig(ctx, db)
	if err != nil {
		return nil, err
	}

	if db.EnsureDatabase {
		log.Printf("Ensuring database %s exists...", cfg.Database)
		if err := database.EnsureDatabaseExists(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to ensure database exists: %w", err)
		}
	}

	log.Println("Running database migrations...")
	if err := database.RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("Database migrations completed successfully")

	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	log.Println("Database connection pool initialized successfully")
	return pool, nil
}

// NewCaptioner builds the configured caption strategy. External strategies are wrapped
// so a backend failure falls back to the deterministic caption. The text generator is
// returned for description rewriting and is nil for the template strategy.
func NewCaptioner(c config.Caption) (services.CaptionGenerator, services.TextGenerator, error) {
	switch c.Strategy {
	case config.CaptionTemplate, "":
		pools, err := services.LoadCaptionPools(c.PoolsFile)
		if err != nil {
			return nil, nil, err
		}
		return services.NewTemplateCaptioner(pools, c.Seed), nil, nil

	case config.CaptionOllama:
		gen := clients.NewOllamaClient(c.OllamaURL, c.OllamaModel)
		if c.CFClientID != "" {
			gen = gen.WithAccessToken(c.CFClientID, c.CFClientSecret)
		}
		return services.WithFallback(services.NewExternalCaptioner(gen), log.Printf), gen, nil

	case config.CaptionOpenAI:
		gen := clients.NewOpenAIClient(c.OpenAIKey, c.OpenAIBaseURL, c.OpenAIModel)
		return services.WithFallback(services.NewExternalCaptioner(gen), log.Printf), gen, nil
	}
	return nil, nil, fmt.Errorf("unknown caption strategy %q", c.Strategy)
}

// NewNotifier mails alerts when SMTP is configured and logs them otherwise
func NewNotifier(s config.SMTP) services.Notifier {
	if s.Host == "" {
		return services.LogNotifier{}
	}
	return services.NewEmailNotifier(services.SMTPSettings{
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		From:     s.From,
		To:       s.To,
	})
}
