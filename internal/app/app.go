package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/sundayezeilo/shortlinks/codegen"
	"github.com/sundayezeilo/shortlinks/internal/config"
	"github.com/sundayezeilo/shortlinks/internal/idgen"
	"github.com/sundayezeilo/shortlinks/internal/server"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

// App holds the application dependencies and configuration.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    shortener.Store
	Registry *shortener.Registry
	Resolver *shortener.Resolver
	Handler  *shortener.Handler
	Server   *server.Server

	closeStore func() error
}

// Option customizes New.
type Option func(*options)

type options struct {
	logOutput io.Writer
	config    *config.Config
}

// WithLogOutput sends structured logs to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithConfig skips environment loading and uses cfg as is.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.config = cfg }
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context, opts ...Option) (*App, error) {
	o := options{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.config
	if cfg == nil {
		if err := loadEnv(); err != nil {
			return nil, fmt.Errorf("failed to load environment: %w", err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	logger := setupLogger(o.logOutput, cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"store", cfg.Store.Driver,
	)

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	registry := shortener.NewRegistry(ctx, store, &shortener.RegistryConfig{
		CodeGenerator:          codegen.NewBase62(),
		IDGenerator:            idgen.New(idgen.Version(cfg.Links.IDVersion), idgen.WithRetries(2)),
		Logger:                 logger,
		BaseURL:                cfg.Server.BaseURL,
		CodeLength:             cfg.Links.CodeLength,
		MaxCodeAttempts:        cfg.Links.MaxCodeAttempts,
		DefaultLifetimeMinutes: cfg.Links.DefaultLifetimeMinutes,
		MaxLifetimeMinutes:     cfg.Links.MaxLifetimeMinutes,
	})
	resolver := shortener.NewResolver(registry, &shortener.ResolverConfig{
		RedirectDelay: cfg.Links.RedirectDelay,
		Logger:        logger,
	})
	handler := shortener.NewHandler(shortener.HandlerConfig{
		Registry: registry,
		Resolver: resolver,
		Logger:   logger,
	})

	srv := server.New(cfg, logger, handler)

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Registry:   registry,
		Resolver:   resolver,
		Handler:    handler,
		Server:     srv,
		closeStore: closeStore,
	}, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown retries any pending save and releases the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	flushErr := a.Registry.Flush(ctx)
	if flushErr != nil {
		a.Logger.Error("failed to flush links", "error", flushErr.Error())
	}

	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
		a.Logger.Info("store closed")
	}

	return flushErr
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "" || env == "development" || env == "test" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(w io.Writer, level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}
