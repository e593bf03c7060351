package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/wavesos/wavesos_web/internal/artifact"
	"github.com/wavesos/wavesos_web/internal/config"
	"github.com/wavesos/wavesos_web/internal/http/rest"
	"github.com/wavesos/wavesos_web/internal/logctx"
	"github.com/wavesos/wavesos_web/internal/notifier"
	"github.com/wavesos/wavesos_web/internal/storage"
	"github.com/wavesos/wavesos_web/internal/storage/cache"
	"github.com/wavesos/wavesos_web/internal/storage/memory"
	"github.com/wavesos/wavesos_web/internal/storage/sqlite"
	"github.com/wavesos/wavesos_web/internal/telemetry"
)

var version = "dev"

func main() {
	envFile := pflag.String("env-file", ".env", "path to an optional .env file")
	pflag.Parse()

	if err := loadEnvFile(*envFile); err != nil {
		slog.Error("env file error", "path", *envFile, "err", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("wavesos web starting...",
		"version", version,
		"environment", cfg.Environment,
		"log_level", cfg.LogLevel,
		"store_driver", cfg.StoreDriver,
	)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil {
		logger.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

// loadEnvFile applies path to the environment. A missing file is fine;
// variables already set win over the file.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	// =========================================================================
	// Start Download Registry
	catalog := artifact.DefaultCatalog()

	registry, closeRegistry, err := buildRegistry(ctx, cfg, catalog, tel)
	if err != nil {
		return fmt.Errorf("failed to build download registry: %w", err)
	}
	defer closeRegistry()

	// =========================================================================
	// Start Notification
	var notif notifier.Notifier = notifier.Nop{}
	if cfg.NewsletterWebhookURL != "" {
		notif = notifier.NewWebhookNotifier(cfg.NewsletterWebhookURL)
	}

	// =========================================================================
	// Start API Service
	server := setupServer(ctx, cfg, rest.RouterOptions{
		Registry:    registry,
		Store:       artifact.NewStore(cfg.ArtifactsDir, cfg.ArtifactRateLimit),
		Catalog:     catalog,
		Notifier:    notif,
		Telemetry:   tel,
		Production:  cfg.IsProduction(),
		FrontendURL: cfg.FrontendURL,
		MaxBodySize: cfg.MaxBodySize,
		StaticDir:   cfg.StaticDir,
		ServiceName: cfg.Telemetry.ServiceName,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Initializing API support",
			"host", cfg.Web.BindAddress,
			"artifacts_dir", cfg.ArtifactsDir,
			"static_dir", cfg.StaticDir,
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("start shutdown")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return nil
	})

	return g.Wait()
}

// buildRegistry picks the registry backend and stacks the instrumentation and
// stats cache on top of it.
func buildRegistry(
	ctx context.Context,
	cfg *config.Config,
	catalog artifact.Catalog,
	tel *telemetry.Telemetry,
) (storage.Registry, func(), error) {
	logger := logctx.LoggerFromContext(ctx)

	var (
		registry storage.Registry
		closer   = func() {}
	)

	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := sqlite.InitDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		registry = sqlite.NewDownloadRepository(db)
		closer = closeDB(logger, db)
	default:
		registry = memory.NewRegistry(catalog.Seeds()...)
	}

	registry = storage.NewInstrumentedRegistry(registry, tel)

	if cfg.StatsCacheTTL > 0 {
		registry = cache.NewRegistry(registry, cfg.StatsCacheTTL)
	}

	return registry, closer, nil
}

func closeDB(logger *slog.Logger, db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "err", err)
		}
	}
}

// setupServer prepares the handlers and services to create the http rest server.
func setupServer(ctx context.Context, cfg *config.Config, opts rest.RouterOptions) *http.Server {
	return &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      rest.NewRouter(opts),
		// Shutdown drains in-flight downloads instead of cancelling them.
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
}
