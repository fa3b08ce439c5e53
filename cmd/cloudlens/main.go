package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	cloudadapter "github.com/cloudlens/cloudlens/internal/adapter/driven/cloud"
	sqliteadapter "github.com/cloudlens/cloudlens/internal/adapter/driven/sqlite"
	httphandler "github.com/cloudlens/cloudlens/internal/adapter/driving/http"
	"github.com/cloudlens/cloudlens/internal/application"
	"github.com/cloudlens/cloudlens/internal/config"
	"github.com/cloudlens/cloudlens/internal/domain/model"
	"github.com/cloudlens/cloudlens/internal/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"cache_ttl", cfg.CacheTTL,
		"refresh_hour", cfg.RefreshHour,
		"credential_storage", cfg.HasSecretKey(),
	)
	if !cfg.HasSecretKey() {
		slog.Warn("CLOUDLENS_SECRET_KEY not set, credential storage disabled; all requests use default credential chains")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Metrics registry with process and Go runtime collectors.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	// 6. Wire adapters and services.
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	cacheStore := sqliteadapter.NewCacheRepo(db)
	refreshLogStore := sqliteadapter.NewRefreshLogRepo(db)

	clock := clockwork.NewRealClock()
	credSvc := application.NewCredentialService(credentialStore, cfg.SecretKey, metrics)
	cacheSvc := application.NewCacheService(cacheStore, refreshLogStore, cfg.CacheTTL, cfg.RefreshHour, clock, metrics)

	awsResolver := application.NewAWSResolver(credSvc, cloudadapter.NewAWSSource(cfg.AWSRegion), cfg.AWSRegion)
	azureResolver := application.NewAzureResolver(credSvc, cloudadapter.NewAzureSource(cfg.AzureSubscriptionID), cfg.AzureSubscriptionID)
	gcpResolver := application.NewGCPResolver(credSvc, cloudadapter.NewGCPSource(cfg.GCPProjectID), cfg.GCPProjectID)

	// 7. Start the refresh scheduler. The daily refresh drops the pair's
	// cached data inside the window; the next dashboard read resolves fresh
	// provider clients and repopulates the cache.
	refresh := func(ctx context.Context, userID string, provider model.Provider) error {
		if err := warmResolution(ctx, awsResolver, azureResolver, gcpResolver, userID, provider); err != nil {
			return err
		}
		return cacheSvc.Invalidate(ctx, userID, provider, "")
	}
	refreshSvc := application.NewRefreshService(
		cacheSvc,
		credentialStore,
		refresh,
		5*time.Minute,
		cfg.SweepInterval,
		clock,
		metrics,
	)
	go refreshSvc.Start(ctx)

	// 8. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(credSvc, cacheSvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, registry, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("cloudlens started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// warmResolution confirms the user's provider resolution still works before
// the cached data is dropped, so a broken credential chain keeps serving
// stale data instead of leaving the dashboard empty.
func warmResolution(
	ctx context.Context,
	aws *application.AWSResolver,
	azure *application.AzureResolver,
	gcp *application.GCPResolver,
	userID string,
	provider model.Provider,
) error {
	switch provider {
	case model.ProviderAWS:
		_, err := aws.Resolve(ctx, userID)
		return err
	case model.ProviderAzure:
		_, err := azure.Resolve(ctx, userID)
		return err
	case model.ProviderGCP:
		_, err := gcp.Resolve(ctx, userID)
		return err
	}
	return nil
}
