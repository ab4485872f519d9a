package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lucasmora/trendscore/internal/cache"
	appconfig "github.com/lucasmora/trendscore/internal/config"
	"github.com/lucasmora/trendscore/internal/engine"
	"github.com/lucasmora/trendscore/internal/gate"
	"github.com/lucasmora/trendscore/internal/httpapi"
	"github.com/lucasmora/trendscore/internal/logging"
	"github.com/lucasmora/trendscore/internal/metrics"
	"github.com/lucasmora/trendscore/internal/retry"
	"github.com/lucasmora/trendscore/internal/store"
	"github.com/lucasmora/trendscore/internal/trends"
)

const (
	appName = "TrendScore"
	version = "v1.0.0"
)

func main() {
	logging.Init(os.Getenv("TRENDSCORE_LOG_JSON") == "true")

	rootCmd := &cobra.Command{
		Use:     "trendscore",
		Short:   "TrendScore - keyword trend analytics service",
		Version: version,
		Long:    "TrendScore serves a 0-100 trend score for a keyword/country pair, backed by a rate-limited Google Trends-like provider.",
		RunE:    runServe,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Print the path to the SQL migration bundled with this build",
		RunE:  runMigrate,
	}

	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	fmt.Println("migrations/0001_init.sql")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appconfig.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	countries, err := appconfig.LoadCountries(cfg.CountriesFile)
	if err != nil {
		return fmt.Errorf("failed to load countries: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

	db, err := sqlx.Connect("postgres", cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	trendCache := cache.New(redisClient, cache.Config{
		FreshTTL: cfg.FreshTTL(),
		StaleTTL: cfg.StaleTTL(),
	}, log.Logger)

	queryStore := store.NewPostgresStore(db, 5*time.Second, log.Logger)

	var connector trends.Connector
	if cfg.MockProvider {
		log.Warn().Msg("TRENDSCORE_MOCK_PROVIDER enabled, using synthetic trend data")
		connector = trends.NewMockConnector()
	} else {
		connector = trends.NewGoogleConnector(trends.DefaultGoogleConfig(), log.Logger)
	}
	breaker := trends.NewSequenceBreaker("google_trends")

	concurrencyGate := gate.New()
	retryEnvelope := retry.NewEnvelope(retry.Config{
		MaxAttempts:    cfg.MaxAttempts,
		BaseDelay:      cfg.BaseDelay(),
		BlockedPenalty: cfg.BlockedPenalty(),
	})

	metricsRegistry := metrics.NewRegistry()

	eng := engine.New(concurrencyGate, retryEnvelope, trendCache, connector, breaker, queryStore,
		engine.Config{RequestDelay: cfg.RequestDelay()}, log.Logger, metricsRegistry)

	handlers := httpapi.NewHandlers(eng, countries, queryStore, trendCache, log.Logger)
	server := httpapi.NewServer(httpapi.ServerConfigFromAppConfig(cfg), handlers, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
