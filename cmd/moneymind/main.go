package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneymind/internal/auth"
	"moneymind/internal/backend"
	"moneymind/internal/cache"
	"moneymind/internal/cli"
	"moneymind/internal/config"
	"moneymind/internal/events"
	apphttp "moneymind/internal/http"
	"moneymind/internal/log"
	"moneymind/internal/services"
	"moneymind/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	if err := run(logger, cfg); err != nil {
		logger.Error("moneymind stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *slog.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("token verifier: %w", err)
	}

	broker := events.NewBroker(events.DefaultBuffer)
	defer broker.Close()

	// A zero TTL turns the spending cache off.
	var spending *services.SpendingCache
	caches := cache.NewManager()
	if cfg.SummaryCacheTTL > 0 {
		spending = services.NewSpendingCache(cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
		caches.Register(spending)
		caches.StartCleanup(min(cfg.SummaryCacheTTL, time.Minute))
	}
	defer caches.Stop()

	publishers := events.Multi{broker}
	if store.Relay != nil {
		publishers = append(publishers, store.Relay)
	}

	svcCfg := services.DefaultFinanceServiceConfig()
	svcCfg.Thresholds = cfg.Thresholds()
	svcCfg.NudgeListLimit = cfg.NudgeListLimit
	svcCfg.Spending = spending
	svc := services.NewFinanceService(store.Ledger, publishers, svcCfg)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Service:            svc,
		Broker:             broker,
		Spending:           spending,
		Verifier:           verifier,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting moneymind server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"relay", store.Relay != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if store.Relay != nil {
		local := []events.Publisher{broker}
		if spending != nil {
			local = append(local, spending)
		}
		relay := worker.NewRelayWorker(store.Relay, local...)
		g.Go(func() error {
			// Without the relay this instance still serves its own changes.
			if err := relay.Run(gctx); err != nil {
				logger.Error("Change relay stopped", "error", err, "stats", relay.Stats())
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Open event streams end with the broker; Shutdown would wait on them.
		broker.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.NewStructuredLogger(log.Default(log.ComponentApp)).
				LogError(shutdownCtx, "Server shutdown error", err, log.ComponentHTTP, log.OpShutdown, log.NewFields())
			return err
		}
		return nil
	})

	return g.Wait()
}
