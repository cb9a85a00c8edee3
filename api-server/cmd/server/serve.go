package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/database"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/handlers"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/ledger"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/metrics"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/router"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/service"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/websocket"
	"github.com/cx-tal-miterani/flight-surety/shared/config"
	"github.com/cx-tal-miterani/flight-surety/shared/logging"
)

func newServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof)); err != nil {
				return fmt.Errorf("failed to set GOMAXPROCS: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

// openStore opens the configured journal backend
func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (journal.Store, error) {
	switch cfg.Backend {
	case config.StorageBadger:
		return journal.OpenBadgerStore(cfg.BadgerDir, logger)
	case config.StoragePostgres:
		return database.Connect(ctx, cfg.DatabaseURL)
	case config.StorageMemory:
		return journal.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	feed := journal.NewFeed(0)

	transfers := logging.Component(logger, "transfer")
	engine, err := ledger.New(ctx, store, ledger.ParamsFromConfig(cfg.Ledger),
		ledger.WithLogger(logger),
		ledger.WithEntropy(ledger.NewEntropy(cfg.Ledger.Seed)),
		ledger.WithListener(feed),
		ledger.WithListener(m),
		ledger.WithTransferer(ledger.TransferFunc(func(ctx context.Context, to string, amount *uint256.Int) error {
			transfers.Info("credits transferred", zap.String("passenger", to), zap.String("amount", amount.Dec()))
			return nil
		})),
	)
	if err != nil {
		return err
	}
	feed.Advance(engine.Head())

	suretyService := service.NewSuretyService(engine, feed, m, logger, cfg.Server.MaxPollWait)
	hub := websocket.NewHub(store, feed, logger)
	h := handlers.NewHandler(suretyService)

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: router.SetupRouter(h, router.Options{
			Events:   http.HandlerFunc(hub.ServeWS),
			Metrics:  m,
			Gatherer: reg,
			Logger:   logger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("API server starting",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Backend),
			zap.Uint64("head", engine.Head()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
