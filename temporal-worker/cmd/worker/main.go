package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/cx-tal-miterani/flight-surety/shared/config"
	"github.com/cx-tal-miterani/flight-surety/shared/logging"
	"github.com/cx-tal-miterani/flight-surety/shared/models"
	"github.com/cx-tal-miterani/flight-surety/temporal-worker/internal/activities"
	"github.com/cx-tal-miterani/flight-surety/temporal-worker/internal/repository"
	"github.com/cx-tal-miterani/flight-surety/temporal-worker/internal/surety"
	"github.com/cx-tal-miterani/flight-surety/temporal-worker/internal/watcher"
	"github.com/cx-tal-miterani/flight-surety/temporal-worker/internal/workflows"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:          "surety-worker",
		Short:        "Simulated oracles answering flight status requests",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
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
			return run(ctx, cfg.Oracle, logger)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to YAML config file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openOracleStore(ctx context.Context, cfg config.OracleConfig, logger *zap.Logger) (repository.OracleStore, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
	case cfg.DataDir != "":
		store, err := repository.OpenSQLite(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using local oracle store", zap.String("dir", cfg.DataDir))
		return store, store.Close, nil
	default:
		logger.Warn("no database configured, simulated oracles are not persisted")
		return repository.NewMemoryStore(), func() {}, nil
	}
	repo, err := repository.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database")
	return repo, repo.Close, nil
}

func run(ctx context.Context, cfg config.OracleConfig, logger *zap.Logger) error {
	store, closeStore, err := openOracleStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	codes := make([]models.StatusCode, 0, len(cfg.StatusCodes))
	for _, c := range cfg.StatusCodes {
		code := models.StatusCode(c)
		if !code.Valid() {
			return fmt.Errorf("invalid simulated status code %d", c)
		}
		codes = append(codes, code)
	}

	api := surety.NewClient(cfg.APIURL, nil)
	limiter := rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	acts := activities.NewActivities(api, store, limiter, codes, logger)

	oracles, err := acts.EnsureOracles(ctx, cfg.Count, cfg.Stake)
	if err != nil {
		return err
	}
	logger.Info("simulated oracles ready", zap.Int("count", len(oracles)))

	logger.Info("connecting to Temporal", zap.String("host", cfg.TemporalHost))
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHost,
		Logger:   newTemporalLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Temporal: %w", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.OracleRequestWorkflow)
	acts.Register(w)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := w.Start(); err != nil {
			return fmt.Errorf("worker failed: %w", err)
		}
		<-gctx.Done()
		w.Stop()
		return nil
	})
	g.Go(func() error {
		return watcher.New(api, c, cfg.TaskQueue, oracles, cfg.FromOffset, cfg.PollWait, logger).Run(gctx)
	})

	err = g.Wait()
	logger.Info("worker stopped")
	return err
}
