package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/ledger"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/service"
	"github.com/cx-tal-miterani/flight-surety/shared/config"
	"github.com/cx-tal-miterani/flight-surety/shared/logging"
	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

// ledgerSummary is what replay prints
type ledgerSummary struct {
	Head             uint64          `json:"head"`
	Operational      bool            `json:"operational"`
	AdmittedAirlines int             `json:"admittedAirlines"`
	FundedAirlines   int             `json:"fundedAirlines"`
	Oracles          int             `json:"oracles"`
	Reserves         string          `json:"reserves"`
	Flights          []models.Flight `json:"flights"`
}

func newReplayCommand(configFile *string) *cobra.Command {
	var printEvents bool
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the ledger from the journal and print it",
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

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg.Storage, logger)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer store.Close()

			first, err := store.Read(ctx, 0, 1)
			if err != nil {
				return err
			}
			if len(first) == 0 {
				return errors.New("journal is empty")
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			if printEvents {
				_, err := journal.ReadAll(ctx, store, 0, 256, func(rec journal.Record) error {
					return out.Encode(service.EventToModel(rec))
				})
				if err != nil {
					return err
				}
			}

			engine, err := ledger.New(ctx, store, ledger.ParamsFromConfig(cfg.Ledger), ledger.WithLogger(logger))
			if err != nil {
				return err
			}
			admitted, funded := engine.AirlineCounts()
			summary := ledgerSummary{
				Head:             engine.Head(),
				Operational:      engine.IsOperational(),
				AdmittedAirlines: admitted,
				FundedAirlines:   funded,
				Oracles:          engine.OracleCount(),
				Reserves:         engine.Reserves().Dec(),
				Flights:          []models.Flight{},
			}
			for _, f := range engine.ListFlights() {
				summary.Flights = append(summary.Flights, *service.FlightToModel(f))
			}
			logger.Debug("replay finished", zap.Uint64("head", summary.Head))
			out.SetIndent("", "  ")
			return out.Encode(summary)
		},
	}
	cmd.Flags().BoolVar(&printEvents, "events", false, "print every record before the summary")
	return cmd
}
