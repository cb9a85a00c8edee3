package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/ledger"
	"github.com/cx-tal-miterani/flight-surety/shared/config"
	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	_, err := openStore(context.Background(), config.StorageConfig{Backend: "s3"}, zap.NewNop())
	assert.Error(t, err)
}

func TestReplayCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	t.Setenv("SURETY_STORAGE_BACKEND", config.StorageBadger)
	t.Setenv("SURETY_STORAGE_BADGER_DIR", dir)

	cfg, err := config.Load("")
	require.NoError(t, err)

	store, err := openStore(context.Background(), cfg.Storage, zap.NewNop())
	require.NoError(t, err)
	params := ledger.ParamsFromConfig(cfg.Ledger)
	engine, err := ledger.New(context.Background(), store, params)
	require.NoError(t, err)
	require.NoError(t, engine.Fund(context.Background(), params.FirstAirline, params.RegistrationFee))
	key := models.FlightKey{Airline: params.FirstAirline, Flight: "SQ390", Timestamp: 1640928519}
	_, err = engine.RegisterFlight(context.Background(), params.FirstAirline, key, "SIN", "BKK")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"replay"})
	require.NoError(t, root.Execute())

	var summary ledgerSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, uint64(3), summary.Head)
	assert.Equal(t, 1, summary.FundedAirlines)
	require.Len(t, summary.Flights, 1)
	assert.Equal(t, "SQ390", summary.Flights[0].FlightNumber)
	assert.Equal(t, params.RegistrationFee.Dec(), summary.Reserves)
}

func TestReplayCommand_EmptyJournal(t *testing.T) {
	t.Setenv("SURETY_STORAGE_BACKEND", config.StorageMemory)

	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"replay"})
	assert.EqualError(t, root.Execute(), "journal is empty")
}
