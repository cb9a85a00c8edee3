package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, "10000000000000000000", Amount(cfg.Ledger.RegistrationFee).Dec())
	assert.Equal(t, 25, cfg.Oracle.Count)
	assert.Equal(t, []uint8{0, 10, 20}, cfg.Oracle.StatusCodes)
}

func TestLoad_FileThenEnv(t *testing.T) {
	yamlContent := `
server:
  port: 9090
  shutdownTimeout: 5s
ledger:
  admin: "0xadmin"
  seed: 42
storage:
  backend: badger
  badgerDir: /tmp/surety
logging:
  level: debug
oracle:
  count: 10
  statusCodes: [20]
`
	tmpFile := filepath.Join(t.TempDir(), "surety.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(yamlContent), 0644))

	t.Setenv("SURETY_SERVER_PORT", "9191")
	t.Setenv("SURETY_ORACLE_API_URL", "http://engine:8080")
	t.Setenv("SURETY_ORACLE_DATA_DIR", "/var/lib/surety-worker")

	cfg, err := Load(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "0xadmin", cfg.Ledger.Admin)
	assert.Equal(t, uint64(42), cfg.Ledger.Seed)
	assert.Equal(t, StorageBadger, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Oracle.Count)
	assert.Equal(t, []uint8{20}, cfg.Oracle.StatusCodes)
	assert.Equal(t, "http://engine:8080", cfg.Oracle.APIURL)
	assert.Equal(t, "/var/lib/surety-worker", cfg.Oracle.DataDir)
	// untouched defaults survive
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no admin", func(c *Config) { c.Ledger.Admin = "" }},
		{"bad fee", func(c *Config) { c.Ledger.RegistrationFee = "ten" }},
		{"zero cap", func(c *Config) { c.Ledger.PremiumCap = "0" }},
		{"postgres without url", func(c *Config) { c.Storage.Backend = StoragePostgres }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "etcd" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"zero rate", func(c *Config) { c.Oracle.RatePerSecond = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
