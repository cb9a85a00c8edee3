package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. SURETY_SERVER_PORT
const EnvPrefix = "surety"

// Storage backends
const (
	StorageMemory   = "memory"
	StorageBadger   = "badger"
	StoragePostgres = "postgres"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"  split_words:"true"`
	Ledger  LedgerConfig  `yaml:"ledger"  split_words:"true"`
	Storage StorageConfig `yaml:"storage" split_words:"true"`
	Logging LoggingConfig `yaml:"logging" split_words:"true"`
	Oracle  OracleConfig  `yaml:"oracle"  split_words:"true"`
}

type ServerConfig struct {
	BindAddr        string        `yaml:"bindAddr"        split_words:"true"`
	Port            int           `yaml:"port"            envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"readTimeout"     split_words:"true"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"    split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"     split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
	// Upper bound for /api/events?wait=
	MaxPollWait time.Duration `yaml:"maxPollWait" split_words:"true"`
}

// LedgerConfig holds the genesis identities and economic constants.
// Amounts are decimal strings in wei.
type LedgerConfig struct {
	Admin           string `yaml:"admin"           split_words:"true"`
	FirstAirline    string `yaml:"firstAirline"    split_words:"true"`
	Seed            uint64 `yaml:"seed"`
	RegistrationFee string `yaml:"registrationFee" split_words:"true"`
	PremiumCap      string `yaml:"premiumCap"      split_words:"true"`
	OracleStake     string `yaml:"oracleStake"     split_words:"true"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	BadgerDir   string `yaml:"badgerDir"   split_words:"true"`
	DatabaseURL string `yaml:"databaseUrl" envconfig:"DATABASE_URL"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// OracleConfig configures the oracle simulation worker
type OracleConfig struct {
	APIURL        string        `yaml:"apiUrl"        envconfig:"API_URL"`
	TemporalHost  string        `yaml:"temporalHost"  split_words:"true"`
	TaskQueue     string        `yaml:"taskQueue"     split_words:"true"`
	Count         int           `yaml:"count"`
	StatusCodes   []uint8       `yaml:"statusCodes"   split_words:"true"`
	Stake         string        `yaml:"stake"`
	FromOffset    uint64        `yaml:"fromOffset"    split_words:"true"`
	PollWait      time.Duration `yaml:"pollWait"      split_words:"true"`
	RatePerSecond float64       `yaml:"ratePerSecond" split_words:"true"`
	Burst         int           `yaml:"burst"`
	DatabaseURL   string        `yaml:"databaseUrl"   envconfig:"DATABASE_URL"`
	// Local sqlite directory used when no database URL is set
	DataDir string `yaml:"dataDir" split_words:"true"`
}

// Default returns the built-in configuration: 10 ether registration fee,
// 1 ether premium cap and oracle stake, in-memory storage
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddr:        "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxPollWait:     30 * time.Second,
		},
		Ledger: LedgerConfig{
			Admin:           "0x627306090abaB3A6e1400e9345bC60c78a8BEf57",
			FirstAirline:    "0xf17f52151EbEF6C7334FAD080c5704D77216b732",
			Seed:            1,
			RegistrationFee: "10000000000000000000",
			PremiumCap:      "1000000000000000000",
			OracleStake:     "1000000000000000000",
		},
		Storage: StorageConfig{
			Backend:   StorageMemory,
			BadgerDir: ".surety",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Oracle: OracleConfig{
			APIURL:        "http://localhost:8080",
			TemporalHost:  "localhost:7233",
			TaskQueue:     "flight-surety-oracles",
			Count:         25,
			StatusCodes:   []uint8{0, 10, 20},
			Stake:         "1000000000000000000",
			PollWait:      20 * time.Second,
			RatePerSecond: 20,
			Burst:         5,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// SURETY_* environment variables, in that order
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the binaries cannot start with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("server port must be between 1 and 65535")
	}
	if c.Ledger.Admin == "" {
		return errors.New("ledger admin cannot be empty")
	}
	if c.Ledger.FirstAirline == "" {
		return errors.New("ledger first airline cannot be empty")
	}
	for name, v := range map[string]string{
		"registration fee": c.Ledger.RegistrationFee,
		"premium cap":      c.Ledger.PremiumCap,
		"oracle stake":     c.Ledger.OracleStake,
		"simulated stake":  c.Oracle.Stake,
	} {
		amount, err := uint256.FromDecimal(v)
		if err != nil {
			return fmt.Errorf("%s %q: %w", name, v, err)
		}
		if amount.IsZero() {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageBadger:
		if c.Storage.BadgerDir == "" {
			return errors.New("badger storage needs a directory")
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("postgres storage needs a database URL")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error")
	}
	if c.Oracle.Count < 0 {
		return errors.New("oracle count cannot be negative")
	}
	if c.Oracle.RatePerSecond <= 0 || c.Oracle.Burst < 1 {
		return errors.New("oracle submission rate and burst must be positive")
	}
	return nil
}

// Amount parses one of the decimal wei settings; Validate has already
// rejected malformed values
func Amount(v string) *uint256.Int {
	return uint256.MustFromDecimal(v)
}

// Addr returns the HTTP listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindAddr, s.Port)
}
