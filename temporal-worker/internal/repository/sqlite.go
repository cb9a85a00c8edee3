package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

const sqliteFile = "oracles.sqlite"

// simulatedOracle is the gorm row for one simulator identity
type simulatedOracle struct {
	Serial  int    `gorm:"primaryKey;autoIncrement:false"`
	Address string `gorm:"uniqueIndex;not null"`
	IndexA  uint8
	IndexB  uint8
	IndexC  uint8
}

func (simulatedOracle) TableName() string {
	return "simulated_oracles"
}

// SQLiteStore keeps oracle identities in a local sqlite file, for workers
// running without postgres
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the store under dataDir. An empty
// dataDir gives a private in-memory database.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	dsn := "file::memory:"
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", filepath.Join(dataDir, sqliteFile))
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if dataDir == "" {
		// each pooled connection to :memory: is a separate database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&simulatedOracle{}); err != nil {
		return nil, fmt.Errorf("failed to migrate oracle schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.SimulatedOracle, error) {
	var rows []simulatedOracle
	if result := s.db.WithContext(ctx).Order("serial").Find(&rows); result.Error != nil {
		return nil, fmt.Errorf("failed to list oracles: %w", result.Error)
	}
	out := make([]models.SimulatedOracle, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.SimulatedOracle{
			Serial:  r.Serial,
			Address: r.Address,
			Indexes: [3]uint8{r.IndexA, r.IndexB, r.IndexC},
		})
	}
	return out, nil
}

func (s *SQLiteStore) Save(ctx context.Context, o models.SimulatedOracle) error {
	row := simulatedOracle{
		Serial:  o.Serial,
		Address: o.Address,
		IndexA:  o.Indexes[0],
		IndexB:  o.Indexes[1],
		IndexC:  o.Indexes[2],
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "serial"}},
		DoUpdates: clause.AssignmentColumns([]string{"address", "index_a", "index_b", "index_c"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to save oracle %d: %w", o.Serial, result.Error)
	}
	return nil
}

// Close releases the underlying connection pool
func (s *SQLiteStore) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

var _ OracleStore = (*SQLiteStore)(nil)
