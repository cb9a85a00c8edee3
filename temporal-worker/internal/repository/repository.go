package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

// OracleStore persists the simulator's oracle identities so a restarted
// worker keeps answering with the same registered principals
type OracleStore interface {
	// List returns every stored oracle ordered by serial
	List(ctx context.Context) ([]models.SimulatedOracle, error)
	// Save inserts or replaces the oracle with the same serial
	Save(ctx context.Context, oracle models.SimulatedOracle) error
}

const schema = `
CREATE TABLE IF NOT EXISTS simulated_oracles (
	serial     INTEGER PRIMARY KEY,
	address    TEXT NOT NULL UNIQUE,
	index_a    SMALLINT NOT NULL,
	index_b    SMALLINT NOT NULL,
	index_c    SMALLINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Repository handles database operations for the worker
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Connect opens a pool on databaseURL and ensures the schema exists
func Connect(ctx context.Context, databaseURL string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	r := NewRepository(pool)
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// Migrate creates the oracle table
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate oracle schema: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]models.SimulatedOracle, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT serial, address, index_a, index_b, index_c
		FROM simulated_oracles
		ORDER BY serial
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list oracles: %w", err)
	}
	oracles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SimulatedOracle, error) {
		var o models.SimulatedOracle
		var a, b, c int16
		if err := row.Scan(&o.Serial, &o.Address, &a, &b, &c); err != nil {
			return o, err
		}
		o.Indexes = [3]uint8{uint8(a), uint8(b), uint8(c)}
		return o, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan oracles: %w", err)
	}
	return oracles, nil
}

func (r *Repository) Save(ctx context.Context, o models.SimulatedOracle) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO simulated_oracles (serial, address, index_a, index_b, index_c)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (serial) DO UPDATE
		SET address = EXCLUDED.address,
			index_a = EXCLUDED.index_a,
			index_b = EXCLUDED.index_b,
			index_c = EXCLUDED.index_c
	`, o.Serial, o.Address, int16(o.Indexes[0]), int16(o.Indexes[1]), int16(o.Indexes[2]))
	if err != nil {
		return fmt.Errorf("failed to save oracle %d: %w", o.Serial, err)
	}
	return nil
}

// Close releases the pool
func (r *Repository) Close() {
	r.pool.Close()
}

// MemoryStore keeps oracles for the lifetime of the process
type MemoryStore struct {
	mu      sync.RWMutex
	oracles map[int]models.SimulatedOracle
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{oracles: make(map[int]models.SimulatedOracle)}
}

func (m *MemoryStore) List(ctx context.Context) ([]models.SimulatedOracle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.SimulatedOracle, 0, len(m.oracles))
	for _, o := range m.oracles {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Serial < out[j].Serial })
	return out, nil
}

func (m *MemoryStore) Save(ctx context.Context, o models.SimulatedOracle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oracles[o.Serial] = o
	return nil
}

var (
	_ OracleStore = (*Repository)(nil)
	_ OracleStore = (*MemoryStore)(nil)
)
