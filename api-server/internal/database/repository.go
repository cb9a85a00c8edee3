package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
)

const schema = `
CREATE TABLE IF NOT EXISTS surety_events (
	seq         BIGINT PRIMARY KEY,
	type        TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	data        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS surety_events_type_idx ON surety_events (type, seq);
`

// EventStore is a journal.Store on PostgreSQL
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new event store
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Connect opens a pool on databaseURL and ensures the schema exists
func Connect(ctx context.Context, databaseURL string) (*EventStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := NewEventStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the events table if needed
func (s *EventStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Append stores the batch in one transaction
func (s *EventStore) Append(ctx context.Context, recs []journal.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var next int64
	err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(seq) + 1, 0) FROM surety_events`).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to read journal head: %w", err)
	}
	if uint64(next) != recs[0].Offset {
		return fmt.Errorf("%w: got %d, want %d", journal.ErrOffsetConflict, recs[0].Offset, next)
	}

	query := `INSERT INTO surety_events (seq, type, recorded_at, data) VALUES ($1, $2, $3, $4)`
	for _, rec := range recs {
		row := rowFromRecord(rec)
		if _, err := tx.Exec(ctx, query, row.Seq, row.Type, row.RecordedAt, row.Data); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: offset %d already written", journal.ErrOffsetConflict, rec.Offset)
			}
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: concurrent writer", journal.ErrOffsetConflict)
		}
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

// Read returns records with offset >= from in order
func (s *EventStore) Read(ctx context.Context, from uint64, limit int) ([]journal.Record, error) {
	query := `
		SELECT seq, type, recorded_at, data
		FROM surety_events
		WHERE seq >= $1
		ORDER BY seq ASC
	`
	args := []any{int64(from)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var recs []journal.Record
	for rows.Next() {
		var row EventRow
		if err := rows.Scan(&row.Seq, &row.Type, &row.RecordedAt, &row.Data); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		recs = append(recs, row.Record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return recs, nil
}

func (s *EventStore) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
