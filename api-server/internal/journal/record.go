// Package journal is the append-only event log the ledger runs on. Offsets are
// dense and start at zero; a record is visible to readers only after Append
// returns.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrOffsetConflict = errors.New("journal offset conflict")
	ErrClosed         = errors.New("journal closed")
)

// Record is one committed event
type Record struct {
	Offset uint64          `json:"offset"`
	Type   string          `json:"type"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

// Store persists records. Append is atomic: either every record of the batch
// is stored or none is.
type Store interface {
	Append(ctx context.Context, recs []Record) error
	// Read returns up to limit records with Offset >= from, in order.
	// limit <= 0 means no limit.
	Read(ctx context.Context, from uint64, limit int) ([]Record, error)
	Close() error
}

// Listener is notified after a batch is durably appended
type Listener interface {
	Committed(recs []Record)
}

// checkContiguous verifies the batch continues the log at next
func checkContiguous(next uint64, recs []Record) error {
	for i, rec := range recs {
		if rec.Offset != next+uint64(i) {
			return fmt.Errorf("%w: got %d, want %d", ErrOffsetConflict, rec.Offset, next+uint64(i))
		}
	}
	return nil
}

// ReadAll streams every record from offset from through fn, in pages
func ReadAll(ctx context.Context, store Store, from uint64, pageSize int, fn func(Record) error) (uint64, error) {
	next := from
	for {
		page, err := store.Read(ctx, next, pageSize)
		if err != nil {
			return next, err
		}
		for _, rec := range page {
			if err := fn(rec); err != nil {
				return next, err
			}
			next = rec.Offset + 1
		}
		if pageSize <= 0 || len(page) < pageSize {
			return next, nil
		}
	}
}
