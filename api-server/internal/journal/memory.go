package journal

import (
	"context"
	"sync"
)

// MemoryStore keeps the log in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	recs   []Record
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(ctx context.Context, recs []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := checkContiguous(uint64(len(m.recs)), recs); err != nil {
		return err
	}
	m.recs = append(m.recs, recs...)
	return nil
}

func (m *MemoryStore) Read(ctx context.Context, from uint64, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if from >= uint64(len(m.recs)) {
		return nil, nil
	}
	end := uint64(len(m.recs))
	if limit > 0 && from+uint64(limit) < end {
		end = from + uint64(limit)
	}
	out := make([]Record, end-from)
	copy(out, m.recs[from:end])
	return out, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
