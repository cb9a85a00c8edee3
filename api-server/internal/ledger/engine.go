// Package ledger is the flight surety state machine: the operational gate,
// airline admission and funding, flight registration, the insurance and
// payout ledger and the oracle consensus protocol.
//
// Every mutation validates against the current state, appends the events it
// plans to the journal and only then applies them in memory. Restarting on a
// persistent journal replays the same events through the same path.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
)

const replayPageSize = 512

// Transferer moves withdrawn credits out of the ledger
type Transferer interface {
	Transfer(ctx context.Context, to string, amount *uint256.Int) error
}

// TransferFunc adapts a function to Transferer
type TransferFunc func(ctx context.Context, to string, amount *uint256.Int) error

func (f TransferFunc) Transfer(ctx context.Context, to string, amount *uint256.Int) error {
	return f(ctx, to, amount)
}

// Engine serializes all ledger operations over one journal
type Engine struct {
	mu        sync.RWMutex
	store     journal.Store
	params    Params
	st        *state
	next      uint64
	nonce     uint64
	entropy   Entropy
	clock     func() time.Time
	transfer  Transferer
	listeners []journal.Listener
	logger    *zap.Logger
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithEntropy(entropy Entropy) Option {
	return func(e *Engine) { e.entropy = entropy }
}

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithTransferer(t Transferer) Option {
	return func(e *Engine) { e.transfer = t }
}

// WithListener registers a listener called, in order, after every commit
func WithListener(l journal.Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// New rebuilds the ledger from store. An empty journal is initialized with the
// first airline admitted and unfunded.
func New(ctx context.Context, store journal.Store, params Params, opts ...Option) (*Engine, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger params: %w", err)
	}
	e := &Engine{
		store:   store,
		params:  params,
		st:      newState(),
		entropy: NewEntropy(1),
		clock:   time.Now,
		transfer: TransferFunc(func(context.Context, string, *uint256.Int) error {
			return nil
		}),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "ledger"))

	next, err := journal.ReadAll(ctx, store, 0, replayPageSize, func(rec journal.Record) error {
		if rec.Offset != e.next {
			return fmt.Errorf("journal gap: got offset %d, want %d", rec.Offset, e.next)
		}
		if err := e.st.apply(rec); err != nil {
			return err
		}
		e.next++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}
	e.nonce = next

	if next == 0 {
		_, err := e.commit(ctx, event(EventAirlineRegistered, airlineRegistered{Airline: params.FirstAirline}))
		if err != nil {
			return nil, fmt.Errorf("failed to write genesis: %w", err)
		}
		e.logger.Info("ledger initialized", zap.String("firstAirline", params.FirstAirline))
	} else {
		e.logger.Info("ledger replayed",
			zap.Uint64("records", next),
			zap.Int("airlines", e.st.admitted),
			zap.Int("flights", len(e.st.flights)),
		)
	}
	return e, nil
}

// commit journals the drafts and applies them. Callers hold e.mu.
func (e *Engine) commit(ctx context.Context, drafts ...draft) ([]journal.Record, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	now := e.clock().UTC()
	recs := make([]journal.Record, len(drafts))
	for i, d := range drafts {
		data, err := json.Marshal(d.payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", d.typ, err)
		}
		recs[i] = journal.Record{
			Offset: e.next + uint64(i),
			Type:   d.typ,
			Time:   now,
			Data:   data,
		}
	}

	if err := e.store.Append(ctx, recs); err != nil {
		return nil, fmt.Errorf("failed to append to journal: %w", err)
	}
	for _, rec := range recs {
		if err := e.st.apply(rec); err != nil {
			// The record is durable but the state rejected it; memory is behind
			// the journal until restart.
			e.logger.Error("failed to apply committed record", zap.Uint64("offset", rec.Offset), zap.Error(err))
			return nil, err
		}
		e.next++
		e.logger.Debug("committed", zap.Uint64("offset", rec.Offset), zap.String("type", rec.Type))
	}
	for _, l := range e.listeners {
		l.Committed(recs)
	}
	return recs, nil
}

// Head returns the offset the next record will get
func (e *Engine) Head() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.next
}

// Reserves is the value the ledger holds: funding, premiums and stakes
// received minus credits withdrawn
func (e *Engine) Reserves() *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.reserves.Clone()
}

// Params returns the constants the engine runs with
func (e *Engine) Params() Params {
	return e.params
}

func (e *Engine) Store() journal.Store {
	return e.store
}
