package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var recordPrefix = []byte("evt/")

// BadgerStore keeps the log in an embedded badger database. An empty
// directory opens an in-memory instance.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger

	mu   sync.Mutex
	next uint64
}

func OpenBadgerStore(dir string, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.
		WithLogger(badgerLogger{logger.Sugar()}).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger journal: %w", err)
	}
	s := &BadgerStore{db: db, logger: logger}
	if err := s.loadHead(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func recordKey(offset uint64) []byte {
	key := make([]byte, len(recordPrefix)+8)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint64(key[len(recordPrefix):], offset)
	return key
}

// loadHead finds the offset after the last stored record
func (s *BadgerStore) loadHead() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Seek(recordKey(^uint64(0)))
		if it.ValidForPrefix(recordPrefix) {
			key := it.Item().Key()
			s.next = binary.BigEndian.Uint64(key[len(recordPrefix):]) + 1
		}
		return nil
	})
}

func (s *BadgerStore) Append(ctx context.Context, recs []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkContiguous(s.next, recs); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, rec := range recs {
			buf, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to encode record %d: %w", rec.Offset, err)
			}
			if err := txn.Set(recordKey(rec.Offset), buf); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrDBClosed) {
			return ErrClosed
		}
		return fmt.Errorf("failed to append records: %w", err)
	}
	s.next += uint64(len(recs))
	return nil
}

func (s *BadgerStore) Read(ctx context.Context, from uint64, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(recordKey(from)); it.ValidForPrefix(recordPrefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			buf, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec Record
			if err := json.Unmarshal(buf, &rec); err != nil {
				return fmt.Errorf("failed to decode record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrDBClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's own logging into zap
type badgerLogger struct {
	l *zap.SugaredLogger
}

func (b badgerLogger) Errorf(format string, args ...any)   { b.l.Errorf(format, args...) }
func (b badgerLogger) Warningf(format string, args ...any) { b.l.Warnf(format, args...) }
func (b badgerLogger) Infof(format string, args ...any)    { b.l.Infof(format, args...) }
func (b badgerLogger) Debugf(format string, args ...any)   { b.l.Debugf(format, args...) }
