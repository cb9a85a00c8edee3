package journal

import (
	"context"
	"sync"
)

// Feed tracks the committed head of the log and wakes waiters when it moves
type Feed struct {
	mu   sync.Mutex
	head uint64
	wake chan struct{}
}

func NewFeed(head uint64) *Feed {
	return &Feed{head: head, wake: make(chan struct{})}
}

// Committed advances the head past the batch
func (f *Feed) Committed(recs []Record) {
	if len(recs) == 0 {
		return
	}
	f.Advance(recs[len(recs)-1].Offset + 1)
}

// Advance moves the head forward to head, e.g. after a replay that bypassed
// the listener. A head at or behind the current one is ignored.
func (f *Feed) Advance(head uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if head > f.head {
		f.head = head
		close(f.wake)
		f.wake = make(chan struct{})
	}
}

// Head returns the offset the next record will get
func (f *Feed) Head() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head
}

// Changed returns the current head and a channel closed on the next commit
func (f *Feed) Changed() (uint64, <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, f.wake
}

// Wait blocks until the head moves past from or ctx is done, and returns the head
func (f *Feed) Wait(ctx context.Context, from uint64) (uint64, error) {
	for {
		head, changed := f.Changed()
		if head > from {
			return head, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return head, ctx.Err()
		}
	}
}
