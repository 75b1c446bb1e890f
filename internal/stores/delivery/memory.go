package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryLedger provides an in-memory implementation of Ledger
type InMemoryLedger struct {
	entries []Entry
	mutex   sync.RWMutex
}

// NewInMemoryLedger creates a new in-memory delivery ledger
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		entries: []Entry{},
	}
}

// DeliveredSince reports whether a matching delivery exists inside the window
func (l *InMemoryLedger) DeliveredSince(ctx context.Context, key Key, since time.Time) (bool, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for _, e := range l.entries {
		if e.Key() == key && !e.DeliveredAt.Before(since) {
			return true, nil
		}
	}

	return false, nil
}

// Record stores a delivery entry
func (l *InMemoryLedger) Record(ctx context.Context, entry Entry) error {
	if !entry.Key().Valid() {
		return fmt.Errorf("candidate, recipient and session cannot be empty")
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.entries = append(l.entries, entry)
	return nil
}

// Prune removes entries delivered before the cutoff
func (l *InMemoryLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	kept := l.entries[:0]
	var removed int64
	for _, e := range l.entries {
		if e.DeliveredAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept

	return removed, nil
}

// Count returns the number of recorded entries
func (l *InMemoryLedger) Count() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of every recorded entry
func (l *InMemoryLedger) Entries() []Entry {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return append([]Entry(nil), l.entries...)
}
