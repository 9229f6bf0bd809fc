package order

import (
	"context"
	"sync"
	"time"

	"github.com/orderdesk/backend/internal/domain/shared"
)

// keyedMutex provides per-key mutual exclusion. Operations on the same
// normalized identifier serialize; distinct identifiers proceed concurrently.
// Lock entries are reference counted and removed when no goroutine holds or
// waits on them, so the map does not grow with the identifier space.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until the key's lock is held, the timeout elapses or the
// context is cancelled. On success the returned release function must be
// called exactly once. Timeout and cancellation surface as
// shared.ErrConcurrentModification.
func (k *keyedMutex) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case entry.ch <- struct{}{}:
		return func() {
			<-entry.ch
			k.put(key, entry)
		}, nil
	case <-timer.C:
		k.put(key, entry)
		return nil, shared.ErrConcurrentModification.WithMessage("timed out waiting for lock on order " + key)
	case <-ctx.Done():
		k.put(key, entry)
		return nil, shared.ErrConcurrentModification.WithMessage("cancelled while waiting for lock on order " + key)
	}
}

func (k *keyedMutex) put(key string, entry *lockEntry) {
	k.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}
