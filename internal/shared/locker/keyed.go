package locker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWaitExpired reports that the bounded wait for a key elapsed.
// Callers should retry the whole operation; nothing was applied.
var ErrWaitExpired = errors.New("locker: wait for key expired")

const defaultMaxWait = 5 * time.Second

type entry struct {
	sem  chan struct{}
	refs int
}

// Keyed serializes operations that share a key while operations on
// different keys never block each other. Entries are removed once the
// last interested caller releases, so the map does not grow with the
// number of keys ever seen.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
	maxWait time.Duration
}

func NewKeyed(maxWait time.Duration) *Keyed {
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	return &Keyed{
		entries: make(map[string]*entry),
		maxWait: maxWait,
	}
}

// Acquire takes the exclusive lock for key, waiting at most the
// configured bound. On success the returned release function must be
// called exactly once. On failure the lock was not taken.
func (k *Keyed) Acquire(ctx context.Context, key string) (release func(), err error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	timer := time.NewTimer(k.maxWait)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				k.unref(key, e)
			})
		}, nil
	case <-timer.C:
		k.unref(key, e)
		return nil, ErrWaitExpired
	case <-ctx.Done():
		k.unref(key, e)
		return nil, ctx.Err()
	}
}

func (k *Keyed) unref(key string, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}
