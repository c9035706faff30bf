package service

import (
	"context"
	"sync"
)

// keyedLocks serializes work per key. Entries are dropped once no holder or
// waiter references them.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: map[string]*lockEntry{}}
}

// acquire takes the lock for key. With wait false it fails fast when the key
// is held; otherwise it blocks until the lock is free or ctx is done.
func (l *keyedLocks) acquire(ctx context.Context, key string, wait bool) (release func(), ok bool) {
	l.mu.Lock()
	e, found := l.entries[key]
	if !found {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if wait {
		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			l.unref(key, e)
			return nil, false
		}
	} else {
		select {
		case e.sem <- struct{}{}:
		default:
			l.unref(key, e)
			return nil, false
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.unref(key, e)
		})
	}, true
}

func (l *keyedLocks) unref(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *keyedLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
