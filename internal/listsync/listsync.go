// Package listsync keeps an in-memory copy of a remote collection current by
// refetching it whenever the realtime feed reports a change.
package listsync

import (
	"context"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/logger"
)

// FetchFunc loads the full current contents of the collection.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// List is one synchronized collection.
//
// Every fetch and local edit takes a sequence number. A fetch result is
// dropped when a newer fetch or a reset landed after it started. When only a
// local edit landed, the fetch runs again unless a fetch started after the
// edit is already on its way, so remote changes it carried are never lost.
type List[T any] struct {
	name     string
	channel  string
	realtime backend.Realtime
	fetch    FetchFunc[T]
	log      *log.Logger

	mu        sync.Mutex
	items     []T
	started   uint64
	applied   uint64
	fetched   uint64
	edited    uint64
	reset     uint64
	lastFetch uint64
	observers map[int]func([]T)
	nextID    int
}

// New builds a list fed by fetch and refreshed by events on channel.
func New[T any](name string, realtime backend.Realtime, channel string, fetch FetchFunc[T]) *List[T] {
	return &List[T]{
		name:      name,
		channel:   channel,
		realtime:  realtime,
		fetch:     fetch,
		log:       logger.With("list", name),
		observers: make(map[int]func([]T)),
	}
}

// Name identifies the list in logs.
func (l *List[T]) Name() string { return l.name }

// Items returns a copy of the current contents.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// OnChange registers fn to receive the new contents after every change.
func (l *List[T]) OnChange(fn func([]T)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.observers[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.observers, id)
		l.mu.Unlock()
	}
}

// notifyLocked snapshots the observers and contents; call the result after
// releasing the lock.
func (l *List[T]) notifyLocked() func() {
	items := slices.Clone(l.items)
	observers := make([]func([]T), 0, len(l.observers))
	for _, fn := range l.observers {
		observers = append(observers, fn)
	}
	return func() {
		for _, fn := range observers {
			fn(items)
		}
	}
}

// Fetch replaces the contents with a fresh copy from the backend. On error
// the previous contents stay in place and the error is logged and returned.
func (l *List[T]) Fetch(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		l.started++
		seq := l.started
		l.lastFetch = seq
		l.mu.Unlock()

		items, err := l.fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.warn("Failed to fetch list", "error", err)
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.mu.Lock()
		switch {
		case seq < l.reset || seq < l.fetched:
			l.mu.Unlock()
			l.debug("Discarding stale fetch", "seq", seq)
			return nil
		case seq < l.applied:
			again := l.lastFetch < l.edited
			l.mu.Unlock()
			if !again {
				l.debug("Discarding fetch overtaken by local edit", "seq", seq)
				return nil
			}
			l.debug("Refetching after local edit", "seq", seq)
			continue
		}
		l.applied = seq
		l.fetched = seq
		l.items = items
		notify := l.notifyLocked()
		l.mu.Unlock()

		notify()
		return nil
	}
}

// Apply edits the contents locally, ahead of the backend catching up.
// Fetches already in flight are fetched again when they return.
func (l *List[T]) Apply(fn func([]T) []T) {
	l.mu.Lock()
	l.items = fn(slices.Clone(l.items))
	l.started++
	l.applied = l.started
	l.edited = l.started
	notify := l.notifyLocked()
	l.mu.Unlock()

	notify()
}

// Reset empties the list and discards fetches in flight.
func (l *List[T]) Reset() {
	l.mu.Lock()
	l.items = nil
	l.started++
	l.applied = l.started
	l.reset = l.started
	notify := l.notifyLocked()
	l.mu.Unlock()

	notify()
}

// Subscribe refetches on every create, update or delete event, and after the
// feed reconnects, until the returned function is called or ctx ends.
// Refetches run on their own goroutine with ctx, so cancelling ctx also drops
// their results.
func (l *List[T]) Subscribe(ctx context.Context) (func(), error) {
	return l.realtime.Subscribe(ctx, []string{l.channel}, func(ev backend.Event) {
		if !ev.IsDocumentChange() && !ev.IsResync() {
			return
		}
		l.debug("Change received", "events", ev.Events[0])
		go func() { _ = l.Fetch(ctx) }()
	})
}

func (l *List[T]) debug(msg string, keyvals ...interface{}) {
	if l.log != nil {
		l.log.Debug(msg, keyvals...)
	}
}

func (l *List[T]) warn(msg string, keyvals ...interface{}) {
	if l.log != nil {
		l.log.Warn(msg, keyvals...)
	}
}
