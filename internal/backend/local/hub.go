package local

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/logger"
)

type hubSub struct {
	channels []string
	handler  backend.Handler
	done     chan struct{}
	once     sync.Once
}

func (s *hubSub) finish() {
	s.once.Do(func() { close(s.done) })
}

// Hub is the local realtime feed. Mutations append to the changes table in
// the same transaction; the hub tails that table while anyone is subscribed,
// so writers in other processes are seen too.
type Hub struct {
	p        *Provider
	interval time.Duration

	mu     sync.Mutex
	subs   map[int]*hubSub
	nextID int
	stop   context.CancelFunc
}

func newHub(p *Provider, interval time.Duration) *Hub {
	return &Hub{p: p, interval: interval, subs: make(map[int]*hubSub)}
}

func (h *Hub) Subscribe(ctx context.Context, channels []string, handler backend.Handler) (func(), error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("at least one channel is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	sub := &hubSub{channels: slices.Clone(channels), handler: handler, done: make(chan struct{})}

	h.mu.Lock()
	if len(h.subs) == 0 {
		cursor, err := h.latest(ctx)
		if err != nil {
			h.mu.Unlock()
			return nil, err
		}
		pollCtx, cancel := context.WithCancel(context.Background())
		h.stop = cancel
		go h.poll(pollCtx, cursor)
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			if len(h.subs) == 0 && h.stop != nil {
				h.stop()
				h.stop = nil
			}
		}
		h.mu.Unlock()
		sub.finish()
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-sub.done:
		}
	}()

	return unsubscribe, nil
}

// Close drops every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[int]*hubSub)
	if h.stop != nil {
		h.stop()
		h.stop = nil
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.finish()
	}
}

func (h *Hub) latest(ctx context.Context) (int64, error) {
	var seq int64
	if err := h.p.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM changes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read change cursor: %w", err)
	}
	return seq, nil
}

type change struct {
	seq   int64
	owner string
	event string
}

func (h *Hub) poll(ctx context.Context, cursor int64) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		changes, err := h.read(ctx, cursor)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("Failed to read realtime changes", "error", err)
			}
			continue
		}
		if len(changes) == 0 {
			continue
		}
		cursor = changes[len(changes)-1].seq

		// Events are only delivered to the user who can read the document.
		user, err := h.p.currentUser(ctx)
		if err != nil {
			continue
		}
		for _, c := range changes {
			if c.owner != user {
				continue
			}
			var ev backend.Event
			if err := json.Unmarshal([]byte(c.event), &ev); err != nil {
				logger.Debug("Ignoring malformed change", "seq", c.seq, "error", err)
				continue
			}
			h.dispatch(ev)
		}
	}
}

func (h *Hub) read(ctx context.Context, cursor int64) ([]change, error) {
	rows, err := h.p.db.QueryContext(ctx, `SELECT seq, owner_id, event FROM changes WHERE seq > ? ORDER BY seq`, cursor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []change
	for rows.Next() {
		var c change
		if err := rows.Scan(&c.seq, &c.owner, &c.event); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (h *Hub) dispatch(ev backend.Event) {
	h.mu.Lock()
	var handlers []backend.Handler
	for _, s := range h.subs {
		for _, ch := range s.channels {
			if ev.Matches(ch) {
				handlers = append(handlers, s.handler)
				break
			}
		}
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
