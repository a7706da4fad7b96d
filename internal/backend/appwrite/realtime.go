package appwrite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
)

type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type subscription struct {
	channels []string
	handler  backend.Handler
	done     chan struct{}
	once     sync.Once
}

func (s *subscription) finish() {
	s.once.Do(func() { close(s.done) })
}

// Realtime multiplexes every subscription over one websocket. The socket is
// reopened with the new channel set whenever subscriptions change, and
// redialed with capped backoff when it drops.
type Realtime struct {
	client *Client
	dialer *websocket.Dialer

	pingInterval time.Duration
	minBackoff   time.Duration
	maxBackoff   time.Duration

	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int
	stop   context.CancelFunc
	// seen is set once any socket has been acknowledged; later
	// acknowledgements are reconnects.
	seen bool
}

func newRealtime(client *Client) *Realtime {
	return &Realtime{
		client:       client,
		dialer:       websocket.DefaultDialer,
		pingInterval: constants.RealtimePingInterval,
		minBackoff:   constants.RealtimeMinBackoff,
		maxBackoff:   constants.RealtimeMaxBackoff,
		subs:         make(map[int]*subscription),
	}
}

func (r *Realtime) Subscribe(ctx context.Context, channels []string, handler backend.Handler) (func(), error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("at least one channel is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	sub := &subscription{
		channels: slices.Clone(channels),
		handler:  handler,
		done:     make(chan struct{}),
	}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = sub
	r.restartLocked()
	r.mu.Unlock()

	unsubscribe := func() {
		r.mu.Lock()
		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			r.restartLocked()
		}
		r.mu.Unlock()
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

// Close drops every subscription and closes the socket.
func (r *Realtime) Close() {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[int]*subscription)
	r.restartLocked()
	r.mu.Unlock()

	for _, s := range subs {
		s.finish()
	}
}

// restartLocked stops the current connection loop and, if anything is still
// subscribed, starts a new one for the union of channels. The old loop exits
// on its own; events it still reads only reach current subscribers.
func (r *Realtime) restartLocked() {
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}

	channels := r.channelsLocked()
	if len(channels) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.stop = cancel
	go r.run(ctx, channels)
}

func (r *Realtime) channelsLocked() []string {
	set := map[string]struct{}{}
	for _, s := range r.subs {
		for _, ch := range s.channels {
			set[ch] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for ch := range set {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

func (r *Realtime) run(ctx context.Context, channels []string) {
	backoff := r.minBackoff

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		connected, err := r.connect(ctx, channels)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = r.minBackoff
		}
		logger.Warn("Realtime connection lost", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}
}

// URL returns the realtime endpoint for channels.
func (r *Realtime) URL(channels []string) (string, error) {
	u, err := url.Parse(r.client.endpoint + "/realtime")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	q := url.Values{}
	q.Set("project", r.client.project)
	for _, ch := range channels {
		q.Add("channels[]", ch)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// connect holds one websocket open until it fails or ctx ends. It reports
// whether the backend acknowledged the connection.
func (r *Realtime) connect(ctx context.Context, channels []string) (bool, error) {
	u, err := r.URL(channels)
	if err != nil {
		return false, err
	}

	header := http.Header{}
	if secret := r.client.Session(); secret != "" {
		header.Set("Cookie", (&http.Cookie{Name: r.client.cookieName(), Value: secret}).String())
	}

	conn, _, err := r.dialer.DialContext(ctx, u, header)
	if err != nil {
		return false, fmt.Errorf("dial realtime: %w", err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(msg message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()
	go func() {
		t := time.NewTicker(r.pingInterval)
		defer t.Stop()
		for {
			select {
			case <-connCtx.Done():
				return
			case <-t.C:
				if err := write(message{Type: "ping"}); err != nil {
					return
				}
			}
		}
	}()

	logger.Debug("Realtime connected", "channels", strings.Join(channels, ","))

	connected := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return connected, err
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("Ignoring malformed realtime message", "error", err)
			continue
		}

		switch msg.Type {
		case "connected":
			connected = true
			r.mu.Lock()
			reconnect := r.seen
			r.seen = true
			r.mu.Unlock()
			if secret := r.client.Session(); secret != "" {
				auth, _ := json.Marshal(map[string]string{"session": secret})
				if err := write(message{Type: "authentication", Data: auth}); err != nil {
					return connected, err
				}
			}
			if reconnect {
				r.resync()
			}
		case "event":
			var ev backend.Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				logger.Debug("Ignoring malformed realtime event", "error", err)
				continue
			}
			r.dispatch(ev)
		case "error":
			logger.Warn("Realtime error", "data", string(msg.Data))
		}
	}
}

func (r *Realtime) dispatch(ev backend.Event) {
	r.mu.Lock()
	var handlers []backend.Handler
	for _, s := range r.subs {
		for _, ch := range s.channels {
			if ev.Matches(ch) {
				handlers = append(handlers, s.handler)
				break
			}
		}
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// resync tells every subscriber that events may have been missed while the
// socket was down.
func (r *Realtime) resync() {
	r.mu.Lock()
	subs := make([]*subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		s.handler(backend.NewResyncEvent(s.channels))
	}
}
