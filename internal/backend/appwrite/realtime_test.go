package appwrite

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitual/internal/backend"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func habitEvent(action backend.Action) backend.Event {
	return backend.NewDocumentEvent("db", "habits", "h1", action, json.RawMessage(`{"$id":"h1","title":"Read"}`), time.Now())
}

func TestRealtimeURL(t *testing.T) {
	c, err := NewClient(Options{Endpoint: "https://cloud.appwrite.io/v1", ProjectID: "proj"})
	require.NoError(t, err)
	r := newRealtime(c)

	u, err := r.URL([]string{"databases.db.collections.habits.documents"})
	require.NoError(t, err)
	assert.Equal(t, "wss://cloud.appwrite.io/v1/realtime?channels%5B%5D=databases.db.collections.habits.documents&project=proj", u)
}

func TestRealtimeDeliversEvents(t *testing.T) {
	auth := make(chan string, 4)
	channels := make(chan []string, 4)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/realtime", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "proj", r.URL.Query().Get("project"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		select {
		case channels <- r.URL.Query()["channels[]"]:
		default:
		}

		_ = conn.WriteJSON(map[string]any{"type": "connected", "data": map[string]any{"channels": r.URL.Query()["channels[]"]}})

		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "authentication" {
			var data map[string]string
			_ = json.Unmarshal(msg.Data, &data)
			select {
			case auth <- data["session"]:
			default:
			}
		}

		_ = conn.WriteJSON(map[string]any{"type": "event", "data": habitEvent(backend.ActionCreate)})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	store := &backend.MemorySessionStore{}
	require.NoError(t, store.Save("secret123"))
	p := newTestProvider(t, mux, store)

	events := make(chan backend.Event, 4)
	unsubscribe, err := p.Realtime().Subscribe(context.Background(), []string{backend.DocumentsChannel("db", "habits")}, func(ev backend.Event) {
		events <- ev
	})
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case got := <-channels:
		assert.Equal(t, []string{"databases.db.collections.habits.documents"}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("realtime connection never opened")
	}

	select {
	case got := <-auth:
		assert.Equal(t, "secret123", got)
	case <-time.After(5 * time.Second):
		t.Fatal("client never authenticated")
	}

	select {
	case ev := <-events:
		assert.True(t, ev.Is(backend.ActionCreate))
		assert.JSONEq(t, `{"$id":"h1","title":"Read"}`, string(ev.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestRealtimeIgnoresOtherChannels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/realtime", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{"type": "connected"})
		other := backend.NewDocumentEvent("db", "habit_completions", "c1", backend.ActionCreate, json.RawMessage(`{}`), time.Now())
		_ = conn.WriteJSON(map[string]any{"type": "event", "data": other})
		_ = conn.WriteJSON(map[string]any{"type": "event", "data": habitEvent(backend.ActionDelete)})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	p := newTestProvider(t, mux, nil)

	events := make(chan backend.Event, 4)
	unsubscribe, err := p.Realtime().Subscribe(context.Background(), []string{backend.DocumentsChannel("db", "habits")}, func(ev backend.Event) {
		events <- ev
	})
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case ev := <-events:
		assert.True(t, ev.Is(backend.ActionDelete), "completion event should have been filtered out")
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestRealtimeReconnects(t *testing.T) {
	var connections atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/realtime", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		n := connections.Add(1)
		_ = conn.WriteJSON(map[string]any{"type": "connected"})
		if n == 1 {
			// Drop the first connection
			return
		}
		_ = conn.WriteJSON(map[string]any{"type": "event", "data": habitEvent(backend.ActionUpdate)})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	p := newTestProvider(t, mux, nil)
	p.realtime.minBackoff = 10 * time.Millisecond
	p.realtime.maxBackoff = 50 * time.Millisecond

	events := make(chan backend.Event, 4)
	unsubscribe, err := p.Realtime().Subscribe(context.Background(), []string{backend.DocumentsChannel("db", "habits")}, func(ev backend.Event) {
		events <- ev
	})
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case ev := <-events:
		assert.True(t, ev.IsResync(), "subscribers are asked to refetch after a reconnect")
		assert.Equal(t, []string{backend.DocumentsChannel("db", "habits")}, ev.Channels)
	case <-time.After(5 * time.Second):
		t.Fatal("resync was not delivered after reconnect")
	}

	select {
	case ev := <-events:
		assert.True(t, ev.Is(backend.ActionUpdate))
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered after reconnect")
	}
	assert.GreaterOrEqual(t, connections.Load(), int32(2))
}

func TestFirstConnectionDoesNotResync(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/realtime", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{"type": "connected"})
		_ = conn.WriteJSON(map[string]any{"type": "event", "data": habitEvent(backend.ActionCreate)})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	p := newTestProvider(t, mux, nil)

	events := make(chan backend.Event, 4)
	unsubscribe, err := p.Realtime().Subscribe(context.Background(), []string{backend.DocumentsChannel("db", "habits")}, func(ev backend.Event) {
		events <- ev
	})
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case ev := <-events:
		assert.False(t, ev.IsResync())
		assert.True(t, ev.Is(backend.ActionCreate))
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestSubscribeValidation(t *testing.T) {
	c, err := NewClient(Options{Endpoint: "https://cloud.appwrite.io/v1", ProjectID: "proj"})
	require.NoError(t, err)
	r := newRealtime(c)

	_, err = r.Subscribe(context.Background(), nil, func(backend.Event) {})
	assert.Error(t, err)
	_, err = r.Subscribe(context.Background(), []string{"x"}, nil)
	assert.Error(t, err)
}

func TestSubscribeStopsWithContext(t *testing.T) {
	c, err := NewClient(Options{Endpoint: "http://127.0.0.1:1/v1", ProjectID: "proj"})
	require.NoError(t, err)
	r := newRealtime(c)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = r.Subscribe(ctx, []string{"x"}, func(backend.Event) {})
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.subs) == 0 && r.stop == nil
	}, 2*time.Second, 10*time.Millisecond)
}
