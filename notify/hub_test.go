package notify

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/justapithecus/logbook/adapter"
	"github.com/justapithecus/logbook/types"
	"github.com/justapithecus/logbook/world"
)

func dial(t *testing.T, h *Hub, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	want := h.Clients() + 1
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() < want {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) adapter.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev adapter.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return ev
}

func TestHub_BroadcastsChanges(t *testing.T) {
	h := New(Config{SessionID: "session-1"})
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer func() { _ = h.Close() }()

	a := dial(t, h, srv)
	b := dial(t, h, srv)

	err := h.OnContextChanged(world.Change{
		Aggregate: world.AggregateDocks,
		Version:   3,
		DataType:  types.Deck,
	})
	if err != nil {
		t.Fatalf("OnContextChanged: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		if ev.EventType != adapter.EventContextChanged || ev.SessionID != "session-1" {
			t.Errorf("unexpected event %+v", ev)
		}
		if ev.Change == nil || ev.Change.Aggregate != "docks" || ev.Change.Version != 3 {
			t.Errorf("unexpected change %+v", ev.Change)
		}
		if ev.Change.DataType != "DECK" {
			t.Errorf("DataType = %q, want DECK", ev.Change.DataType)
		}
	}
}

func TestHub_AggregateFilter(t *testing.T) {
	h := New(Config{})
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer func() { _ = h.Close() }()

	conn := dial(t, h, srv)
	if err := conn.WriteJSON(subscribeRequest{Aggregates: []world.Aggregate{world.AggregateResources}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// the filter is applied asynchronously by the read loop
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		var applied bool
		for c := range h.clients {
			applied = !c.wants(world.AggregateDocks)
		}
		h.mu.Unlock()
		if applied {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("filter never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_ = h.OnContextChanged(world.Change{Aggregate: world.AggregateDocks, Version: 1})
	_ = h.OnContextChanged(world.Change{
		Aggregate: world.AggregateResources,
		Version:   2,
		Samples:   []types.ResourceSample{{Resource: types.Fuel, Value: 10}},
	})

	ev := readEvent(t, conn)
	if ev.Change == nil || ev.Change.Aggregate != "resources" {
		t.Fatalf("expected resources change first, got %+v", ev.Change)
	}
	if len(ev.Change.Samples) != 1 {
		t.Errorf("samples = %+v", ev.Change.Samples)
	}
	if ev.Change.DataType != "" {
		t.Errorf("DataType = %q, want empty", ev.Change.DataType)
	}
}

func TestHub_SubscribedToWorld(t *testing.T) {
	h := New(Config{})
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer func() { _ = h.Close() }()

	conn := dial(t, h, srv)

	w := world.New(world.Options{})
	w.Subscribe(h)
	_, err := w.Fold(&types.Decoded{
		Type:       types.Basic,
		CapturedAt: time.Now(),
		Data:       types.BasicPayload{Basic: types.BasicInfo{Nickname: "admiral", Level: 120}},
	})
	if err != nil {
		t.Fatalf("fold: %v", err)
	}

	ev := readEvent(t, conn)
	if ev.Change == nil || ev.Change.Aggregate != string(world.AggregateBasic) {
		t.Fatalf("unexpected change %+v", ev.Change)
	}
}

func TestHub_CloseDisconnects(t *testing.T) {
	h := New(Config{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, h, srv)
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if h.Clients() != 0 {
		t.Errorf("Clients = %d after close", h.Clients())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed")
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return
	}
	defer func() { _ = late.Close() }()
	_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Fatal("expected late client to be rejected")
	}
}

func TestHub_CheckOrigin(t *testing.T) {
	h := New(Config{AllowedOrigins: []string{"http://localhost:3000"}})
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := map[string][]string{"Origin": {"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("expected origin rejection")
	}
}
