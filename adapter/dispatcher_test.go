package adapter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justapithecus/logbook/metrics"
	"github.com/justapithecus/logbook/types"
)

type recordingAdapter struct {
	mu     sync.Mutex
	events []*Event
	err    error
	block  chan struct{}
	closed atomic.Bool
}

func (r *recordingAdapter) Publish(_ context.Context, e *Event) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingAdapter) Close() error {
	r.closed.Store(true)
	return nil
}

func (r *recordingAdapter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func testExchange() *types.Exchange {
	return &types.Exchange{
		ID:          "ex-1",
		URL:         "http://203.104.209.7/kcsapi/api_port/port",
		Path:        "/kcsapi/api_port/port",
		RequestBody: []byte("api_verno=1"),
		CompletedAt: time.Date(2015, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewExchangeEvent(t *testing.T) {
	e := NewExchangeEvent("s-1", types.Port, testExchange(), []byte(`svdata={}`))
	if e.EventType != EventExchangeCaptured || e.ContractVersion != types.ContractVersion {
		t.Errorf("unexpected header %+v", e)
	}
	if e.Exchange.DataType != "PORT" || e.Exchange.RequestBody != "api_verno=1" || e.Exchange.ResponseBody != "svdata={}" {
		t.Errorf("unexpected record %+v", e.Exchange)
	}
	if e.Exchange.CapturedAt != "2015-02-01T12:00:00Z" {
		t.Errorf("CapturedAt = %s", e.Exchange.CapturedAt)
	}
}

func TestDispatcher_FansOut(t *testing.T) {
	c := metrics.NewCollector("s", "", "none")
	a1, a2 := &recordingAdapter{}, &recordingAdapter{err: errors.New("down")}
	d := NewDispatcher(DispatcherConfig{Name: "export", Metrics: c}, a1, a2)
	d.Start(t.Context())

	for range 3 {
		if !d.Dispatch(NewChangeEvent("s-1", ChangeRecord{Aggregate: "docks", Version: 1})) {
			t.Fatal("dispatch dropped with an empty queue")
		}
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if a1.count() != 3 || a2.count() != 3 {
		t.Errorf("delivered %d and %d, want 3 each", a1.count(), a2.count())
	}
	if !a1.closed.Load() || !a2.closed.Load() {
		t.Error("Close should close every adapter")
	}
	s := c.Snapshot()
	if s.ExportSuccess != 3 || s.ExportFailure != 3 {
		t.Errorf("success=%d failure=%d, want 3/3", s.ExportSuccess, s.ExportFailure)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	a := &recordingAdapter{block: block}
	d := NewDispatcher(DispatcherConfig{QueueSize: 1}, a)
	d.Start(t.Context())

	accepted := 0
	for range 10 {
		if d.Dispatch(NewChangeEvent("s-1", ChangeRecord{Aggregate: "ships"})) {
			accepted++
		}
	}
	if accepted >= 10 {
		t.Error("a blocked adapter with a queue of 1 should cause drops")
	}
	close(block)
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if a.count() != accepted {
		t.Errorf("delivered %d, accepted %d", a.count(), accepted)
	}
}

func TestDispatcher_ClosedOrEmpty(t *testing.T) {
	var nilDispatcher *Dispatcher
	if nilDispatcher.Dispatch(&Event{}) {
		t.Error("nil dispatcher should drop")
	}

	empty := NewDispatcher(DispatcherConfig{})
	if empty.Dispatch(&Event{}) {
		t.Error("dispatcher without adapters should drop")
	}

	d := NewDispatcher(DispatcherConfig{}, &recordingAdapter{})
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if d.Dispatch(&Event{}) {
		t.Error("closed dispatcher should drop")
	}
	if err := d.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
