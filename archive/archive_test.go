package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/logbook/adapter"
	"github.com/justapithecus/logbook/metrics"
	"github.com/justapithecus/logbook/types"
)

func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

// failingStore is a memory store whose writes fail.
type failingStore struct {
	lode.Store
	putErr error
}

func (s *failingStore) Put(_ context.Context, _ string, _ io.Reader) error {
	return s.putErr
}

var _ lode.Store = (*failingStore)(nil)

func exchangeEvent(id string, dt types.DataType, path string, at time.Time) *adapter.Event {
	ex := &types.Exchange{
		ID:          id,
		URL:         "http://203.0.113.7" + path,
		Path:        path,
		RequestBody: []byte("api_token=x"),
		CompletedAt: at,
	}
	return adapter.NewExchangeEvent("session-1", dt, ex, []byte(`{"api_result":1}`))
}

func TestAdapter_WriteAndQuery(t *testing.T) {
	factory := sharedFactory(lode.NewMemory())
	ds, err := NewDataset("", factory)
	if err != nil {
		t.Fatalf("new dataset: %v", err)
	}
	if ds.ID() != DefaultDataset {
		t.Errorf("dataset ID = %q, want %q", ds.ID(), DefaultDataset)
	}

	collector := metrics.NewCollector("session-1", ":8888", "memory")
	a := New(ds, Config{BatchSize: 2, Metrics: collector})

	day1 := time.Date(2026, 2, 7, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 8, 0, 1, 0, 0, time.UTC)

	events := []*adapter.Event{
		exchangeEvent("ex-1", types.Port, "/kcsapi/api_port/port", day1),
		exchangeEvent("ex-2", types.Battle, "/kcsapi/api_req_sortie/battle", day1),
		exchangeEvent("ex-3", types.Battle, "/kcsapi/api_req_sortie/battle", day2),
	}
	for _, e := range events {
		if err := a.Publish(t.Context(), e); err != nil {
			t.Fatalf("publish %s: %v", e.Exchange.ID, err)
		}
	}
	if got := a.Pending(); got != 1 {
		t.Errorf("Pending = %d, want 1 after one full batch", got)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := a.Pending(); got != 0 {
		t.Errorf("Pending = %d after close", got)
	}

	snap := collector.Snapshot()
	if snap.ArchiveWriteSuccess != 2 {
		t.Errorf("ArchiveWriteSuccess = %d, want 2", snap.ArchiveWriteSuccess)
	}

	all, err := Query(t.Context(), ds, Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("query returned %d records, want 3", len(all))
	}

	battles, err := Query(t.Context(), ds, Filter{DataType: "BATTLE"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(battles) != 2 {
		t.Errorf("BATTLE records = %d, want 2", len(battles))
	}

	second, err := Query(t.Context(), ds, Filter{Day: "2026-02-08"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(second) != 1 || second[0].ID != "ex-3" {
		t.Fatalf("day filter = %+v", second)
	}
	rec := second[0]
	if rec.RecordKind != RecordKindExchange || rec.SessionID != "session-1" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.RequestBody != "api_token=x" || rec.ResponseBody != `{"api_result":1}` {
		t.Errorf("bodies not preserved: %+v", rec)
	}
	if rec.CatalogueVersion != types.CatalogueVersion {
		t.Errorf("CatalogueVersion = %q", rec.CatalogueVersion)
	}
}

func TestAdapter_IgnoresChangeEvents(t *testing.T) {
	ds, err := NewDataset("", sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("new dataset: %v", err)
	}
	a := New(ds, Config{BatchSize: 1})

	ev := adapter.NewChangeEvent("s", adapter.ChangeRecord{Aggregate: "docks", Version: 1})
	if err := a.Publish(t.Context(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if a.Pending() != 0 {
		t.Error("change event should not be buffered")
	}
}

func TestAdapter_WriteFailureKeepsBatch(t *testing.T) {
	store := &failingStore{Store: lode.NewMemory(), putErr: errors.New("write /data: no space left on device")}
	ds, err := NewDataset("", sharedFactory(store))
	if err != nil {
		t.Fatalf("new dataset: %v", err)
	}
	collector := metrics.NewCollector("s", "", "fs")
	a := New(ds, Config{BatchSize: 1, Metrics: collector})

	err = a.Publish(t.Context(), exchangeEvent("ex-1", types.Port, "/kcsapi/api_port/port", time.Now()))
	if err == nil {
		t.Fatal("expected write error")
	}
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %T: %v", err, err)
	}
	if se.Op != "write" {
		t.Errorf("Op = %q, want write", se.Op)
	}
	if !errors.Is(err, ErrDiskFull) {
		t.Errorf("expected ErrDiskFull, got %v", se.Kind)
	}
	if a.Pending() != 1 {
		t.Errorf("failed batch should be retained, pending = %d", a.Pending())
	}
	if got := collector.Snapshot().ArchiveWriteFailure; got != 1 {
		t.Errorf("ArchiveWriteFailure = %d, want 1", got)
	}
}

func TestNewRecord_RejectsOtherEvents(t *testing.T) {
	if _, err := NewRecord(&adapter.Event{EventType: adapter.EventContextChanged}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	if got := Day(time.Date(2026, 2, 8, 5, 0, 0, 0, loc)); got != "2026-02-07" {
		t.Errorf("Day = %q, want UTC day 2026-02-07", got)
	}
}
