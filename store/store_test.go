package store

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/types"
	"github.com/justapithecus/logbook/world"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), Options{SessionID: "session-1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func at(min int) time.Time {
	return time.Date(2026, 2, 7, 12, min, 0, 0, time.UTC)
}

func TestAppendLoad(t *testing.T) {
	s := openTemp(t)

	in := []types.ResourceSample{
		{Resource: types.Fuel, Time: at(0), Value: 100},
		{Resource: types.Ammo, Time: at(0), Value: 200},
		{Resource: types.Fuel, Time: at(5), Value: 90},
	}
	if err := s.Append(t.Context(), in); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Load(t.Context(), time.Time{}, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d samples, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Time.Before(got[i-1].Time) {
			t.Errorf("samples out of order at %d", i)
		}
	}
	if got[2].Resource != types.Fuel || got[2].Value != 90 || !got[2].Time.Equal(at(5)) {
		t.Errorf("last sample = %+v", got[2])
	}
}

func TestAppend_Idempotent(t *testing.T) {
	s := openTemp(t)
	smp := []types.ResourceSample{{Resource: types.Steel, Time: at(1), Value: 5}}

	for range 3 {
		if err := s.Append(t.Context(), smp); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	n, err := s.Count(t.Context())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestAppend_RejectsInvalidResource(t *testing.T) {
	s := openTemp(t)
	err := s.Append(t.Context(), []types.ResourceSample{{Resource: 0, Time: at(0)}})
	if err == nil {
		t.Fatal("expected error for invalid resource")
	}
}

func TestLoad_SinceAndLimit(t *testing.T) {
	s := openTemp(t)
	var in []types.ResourceSample
	for i := range 10 {
		in = append(in, types.ResourceSample{Resource: types.Bauxite, Time: at(i), Value: i})
	}
	if err := s.Append(t.Context(), in); err != nil {
		t.Fatalf("append: %v", err)
	}

	since, err := s.Load(t.Context(), at(7), 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(since) != 3 || since[0].Value != 7 {
		t.Errorf("since = %+v", since)
	}

	newest, err := s.Load(t.Context(), time.Time{}, 4)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(newest) != 4 || newest[0].Value != 6 || newest[3].Value != 9 {
		t.Errorf("limit kept %+v, want values 6..9 oldest first", newest)
	}
}

func TestPrune(t *testing.T) {
	s := openTemp(t)
	in := []types.ResourceSample{
		{Resource: types.Fuel, Time: at(0), Value: 1},
		{Resource: types.Fuel, Time: at(1), Value: 2},
		{Resource: types.Fuel, Time: at(2), Value: 3},
	}
	if err := s.Append(t.Context(), in); err != nil {
		t.Fatalf("append: %v", err)
	}
	n, err := s.Prune(t.Context(), at(2))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(MemoryDSN, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Append(t.Context(), []types.ResourceSample{{Resource: types.Fuel, Time: at(0), Value: 1}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	n, err := s.Count(t.Context())
	if err != nil || n != 1 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := Open("", Options{}); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestRecorder_PersistsFoldedSamples(t *testing.T) {
	s := openTemp(t)
	w := world.New(world.Options{})
	w.Subscribe(NewRecorder(s))

	_, err := w.Fold(&types.Decoded{
		Type:       types.Material,
		CapturedAt: at(3),
		Data: types.ResourcePayload{Values: map[types.Resource]int{
			types.Fuel:  300,
			types.Screw: 12,
		}},
	})
	if err != nil {
		t.Fatalf("fold: %v", err)
	}

	got, err := s.Load(t.Context(), time.Time{}, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("persisted %d samples, want 2", len(got))
	}

	// reload into a fresh world
	w2 := world.New(world.Options{})
	w2.SeedResources(got)
	if smp, ok := w2.Snapshot().Resource(types.Fuel); !ok || smp.Value != 300 {
		t.Errorf("seeded fuel = %+v, %v", smp, ok)
	}
}

func TestRecorder_IgnoresOtherAggregates(t *testing.T) {
	s := openTemp(t)
	r := NewRecorder(s)
	if err := r.OnContextChanged(world.Change{Aggregate: world.AggregateDocks}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGormLogger_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	l := log.NewLogger(log.Meta{SessionID: "s"}).WithOutput(&buf)

	s, err := Open(filepath.Join(t.TempDir(), "h.db"), Options{Logger: l})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close() }()

	_ = s.db.Exec("SELECT * FROM no_such_table").Error
	if !strings.Contains(buf.String(), "sql failed") {
		t.Errorf("expected sql failure logged, got %q", buf.String())
	}
}
