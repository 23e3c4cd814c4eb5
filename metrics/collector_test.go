package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("session-001", "127.0.0.1:8888", "fs")

	c.IncCaptured()
	c.IncCaptured()
	c.IncAborted()
	c.IncUpstreamError()
	c.IncLoopbackRejection()
	c.IncTunnel()
	c.IncDropped()
	c.IncClassified("PORT")
	c.IncClassified("PORT")
	c.IncClassified("BATTLE")
	c.IncMiss()
	c.IncDecodeError("schema")
	c.IncFold()
	c.IncFoldError()
	c.IncInconsistency()
	c.IncObserverFailure()
	c.IncExportSuccess()
	c.IncExportFailure()
	c.IncArchiveWriteSuccess()
	c.IncArchiveWriteFailure()

	s := c.Snapshot()

	if s.ExchangesCaptured != 2 {
		t.Errorf("ExchangesCaptured = %d, want 2", s.ExchangesCaptured)
	}
	if s.ExchangesAborted != 1 || s.UpstreamErrors != 1 || s.LoopbackRejections != 1 || s.TunnelsOpened != 1 {
		t.Errorf("unexpected proxy counters %+v", s)
	}
	if s.ExchangesDropped != 1 {
		t.Errorf("ExchangesDropped = %d, want 1", s.ExchangesDropped)
	}
	if s.Classified != 3 {
		t.Errorf("Classified = %d, want 3", s.Classified)
	}
	if s.ClassifiedByType["PORT"] != 2 || s.ClassifiedByType["BATTLE"] != 1 {
		t.Errorf("ClassifiedByType = %v", s.ClassifiedByType)
	}
	if s.Misses != 1 || s.DecodeErrors != 1 || s.DecodeErrorsByKind["schema"] != 1 {
		t.Errorf("unexpected pipeline counters %+v", s)
	}
	if s.Folds != 1 || s.FoldErrors != 1 || s.Inconsistencies != 1 || s.ObserverFailures != 1 {
		t.Errorf("unexpected world counters %+v", s)
	}
	if s.ExportSuccess != 1 || s.ExportFailure != 1 || s.ArchiveWriteSuccess != 1 || s.ArchiveWriteFailure != 1 {
		t.Errorf("unexpected export counters %+v", s)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("session-42", "127.0.0.1:8888", "s3")
	s := c.Snapshot()

	if s.SessionID != "session-42" {
		t.Errorf("SessionID = %q, want %q", s.SessionID, "session-42")
	}
	if s.ListenAddr != "127.0.0.1:8888" {
		t.Errorf("ListenAddr = %q", s.ListenAddr)
	}
	if s.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "s3")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("session-001", "", "none")
	c.IncCaptured()
	c.IncClassified("PORT")

	s1 := c.Snapshot()

	// Mutate collector after snapshot
	c.IncCaptured()
	c.IncClassified("PORT")

	if s1.ExchangesCaptured != 1 {
		t.Errorf("s1.ExchangesCaptured = %d, want 1 (snapshot should be frozen)", s1.ExchangesCaptured)
	}
	if s1.ClassifiedByType["PORT"] != 1 {
		t.Errorf("s1.ClassifiedByType[PORT] = %d, want 1 (snapshot should be frozen)", s1.ClassifiedByType["PORT"])
	}

	s2 := c.Snapshot()
	if s2.ExchangesCaptured != 2 || s2.ClassifiedByType["PORT"] != 2 {
		t.Errorf("s2 should reflect mutations, got %+v", s2)
	}
}

func TestCollector_SnapshotMapIsolation(t *testing.T) {
	c := NewCollector("session-001", "", "none")
	c.IncDecodeError("envelope")

	s := c.Snapshot()

	// Mutate the snapshot's map
	s.DecodeErrorsByKind["envelope"] = 999
	s.DecodeErrorsByKind["injected"] = 1

	s2 := c.Snapshot()
	if s2.DecodeErrorsByKind["envelope"] != 1 {
		t.Errorf("DecodeErrorsByKind[envelope] = %d, want 1 (collector should be isolated from snapshot mutation)", s2.DecodeErrorsByKind["envelope"])
	}
	if _, exists := s2.DecodeErrorsByKind["injected"]; exists {
		t.Error("DecodeErrorsByKind should not contain injected key from snapshot mutation")
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncCaptured()
	c.IncAborted()
	c.IncUpstreamError()
	c.IncLoopbackRejection()
	c.IncTunnel()
	c.IncDropped()
	c.IncClassified("PORT")
	c.IncMiss()
	c.IncDecodeError("schema")
	c.IncFold()
	c.IncFoldError()
	c.IncInconsistency()
	c.IncObserverFailure()
	c.IncExportSuccess()
	c.IncExportFailure()
	c.IncArchiveWriteSuccess()
	c.IncArchiveWriteFailure()

	s := c.Snapshot()
	if s.ExchangesCaptured != 0 {
		t.Errorf("nil collector snapshot ExchangesCaptured = %d, want 0", s.ExchangesCaptured)
	}
	if s.ClassifiedByType != nil {
		t.Errorf("nil collector snapshot ClassifiedByType should be nil, got %v", s.ClassifiedByType)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("session-001", "", "none")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncCaptured()
				c.IncClassified("DECK")
				c.IncFold()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.ExchangesCaptured != want {
		t.Errorf("ExchangesCaptured = %d, want %d", s.ExchangesCaptured, want)
	}
	if s.ClassifiedByType["DECK"] != want {
		t.Errorf("ClassifiedByType[DECK] = %d, want %d", s.ClassifiedByType["DECK"], want)
	}
	if s.Folds != want {
		t.Errorf("Folds = %d, want %d", s.Folds, want)
	}
}

func TestCollector_ZeroValueSnapshot(t *testing.T) {
	c := NewCollector("session-001", "", "none")
	s := c.Snapshot()

	if s.ExchangesCaptured != 0 || s.ExchangesAborted != 0 || s.UpstreamErrors != 0 {
		t.Error("fresh collector should have zero proxy counters")
	}
	if s.Classified != 0 || s.Misses != 0 || s.DecodeErrors != 0 {
		t.Error("fresh collector should have zero pipeline counters")
	}
	if len(s.ClassifiedByType) != 0 || len(s.DecodeErrorsByKind) != 0 {
		t.Error("fresh collector maps should be empty")
	}
}
