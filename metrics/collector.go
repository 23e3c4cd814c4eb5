// Package metrics provides per-session counters for the proxy and pipeline.
//
// The Collector accumulates counters for the lifetime of one proxy session.
// It is a leaf package with no internal dependencies; data types and error
// kinds are recorded by name.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Proxy
	ExchangesCaptured  int64
	ExchangesAborted   int64
	UpstreamErrors     int64
	LoopbackRejections int64
	TunnelsOpened      int64

	// Pipeline
	ExchangesDropped   int64 // queue full
	Classified         int64
	ClassifiedByType   map[string]int64
	Misses             int64
	DecodeErrors       int64
	DecodeErrorsByKind map[string]int64

	// World
	Folds            int64
	FoldErrors       int64
	Inconsistencies  int64
	ObserverFailures int64

	// Export and storage
	ExportSuccess       int64
	ExportFailure       int64
	ArchiveWriteSuccess int64
	ArchiveWriteFailure int64

	// Dimensions (informational, set at construction)
	SessionID      string
	ListenAddr     string
	StorageBackend string
}

// Collector accumulates counters during a session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	exchangesCaptured  int64
	exchangesAborted   int64
	upstreamErrors     int64
	loopbackRejections int64
	tunnelsOpened      int64

	exchangesDropped   int64
	classified         int64
	classifiedByType   map[string]int64
	misses             int64
	decodeErrors       int64
	decodeErrorsByKind map[string]int64

	folds            int64
	foldErrors       int64
	inconsistencies  int64
	observerFailures int64

	exportSuccess       int64
	exportFailure       int64
	archiveWriteSuccess int64
	archiveWriteFailure int64

	sessionID      string
	listenAddr     string
	storageBackend string
}

// NewCollector creates a Collector with dimension labels.
// storageBackend names the archive backend (fs, s3, or none).
func NewCollector(sessionID, listenAddr, storageBackend string) *Collector {
	return &Collector{
		classifiedByType:   make(map[string]int64),
		decodeErrorsByKind: make(map[string]int64),
		sessionID:          sessionID,
		listenAddr:         listenAddr,
		storageBackend:     storageBackend,
	}
}

func (c *Collector) inc(field *int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Proxy ---

// IncCaptured records an in-scope exchange read to completion.
func (c *Collector) IncCaptured() {
	c.inc(&c.exchangesCaptured)
}

// IncAborted records an in-scope capture discarded before completion.
func (c *Collector) IncAborted() {
	c.inc(&c.exchangesAborted)
}

// IncUpstreamError records a forwarding failure answered with 502.
func (c *Collector) IncUpstreamError() {
	c.inc(&c.upstreamErrors)
}

// IncLoopbackRejection records a request refused by the loopback restriction.
func (c *Collector) IncLoopbackRejection() {
	c.inc(&c.loopbackRejections)
}

// IncTunnel records a CONNECT tunnel.
func (c *Collector) IncTunnel() {
	c.inc(&c.tunnelsOpened)
}

// --- Pipeline ---

// IncDropped records an exchange dropped because the pipeline queue was full.
func (c *Collector) IncDropped() {
	c.inc(&c.exchangesDropped)
}

// IncClassified records a classified exchange by data type name.
func (c *Collector) IncClassified(dataType string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.classified++
	c.classifiedByType[dataType]++
	c.mu.Unlock()
}

// IncMiss records an exchange whose path is not catalogued.
func (c *Collector) IncMiss() {
	c.inc(&c.misses)
}

// IncDecodeError records a decode failure by error kind name.
func (c *Collector) IncDecodeError(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decodeErrors++
	c.decodeErrorsByKind[kind]++
	c.mu.Unlock()
}

// --- World ---

// IncFold records a successful fold.
func (c *Collector) IncFold() {
	c.inc(&c.folds)
}

// IncFoldError records a rejected fold.
func (c *Collector) IncFoldError() {
	c.inc(&c.foldErrors)
}

// IncInconsistency records a battle payload outside its expected phase.
func (c *Collector) IncInconsistency() {
	c.inc(&c.inconsistencies)
}

// IncObserverFailure records an observer that returned an error or panicked.
func (c *Collector) IncObserverFailure() {
	c.inc(&c.observerFailures)
}

// --- Export and storage ---
// Export counters are per-delivery, archive counters are per-batch.

// IncExportSuccess records a delivered export.
func (c *Collector) IncExportSuccess() {
	c.inc(&c.exportSuccess)
}

// IncExportFailure records an export that failed or was dropped.
func (c *Collector) IncExportFailure() {
	c.inc(&c.exportFailure)
}

// IncArchiveWriteSuccess records a successful archive batch write.
func (c *Collector) IncArchiveWriteSuccess() {
	c.inc(&c.archiveWriteSuccess)
}

// IncArchiveWriteFailure records a failed archive batch write.
func (c *Collector) IncArchiveWriteFailure() {
	c.inc(&c.archiveWriteFailure)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ExchangesCaptured:  c.exchangesCaptured,
		ExchangesAborted:   c.exchangesAborted,
		UpstreamErrors:     c.upstreamErrors,
		LoopbackRejections: c.loopbackRejections,
		TunnelsOpened:      c.tunnelsOpened,

		ExchangesDropped:   c.exchangesDropped,
		Classified:         c.classified,
		ClassifiedByType:   copyCounts(c.classifiedByType),
		Misses:             c.misses,
		DecodeErrors:       c.decodeErrors,
		DecodeErrorsByKind: copyCounts(c.decodeErrorsByKind),

		Folds:            c.folds,
		FoldErrors:       c.foldErrors,
		Inconsistencies:  c.inconsistencies,
		ObserverFailures: c.observerFailures,

		ExportSuccess:       c.exportSuccess,
		ExportFailure:       c.exportFailure,
		ArchiveWriteSuccess: c.archiveWriteSuccess,
		ArchiveWriteFailure: c.archiveWriteFailure,

		SessionID:      c.sessionID,
		ListenAddr:     c.listenAddr,
		StorageBackend: c.storageBackend,
	}
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
