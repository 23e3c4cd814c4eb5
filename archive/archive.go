package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/logbook/adapter"
	"github.com/justapithecus/logbook/metrics"
	"github.com/justapithecus/logbook/types"
)

// RecordKindExchange discriminates exchange records.
const RecordKindExchange = "exchange"

// DefaultBatchSize is the number of records buffered before a write.
const DefaultBatchSize = 32

// Record is the stored form of one exchange. Day and DataType are the
// partition keys.
type Record struct {
	RecordKind       string `json:"record_kind"`
	ContractVersion  string `json:"contract_version"`
	CatalogueVersion string `json:"catalogue_version"`
	SessionID        string `json:"session_id"`
	ID               string `json:"id"`
	URL              string `json:"url"`
	Path             string `json:"path"`
	RequestBody      string `json:"request_body,omitempty"`
	ResponseBody     string `json:"response_body"`
	CapturedAt       string `json:"captured_at"`

	Day      string `json:"day"`
	DataType string `json:"data_type"`
}

// NewRecord converts an exchange_captured event to a record.
func NewRecord(e *adapter.Event) (Record, error) {
	if e.EventType != adapter.EventExchangeCaptured || e.Exchange == nil {
		return Record{}, fmt.Errorf("archive: unsupported event type %q", e.EventType)
	}
	x := e.Exchange
	at, err := time.Parse(time.RFC3339Nano, x.CapturedAt)
	if err != nil {
		return Record{}, fmt.Errorf("archive: captured_at: %w", err)
	}
	return Record{
		RecordKind:       RecordKindExchange,
		ContractVersion:  e.ContractVersion,
		CatalogueVersion: types.CatalogueVersion,
		SessionID:        e.SessionID,
		ID:               x.ID,
		URL:              x.URL,
		Path:             x.Path,
		RequestBody:      x.RequestBody,
		ResponseBody:     x.ResponseBody,
		CapturedAt:       x.CapturedAt,
		Day:              Day(at),
		DataType:         x.DataType,
	}, nil
}

// toMap renders the record in the map form the JSONL codec partitions on.
func (r Record) toMap() map[string]any {
	m := map[string]any{
		"record_kind":       r.RecordKind,
		"contract_version":  r.ContractVersion,
		"catalogue_version": r.CatalogueVersion,
		"session_id":        r.SessionID,
		"id":                r.ID,
		"url":               r.URL,
		"path":              r.Path,
		"response_body":     r.ResponseBody,
		"captured_at":       r.CapturedAt,
		"day":               r.Day,
		"data_type":         r.DataType,
	}
	if r.RequestBody != "" {
		m["request_body"] = r.RequestBody
	}
	return m
}

// Day returns the partition day (YYYY-MM-DD, UTC) for a capture time.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Config configures the archive adapter.
type Config struct {
	// BatchSize is the number of records buffered per write (default 32).
	BatchSize int
	// Metrics records write success and failure. Optional.
	Metrics *metrics.Collector
}

// Adapter writes exchange_captured events to a lode dataset. Events of
// other types are ignored. Records are buffered and written in batches;
// Flush and Close write any remainder.
type Adapter struct {
	dataset lode.Dataset
	config  Config

	mu      sync.Mutex
	pending []any
}

// New creates an archive adapter on the dataset.
func New(ds lode.Dataset, cfg Config) *Adapter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Adapter{dataset: ds, config: cfg}
}

// Publish buffers an exchange record and writes the batch when full.
func (a *Adapter) Publish(ctx context.Context, e *adapter.Event) error {
	if e.EventType != adapter.EventExchangeCaptured {
		return nil
	}
	rec, err := NewRecord(e)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = append(a.pending, rec.toMap())
	if len(a.pending) < a.config.BatchSize {
		return nil
	}
	return a.flushLocked(ctx)
}

// Flush writes buffered records.
func (a *Adapter) Flush(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked(ctx)
}

// Pending returns the number of buffered records.
func (a *Adapter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// flushLocked keeps the batch on failure so the next write retries it.
func (a *Adapter) flushLocked(ctx context.Context) error {
	if len(a.pending) == 0 {
		return nil
	}
	if _, err := a.dataset.Write(ctx, a.pending, lode.Metadata{}); err != nil {
		a.config.Metrics.IncArchiveWriteFailure()
		return wrapError("write", string(a.dataset.ID()), err)
	}
	a.config.Metrics.IncArchiveWriteSuccess()
	a.pending = nil
	return nil
}

// Close flushes the remaining records.
func (a *Adapter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.Flush(ctx)
}

var _ adapter.Adapter = (*Adapter)(nil)
