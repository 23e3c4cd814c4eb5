// Package world holds the game state assembled from decoded payloads.
//
// A World has exactly one write path, Fold, which applies a payload to a
// private copy of the current snapshot and publishes the copy atomically.
// Readers load the published snapshot without locking and always see a
// complete fold.
package world

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justapithecus/logbook/battle"
	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/metrics"
	"github.com/justapithecus/logbook/types"
)

// DefaultRecentEvents is the number of decoded events kept in the snapshot.
const DefaultRecentEvents = 50

// Options configures a World.
type Options struct {
	// RecentEvents is the size of the recent event window.
	RecentEvents int
	// ResourceRetention caps each resource series.
	ResourceRetention int
	Logger            *log.Logger
	Metrics           *metrics.Collector
	// Now stamps payloads that carry no capture time. Defaults to time.Now.
	Now func() time.Time
}

// FoldError is returned when a payload cannot be applied. The world is left
// unchanged.
type FoldError struct {
	Type types.DataType
	Msg  string
}

func (e *FoldError) Error() string {
	return fmt.Sprintf("fold %s: %s", e.Type, e.Msg)
}

// Changeset describes one applied fold.
type Changeset struct {
	Version    uint64         `json:"version"`
	DataType   types.DataType `json:"data_type"`
	Aggregates []Aggregate    `json:"aggregates"`
	// Samples are the resource samples the fold added.
	Samples []types.ResourceSample `json:"samples,omitempty"`
	// Resolution is set when a battle payload was sequenced.
	Resolution *battle.Resolution `json:"resolution,omitempty"`
}

// Has reports whether a changed.
func (c Changeset) Has(a Aggregate) bool {
	for _, x := range c.Aggregates {
		if x == a {
			return true
		}
	}
	return false
}

// Empty reports whether nothing changed.
func (c Changeset) Empty() bool { return len(c.Aggregates) == 0 }

type subscription struct {
	id  uint64
	obs Observer
}

// World is the single owner of the game state.
type World struct {
	opts    Options
	logger  *log.Logger
	metrics *metrics.Collector

	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[Snapshot]

	obsMu     sync.RWMutex
	observers []subscription
	nextObsID uint64
}

// New creates an empty world.
func New(opts Options) *World {
	if opts.RecentEvents <= 0 {
		opts.RecentEvents = DefaultRecentEvents
	}
	if opts.ResourceRetention <= 0 {
		opts.ResourceRetention = DefaultResourceRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	w := &World{opts: opts, logger: logger, metrics: opts.Metrics}
	w.snap.Store(emptySnapshot())
	return w
}

// Snapshot returns the current state. It never blocks.
func (w *World) Snapshot() *Snapshot {
	return w.snap.Load()
}

// Subscribe registers an observer and returns a function that removes it.
func (w *World) Subscribe(o Observer) (unsubscribe func()) {
	w.obsMu.Lock()
	w.nextObsID++
	id := w.nextObsID
	w.observers = append(w.observers, subscription{id: id, obs: o})
	w.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.obsMu.Lock()
			defer w.obsMu.Unlock()
			for i, s := range w.observers {
				if s.id == id {
					w.observers = append(w.observers[:i:i], w.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Fold applies one decoded payload. Folds are serialized; a fold either
// applies completely or, on error, leaves the world untouched.
func (w *World) Fold(d *types.Decoded) (Changeset, error) {
	if d == nil || d.Data == nil {
		return Changeset{}, &FoldError{Msg: "empty payload"}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dr := newDraft(w.snap.Load(), w.opts.ResourceRetention)
	if err := w.applySafely(dr, d); err != nil {
		w.metrics.IncFoldError()
		w.logger.Warn("fold rejected", map[string]any{
			"data_type":   d.Type.String(),
			"exchange_id": d.ExchangeID,
			"error":       err.Error(),
		})
		return Changeset{}, err
	}

	dr.recordEvent(*d, w.opts.RecentEvents)
	cs := w.publish(dr, d.Type)
	w.metrics.IncFold()

	if r := cs.Resolution; r != nil && r.Inconsistency != nil {
		w.metrics.IncInconsistency()
		w.logger.Warn("battle sequence inconsistency", map[string]any{
			"data_type": d.Type.String(),
			"reason":    string(r.Inconsistency.Reason),
			"resolved":  r.Kind.String(),
		})
	}
	return cs, nil
}

// EndSortie resets sortie flags and the battle sequencer to idle. It is the
// explicit end-of-sortie signal; a port payload has the same effect.
func (w *World) EndSortie() Changeset {
	w.mu.Lock()
	defer w.mu.Unlock()

	dr := newDraft(w.snap.Load(), w.opts.ResourceRetention)
	dr.endSortie()
	if len(dr.changed) == 0 {
		return Changeset{Version: dr.base.version}
	}
	return w.publish(dr, types.Undefined)
}

// SeedResources loads historical samples, typically from the resource
// history store at start-up.
func (w *World) SeedResources(samples []types.ResourceSample) Changeset {
	if len(samples) == 0 {
		return Changeset{Version: w.Snapshot().Version()}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dr := newDraft(w.snap.Load(), w.opts.ResourceRetention)
	for _, s := range samples {
		dr.addSample(s)
	}
	return w.publish(dr, types.Undefined)
}

// applySafely runs the fold rules and turns a panic into a FoldError.
func (w *World) applySafely(dr *draft, d *types.Decoded) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FoldError{Type: d.Type, Msg: fmt.Sprintf("panic: %v", r)}
		}
	}()
	at := d.CapturedAt
	if at.IsZero() {
		at = w.opts.Now()
	}
	return dr.apply(d, at)
}

// publish commits the draft, stores it, and notifies observers.
// Must be called with w.mu held.
func (w *World) publish(dr *draft, dt types.DataType) Changeset {
	next := dr.commit()
	w.snap.Store(next)

	cs := Changeset{
		Version:    next.version,
		DataType:   dt,
		Aggregates: dr.changedAggregates(),
		Samples:    dr.samples,
		Resolution: dr.resolution,
	}
	w.notify(cs, next)
	return cs
}

// notify delivers one Change per changed aggregate. Observer errors and
// panics are logged and counted, never returned.
func (w *World) notify(cs Changeset, snap *Snapshot) {
	w.obsMu.RLock()
	observers := make([]subscription, len(w.observers))
	copy(observers, w.observers)
	w.obsMu.RUnlock()

	if len(observers) == 0 {
		return
	}

	for _, a := range cs.Aggregates {
		c := Change{Aggregate: a, Version: cs.Version, DataType: cs.DataType, Snapshot: snap}
		if a == AggregateResources {
			c.Samples = cs.Samples
		}
		for _, s := range observers {
			if err := deliver(s.obs, c); err != nil {
				w.metrics.IncObserverFailure()
				w.logger.Warn("observer failed", map[string]any{
					"aggregate": string(a),
					"version":   cs.Version,
					"error":     err.Error(),
				})
			}
		}
	}
}
