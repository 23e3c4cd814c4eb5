package world

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/types"
)

// Change tells an observer that one aggregate changed.
type Change struct {
	Aggregate Aggregate      `json:"aggregate"`
	Version   uint64         `json:"version"`
	DataType  types.DataType `json:"data_type"`
	// Snapshot is the world as of Version.
	Snapshot *Snapshot `json:"-"`
	// Samples holds the resource samples added by the fold (resources only).
	Samples []types.ResourceSample `json:"samples,omitempty"`
}

// Observer receives change notifications. It is called on the fold path
// and must return quickly; wrap slow observers with Async.
type Observer interface {
	OnContextChanged(Change) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Change) error

// OnContextChanged calls f.
func (f ObserverFunc) OnContextChanged(c Change) error { return f(c) }

// ErrObserverBusy is returned by an async observer whose buffer is full.
var ErrObserverBusy = errors.New("observer buffer full")

// ErrObserverClosed is returned by an async observer after Close.
var ErrObserverClosed = errors.New("observer closed")

// deliver calls o and converts a panic into an error.
func deliver(o Observer, c Change) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()
	return o.OnContextChanged(c)
}

// AsyncObserver hands changes to a wrapped observer on its own goroutine.
// When the buffer is full the change is dropped and ErrObserverBusy returned.
type AsyncObserver struct {
	next   Observer
	logger *log.Logger
	ch     chan Change
	done   chan struct{}

	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
	failed  atomic.Int64
}

// Async starts an AsyncObserver around next.
func Async(next Observer, buffer int, logger *log.Logger) *AsyncObserver {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = log.Nop()
	}
	a := &AsyncObserver{
		next:   next,
		logger: logger,
		ch:     make(chan Change, buffer),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

// OnContextChanged enqueues c without blocking.
func (a *AsyncObserver) OnContextChanged(c Change) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrObserverClosed
	}
	select {
	case a.ch <- c:
		return nil
	default:
		a.dropped.Add(1)
		return ErrObserverBusy
	}
}

func (a *AsyncObserver) run() {
	defer close(a.done)
	for c := range a.ch {
		if err := deliver(a.next, c); err != nil {
			a.failed.Add(1)
			a.logger.Warn("async observer failed", map[string]any{
				"aggregate": string(c.Aggregate),
				"version":   c.Version,
				"error":     err.Error(),
			})
		}
	}
}

// Close stops accepting changes and waits for queued ones to be delivered.
func (a *AsyncObserver) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()
	<-a.done
	return nil
}

// Dropped returns the number of changes dropped on a full buffer.
func (a *AsyncObserver) Dropped() int64 { return a.dropped.Load() }

// Failed returns the number of deliveries the wrapped observer rejected.
func (a *AsyncObserver) Failed() int64 { return a.failed.Load() }
