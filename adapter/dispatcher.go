package adapter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/metrics"
)

// DefaultQueueSize is the default dispatcher buffer.
const DefaultQueueSize = 256

// DefaultPublishTimeout bounds one Publish call including retries.
const DefaultPublishTimeout = 30 * time.Second

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Name labels log entries (export, notify).
	Name string
	// QueueSize is the number of events buffered before Dispatch drops.
	QueueSize int
	// PublishTimeout bounds each adapter's Publish call.
	PublishTimeout time.Duration
	Logger         *log.Logger
	Metrics        *metrics.Collector
}

// Dispatcher fans events out to adapters on a background goroutine.
// Dispatch never blocks; when the queue is full the event is dropped.
type Dispatcher struct {
	cfg      DispatcherConfig
	adapters []Adapter
	logger   *log.Logger
	queue    chan *Event
	done     chan struct{}

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewDispatcher creates a dispatcher over adapters. Call Start to begin
// delivery.
func NewDispatcher(cfg DispatcherConfig, adapters ...Adapter) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Dispatcher{
		cfg:      cfg,
		adapters: adapters,
		logger:   logger,
		queue:    make(chan *Event, cfg.QueueSize),
		done:     make(chan struct{}),
	}
}

// Len returns the number of adapters.
func (d *Dispatcher) Len() int { return len(d.adapters) }

// Start launches the delivery goroutine. ctx supplies request-scoped values
// to adapters; delivery ends when Close is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	go d.run(ctx)
}

// Dispatch enqueues e without blocking. It reports false when the event was
// dropped (queue full, dispatcher closed, or no adapters).
func (d *Dispatcher) Dispatch(e *Event) bool {
	if d == nil || len(d.adapters) == 0 {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- e:
		return true
	default:
		d.cfg.Metrics.IncExportFailure()
		d.logger.Warn("dispatch queue full, event dropped", map[string]any{
			"dispatcher": d.cfg.Name,
			"event_type": e.EventType,
		})
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for e := range d.queue {
		for _, a := range d.adapters {
			// queued events are still delivered after ctx ends, bounded by the timeout
			pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.PublishTimeout)
			err := a.Publish(pubCtx, e)
			cancel()
			if err != nil {
				d.cfg.Metrics.IncExportFailure()
				d.logger.Warn("adapter publish failed", map[string]any{
					"dispatcher": d.cfg.Name,
					"event_type": e.EventType,
					"error":      err.Error(),
				})
				continue
			}
			d.cfg.Metrics.IncExportSuccess()
		}
	}
}

// Close stops accepting events, delivers the ones already queued, and closes
// every adapter.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	started := d.started
	close(d.queue)
	d.mu.Unlock()

	if started {
		<-d.done
	}

	var errs []error
	for _, a := range d.adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
