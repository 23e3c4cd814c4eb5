// Package pipeline carries captured exchanges from the proxy to the world.
//
// Submit stamps each exchange with a sequence number in completion order
// and queues it without blocking. Workers classify and decode in parallel;
// a single writer re-orders their results by sequence and folds them, so
// the world sees exchanges in the order they completed. Classification
// misses and decode failures still consume their sequence number.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/justapithecus/logbook/adapter"
	"github.com/justapithecus/logbook/classify"
	"github.com/justapithecus/logbook/decode"
	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/metrics"
	"github.com/justapithecus/logbook/types"
	"github.com/justapithecus/logbook/world"
)

// Defaults.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 1024
)

// ErrClosed is returned by SubmitWait after Close.
var ErrClosed = errors.New("pipeline closed")

// Recorder receives every submitted exchange in sequence order.
type Recorder interface {
	Write(*types.Exchange) error
}

// Config configures a Pipeline.
type Config struct {
	// Workers is the number of classify/decode goroutines.
	Workers int
	// QueueSize is the number of exchanges buffered before Submit drops.
	QueueSize int
	// SessionID is stamped on exported events.
	SessionID string
	// Export receives an exchange_captured event per classified exchange.
	// Optional.
	Export *adapter.Dispatcher
	// Recorder writes the capture tape. Optional.
	Recorder Recorder
	// OnClassified is called on the writer goroutine for every exchange
	// that matched the catalogue. Optional.
	OnClassified func(*types.Exchange, types.DataType)

	Logger  *log.Logger
	Metrics *metrics.Collector
}

type job struct {
	seq uint64
	ex  *types.Exchange
}

type result struct {
	seq     uint64
	ex      *types.Exchange
	dt      types.DataType
	decoded *types.Decoded
	body    []byte // inflated response, set for classified exchanges
	err     error
}

// Pipeline is the asynchronous capture → fold handoff.
type Pipeline struct {
	cfg    Config
	world  *world.World
	logger *log.Logger

	mu      sync.Mutex // guards nextSeq, closed and sends on queue
	nextSeq uint64
	closed  bool
	started bool

	queue   chan job
	results chan result

	workers sync.WaitGroup
	writer  sync.WaitGroup
}

// New creates a pipeline folding into w. Call Start before submitting.
func New(w *world.World, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Pipeline{
		cfg:     cfg,
		world:   w,
		logger:  logger.Named("pipeline"),
		queue:   make(chan job, cfg.QueueSize),
		results: make(chan result, cfg.Workers*2),
	}
}

// Start launches the workers and the writer. Work already queued when ctx
// ends is still drained by Close.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for range p.cfg.Workers {
		p.workers.Add(1)
		go p.work(ctx)
	}
	p.writer.Add(1)
	go p.write()
}

// Submit queues a completed exchange. It never blocks; when the queue is
// full or the pipeline is closed the exchange is dropped and false returned.
func (p *Pipeline) Submit(ex *types.Exchange) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- job{seq: p.nextSeq, ex: ex}:
		p.nextSeq++
		return true
	default:
		p.cfg.Metrics.IncDropped()
		p.logger.Warn("pipeline queue full, exchange dropped", map[string]any{
			"exchange_id": ex.ID,
			"path":        ex.Path,
		})
		return false
	}
}

// SubmitWait queues an exchange, waiting for queue space. It is meant for
// replay, where there is a single producer and nothing may be dropped;
// concurrent Submit calls wait while it blocks.
func (p *Pipeline) SubmitWait(ctx context.Context, ex *types.Exchange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- job{seq: p.nextSeq, ex: ex}:
		p.nextSeq++
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of exchanges waiting for a worker.
func (p *Pipeline) Pending() int { return len(p.queue) }

// Close stops intake, folds everything already submitted, and returns once
// the writer has finished.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	close(p.queue)
	p.mu.Unlock()

	if !started {
		return nil
	}
	p.workers.Wait()
	close(p.results)
	p.writer.Wait()
	return nil
}

func (p *Pipeline) work(ctx context.Context) {
	defer p.workers.Done()
	for j := range p.queue {
		p.results <- process(ctx, j)
	}
}

// process classifies and decodes one exchange. ctx is reserved for decoders
// that may need it; decoding is pure today.
func process(_ context.Context, j job) result {
	r := result{seq: j.seq, ex: j.ex}
	r.dt = classify.Classify(j.ex.Path, j.ex.RequestBody)
	if r.dt == types.Undefined {
		return r
	}
	r.decoded, r.body, r.err = decode.ExchangeBody(r.dt, j.ex)
	return r
}

// write re-orders results by sequence and handles them one at a time.
func (p *Pipeline) write() {
	defer p.writer.Done()

	pending := make(map[uint64]result)
	var next uint64
	for r := range p.results {
		pending[r.seq] = r
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			p.handle(r)
			next++
		}
	}
	if len(pending) > 0 {
		// only possible if a worker died mid-job
		p.logger.Error("results left unsequenced", map[string]any{"count": len(pending), "next": next})
	}
}

func (p *Pipeline) handle(r result) {
	if p.cfg.Recorder != nil {
		if err := p.cfg.Recorder.Write(r.ex); err != nil {
			p.logger.Warn("tape write failed", map[string]any{"exchange_id": r.ex.ID, "error": err.Error()})
		}
	}

	if r.dt == types.Undefined {
		p.cfg.Metrics.IncMiss()
		p.logger.Debug("unclassified exchange", map[string]any{"path": r.ex.Path})
		return
	}
	p.cfg.Metrics.IncClassified(r.dt.String())

	if p.cfg.OnClassified != nil {
		p.cfg.OnClassified(r.ex, r.dt)
	}
	p.cfg.Export.Dispatch(adapter.NewExchangeEvent(p.cfg.SessionID, r.dt, r.ex, r.body))

	if r.err != nil {
		kind := "unknown"
		if k, ok := decode.KindOf(r.err); ok {
			kind = k.String()
		}
		p.cfg.Metrics.IncDecodeError(kind)
		p.logger.Warn("decode failed", map[string]any{
			"exchange_id": r.ex.ID,
			"data_type":   r.dt.String(),
			"kind":        kind,
			"error":       r.err.Error(),
		})
		return
	}

	// fold failures are logged and counted by the world
	_, _ = p.world.Fold(r.decoded)
}
