package proxy

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/metrics"
	"github.com/justapithecus/logbook/types"
)

// capture wraps an upstream response body. Bytes are copied into buf as the
// reverse proxy streams them to the browser. Reaching EOF hands the exchange
// to the sink. Close before EOF discards the copy.
//
// The reverse proxy reads and closes the body from a single goroutine; mu
// only guards against a late Close racing the final Read.
type capture struct {
	body  io.ReadCloser
	ex    *types.Exchange
	limit int64
	sink  Sink
	now   func() time.Time

	logger  *log.Logger
	metrics *metrics.Collector

	mu       sync.Mutex
	buf      bytes.Buffer
	overflow bool
	done     bool
}

func (c *capture) Read(p []byte) (int, error) {
	n, err := c.body.Read(p)
	if n > 0 {
		c.mu.Lock()
		if !c.done && !c.overflow {
			if int64(c.buf.Len()+n) > c.limit {
				c.overflow = true
				c.buf = bytes.Buffer{}
			} else {
				c.buf.Write(p[:n])
			}
		}
		c.mu.Unlock()
	}
	if err == io.EOF {
		c.complete()
	}
	return n, err
}

func (c *capture) complete() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	overflow := c.overflow
	body := c.buf.Bytes()
	c.buf = bytes.Buffer{}
	c.mu.Unlock()

	if overflow {
		c.metrics.IncAborted()
		c.logger.Warn("response exceeds capture limit, not captured", map[string]any{
			"path":  c.ex.Path,
			"limit": c.limit,
		})
		return
	}

	c.ex.ResponseBody = body
	c.ex.CompletedAt = c.now()
	c.metrics.IncCaptured()
	if !c.sink.Submit(c.ex) {
		c.logger.Debug("exchange not accepted by sink", map[string]any{"path": c.ex.Path})
	}
}

// Close discards the copy if the body was not read to the end.
func (c *capture) Close() error {
	c.mu.Lock()
	if !c.done {
		c.done = true
		c.buf = bytes.Buffer{}
		c.mu.Unlock()
		c.metrics.IncAborted()
		c.logger.Debug("exchange aborted before completion", map[string]any{"path": c.ex.Path})
	} else {
		c.mu.Unlock()
	}
	return c.body.Close()
}
