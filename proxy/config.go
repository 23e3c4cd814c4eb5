// Package proxy implements the local interception proxy.
//
// The proxy forwards browser traffic to the game server unmodified apart from
// header stripping and query re-encoding. In-scope API responses are copied as
// they stream past and handed to a Sink once the body has been read to the
// end. Capture never delays or alters the bytes the browser receives.
package proxy

import (
	"errors"
	"time"

	"github.com/justapithecus/logbook/types"
)

// Defaults.
const (
	DefaultListenAddr            = "127.0.0.1:8888"
	DefaultDialTimeout           = 30 * time.Second
	DefaultResponseHeaderTimeout = 60 * time.Second
	DefaultIdleTimeout           = 90 * time.Second
	DefaultMaxCaptureBytes       = 16 << 20
	DefaultMaxRequestBody        = 1 << 20

	// APIPathPrefix is the path prefix of game API calls.
	APIPathPrefix = "/kcsapi/"
)

// Sink receives completed exchanges. Submit must not block.
type Sink interface {
	Submit(*types.Exchange) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(*types.Exchange) bool

// Submit calls f(ex).
func (f SinkFunc) Submit(ex *types.Exchange) bool { return f(ex) }

// Config configures a Server.
type Config struct {
	// ListenAddr is the address ListenAndServe binds.
	ListenAddr string
	// AllowOnlyLoopback rejects requests from non-loopback peers with 400.
	AllowOnlyLoopback bool
	// APIHosts restricts capture to these hosts. When empty the first host
	// serving a classified exchange is pinned (see Server.DetectHost).
	APIHosts []string

	// Upstreams are optional secondary proxies for outbound connections.
	Upstreams        []types.ProxyEndpoint
	UpstreamStrategy Strategy
	// StickyTTL bounds sticky upstream assignments; zero keeps them forever.
	StickyTTL time.Duration

	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	IdleTimeout           time.Duration

	// MaxCaptureBytes caps a captured response body. Larger responses are
	// forwarded but not captured.
	MaxCaptureBytes int64
	// MaxRequestBody caps a captured request body.
	MaxRequestBody int64
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.ListenAddr == "" {
		out.ListenAddr = DefaultListenAddr
	}
	if out.DialTimeout <= 0 {
		out.DialTimeout = DefaultDialTimeout
	}
	if out.ResponseHeaderTimeout <= 0 {
		out.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = DefaultIdleTimeout
	}
	if out.MaxCaptureBytes <= 0 {
		out.MaxCaptureBytes = DefaultMaxCaptureBytes
	}
	if out.MaxRequestBody <= 0 {
		out.MaxRequestBody = DefaultMaxRequestBody
	}
	if out.UpstreamStrategy == "" {
		out.UpstreamStrategy = StrategySticky
	}
	return out
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := ParseStrategy(string(c.UpstreamStrategy)); err != nil {
		return err
	}
	if c.StickyTTL < 0 {
		return errors.New("sticky ttl must be >= 0")
	}
	for _, h := range c.APIHosts {
		if h == "" {
			return errors.New("api host must not be empty")
		}
	}
	return nil
}
