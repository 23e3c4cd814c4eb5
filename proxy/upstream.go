package proxy

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/justapithecus/logbook/types"
)

// Strategy chooses an upstream proxy for a connection.
type Strategy string

// Upstream selection strategies.
const (
	// StrategySticky pins each target host to one upstream. The game server
	// ties a session to the client address, so this is the default.
	StrategySticky     Strategy = "sticky"
	StrategyRoundRobin Strategy = "round_robin"
	StrategyRandom     Strategy = "random"
)

// ParseStrategy validates a strategy name. Empty means sticky.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return StrategySticky, nil
	case StrategySticky, StrategyRoundRobin, StrategyRandom:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown upstream strategy %q", s)
	}
}

// Upstreams selects among the configured upstream proxies.
// Safe for concurrent use. A nil *Upstreams means direct connections.
type Upstreams struct {
	strategy  Strategy
	endpoints []types.ProxyEndpoint
	stickyTTL time.Duration

	mu      sync.Mutex
	rrIndex int64
	sticky  map[string]stickyEntry
}

type stickyEntry struct {
	idx       int
	expiresAt time.Time // zero means no expiry
}

// NewUpstreams validates the endpoints. It returns nil, nil when there are
// none. stickyTTL <= 0 keeps sticky assignments for the process lifetime.
func NewUpstreams(endpoints []types.ProxyEndpoint, strategy Strategy, stickyTTL time.Duration) (*Upstreams, error) {
	if len(endpoints) == 0 {
		return nil, nil
	}
	for i := range endpoints {
		if err := endpoints[i].Validate(); err != nil {
			return nil, fmt.Errorf("upstream proxy %d: %w", i, err)
		}
	}
	if strategy == "" {
		strategy = StrategySticky
	}
	return &Upstreams{
		strategy:  strategy,
		endpoints: append([]types.ProxyEndpoint(nil), endpoints...),
		stickyTTL: stickyTTL,
		sticky:    make(map[string]stickyEntry),
	}, nil
}

// Select returns the upstream for a target host.
func (u *Upstreams) Select(host string) (*types.ProxyEndpoint, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var idx int
	var err error
	switch u.strategy {
	case StrategyRoundRobin:
		idx = int(u.rrIndex % int64(len(u.endpoints)))
		u.rrIndex++
	case StrategyRandom:
		idx, err = u.random()
	case StrategySticky:
		idx, err = u.selectSticky(host)
	default:
		err = fmt.Errorf("unknown upstream strategy %q", u.strategy)
	}
	if err != nil {
		return nil, err
	}
	ep := u.endpoints[idx]
	return &ep, nil
}

func (u *Upstreams) random() (int, error) {
	n := len(u.endpoints)
	if n == 1 {
		return 0, nil
	}
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random selection failed: %w", err)
	}
	return int(i.Int64()), nil
}

func (u *Upstreams) selectSticky(host string) (int, error) {
	if host == "" {
		return 0, errors.New("sticky selection requires a host")
	}
	now := time.Now()
	if e, ok := u.sticky[host]; ok {
		if e.expiresAt.IsZero() || e.expiresAt.After(now) {
			return e.idx, nil
		}
		delete(u.sticky, host)
	}
	idx, err := u.random()
	if err != nil {
		return 0, err
	}
	e := stickyEntry{idx: idx}
	if u.stickyTTL > 0 {
		e.expiresAt = now.Add(u.stickyTTL)
	}
	u.sticky[host] = e
	return idx, nil
}

// ProxyURL is an http.Transport Proxy func.
func (u *Upstreams) ProxyURL(r *http.Request) (*url.URL, error) {
	if u == nil {
		return nil, nil
	}
	ep, err := u.Select(r.URL.Hostname())
	if err != nil {
		return nil, err
	}
	return ep.URL(), nil
}

// StickyEntries returns the number of live sticky assignments.
func (u *Upstreams) StickyEntries() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.sticky)
}

// CleanExpired drops expired sticky assignments.
func (u *Upstreams) CleanExpired() {
	u.mu.Lock()
	defer u.mu.Unlock()
	now := time.Now()
	for host, e := range u.sticky {
		if !e.expiresAt.IsZero() && e.expiresAt.Before(now) {
			delete(u.sticky, host)
		}
	}
}
