package proxy

import (
	"mime"
	"net"
	"strings"
	"sync"
)

// scope decides which exchanges are copied.
type scope struct {
	mu    sync.RWMutex
	hosts map[string]bool
	// auto is set when no host was configured; the first detected host is
	// pinned and auto is cleared.
	auto bool
}

func newScope(hosts []string) *scope {
	s := &scope{hosts: make(map[string]bool, len(hosts))}
	for _, h := range hosts {
		s.hosts[strings.ToLower(h)] = true
	}
	s.auto = len(s.hosts) == 0
	return s
}

func (s *scope) allowsHost(host string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auto || s.hosts[strings.ToLower(host)]
}

// pin records host as the API server. It reports whether host was newly pinned.
func (s *scope) pin(host string) bool {
	if host == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.auto {
		return false
	}
	s.hosts[strings.ToLower(host)] = true
	s.auto = false
	return true
}

func (s *scope) list() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.hosts))
	for h := range s.hosts {
		out = append(out, h)
	}
	return out
}

func inScopePath(path string) bool {
	return strings.HasPrefix(path, APIPathPrefix)
}

// inScopeContentType accepts the content types the API answers with.
func inScopeContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	switch mt {
	case "text/plain", "application/json", "text/json", "text/javascript", "application/javascript":
		return true
	}
	return strings.HasSuffix(mt, "+json")
}

// hostOnly strips the port from a host[:port] value.
func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return strings.Trim(hostport, "[]")
}
