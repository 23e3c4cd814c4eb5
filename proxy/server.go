package proxy

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/metrics"
	"github.com/justapithecus/logbook/types"
)

// strippedHeaders are removed from every forwarded request.
var strippedHeaders = []string{
	"Via",
	"X-Forwarded-For",
	"X-Forwarded-Proto",
	"X-Forwarded-Host",
	"X-Forwarded-Server",
	"Origin",
}

const shutdownTimeout = 5 * time.Second

type pendingKey struct{}

// pending is the part of an exchange known before the response arrives.
type pending struct {
	url         string
	host        string
	path        string
	requestBody []byte
	startedAt   time.Time
}

// Server is the interception proxy. It implements http.Handler.
type Server struct {
	cfg       Config
	sink      Sink
	logger    *log.Logger
	metrics   *metrics.Collector
	scope     *scope
	upstreams *Upstreams
	dialer    *net.Dialer
	transport *http.Transport
	proxy     *httputil.ReverseProxy
	now       func() time.Time
}

// New creates a proxy server handing completed exchanges to sink.
// logger and m may be nil.
func New(cfg Config, sink Sink, logger *log.Logger, m *metrics.Collector) (*Server, error) {
	if sink == nil {
		return nil, errors.New("sink is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid proxy config: %w", err)
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Nop()
	}

	ups, err := NewUpstreams(cfg.Upstreams, cfg.UpstreamStrategy, cfg.StickyTTL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		sink:      sink,
		logger:    logger,
		metrics:   m,
		scope:     newScope(cfg.APIHosts),
		upstreams: ups,
		dialer:    &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: 30 * time.Second},
		now:       time.Now,
	}
	s.transport = &http.Transport{
		Proxy:                 ups.ProxyURL,
		DialContext:           s.dialer.DialContext,
		DisableCompression:    true,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		IdleConnTimeout:       cfg.IdleTimeout,
		TLSHandshakeTimeout:   cfg.DialTimeout,
		MaxIdleConnsPerHost:   16,
	}
	s.proxy = &httputil.ReverseProxy{
		Rewrite:        s.rewrite,
		Transport:      s.transport,
		FlushInterval:  -1,
		ModifyResponse: s.modifyResponse,
		ErrorHandler:   s.handleError,
		ErrorLog:       zap.NewStdLog(logger.Zap()),
	}

	for _, ep := range cfg.Upstreams {
		logger.Info("upstream proxy configured", map[string]any{
			"upstream": ep.Redact(),
			"strategy": string(cfg.UpstreamStrategy),
		})
	}
	return s, nil
}

// DetectHost pins host as the API server when none was configured.
// Later calls are no-ops.
func (s *Server) DetectHost(host string) {
	if s.scope.pin(host) {
		s.logger.Info("api server detected", map[string]any{"host": host})
	}
}

// APIHosts returns the hosts currently in capture scope.
func (s *Server) APIHosts() []string { return s.scope.list() }

// ServeHTTP forwards one browser request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AllowOnlyLoopback && !isLoopback(r.RemoteAddr) {
		s.metrics.IncLoopbackRejection()
		s.logger.Warn("rejected non-loopback client", map[string]any{"remote_addr": r.RemoteAddr})
		http.Error(w, "only loopback clients are allowed", http.StatusBadRequest)
		return
	}
	if r.Method == http.MethodConnect {
		s.tunnel(w, r)
		return
	}

	host := r.URL.Hostname()
	if host == "" {
		host = hostOnly(r.Host)
	}
	if inScopePath(r.URL.Path) && s.scope.allowsHost(host) {
		p, err := s.readRequest(r, host)
		if err != nil {
			s.upstreamFailed(w, r, "forward", err)
			return
		}
		if p != nil {
			r = r.WithContext(context.WithValue(r.Context(), pendingKey{}, p))
		}
	}
	s.proxy.ServeHTTP(w, r)
}

// readRequest buffers the request body so it can be both forwarded and
// captured. Bodies over the limit are forwarded without capture.
func (s *Server) readRequest(r *http.Request, host string) (*pending, error) {
	p := &pending{
		url:       absoluteURL(r),
		host:      host,
		path:      r.URL.Path,
		startedAt: s.now(),
	}
	if r.Body == nil || r.Body == http.NoBody {
		return p, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxRequestBody+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(body)) > s.cfg.MaxRequestBody {
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), r.Body), r.Body}
		s.logger.Debug("request body exceeds capture limit", map[string]any{"path": r.URL.Path})
		return nil, nil
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) > 0 {
		p.requestBody = body
	}
	return p, nil
}

func (s *Server) rewrite(pr *httputil.ProxyRequest) {
	out := pr.Out
	if out.URL.Host == "" {
		// Reverse mode: the browser addressed the proxy as the server.
		out.URL.Scheme = "http"
		out.URL.Host = pr.In.Host
	}
	if out.URL.Scheme == "" {
		out.URL.Scheme = "http"
	}
	out.Host = pr.In.Host
	for _, h := range strippedHeaders {
		out.Header.Del(h)
	}
	out.URL.RawQuery = FixQueryString(pr.In.URL.RawQuery)
	out.URL.ForceQuery = false
}

func (s *Server) modifyResponse(resp *http.Response) error {
	p, ok := resp.Request.Context().Value(pendingKey{}).(*pending)
	if !ok {
		return nil
	}
	ct := resp.Header.Get("Content-Type")
	if !inScopeContentType(ct) {
		return nil
	}
	if resp.ContentLength > s.cfg.MaxCaptureBytes {
		s.logger.Debug("response exceeds capture limit", map[string]any{
			"path":           p.path,
			"content_length": resp.ContentLength,
		})
		return nil
	}

	resp.Body = &capture{
		body: resp.Body,
		ex: &types.Exchange{
			ID:              uuid.NewString(),
			URL:             p.url,
			Host:            p.host,
			Path:            p.path,
			RequestBody:     p.requestBody,
			ContentType:     ct,
			ContentEncoding: resp.Header.Get("Content-Encoding"),
			StartedAt:       p.startedAt,
		},
		limit:   s.cfg.MaxCaptureBytes,
		sink:    s.sink,
		now:     s.now,
		logger:  s.logger,
		metrics: s.metrics,
	}
	return nil
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	s.upstreamFailed(w, r, "forward", err)
}

func (s *Server) upstreamFailed(w http.ResponseWriter, r *http.Request, op string, err error) {
	nerr := &NetworkError{Op: op, URL: absoluteURL(r), Err: err}
	s.metrics.IncUpstreamError()
	if errors.Is(err, context.Canceled) {
		s.logger.Debug("client went away", map[string]any{"url": nerr.URL})
	} else {
		s.logger.Warn("upstream request failed", map[string]any{"op": op, "url": nerr.URL, "error": nerr.Error()})
	}
	w.WriteHeader(http.StatusBadGateway)
}

// tunnel splices a CONNECT request to its target. Tunnelled traffic is
// encrypted end to end and never captured.
func (s *Server) tunnel(w http.ResponseWriter, r *http.Request) {
	target := r.Host
	if _, _, err := net.SplitHostPort(target); err != nil {
		target = net.JoinHostPort(target, "443")
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "tunnelling not supported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.DialTimeout)
	upstream, err := s.dialTarget(ctx, target)
	cancel()
	if err != nil {
		s.upstreamFailed(w, r, "connect", err)
		return
	}

	client, rw, err := hj.Hijack()
	if err != nil {
		_ = upstream.Close()
		s.logger.Warn("hijack failed", map[string]any{"error": err.Error()})
		return
	}
	if _, err := io.WriteString(client, "HTTP/1.1 200 Connection Established\r\n\r\n"); err != nil {
		_ = client.Close()
		_ = upstream.Close()
		return
	}
	if n := rw.Reader.Buffered(); n > 0 {
		buffered, _ := rw.Reader.Peek(n)
		if _, err := upstream.Write(buffered); err != nil {
			_ = client.Close()
			_ = upstream.Close()
			return
		}
	}

	s.metrics.IncTunnel()
	s.logger.Debug("tunnel opened", map[string]any{"target": target})
	splice(client, upstream)
}

// dialTarget connects to target directly or through an upstream proxy.
func (s *Server) dialTarget(ctx context.Context, target string) (net.Conn, error) {
	if s.upstreams == nil {
		return s.dialer.DialContext(ctx, "tcp", target)
	}
	ep, err := s.upstreams.Select(hostOnly(target))
	if err != nil {
		return nil, err
	}
	conn, err := s.dialer.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return nil, err
	}
	if ep.Protocol == types.ProxyProtocolHTTPS {
		tc := tls.Client(conn, &tls.Config{ServerName: ep.Host, MinVersion: tls.VersionTLS12})
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn = tc
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: target},
		Host:   target,
		Header: make(http.Header),
	}
	if ep.Username != nil && *ep.Username != "" {
		pw := ""
		if ep.Password != nil {
			pw = *ep.Password
		}
		cred := base64.StdEncoding.EncodeToString([]byte(*ep.Username + ":" + pw))
		req.Header.Set("Proxy-Authorization", "Basic "+cred)
	}
	if err := req.Write(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_ = conn.Close()
		return nil, fmt.Errorf("upstream proxy %s refused CONNECT: %s", ep.Addr(), resp.Status)
	}
	_ = conn.SetDeadline(time.Time{})
	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

// ListenAndServe binds cfg.ListenAddr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return &NetworkError{Op: "listen", URL: s.cfg.ListenAddr, Err: err}
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 30 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger.Zap()),
	}
	s.logger.Info("proxy listening", map[string]any{"addr": ln.Addr().String()})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var sweep <-chan time.Time
	if s.upstreams != nil && s.cfg.StickyTTL > 0 {
		t := time.NewTicker(s.cfg.StickyTTL)
		defer t.Stop()
		sweep = t.C
	}

	for {
		select {
		case <-sweep:
			s.upstreams.CleanExpired()
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return &NetworkError{Op: "listen", URL: ln.Addr().String(), Err: err}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			err := srv.Shutdown(shutdownCtx)
			cancel()
			s.transport.CloseIdleConnections()
			<-errCh
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		}
	}
}

func isLoopback(remoteAddr string) bool {
	ip := net.ParseIP(hostOnly(remoteAddr))
	return ip != nil && ip.IsLoopback()
}

func absoluteURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	u := *r.URL
	u.Scheme = "http"
	u.Host = r.Host
	return u.String()
}

type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }

// splice copies in both directions until either side finishes.
func splice(a, b net.Conn) {
	var wg sync.WaitGroup
	wg.Add(2)
	pipe := func(dst, src net.Conn) {
		defer wg.Done()
		_, _ = io.Copy(dst, src)
		if cw, ok := dst.(interface{ CloseWrite() error }); ok {
			_ = cw.CloseWrite()
		} else {
			_ = dst.Close()
		}
	}
	go pipe(a, b)
	go pipe(b, a)
	wg.Wait()
	_ = a.Close()
	_ = b.Close()
}
