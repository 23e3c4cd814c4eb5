package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/justapithecus/logbook/cli/config"
	"github.com/justapithecus/logbook/cli/render"
	"github.com/justapithecus/logbook/cli/tui"
	"github.com/justapithecus/logbook/proxy"
	"github.com/justapithecus/logbook/types"
)

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the capture proxy",
		Description: `Listens as an HTTP proxy for the game client, captures API
responses and folds them into the world state until interrupted.

Flags override values from logbook.yaml.`,
		Flags: append([]cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Proxy listen address (default " + proxy.DefaultListenAddr + ")",
			},
			&cli.BoolFlag{
				Name:  "allow-remote",
				Usage: "Accept connections from non-loopback peers",
			},
			&cli.StringSliceFlag{
				Name:  "api-host",
				Usage: "Game API host to capture (repeatable; auto-detected when omitted)",
			},
			&cli.StringSliceFlag{
				Name:  "upstream",
				Usage: "Secondary proxy as host:port or http[s]://user:pass@host:port (repeatable)",
			},
			&cli.StringFlag{
				Name:  "upstream-strategy",
				Usage: "Upstream selection: sticky, round_robin, random",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Rotated log file",
			},
			&cli.StringFlag{
				Name:  "tape",
				Usage: "Record captured exchanges to this tape file",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Resource history database (sqlite DSN)",
			},
			&cli.StringFlag{
				Name:  "archive-backend",
				Usage: "Exchange archive backend: fs or s3",
			},
			&cli.StringFlag{
				Name:  "archive-path",
				Usage: "Archive root directory (fs) or bucket/prefix (s3)",
			},
			&cli.StringFlag{
				Name:  "export-url",
				Usage: "Statistics webhook URL",
			},
			&cli.StringFlag{
				Name:  "redis-url",
				Usage: "Publish world changes to Redis (redis://host:port/db)",
			},
			&cli.StringFlag{
				Name:  "ws-listen",
				Usage: "Serve world changes over WebSocket on this address",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Classify/decode workers",
			},
			&cli.IntFlag{
				Name:  "queue-size",
				Usage: "Capture queue length before exchanges are dropped",
			},
		}, ReadOnlyFlags()...),
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	if err := applyServeFlags(c, cfg); err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	pcfg, err := proxyConfig(cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	useTUI := c.Bool("tui")
	sess, err := openSession(ctx, cfg, sessionOptions{
		listen:   pcfg.ListenAddr,
		quietLog: useTUI && cfg.Log.File != "",
	})
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	defer func() { _ = sess.Close() }()

	// the pipeline is built before the server it reports to, so the
	// detection hook resolves the server lazily
	var srv *proxy.Server
	p := sess.newPipeline(func(ex *types.Exchange, _ types.DataType) {
		if srv != nil {
			srv.DetectHost(ex.Host)
		}
	})
	srv, err = proxy.New(pcfg, p, sess.logger.Named("proxy"), sess.metrics)
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	p.Start(ctx)

	status := func() tui.Status { return sess.status(srv.APIHosts()) }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	if sess.hub != nil {
		g.Go(func() error {
			return serveHub(gctx, cfg.Notify.WebSocket.Listen, sess, status)
		})
	}
	if useTUI {
		g.Go(func() error {
			err := tui.RunMonitorTUI(gctx, status)
			// quitting the monitor ends the session
			stop()
			return err
		})
	}

	runErr := g.Wait()
	_ = p.Close()

	if !useTUI {
		if err := r.RenderStatus(status()); err != nil {
			return err
		}
	}
	if runErr != nil {
		if proxy.IsNetworkError(runErr) {
			return cli.Exit(runErr.Error(), exitError)
		}
		return runErr
	}
	return nil
}

// serveHub serves the WebSocket hub on /ws and the current status as JSON on
// /status until ctx is done.
func serveHub(ctx context.Context, addr string, sess *session, status tui.Source) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", sess.hub)
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status())
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("websocket listen %s: %w", addr, err)
	}
	hs := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	sess.logger.Info("websocket hub listening", map[string]any{"addr": ln.Addr().String()})

	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		// hijacked websocket connections are closed by the hub itself
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// loadConfig reads path, or logbook.yaml when path is empty and the file
// exists. Without a file the zero config is returned.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err != nil {
			return &config.Config{}, nil
		}
		path = config.DefaultPath
	}
	return config.Load(path)
}

// applyServeFlags overrides cfg with flags the user set explicitly.
func applyServeFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	if c.IsSet("allow-remote") {
		loopbackOnly := !c.Bool("allow-remote")
		cfg.LoopbackOnly = &loopbackOnly
	}
	if c.IsSet("api-host") {
		cfg.APIHosts = c.StringSlice("api-host")
	}
	if c.IsSet("upstream") {
		cfg.Upstream.Endpoints = nil
		for _, raw := range c.StringSlice("upstream") {
			ep, err := parseUpstream(raw)
			if err != nil {
				return fmt.Errorf("--upstream %q: %w", raw, err)
			}
			cfg.Upstream.Endpoints = append(cfg.Upstream.Endpoints, ep)
		}
	}
	if c.IsSet("upstream-strategy") {
		cfg.Upstream.Strategy = c.String("upstream-strategy")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}
	if c.IsSet("tape") {
		cfg.Tape.Path = c.String("tape")
	}
	if c.IsSet("store") {
		cfg.Store.DSN = c.String("store")
	}
	if c.IsSet("archive-backend") {
		cfg.Archive.Backend = c.String("archive-backend")
	}
	if c.IsSet("archive-path") {
		cfg.Archive.Path = c.String("archive-path")
	}
	if c.IsSet("export-url") {
		cfg.Export.URL = c.String("export-url")
	}
	if c.IsSet("redis-url") {
		cfg.Notify.Redis.URL = c.String("redis-url")
	}
	if c.IsSet("ws-listen") {
		cfg.Notify.WebSocket.Listen = c.String("ws-listen")
	}
	if c.IsSet("workers") {
		cfg.Pipeline.Workers = c.Int("workers")
	}
	if c.IsSet("queue-size") {
		cfg.Pipeline.QueueSize = c.Int("queue-size")
	}
	return cfg.Validate()
}

// parseUpstream accepts host:port or a proxy URL with optional credentials.
func parseUpstream(raw string) (types.ProxyEndpoint, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return types.ProxyEndpoint{}, err
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return types.ProxyEndpoint{}, fmt.Errorf("invalid port %q", u.Port())
	}
	ep := types.ProxyEndpoint{
		Protocol: types.ProxyProtocol(u.Scheme),
		Host:     u.Hostname(),
		Port:     port,
	}
	if u.User != nil {
		user := u.User.Username()
		ep.Username = &user
		if pw, ok := u.User.Password(); ok {
			ep.Password = &pw
		}
	}
	if err := ep.Validate(); err != nil {
		return types.ProxyEndpoint{}, err
	}
	return ep, nil
}

// proxyConfig maps the file config onto the proxy server config.
func proxyConfig(cfg *config.Config) (proxy.Config, error) {
	strategy, err := proxy.ParseStrategy(cfg.Upstream.Strategy)
	if err != nil {
		return proxy.Config{}, err
	}
	pc := proxy.Config{
		ListenAddr:            cfg.Listen,
		AllowOnlyLoopback:     cfg.LoopbackOnly == nil || *cfg.LoopbackOnly,
		APIHosts:              cfg.APIHosts,
		Upstreams:             cfg.Upstream.Endpoints,
		UpstreamStrategy:      strategy,
		StickyTTL:             cfg.Upstream.StickyTTL.Duration,
		DialTimeout:           cfg.Timeouts.Dial.Duration,
		ResponseHeaderTimeout: cfg.Timeouts.ResponseHeader.Duration,
		IdleTimeout:           cfg.Timeouts.Idle.Duration,
	}
	if pc.ListenAddr == "" {
		pc.ListenAddr = proxy.DefaultListenAddr
	}
	return pc, pc.Validate()
}
