package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/logbook/adapter"
	"github.com/justapithecus/logbook/adapter/redis"
	"github.com/justapithecus/logbook/adapter/webhook"
	"github.com/justapithecus/logbook/archive"
	"github.com/justapithecus/logbook/cli/config"
	"github.com/justapithecus/logbook/cli/tui"
	"github.com/justapithecus/logbook/iox"
	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/metrics"
	"github.com/justapithecus/logbook/notify"
	"github.com/justapithecus/logbook/pipeline"
	"github.com/justapithecus/logbook/store"
	"github.com/justapithecus/logbook/tape"
	"github.com/justapithecus/logbook/types"
	"github.com/justapithecus/logbook/world"
)

// defaultSeedWindow is the resource history loaded at start when the store
// is enabled and no window is configured.
const defaultSeedWindow = 7 * 24 * time.Hour

// seedLimit caps the number of rows loaded at start.
const seedLimit = 100_000

// observerBuffer is the queue length of each asynchronous observer.
const observerBuffer = 256

type sessionOptions struct {
	// listen is reported in metrics and status; empty for replay.
	listen string
	// tapePath overrides the configured tape. Replay passes "-" to disable it.
	tapePath string
	// noHub skips the WebSocket hub.
	noHub bool
	// quietLog keeps log output off stderr while the TUI owns the terminal.
	quietLog bool
}

// session owns everything downstream of the proxy: the world, its observers
// and the export outputs. Close releases them in reverse order of creation.
type session struct {
	id      string
	started time.Time
	cfg     *config.Config

	logger  *log.Logger
	metrics *metrics.Collector
	world   *world.World
	store   *store.Store
	export  *adapter.Dispatcher
	notify  *adapter.Dispatcher
	hub     *notify.Hub
	tape    *tape.Writer

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (s *session) onClose(c io.Closer) { s.closers = append(s.closers, c) }

func (s *session) subscribe(o world.Observer) {
	unsubscribe := s.world.Subscribe(o)
	s.onClose(closerFunc(func() error { unsubscribe(); return nil }))
}

// openSession builds the world and its outputs from cfg. On error anything
// already opened is closed.
func openSession(ctx context.Context, cfg *config.Config, opts sessionOptions) (_ *session, err error) {
	s := &session{
		id:      uuid.NewString(),
		started: time.Now(),
		cfg:     cfg,
	}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	s.logger, err = log.New(log.Meta{SessionID: s.id, Component: "logbook"}, log.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Quiet:      opts.quietLog,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	s.onClose(s.logger)

	backend := cfg.Archive.Backend
	if backend == "" {
		backend = "none"
	}
	s.metrics = metrics.NewCollector(s.id, opts.listen, backend)
	s.world = world.New(world.Options{
		RecentEvents:      cfg.World.RecentEvents,
		ResourceRetention: cfg.World.ResourceRetention,
		Logger:            s.logger,
		Metrics:           s.metrics,
	})

	if err = s.openStore(ctx); err != nil {
		return nil, err
	}
	if err = s.openExport(ctx); err != nil {
		return nil, err
	}
	if err = s.openNotify(ctx, opts.noHub); err != nil {
		return nil, err
	}

	tapePath := cfg.Tape.Path
	if opts.tapePath != "" {
		tapePath = opts.tapePath
	}
	if tapePath != "" && tapePath != "-" {
		s.tape, err = tape.Create(tapePath, tape.NewHeader(s.id, s.started))
		if err != nil {
			return nil, fmt.Errorf("tape: %w", err)
		}
		s.onClose(s.tape)
		s.logger.Info("recording tape", map[string]any{"path": tapePath})
	}
	return s, nil
}

func (s *session) openStore(ctx context.Context) error {
	if s.cfg.Store.DSN == "" {
		return nil
	}
	st, err := store.Open(s.cfg.Store.DSN, store.Options{
		SessionID: s.id,
		Logger:    s.logger.Named("store"),
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	s.store = st
	s.onClose(st)

	window := s.cfg.Store.SeedWindow.Duration
	if window <= 0 {
		window = defaultSeedWindow
	}
	samples, err := st.Load(ctx, s.started.Add(-window), seedLimit)
	if err != nil {
		return fmt.Errorf("store seed: %w", err)
	}
	s.world.SeedResources(samples)
	s.logger.Info("resource history loaded", map[string]any{"samples": len(samples)})

	rec := world.Async(store.NewRecorder(st), observerBuffer, s.logger.Named("store"))
	s.onClose(rec)
	s.subscribe(rec)
	return nil
}

func (s *session) openExport(ctx context.Context) error {
	var adapters []adapter.Adapter

	if s.cfg.Export.URL != "" {
		retries := 0
		if s.cfg.Export.Retries != nil {
			retries = *s.cfg.Export.Retries
		}
		wh, err := webhook.New(webhook.Config{
			URL:       s.cfg.Export.URL,
			Headers:   s.cfg.Export.Headers,
			Timeout:   s.cfg.Export.Timeout.Duration,
			Retries:   retries,
			DataTypes: s.cfg.Export.DataTypes,
		})
		if err != nil {
			return fmt.Errorf("export webhook: %w", err)
		}
		adapters = append(adapters, wh)
	}

	if s.cfg.Archive.Backend != "" {
		ds, err := s.openDataset(ctx)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		adapters = append(adapters, archive.New(ds, archive.Config{
			BatchSize: s.cfg.Archive.BatchSize,
			Metrics:   s.metrics,
		}))
	}

	if len(adapters) == 0 {
		return nil
	}
	s.export = adapter.NewDispatcher(adapter.DispatcherConfig{
		Name:      "export",
		QueueSize: s.cfg.Export.QueueSize,
		Logger:    s.logger.Named("export"),
		Metrics:   s.metrics,
	}, adapters...)
	s.export.Start(ctx)
	s.onClose(s.export)
	return nil
}

func (s *session) openDataset(ctx context.Context) (lode.Dataset, error) {
	id := s.cfg.Archive.Dataset
	switch s.cfg.Archive.Backend {
	case "fs":
		if err := os.MkdirAll(s.cfg.Archive.Path, 0o755); err != nil {
			return nil, err
		}
		return archive.NewDatasetFS(id, s.cfg.Archive.Path)
	case "s3":
		bucket, prefix := archive.ParseS3Path(s.cfg.Archive.Path)
		factory, err := archive.NewS3Factory(ctx, archive.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       s.cfg.Archive.Region,
			Endpoint:     s.cfg.Archive.Endpoint,
			UsePathStyle: s.cfg.Archive.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return archive.NewDataset(id, factory)
	default:
		return nil, fmt.Errorf("unknown backend %q", s.cfg.Archive.Backend)
	}
}

func (s *session) openNotify(ctx context.Context, noHub bool) error {
	if r := s.cfg.Notify.Redis; r.URL != "" {
		retries := 0
		if r.Retries != nil {
			retries = *r.Retries
		}
		ra, err := redis.New(redis.Config{
			URL:          r.URL,
			Channel:      r.Channel,
			PerAggregate: r.PerAggregate,
			Timeout:      r.Timeout.Duration,
			Retries:      retries,
		})
		if err != nil {
			return fmt.Errorf("notify redis: %w", err)
		}
		s.notify = adapter.NewDispatcher(adapter.DispatcherConfig{
			Name:    "notify",
			Logger:  s.logger.Named("notify"),
			Metrics: s.metrics,
		}, ra)
		s.notify.Start(ctx)
		s.onClose(s.notify)
		s.subscribe(pipeline.ForwardChanges(s.notify, s.id))
	}

	if noHub || s.cfg.Notify.WebSocket.Listen == "" {
		return nil
	}
	s.hub = notify.New(notify.Config{
		SessionID:      s.id,
		AllowedOrigins: s.cfg.Notify.WebSocket.AllowedOrigins,
		Logger:         s.logger.Named("hub"),
	})
	s.onClose(s.hub)
	obs := world.Async(s.hub, observerBuffer, s.logger.Named("hub"))
	s.onClose(obs)
	s.subscribe(obs)
	return nil
}

// newPipeline builds the capture pipeline feeding this session's world.
func (s *session) newPipeline(onClassified func(*types.Exchange, types.DataType)) *pipeline.Pipeline {
	cfg := pipeline.Config{
		Workers:      s.cfg.Pipeline.Workers,
		QueueSize:    s.cfg.Pipeline.QueueSize,
		SessionID:    s.id,
		Export:       s.export,
		OnClassified: onClassified,
		Logger:       s.logger,
		Metrics:      s.metrics,
	}
	// a nil *tape.Writer must not become a non-nil Recorder
	if s.tape != nil {
		cfg.Recorder = s.tape
	}
	return pipeline.New(s.world, cfg)
}

// status reports the current world and counters.
func (s *session) status(apiHosts []string) tui.Status {
	st := tui.NewStatus(s.world.Snapshot(), s.metrics.Snapshot())
	st.APIHosts = apiHosts
	st.Uptime = time.Since(s.started).Truncate(time.Second).String()
	return st
}

// Close releases every output in reverse order of creation.
func (s *session) Close() error {
	closers := s.closers
	s.closers = nil
	return iox.CloseAll(closers...)
}
