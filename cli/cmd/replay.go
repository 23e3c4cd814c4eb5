package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/logbook/cli/render"
	"github.com/justapithecus/logbook/cli/tui"
	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/pipeline"
	"github.com/justapithecus/logbook/tape"
	"github.com/justapithecus/logbook/types"
)

// ReplayCommand returns the replay command.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Fold recorded tapes into a fresh world",
		ArgsUsage: "<tape> [tape...]",
		Description: `Feeds every exchange of each tape through classification,
decoding and folding, in recorded order, then prints the resulting status.

Export, archive, store and Redis outputs from logbook.yaml are honored;
the tape recorder and the WebSocket hub are not.`,
		Flags: append([]cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:  "store",
				Usage: "Resource history database (sqlite DSN)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
		}, ReadOnlyFlags()...),
		Action: replayAction,
	}
}

func replayAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("replay requires at least one tape", exitConfig)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	if c.IsSet("store") {
		cfg.Store.DSN = c.String("store")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg, sessionOptions{tapePath: "-", noHub: true})
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	defer func() { _ = sess.Close() }()

	p := sess.newPipeline(nil)
	p.Start(ctx)

	var replayErr error
	for _, path := range c.Args().Slice() {
		n, err := replayTape(ctx, path, p, sess.logger)
		sess.logger.Info("tape replayed", map[string]any{"path": path, "exchanges": n})
		if err != nil {
			replayErr = err
			break
		}
	}
	_ = p.Close()

	st := sess.status(nil)
	if c.Bool("tui") {
		if err := r.RenderTUI(tui.ViewSummary, st); err != nil {
			return err
		}
	} else if err := r.RenderStatus(st); err != nil {
		return err
	}
	if replayErr != nil {
		return cli.Exit(replayErr.Error(), exitError)
	}
	return nil
}

// replayTape submits every exchange of the tape at path, in recorded order,
// and returns how many were submitted. A truncated tail ends the tape with a
// warning; everything before it is kept.
func replayTape(ctx context.Context, path string, p *pipeline.Pipeline, logger *log.Logger) (int, error) {
	tr, err := tape.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tr.Close() }()

	h := tr.Header()
	if h.CatalogueVersion != types.CatalogueVersion {
		logger.Warn("tape recorded with a different catalogue", map[string]any{
			"path":      path,
			"tape":      h.CatalogueVersion,
			"catalogue": types.CatalogueVersion,
		})
	}

	n := 0
	for {
		ex, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if tape.IsTruncated(err) {
			logger.Warn("tape truncated", map[string]any{"path": path, "exchanges": n})
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("%s: %w", path, err)
		}
		if err := p.SubmitWait(ctx, ex); err != nil {
			return n, err
		}
		n++
	}
}
