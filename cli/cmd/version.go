package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/logbook/cli/render"
	"github.com/justapithecus/logbook/tape"
	"github.com/justapithecus/logbook/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version          string `json:"version"`
	Commit           string `json:"commit"`
	CatalogueVersion string `json:"catalogue_version"`
	TapeFormat       int    `json:"tape_format"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		// TUI not supported for version command
		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", exitError)
		}

		return r.Render(VersionResponse{
			Version:          types.Version,
			Commit:           commit,
			CatalogueVersion: types.CatalogueVersion,
			TapeFormat:       tape.FormatVersion,
		})
	}
}
