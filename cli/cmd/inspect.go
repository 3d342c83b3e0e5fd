package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/vademecum/artifact"
	"github.com/pithecene-io/vademecum/build"
	"github.com/pithecene-io/vademecum/cli/render"
	"github.com/pithecene-io/vademecum/state"
)

// InspectCommand returns the inspect command with subcommands.
// Inspect is read-only: it never touches upstream or mutates artifacts.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show the manifest or run state of an output directory",
		Subcommands: []*cli.Command{
			inspectManifestCommand(),
			inspectStateCommand(),
		},
	}
}

func inspectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "out-dir",
			Usage: "Output directory",
			Value: defaultOutDir,
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format: json or text (default: by TTY)",
		},
	}
}

func inspectManifestCommand() *cli.Command {
	return &cli.Command{
		Name:   "manifest",
		Usage:  "Show the last run's manifest",
		Flags:  inspectFlags(),
		Action: inspectManifestAction,
	}
}

func inspectManifestAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}

	path := filepath.Join(c.String("out-dir"), build.ManifestName)
	m, err := artifact.ReadManifest(path)
	if err != nil {
		return cli.Exit(err.Error(), exitRunFailure)
	}
	return r.Manifest(m)
}

func inspectStateCommand() *cli.Command {
	return &cli.Command{
		Name:   "state",
		Usage:  "Show the persisted run state",
		Flags: append(inspectFlags(), &cli.StringFlag{
			Name:  "state-path",
			Usage: "State file path (default <out-dir>/state.json)",
		}),
		Action: inspectStateAction,
	}
}

func inspectStateAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitBadConfig)
	}

	path := c.String("state-path")
	if path == "" {
		path = filepath.Join(c.String("out-dir"), "state.json")
	}
	st, err := state.Load(path)
	if err != nil {
		return cli.Exit(err.Error(), exitRunFailure)
	}
	if st == nil {
		return cli.Exit(fmt.Sprintf("no state file at %s", path), exitRunFailure)
	}
	return r.State(*st)
}
