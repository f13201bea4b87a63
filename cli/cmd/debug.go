package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/typings/cli/reader"
	"github.com/pithecene-io/typings/cli/render"
)

// DebugCommand returns the debug command with subcommands.
// Debug commands are read-only diagnostic tools.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools (candidates)",
		Subcommands: []*cli.Command{
			debugCandidatesCommand(),
		},
	}
}

func debugCandidatesCommand() *cli.Command {
	return &cli.Command{
		Name:      "candidates",
		Usage:     "List the declaration paths derived from a package manifest",
		ArgsUsage: "<package>",
		Flags:     concat(ReadOnlyFlags(), ResolverFlags()),
		Action:    debugCandidatesAction,
	}
}

func debugCandidatesAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("package name required", exitConfigError)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug command", exitConfigError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	e, err := buildEnv(c.Context, c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	items, err := reader.NewLiveReader(e.resolver).Candidates(c.Context, c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	return r.Render(items)
}
