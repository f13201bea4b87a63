package cmd

import (
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/typings/cli/reader"
	"github.com/pithecene-io/typings/cli/render"
	"github.com/pithecene-io/typings/cli/tui"
)

// readFlags are shared by inspect and stats.
func readFlags() []cli.Flag {
	return concat(
		ReadOnlyFlags(),
		ResolverFlags(),
		ArchiveFlags(),
		[]cli.Flag{
			&cli.BoolFlag{
				Name:  "from-archive",
				Usage: "Read the newest archived resolution instead of resolving live",
			},
		},
	)
}

// InspectCommand returns the inspect command.
// Inspect shows the resolved file list of one package.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect the declaration closure of a package",
		ArgsUsage: "<package>",
		Flags: concat(readFlags(), []cli.Flag{
			&cli.BoolFlag{
				Name:  "content",
				Usage: "Include file contents",
			},
		}),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("package name required", exitConfigError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	view, err := readView(c, c.Args().First(), c.Bool("content"))
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspectResolution, view)
	}
	return r.Render(view)
}

// readView loads the inspect view of pkg from the archive or a live
// resolve, depending on --from-archive.
func readView(c *cli.Context, pkg string, withContent bool) (*reader.InspectResolutionResponse, error) {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rd reader.Reader
	if c.Bool("from-archive") {
		cfg, err := loadConfig(c)
		if err != nil {
			return nil, err
		}
		ds, err := openArchiveDataset(ctx, c, cfg)
		if err != nil {
			return nil, cli.Exit(err.Error(), exitConfigError)
		}
		rd = reader.NewArchiveReader(ds)
	} else {
		e, err := buildEnv(ctx, c, false)
		if err != nil {
			return nil, err
		}
		defer e.Close()
		rd = reader.NewLiveReader(e.resolver)
	}

	view, err := rd.Inspect(ctx, pkg, withContent)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfigError)
	}
	return view, nil
}
