package cmd

import (
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/typings/cli/reader"
	"github.com/pithecene-io/typings/cli/render"
	"github.com/pithecene-io/typings/cli/tui"
)

// StatsCommand returns the stats command.
// Stats aggregates one resolution, or with --metrics reports resolver
// counters after resolving the given packages.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show aggregate statistics for a package resolution",
		ArgsUsage: "<package>...",
		Flags: concat(readFlags(), []cli.Flag{
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Resolve every package and report resolver metrics",
			},
		}),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("package name required", exitConfigError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	if c.Bool("metrics") {
		if c.Bool("from-archive") {
			return cli.Exit("--metrics cannot be combined with --from-archive", exitConfigError)
		}
		view, err := metricsView(c)
		if err != nil {
			return err
		}
		if c.Bool("tui") {
			return r.RenderTUI(tui.ViewStatsMetrics, view)
		}
		return r.Render(view)
	}

	view, err := readView(c, c.Args().First(), false)
	if err != nil {
		return err
	}
	stats := reader.Stats(view)
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsResolution, stats)
	}
	return r.Render(stats)
}

func metricsView(c *cli.Context) (*reader.MetricsView, error) {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := buildEnv(ctx, c, false)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	for _, pkg := range c.Args().Slice() {
		e.resolver.ResolveResult(ctx, pkg)
	}
	return reader.Metrics(e.metrics.Snapshot()), nil
}
