package cmd

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/typings/cli/render"
)

// CacheClearResponse reports a cache clear.
type CacheClearResponse struct {
	Backend string `json:"backend"`
	Cleared int    `json:"cleared"`
}

// counter is implemented by stores that can report how many entries a
// clear removed.
type counter interface {
	ClearCount(ctx context.Context) (int, error)
}

// CacheCommand returns the cache command with subcommands.
func CacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the shared result cache",
		Subcommands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Remove every cached resolution",
				Flags:  concat(ReadOnlyFlags(), ResolverFlags()),
				Action: cacheClearAction,
			},
		},
	}
}

func cacheClearAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for cache command", exitConfigError)
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

	resp := CacheClearResponse{Backend: resolveString(c, "cache", e.cfg.Cache.Backend)}
	if cc, ok := e.store.(counter); ok {
		n, err := cc.ClearCount(c.Context)
		if err != nil {
			return cli.Exit(err.Error(), exitSinkFailure)
		}
		resp.Cleared = n
	} else {
		e.resolver.ClearCache(c.Context)
	}
	return r.Render(resp)
}
