package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/typings/adapter"
	"github.com/pithecene-io/typings/cli/reader"
	"github.com/pithecene-io/typings/cli/render"
	"github.com/pithecene-io/typings/lode"
	"github.com/pithecene-io/typings/resolver"
	"github.com/pithecene-io/typings/types"
)

// ResolveItem summarizes one resolved package.
type ResolveItem struct {
	Package       string `json:"package"`
	ResolvedFrom  string `json:"resolved_from"`
	MainEntryPath string `json:"main_entry_path"`
	Files         int    `json:"files"`
	Stub          bool   `json:"stub"`
	FromCache     bool   `json:"from_cache"`
	Archived      bool   `json:"archived"`
	Notified      bool   `json:"notified"`
}

// ResolveCommand returns the resolve command: the only command that
// writes to sinks (archive, adapter, --out).
func ResolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve the declaration closure of one or more packages",
		ArgsUsage: "<package>...",
		Flags: concat(
			ReadOnlyFlags(),
			ResolverFlags(),
			ArchiveFlags(),
			AdapterFlags(),
			[]cli.Flag{
				&cli.StringFlag{
					Name:  "emit",
					Usage: "Output shape: summary or artifacts",
					Value: "summary",
				},
				&cli.StringFlag{
					Name:  "out",
					Usage: "Write resolved files under this directory or storage URL",
				},
				&cli.IntFlag{
					Name:  "concurrency",
					Usage: "Packages resolved in parallel",
					Value: 4,
				},
				&cli.BoolFlag{
					Name:  "metrics",
					Usage: "Print resolver metrics to stderr when done",
				},
			},
		),
		Action: resolveAction,
	}
}

func resolveAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for resolve command", exitConfigError)
	}
	pkgs := c.Args().Slice()
	if len(pkgs) == 0 {
		return cli.Exit("at least one package name required", exitConfigError)
	}
	emit := c.String("emit")
	if emit != "summary" && emit != "artifacts" {
		return cli.Exit(fmt.Sprintf("invalid --emit %q (must be summary or artifacts)", emit), exitConfigError)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := buildEnv(ctx, c, true)
	if err != nil {
		return err
	}
	defer e.Close()

	results, items, sinkErrs := runResolves(ctx, e, pkgs, c.Int("concurrency"))

	if out := c.String("out"); out != "" {
		if err := writeArtifacts(ctx, afs.New(), out, results); err != nil {
			sinkErrs = append(sinkErrs, err)
		}
	}

	if emit == "artifacts" {
		err = r.Render(results)
	} else {
		err = r.Render(items)
	}
	if err != nil {
		return err
	}

	if c.Bool("metrics") {
		mr := render.NewRendererWithWriter(render.FormatJSON, true, os.Stderr)
		_ = mr.Render(reader.Metrics(e.metrics.Snapshot()))
	}

	if len(sinkErrs) > 0 {
		return cli.Exit(errors.Join(sinkErrs...).Error(), exitSinkFailure)
	}
	return nil
}

// runResolves resolves pkgs with bounded parallelism and feeds each result
// to the configured sinks. Output order follows pkgs.
func runResolves(ctx context.Context, e *env, pkgs []string, concurrency int) ([]resolver.Result, []ResolveItem, []error) {
	results := make([]resolver.Result, len(pkgs))
	items := make([]ResolveItem, len(pkgs))

	var mu sync.Mutex
	var sinkErrs []error
	fail := func(err error) {
		mu.Lock()
		sinkErrs = append(sinkErrs, err)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, pkg := range pkgs {
		g.Go(func() error {
			res := e.resolver.ResolveResult(gctx, pkg)
			resolvedAt := time.Now()
			results[i] = res
			items[i] = ResolveItem{
				Package:       pkg,
				ResolvedFrom:  res.ResolvedFrom,
				MainEntryPath: res.MainEntryPath,
				Files:         len(res.Artifacts),
				Stub:          res.Stub(),
				FromCache:     res.FromCache,
			}

			if e.archive != nil {
				if err := e.archive.WriteEntry(gctx, archiveEntry(res, resolvedAt)); err != nil {
					fail(fmt.Errorf("archive %s: %w", pkg, err))
				} else {
					items[i].Archived = true
				}
			}
			if e.adapter != nil {
				event := adapter.NewResolvedEvent(pkg, res.ResolvedFrom, res.Artifacts, resolvedAt)
				event.MainEntryPath = res.MainEntryPath
				event.FromCache = res.FromCache
				if err := e.adapter.Publish(gctx, event); err != nil {
					fail(fmt.Errorf("notify %s: %w", pkg, err))
				} else {
					items[i].Notified = true
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, items, sinkErrs
}

func archiveEntry(res resolver.Result, resolvedAt time.Time) lode.Entry {
	return lode.Entry{
		Package:      res.Package,
		ResolvedFrom: res.ResolvedFrom,
		Record: types.Record{
			Artifacts:     res.Artifacts,
			MainEntryPath: res.MainEntryPath,
			Complete:      res.ResolvedFrom != "",
		},
		ResolvedAt: resolvedAt,
	}
}

// writeArtifacts stores every artifact under dest at its logical path.
// dest is a local directory or any URL the afs registry supports.
// Nothing is written when any path would land outside dest.
func writeArtifacts(ctx context.Context, fs afs.Service, dest string, results []resolver.Result) error {
	if !strings.Contains(dest, "://") {
		abs, err := filepath.Abs(dest)
		if err != nil {
			return fmt.Errorf("output directory %q: %w", dest, err)
		}
		dest = "file://" + filepath.ToSlash(abs)
	}

	var files []types.Artifact
	seen := make(map[string]bool)
	for _, res := range results {
		for _, a := range res.Artifacts {
			rel := path.Clean(strings.TrimLeft(a.FilePath, "/"))
			if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
				return fmt.Errorf("write %s: path escapes %s", a.FilePath, dest)
			}
			if seen[rel] {
				continue
			}
			seen[rel] = true
			files = append(files, types.Artifact{FilePath: rel, Content: a.Content})
		}
	}

	for _, f := range files {
		if err := fs.Upload(ctx, url.Join(dest, f.FilePath), 0o644, strings.NewReader(f.Content)); err != nil {
			return fmt.Errorf("write %s: %w", f.FilePath, err)
		}
	}
	return nil
}
