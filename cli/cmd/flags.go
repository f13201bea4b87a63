// Package cmd provides CLI commands for the typings binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/typings/resolver"
)

// Shared flags for read-only output.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for inspect and stats.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, stats only)",
	}

	// ConfigFlag points at a typings.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to config file (default: ./typings.yaml when present)",
	}

	// LogLevelFlag sets the minimum diagnostic level on stderr.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
		Value: "warn",
	}
)

// ReadOnlyFlags returns the shared output flags. --tui is included on every
// command so unsupported commands can reject it explicitly instead of
// failing with "flag not defined".
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// ResolverFlags configure the resolver and its collaborators.
func ResolverFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		LogLevelFlag,
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "Fetch root: POSIX path or absolute URL (e.g. https://unpkg.com)",
			Value: resolver.DefaultBaseURL,
		},
		&cli.StringFlag{
			Name:  "path-prefix",
			Usage: "Prefix for reported file paths (does not affect fetching)",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Disable the result cache",
		},
		&cli.BoolFlag{
			Name:  "dedupe",
			Usage: "Share one fetch graph between concurrent resolves of the same package",
		},
		// Fetch flags
		&cli.StringFlag{
			Name:  "fetch",
			Usage: "Fetcher: http or afs",
			Value: "http",
		},
		&cli.StringFlag{
			Name:  "origin",
			Usage: "HTTP origin prepended to fetch addresses (http fetcher)",
		},
		&cli.StringFlag{
			Name:  "root",
			Usage: "Storage root URL, e.g. file:///srv/project (afs fetcher)",
		},
		&cli.DurationFlag{
			Name:  "fetch-timeout",
			Usage: "Per-request fetch timeout",
		},
		&cli.IntFlag{
			Name:  "fetch-retries",
			Usage: "Transport retries on 5xx and network errors",
		},
		// Cache flags
		&cli.StringFlag{
			Name:  "cache",
			Usage: "Cache backend: memory, lru or redis",
			Value: "memory",
		},
		&cli.StringFlag{
			Name:  "cache-url",
			Usage: "Redis URL (redis cache)",
		},
		&cli.StringFlag{
			Name:  "cache-prefix",
			Usage: "Key prefix in front of typing-cache: (redis cache)",
		},
		&cli.IntFlag{
			Name:  "cache-size",
			Usage: "Entry bound (lru cache)",
		},
	}
}

// ArchiveFlags configure the Lode archive.
func ArchiveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "archive",
			Usage: "Archive backend: fs or s3 (empty disables archiving)",
		},
		&cli.StringFlag{
			Name:  "archive-path",
			Usage: "Archive path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "archive-dataset",
			Usage: "Archive dataset ID",
		},
		&cli.StringFlag{
			Name:  "archive-region",
			Usage: "AWS region for S3 backend (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "archive-endpoint",
			Usage: "Custom S3 endpoint for S3-compatible providers",
		},
		&cli.BoolFlag{
			Name:  "archive-s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	}
}

// AdapterFlags configure resolution notifications.
func AdapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Notification adapter: webhook or redis (empty disables)",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Webhook endpoint or Redis URL",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Publish retries",
		},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Commands returns every top-level command.
func Commands(commit string) []*cli.Command {
	return []*cli.Command{
		ResolveCommand(),
		InspectCommand(),
		StatsCommand(),
		DebugCommand(),
		CacheCommand(),
		VersionCommand(commit),
	}
}
