package config

import (
	"fmt"
	"time"
)

// Config represents a typings.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Resolver ResolverConfig `yaml:"resolver"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Cache    CacheConfig    `yaml:"cache"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Adapter  AdapterConfig  `yaml:"adapter"`
}

// ResolverConfig holds resolver defaults.
type ResolverConfig struct {
	// CacheEnabled is nil when unset; the resolver then caches.
	CacheEnabled *bool  `yaml:"cache_enabled,omitempty"`
	BaseURL      string `yaml:"base_url"`
	PathPrefix   string `yaml:"path_prefix"`
	Dedupe       bool   `yaml:"dedupe"`
}

// FetchConfig selects and configures the resource fetcher.
type FetchConfig struct {
	Type     string            `yaml:"type"` // http or afs
	Origin   string            `yaml:"origin"`
	Root     string            `yaml:"root"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
	MaxBytes int64             `yaml:"max_bytes,omitempty"`
}

// CacheConfig selects the result store backend.
type CacheConfig struct {
	Backend string `yaml:"backend"` // memory, lru or redis
	URL     string `yaml:"url"`
	Prefix  string `yaml:"prefix"`
	Size    int    `yaml:"size"`
}

// ArchiveConfig holds Lode archive defaults.
type ArchiveConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"` // fs or s3
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// Enabled reports whether archiving is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Backend != "" || a.Path != ""
}

// AdapterConfig holds notification adapter defaults.
type AdapterConfig struct {
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Channel  string            `yaml:"channel,omitempty"`
	Encoding string            `yaml:"encoding,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
