package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/logbook/proxy"
	"github.com/justapithecus/logbook/types"
)

// Config represents a logbook.yaml configuration file.
// All values are optional and act as defaults for logbook serve flags.
// CLI flags always override config values.
type Config struct {
	Listen string `yaml:"listen"`
	// LoopbackOnly is a pointer so an explicit false can be told apart from
	// an absent key (the default is true).
	LoopbackOnly *bool          `yaml:"loopback_only"`
	APIHosts     []string       `yaml:"api_hosts"`
	Upstream     UpstreamConfig `yaml:"upstream"`
	Timeouts     TimeoutConfig  `yaml:"timeouts"`
	Pipeline     PipelineConfig `yaml:"pipeline"`
	World        WorldConfig    `yaml:"world"`
	Log          LogConfig      `yaml:"log"`
	Export       ExportConfig   `yaml:"export"`
	Notify       NotifyConfig   `yaml:"notify"`
	Archive      ArchiveConfig  `yaml:"archive"`
	Tape         TapeConfig     `yaml:"tape"`
	Store        StoreConfig    `yaml:"store"`
}

// UpstreamConfig lists secondary proxies for outbound connections.
type UpstreamConfig struct {
	Strategy  string                `yaml:"strategy"`
	StickyTTL Duration              `yaml:"sticky_ttl"`
	Endpoints []types.ProxyEndpoint `yaml:"endpoints"`
}

// TimeoutConfig holds outbound connection timeouts.
type TimeoutConfig struct {
	Dial           Duration `yaml:"dial"`
	ResponseHeader Duration `yaml:"response_header"`
	Idle           Duration `yaml:"idle"`
}

// PipelineConfig sizes the capture pipeline.
type PipelineConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// WorldConfig sizes the world state windows.
type WorldConfig struct {
	RecentEvents      int `yaml:"recent_events"`
	ResourceRetention int `yaml:"resource_retention"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ExportConfig holds the statistics export webhook.
type ExportConfig struct {
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	Timeout   Duration          `yaml:"timeout,omitempty"`
	Retries   *int              `yaml:"retries,omitempty"`
	DataTypes []string          `yaml:"data_types,omitempty"`
	QueueSize int               `yaml:"queue_size,omitempty"`
}

// NotifyConfig holds change notification outputs.
type NotifyConfig struct {
	Redis     RedisConfig     `yaml:"redis"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// RedisConfig holds the Redis pub/sub output.
type RedisConfig struct {
	URL          string   `yaml:"url"`
	Channel      string   `yaml:"channel,omitempty"`
	PerAggregate bool     `yaml:"per_aggregate,omitempty"`
	Timeout      Duration `yaml:"timeout,omitempty"`
	Retries      *int     `yaml:"retries,omitempty"`
}

// WebSocketConfig holds the WebSocket hub listener.
type WebSocketConfig struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// ArchiveConfig holds the exchange archive.
type ArchiveConfig struct {
	// Backend is fs or s3. Empty disables the archive.
	Backend     string `yaml:"backend"`
	Dataset     string `yaml:"dataset"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	BatchSize   int    `yaml:"batch_size"`
}

// TapeConfig holds the capture tape output.
type TapeConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig holds the resource history database.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
	// SeedWindow is how much history is loaded into the world at start.
	SeedWindow Duration `yaml:"seed_window"`
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

// Validate checks values that can be checked without flags.
func (c *Config) Validate() error {
	var errs []error
	if _, err := proxy.ParseStrategy(c.Upstream.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("upstream.strategy: %w", err))
	}
	for i := range c.Upstream.Endpoints {
		if err := c.Upstream.Endpoints[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("upstream.endpoints[%d]: %w", i, err))
		}
	}
	switch c.Archive.Backend {
	case "", "fs", "s3":
	default:
		errs = append(errs, fmt.Errorf("archive.backend: must be fs or s3, got %q", c.Archive.Backend))
	}
	if c.Archive.Backend != "" && c.Archive.Path == "" {
		errs = append(errs, errors.New("archive.path is required when archive.backend is set"))
	}
	for _, name := range c.Export.DataTypes {
		if _, ok := types.ParseDataType(name); !ok {
			errs = append(errs, fmt.Errorf("export.data_types: unknown data type %q", name))
		}
	}
	if c.Pipeline.Workers < 0 || c.Pipeline.QueueSize < 0 {
		errs = append(errs, errors.New("pipeline sizes must be >= 0"))
	}
	return errors.Join(errs...)
}
