package config

import (
	"fmt"
	"time"
)

// Config represents a lighthouse.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Collection     string        `yaml:"collection"`
	Gateway        string        `yaml:"gateway"`
	Wallet         string        `yaml:"wallet"`
	WalletIdentity string        `yaml:"wallet_identity"`
	Assets         string        `yaml:"assets"`
	CacheFile      string        `yaml:"cache_file"`
	LogFile        string        `yaml:"log_file"`
	ConfigFile     string        `yaml:"config_file"`
	Retry          RetryConfig   `yaml:"retry"`
	Report         ReportConfig  `yaml:"report"`
	Adapter        AdapterConfig `yaml:"adapter"`
}

// RetryConfig overrides the rate-limit retry policy.
type RetryConfig struct {
	MaxRetries *int     `yaml:"max_retries,omitempty"`
	BaseDelay  Duration `yaml:"base_delay,omitempty"`
}

// ReportConfig selects where run reports are archived.
// An empty backend disables archiving.
type ReportConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type      string            `yaml:"type"`
	URL       string            `yaml:"url"`
	Channel   string            `yaml:"channel,omitempty"`
	KeyPrefix string            `yaml:"key_prefix,omitempty"`
	Encoding  string            `yaml:"encoding,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	Timeout   Duration          `yaml:"timeout,omitempty"`
	Retries   *int              `yaml:"retries,omitempty"`
}

// Validate checks enumerated fields. Paths and URLs are checked where they are used.
func (c *Config) Validate() error {
	if c.Retry.MaxRetries != nil && *c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", *c.Retry.MaxRetries)
	}
	if c.Retry.BaseDelay.Duration < 0 {
		return fmt.Errorf("retry.base_delay must not be negative")
	}
	switch c.Report.Backend {
	case "", "fs", "s3":
	default:
		return fmt.Errorf("report.backend must be fs or s3, got %q", c.Report.Backend)
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		return fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type)
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		return fmt.Errorf("adapter.url is required for %s adapter", c.Adapter.Type)
	}
	return nil
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
