package shipper

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultWorkers      = 4
	DefaultQueueSize    = 1000
	DefaultAPIKeyHeader = "X-API-Key"

	// IngestPath is appended to the collector base URL.
	IngestPath = "/api/v1/logs"
)

// Config controls where and how records are delivered.
type Config struct {
	BaseURL      string        `toml:"base_url"`
	APIKey       string        `toml:"api_key"`
	APIKeyHeader string        `toml:"api_key_header"`
	TenantID     string        `toml:"tenant_id"` // diagnostics only, the collector derives the tenant from the key
	Enabled      bool          `toml:"enabled"`
	Timeout      time.Duration `toml:"timeout"`
	Workers      int           `toml:"workers"`
	QueueSize    int           `toml:"queue_size"`
	Compress     bool          `toml:"compress"`
}

type fileConfig struct {
	CentralLogger Config `toml:"central_logger"`
}

// DefaultConfig returns a disabled configuration with default limits.
func DefaultConfig() Config {
	return Config{
		APIKeyHeader: DefaultAPIKeyHeader,
		Timeout:      DefaultTimeout,
		Workers:      DefaultWorkers,
		QueueSize:    DefaultQueueSize,
	}
}

// LoadConfig reads the [central_logger] table of the TOML file at path, then
// applies CENTRAL_LOGGER_* environment overrides. An empty path or a missing
// file yields the defaults.
func LoadConfig(path string) (Config, error) {
	fc := fileConfig{CentralLogger: DefaultConfig()}

	if path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	cfg := fc.CentralLogger
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("CENTRAL_LOGGER_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := os.LookupEnv("CENTRAL_LOGGER_API_KEY"); ok {
		c.APIKey = v
	}
	if v, ok := os.LookupEnv("CENTRAL_LOGGER_TENANT_ID"); ok {
		c.TenantID = v
	}
	if v, ok := os.LookupEnv("CENTRAL_LOGGER_ENABLED"); ok {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid CENTRAL_LOGGER_ENABLED %q: %w", v, err)
		}
		c.Enabled = enabled
	}
	if v, ok := os.LookupEnv("CENTRAL_LOGGER_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid CENTRAL_LOGGER_TIMEOUT %q: %w", v, err)
		}
		c.Timeout = d
	}
	return nil
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.APIKeyHeader == "" {
		c.APIKeyHeader = DefaultAPIKeyHeader
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
}

// Endpoint is the full ingest URL.
func (c Config) Endpoint() string {
	return c.BaseURL + IngestPath
}
