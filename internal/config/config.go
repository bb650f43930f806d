// Package config provides configuration management for cashgate.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/cashgate/internal/address"
	"github.com/mrz1836/cashgate/internal/fileutil"
	gateerr "github.com/mrz1836/cashgate/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Home      string          `yaml:"home"`
	Network   string          `yaml:"network"`
	Server    ServerConfig    `yaml:"server"`
	Upstreams UpstreamsConfig `yaml:"upstreams"`
	Limits    LimitsConfig    `yaml:"limits"`
	Auth      AuthConfig      `yaml:"auth"`
	Cache     CacheConfig     `yaml:"cache"`
	Feed      FeedConfig      `yaml:"feed"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig defines the inbound HTTP listener.
type ServerConfig struct {
	Port           int    `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Gzip           bool   `yaml:"gzip"`
	Debug          bool   `yaml:"debug"`
	BodyLimit      string `yaml:"body_limit"`
}

// RPCConfig defines the full node JSON-RPC endpoint.
type RPCConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// UpstreamsConfig defines every external service the gateway talks to.
type UpstreamsConfig struct {
	RPC            RPCConfig `yaml:"rpc"`
	Insight        string    `yaml:"insight"`
	Blockbook      string    `yaml:"blockbook"`
	CashAccounts   string    `yaml:"cashaccounts"`
	SLPDB          string    `yaml:"slpdb"`
	TimeoutSeconds int       `yaml:"timeout_seconds"`
	RatePerSecond  float64   `yaml:"rate_per_second"`
	Burst          int       `yaml:"burst"`
}

// LimitsConfig defines rate limits and bulk ceilings.
type LimitsConfig struct {
	WindowSeconds int  `yaml:"window_seconds"`
	FreePerWindow int  `yaml:"free_per_window"`
	ProPerWindow  int  `yaml:"pro_per_window"`
	PerClient     bool `yaml:"per_client"`
	FreeArraySize int  `yaml:"free_array_size"`
	ProArraySize  int  `yaml:"pro_array_size"`
}

// AuthConfig lists the API keys that unlock the pro tier.
type AuthConfig struct {
	ProKeys []string `yaml:"pro_keys,omitempty"`
}

// CacheConfig defines lookup caching.
type CacheConfig struct {
	CashAccountsTTLSeconds int `yaml:"cashaccounts_ttl_seconds"`
	Capacity               int `yaml:"capacity"`
}

// FeedConfig defines the websocket push feed.
type FeedConfig struct {
	Enabled     bool `yaml:"enabled"`
	PollSeconds int  `yaml:"poll_seconds"`
}

// OutputConfig defines CLI output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, gateerr.Wrap(gateerr.ErrConfigInvalid, "parse %s: %v", path, err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default cashgate home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cashgate"
	}
	return filepath.Join(home, ".cashgate")
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if _, ok := address.ParseNetwork(c.Network); !ok {
		return gateerr.WithSuggestion(
			gateerr.WithDetails(gateerr.ErrConfigInvalid, map[string]string{"network": c.Network}),
			"set NETWORK to mainnet, testnet or regtest",
		)
	}

	if strings.TrimSpace(c.Upstreams.RPC.URL) == "" {
		return gateerr.WithSuggestion(
			gateerr.WithDetails(gateerr.ErrConfigInvalid, map[string]string{"field": "upstreams.rpc.url"}),
			"set RPC_BASEURL to the full node JSON-RPC endpoint",
		)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return gateerr.WithDetails(gateerr.ErrConfigInvalid, map[string]string{"field": "server.port"})
	}

	return nil
}

// GetNetwork returns the parsed network, empty when unset or unknown.
func (c *Config) GetNetwork() address.Network {
	n, _ := address.ParseNetwork(c.Network)
	return n
}

// GetHome returns the cashgate home directory path.
func (c *Config) GetHome() string {
	return c.Home
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// ServerTimeout returns the inbound read/write timeout.
func (c *Config) ServerTimeout() time.Duration {
	return seconds(c.Server.TimeoutSeconds, DefaultServerTimeout)
}

// UpstreamTimeout returns the per-call upstream timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	return seconds(c.Upstreams.TimeoutSeconds, DefaultUpstreamTimeout)
}

// RateWindow returns the rate-limit window.
func (c *Config) RateWindow() time.Duration {
	return seconds(c.Limits.WindowSeconds, DefaultRateWindow)
}

// CashAccountsTTL returns the lookup cache TTL. Zero disables the cache.
func (c *Config) CashAccountsTTL() time.Duration {
	if c.Cache.CashAccountsTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Cache.CashAccountsTTLSeconds) * time.Second
}

// FeedInterval returns the push feed poll interval.
func (c *Config) FeedInterval() time.Duration {
	return seconds(c.Feed.PollSeconds, DefaultFeedInterval)
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
