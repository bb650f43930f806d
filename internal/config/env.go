package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvPort            = "PORT"
	EnvNetwork         = "NETWORK"
	EnvRPCURL          = "RPC_BASEURL"
	EnvRPCUsername     = "RPC_USERNAME"
	EnvRPCPassword     = "RPC_PASSWORD" // #nosec G101 -- false positive, this is a const name not a credential
	EnvInsightURL      = "BITCOINCOM_BASEURL"
	EnvBlockbookURL    = "BLOCKBOOK_URL"
	EnvCashAccountsURL = "CASHACCOUNT_LOOKUPSERVER"
	EnvSLPDBURL        = "SLPDB_URL"
	EnvProKeys         = "PRO_API_KEYS"
	EnvHome            = "CASHGATE_HOME"
	EnvLogLevel        = "CASHGATE_LOG_LEVEL"
	EnvLogFile         = "CASHGATE_LOG_FILE"
	EnvFreeRPM         = "CASHGATE_FREE_RPM"
	EnvProRPM          = "CASHGATE_PRO_RPM"
	EnvPerClient       = "CASHGATE_PER_CLIENT_LIMITS"
	EnvFeed            = "CASHGATE_FEED"
	EnvNoColor         = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Network = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvRPCURL); v != "" {
		cfg.Upstreams.RPC.URL = BaseURL(v)
	}

	if v := os.Getenv(EnvRPCUsername); v != "" {
		cfg.Upstreams.RPC.Username = v
	}

	if v := os.Getenv(EnvRPCPassword); v != "" {
		cfg.Upstreams.RPC.Password = v
	}

	if v := os.Getenv(EnvInsightURL); v != "" {
		cfg.Upstreams.Insight = BaseURL(v)
	}

	if v := os.Getenv(EnvBlockbookURL); v != "" {
		cfg.Upstreams.Blockbook = BaseURL(v)
	}

	if v := os.Getenv(EnvCashAccountsURL); v != "" {
		cfg.Upstreams.CashAccounts = BaseURL(v)
	}

	if v := os.Getenv(EnvSLPDBURL); v != "" {
		cfg.Upstreams.SLPDB = BaseURL(v)
	}

	if v := os.Getenv(EnvProKeys); v != "" {
		cfg.Auth.ProKeys = splitList(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}

	if v := os.Getenv(EnvFreeRPM); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Limits.FreePerWindow = n
		}
	}

	if v := os.Getenv(EnvProRPM); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Limits.ProPerWindow = n
		}
	}

	if v := os.Getenv(EnvPerClient); v != "" {
		cfg.Limits.PerClient = parseBool(v)
	}

	if v := os.Getenv(EnvFeed); v != "" {
		cfg.Feed.Enabled = parseBool(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// splitList splits a comma separated value, dropping empty entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided URLs that may contain copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}

// BaseURL sanitizes url and guarantees a trailing slash, so paths can be
// appended directly.
func BaseURL(url string) string {
	url = SanitizeURL(url)
	if url == "" || strings.HasSuffix(url, "/") {
		return url
	}
	return url + "/"
}
