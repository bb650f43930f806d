package config

import "time"

// Default values.
const (
	DefaultPort            = 3000
	DefaultServerTimeout   = 30 * time.Second
	DefaultUpstreamTimeout = 15 * time.Second
	DefaultRateWindow      = time.Minute
	DefaultFeedInterval    = 5 * time.Second
)

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.cashgate",
		Network: "mainnet",
		Server: ServerConfig{
			Port:           DefaultPort,
			TimeoutSeconds: int(DefaultServerTimeout / time.Second),
			Gzip:           true,
			BodyLimit:      "25M",
		},
		Upstreams: UpstreamsConfig{
			RPC: RPCConfig{
				URL: "http://127.0.0.1:8332/",
			},
			Insight:        "https://explorer.api.bitcoin.com/bch/v1/",
			Blockbook:      "https://bch.blockbook.example/",
			CashAccounts:   "https://api.cashaccount.info/",
			SLPDB:          "https://slpdb.fountainhead.cash/",
			TimeoutSeconds: int(DefaultUpstreamTimeout / time.Second),
			RatePerSecond:  0, // unlimited
			Burst:          10,
		},
		Limits: LimitsConfig{
			WindowSeconds: int(DefaultRateWindow / time.Second),
			FreePerWindow: 60,
			ProPerWindow:  600,
			PerClient:     true,
			FreeArraySize: 20,
			ProArraySize:  100,
		},
		Cache: CacheConfig{
			CashAccountsTTLSeconds: 600,
			Capacity:               10000,
		},
		Feed: FeedConfig{
			Enabled:     false,
			PollSeconds: int(DefaultFeedInterval / time.Second),
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}
