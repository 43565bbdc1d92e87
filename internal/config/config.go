// Package config defines the top-level configuration for signalforge and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SIGNALFORGE_* environment variables.
type Config struct {
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	Provider   ProviderConfig   `toml:"provider"`
	Weather    WeatherConfig    `toml:"weather"`
	Social     SocialConfig     `toml:"social"`
	Chain      ChainConfig      `toml:"chain"`
	Mobility   MobilityConfig   `toml:"mobility"`
	Resolution ResolutionConfig `toml:"resolution"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Operator   OperatorConfig   `toml:"operator"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters. When disabled,
// signals and the audit log are kept in memory.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis backs the shared
// analysis cache, the sweep lock, the event bus and API rate limiting.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// Namespace prefixes every key and channel.
	Namespace string `toml:"namespace"`
}

// S3Config holds S3-compatible object storage parameters for the snapshot
// archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// Prefix is prepended to every object key.
	Prefix string `toml:"prefix"`
}

// AnalysisConfig tunes the pipelines, the analysis cache and the executor.
type AnalysisConfig struct {
	DefaultMode     string   `toml:"default_mode"`
	DefaultPlatform string   `toml:"default_platform"`
	CacheBackend    string   `toml:"cache_backend"`
	MaxEntries      int      `toml:"max_entries"`
	BasicTTL        duration `toml:"basic_ttl"`
	DeepTTL         duration `toml:"deep_ttl"`
	NearEventTTL    duration `toml:"near_event_ttl"`
	NearEventWindow duration `toml:"near_event_window"`
	EnrichTimeout   duration `toml:"enrich_timeout"`
	ProviderTimeout duration `toml:"provider_timeout"`
	RatePerSecond   float64  `toml:"rate_per_second"`
	Burst           int      `toml:"burst"`
	BreakerFailures int      `toml:"breaker_failures"`
	BreakerCooldown duration `toml:"breaker_cooldown"`
}

// ProviderConfig selects the reasoning provider. "direct" calls an LLM
// messages API; "delegated" posts to a relay endpoint.
type ProviderConfig struct {
	Kind       string `toml:"kind"`
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	APIVersion string `toml:"api_version"`
	WebSearch  bool   `toml:"web_search"`
}

// WeatherConfig configures the weather data API.
type WeatherConfig struct {
	BaseURL       string  `toml:"base_url"`
	APIKey        string  `toml:"api_key"`
	RatePerSecond float64 `toml:"rate_per_second"`
}

// SocialConfig configures the social search API.
type SocialConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
}

// ChainConfig maps network names to JSON-RPC endpoints.
type ChainConfig struct {
	DefaultNetwork string            `toml:"default_network"`
	RPCURLs        map[string]string `toml:"rpc_urls"`
}

// MobilityConfig tunes the crowd simulator.
type MobilityConfig struct {
	Capacity map[string]int `toml:"capacity"`
}

// ResolutionConfig tunes the resolution sweep.
type ResolutionConfig struct {
	Interval    duration `toml:"interval"`
	Parallelism int      `toml:"parallelism"`
	LockTTL     duration `toml:"lock_ttl"`
}

// PolymarketConfig holds the Gamma API endpoint.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
}

// KalshiConfig holds Kalshi API credentials. Settled markets are public, so
// the key is optional.
type KalshiConfig struct {
	APIKey            string `toml:"api_key"`
	RSAPrivateKeyPath string `toml:"rsa_private_key_path"`
	BaseURL           string `toml:"base_url"`
}

// OperatorConfig holds the optional key used to attest publish payloads.
type OperatorConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	ChainID          int64  `toml:"chain_id"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port int `toml:"port"`
	// CORSOrigins lists dashboard origins; "*" allows any, empty allows none.
	CORSOrigins []string `toml:"cors_origins"`
	// APIKeys guard the mutating endpoints. Empty disables auth.
	APIKeys []string `toml:"api_keys"`
	// AnalyzePerMinute limits analyze calls per client. Zero disables it.
	AnalyzePerMinute int `toml:"analyze_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	// Cooldown suppresses a repeated alert with the same title.
	Cooldown duration `toml:"cooldown"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "signalforge",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			Namespace:  "signalforge",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "signalforge-snapshots",
			ForcePathStyle: true,
			Prefix:         "signalforge",
		},
		Analysis: AnalysisConfig{
			DefaultMode:     "basic",
			DefaultPlatform: "polymarket",
			CacheBackend:    "memory",
			MaxEntries:      1000,
			BasicTTL:        duration{30 * time.Minute},
			DeepTTL:         duration{6 * time.Hour},
			NearEventTTL:    duration{time.Hour},
			NearEventWindow: duration{24 * time.Hour},
			EnrichTimeout:   duration{10 * time.Second},
			ProviderTimeout: duration{60 * time.Second},
			RatePerSecond:   2,
			Burst:           4,
			BreakerFailures: 5,
			BreakerCooldown: duration{30 * time.Second},
		},
		Provider: ProviderConfig{
			Kind: "direct",
		},
		Weather: WeatherConfig{
			BaseURL:       "https://api.weatherapi.com",
			RatePerSecond: 5,
		},
		Chain: ChainConfig{
			DefaultNetwork: "ethereum",
			RPCURLs:        map[string]string{},
		},
		Mobility: MobilityConfig{
			Capacity: map[string]int{},
		},
		Resolution: ResolutionConfig{
			Interval:    duration{5 * time.Minute},
			Parallelism: 4,
			LockTTL:     duration{2 * time.Minute},
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		Operator: OperatorConfig{
			ChainID: 137,
		},
		Server: ServerConfig{
			Port:             8000,
			CORSOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
			AnalyzePerMinute: 30,
		},
		Notify: NotifyConfig{
			Events:   []string{"signal_resolved", "sweep_error"},
			Cooldown: duration{15 * time.Minute},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"sweep":   true,
	"analyze": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, sweep, analyze, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Analysis
	switch c.Analysis.DefaultMode {
	case "basic", "deep":
	default:
		errs = append(errs, fmt.Sprintf("analysis: default_mode must be basic or deep, got %q", c.Analysis.DefaultMode))
	}
	switch c.Analysis.CacheBackend {
	case "memory":
		if c.Analysis.MaxEntries < 1 {
			errs = append(errs, "analysis: max_entries must be >= 1")
		}
	case "redis":
		if !c.Redis.Enabled {
			errs = append(errs, "analysis: cache_backend redis requires redis.enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("analysis: cache_backend must be memory or redis, got %q", c.Analysis.CacheBackend))
	}
	if c.Analysis.BasicTTL.Duration <= 0 || c.Analysis.DeepTTL.Duration <= 0 || c.Analysis.NearEventTTL.Duration <= 0 {
		errs = append(errs, "analysis: basic_ttl, deep_ttl and near_event_ttl must be > 0")
	}
	if c.Analysis.EnrichTimeout.Duration <= 0 || c.Analysis.ProviderTimeout.Duration <= 0 {
		errs = append(errs, "analysis: enrich_timeout and provider_timeout must be > 0")
	}
	if c.Analysis.RatePerSecond < 0 || c.Analysis.Burst < 0 || c.Analysis.BreakerFailures < 0 {
		errs = append(errs, "analysis: rate_per_second, burst and breaker_failures must be >= 0")
	}

	// Provider, only needed by modes that analyze.
	if c.Mode != "sweep" {
		switch c.Provider.Kind {
		case "direct":
			if c.Provider.APIKey == "" || c.Provider.Model == "" {
				errs = append(errs, "provider: api_key and model are required for kind direct")
			}
		case "delegated":
			if c.Provider.Endpoint == "" {
				errs = append(errs, "provider: endpoint is required for kind delegated")
			}
		default:
			errs = append(errs, fmt.Sprintf("provider: kind must be direct or delegated, got %q", c.Provider.Kind))
		}
	}

	// Resolution
	if c.Resolution.Interval.Duration <= 0 {
		errs = append(errs, "resolution: interval must be > 0")
	}
	if c.Resolution.Parallelism < 1 {
		errs = append(errs, "resolution: parallelism must be >= 1")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Kalshi.RSAPrivateKeyPath != "" && c.Kalshi.APIKey == "" {
		errs = append(errs, "kalshi: api_key is required when rsa_private_key_path is set")
	}

	// Operator
	if c.Operator.EncryptedKeyPath != "" && c.Operator.KeyPassword == "" {
		errs = append(errs, "operator: key_password is required when encrypted_key_path is set")
	}
	if (c.Operator.PrivateKey != "" || c.Operator.EncryptedKeyPath != "") && c.Operator.ChainID <= 0 {
		errs = append(errs, "operator: chain_id must be positive")
	}

	// Server
	if c.Mode == "server" || c.Mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}
	if c.Notify.Cooldown.Duration < 0 {
		errs = append(errs, "notify: cooldown must be >= 0")
	}
	if c.Server.AnalyzePerMinute < 0 {
		errs = append(errs, "server: analyze_per_minute must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
