package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SIGNALFORGE_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SIGNALFORGE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SIGNALFORGE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SIGNALFORGE_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // platform-provided alias
	setStr(&cfg.Postgres.Host, "SIGNALFORGE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SIGNALFORGE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SIGNALFORGE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SIGNALFORGE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SIGNALFORGE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SIGNALFORGE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SIGNALFORGE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SIGNALFORGE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SIGNALFORGE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SIGNALFORGE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SIGNALFORGE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SIGNALFORGE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SIGNALFORGE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SIGNALFORGE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SIGNALFORGE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SIGNALFORGE_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.Namespace, "SIGNALFORGE_REDIS_NAMESPACE")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SIGNALFORGE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SIGNALFORGE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SIGNALFORGE_S3_REGION")
	setStr(&cfg.S3.Bucket, "SIGNALFORGE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SIGNALFORGE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SIGNALFORGE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SIGNALFORGE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SIGNALFORGE_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "SIGNALFORGE_S3_PREFIX")

	// ── Analysis ──
	setStr(&cfg.Analysis.DefaultMode, "SIGNALFORGE_ANALYSIS_DEFAULT_MODE")
	setStr(&cfg.Analysis.DefaultPlatform, "SIGNALFORGE_ANALYSIS_DEFAULT_PLATFORM")
	setStr(&cfg.Analysis.CacheBackend, "SIGNALFORGE_ANALYSIS_CACHE_BACKEND")
	setInt(&cfg.Analysis.MaxEntries, "SIGNALFORGE_ANALYSIS_MAX_ENTRIES")
	setDuration(&cfg.Analysis.BasicTTL, "SIGNALFORGE_ANALYSIS_BASIC_TTL")
	setDuration(&cfg.Analysis.DeepTTL, "SIGNALFORGE_ANALYSIS_DEEP_TTL")
	setDuration(&cfg.Analysis.EnrichTimeout, "SIGNALFORGE_ANALYSIS_ENRICH_TIMEOUT")
	setDuration(&cfg.Analysis.ProviderTimeout, "SIGNALFORGE_ANALYSIS_PROVIDER_TIMEOUT")
	setFloat64(&cfg.Analysis.RatePerSecond, "SIGNALFORGE_ANALYSIS_RATE_PER_SECOND")
	setInt(&cfg.Analysis.Burst, "SIGNALFORGE_ANALYSIS_BURST")
	setInt(&cfg.Analysis.BreakerFailures, "SIGNALFORGE_ANALYSIS_BREAKER_FAILURES")

	// ── Provider ──
	setStr(&cfg.Provider.Kind, "SIGNALFORGE_PROVIDER_KIND")
	setStr(&cfg.Provider.Endpoint, "SIGNALFORGE_PROVIDER_ENDPOINT")
	setStr(&cfg.Provider.APIKey, "SIGNALFORGE_PROVIDER_API_KEY")
	setStr(&cfg.Provider.Model, "SIGNALFORGE_PROVIDER_MODEL")
	setBool(&cfg.Provider.WebSearch, "SIGNALFORGE_PROVIDER_WEB_SEARCH")

	// ── Domain sources ──
	setStr(&cfg.Weather.BaseURL, "SIGNALFORGE_WEATHER_BASE_URL")
	setStr(&cfg.Weather.APIKey, "SIGNALFORGE_WEATHER_API_KEY")
	setStr(&cfg.Social.BaseURL, "SIGNALFORGE_SOCIAL_BASE_URL")
	setStr(&cfg.Social.Token, "SIGNALFORGE_SOCIAL_TOKEN")
	setStr(&cfg.Chain.DefaultNetwork, "SIGNALFORGE_CHAIN_DEFAULT_NETWORK")
	setStringMap(&cfg.Chain.RPCURLs, "SIGNALFORGE_CHAIN_RPC_URLS")

	// ── Resolution ──
	setDuration(&cfg.Resolution.Interval, "SIGNALFORGE_RESOLUTION_INTERVAL")
	setInt(&cfg.Resolution.Parallelism, "SIGNALFORGE_RESOLUTION_PARALLELISM")
	setDuration(&cfg.Resolution.LockTTL, "SIGNALFORGE_RESOLUTION_LOCK_TTL")
	setStr(&cfg.Polymarket.GammaHost, "SIGNALFORGE_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Kalshi.APIKey, "SIGNALFORGE_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RSAPrivateKeyPath, "SIGNALFORGE_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.BaseURL, "SIGNALFORGE_KALSHI_BASE_URL")

	// ── Operator ──
	setStr(&cfg.Operator.PrivateKey, "SIGNALFORGE_OPERATOR_PRIVATE_KEY")
	setStr(&cfg.Operator.EncryptedKeyPath, "SIGNALFORGE_OPERATOR_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Operator.KeyPassword, "SIGNALFORGE_OPERATOR_KEY_PASSWORD")
	setInt64(&cfg.Operator.ChainID, "SIGNALFORGE_OPERATOR_CHAIN_ID")

	// ── Server ──
	setInt(&cfg.Server.Port, "SIGNALFORGE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SIGNALFORGE_SERVER_CORS_ORIGINS")
	setStringSlice(&cfg.Server.APIKeys, "SIGNALFORGE_SERVER_API_KEYS")
	setInt(&cfg.Server.AnalyzePerMinute, "SIGNALFORGE_SERVER_ANALYZE_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SIGNALFORGE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SIGNALFORGE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SIGNALFORGE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SIGNALFORGE_NOTIFY_EVENTS")
	setDuration(&cfg.Notify.Cooldown, "SIGNALFORGE_NOTIFY_COOLDOWN")

	// ── Top-level ──
	setStr(&cfg.Mode, "SIGNALFORGE_MODE")
	setStr(&cfg.LogLevel, "SIGNALFORGE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

// setStringMap parses "name=value,name=value" pairs.
func setStringMap(dst *map[string]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	if len(out) > 0 {
		*dst = out
	}
}
