package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alanyoungcy/signalforge/internal/analysis"
	s3blob "github.com/alanyoungcy/signalforge/internal/blob/s3"
	"github.com/alanyoungcy/signalforge/internal/cache/redis"
	"github.com/alanyoungcy/signalforge/internal/config"
	"github.com/alanyoungcy/signalforge/internal/crypto"
	"github.com/alanyoungcy/signalforge/internal/domain"
	"github.com/alanyoungcy/signalforge/internal/notify"
	"github.com/alanyoungcy/signalforge/internal/platform/evm"
	"github.com/alanyoungcy/signalforge/internal/platform/kalshi"
	"github.com/alanyoungcy/signalforge/internal/platform/llm"
	"github.com/alanyoungcy/signalforge/internal/platform/mobility"
	"github.com/alanyoungcy/signalforge/internal/platform/polymarket"
	"github.com/alanyoungcy/signalforge/internal/platform/social"
	"github.com/alanyoungcy/signalforge/internal/platform/weather"
	"github.com/alanyoungcy/signalforge/internal/resolution"
	"github.com/alanyoungcy/signalforge/internal/server/handler"
	"github.com/alanyoungcy/signalforge/internal/service"
	"github.com/alanyoungcy/signalforge/internal/store/memory"
	"github.com/alanyoungcy/signalforge/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	SignalStore domain.SignalStore
	AuditStore  domain.AuditStore

	// Caches and coordination
	AnalysisCache domain.AnalysisCache
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archive    *s3blob.SnapshotArchive

	// Analysis and resolution
	Registry *analysis.Registry
	Signals  *service.SignalService
	Engine   *resolution.Engine

	// Notifications
	Notifier *notify.Notifier

	// Readiness checks for the external backends, keyed by name.
	Checks map[string]handler.Check
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources. Disabled backends fall back to
// in-process implementations.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Checks: make(map[string]handler.Check)}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			applied, err := pgClient.RunMigrations(ctx)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
			if len(applied) > 0 {
				logger.InfoContext(ctx, "postgres migrations applied",
					slog.Any("migrations", applied),
				)
			}
		}
		deps.Checks["postgres"] = pgClient.Ping

		pool := pgClient.Pool()
		deps.SignalStore = postgres.NewSignalStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	} else {
		logger.WarnContext(ctx, "postgres disabled, signals are kept in memory")
		deps.SignalStore = memory.NewSignalStore()
		deps.AuditStore = memory.NewAuditStore()
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Namespace:  cfg.Redis.Namespace,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Checks["redis"] = redisClient.Ping

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		if cfg.Analysis.CacheBackend == "redis" {
			deps.AnalysisCache = redis.NewAnalysisCache(redisClient)
		}
	} else {
		deps.RateLimiter = memory.NewRateLimiter()
		deps.LockManager = memory.NewLockManager()
		deps.SignalBus = memory.NewBus()
	}
	if deps.AnalysisCache == nil {
		deps.AnalysisCache = analysis.NewMemoryCache(cfg.Analysis.MaxEntries)
	}

	// --- S3 snapshot archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3Client
		deps.BlobReader = s3Client
		deps.Checks["s3"] = s3Client.Ping
	} else {
		blobs := memory.NewBlobStore()
		deps.BlobWriter = blobs
		deps.BlobReader = blobs
	}
	deps.Archive = s3blob.NewSnapshotArchive(deps.BlobWriter, deps.BlobReader)

	// --- Analysis pipelines ---
	executor := analysis.NewExecutor(newProvider(cfg.Provider), deps.AnalysisCache, analysis.ExecutorConfig{
		Timeout:         cfg.Analysis.ProviderTimeout.Duration,
		RatePerSecond:   cfg.Analysis.RatePerSecond,
		Burst:           cfg.Analysis.Burst,
		BreakerFailures: uint32(cfg.Analysis.BreakerFailures),
		BreakerCooldown: cfg.Analysis.BreakerCooldown.Duration,
	}, logger)
	deps.Registry = newRegistry(cfg, executor, logger)

	// --- Market platforms ---
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	kalshiClient, err := newKalshiClient(cfg.Kalshi)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %w", err)
	}

	// --- Operator attestation ---
	var attester service.Attester
	key, err := crypto.LoadKey(crypto.KeySource{
		Raw:      cfg.Operator.PrivateKey,
		Path:     cfg.Operator.EncryptedKeyPath,
		Password: cfg.Operator.KeyPassword,
	})
	switch {
	case errors.Is(err, crypto.ErrNoKey):
		logger.InfoContext(ctx, "no operator key, publish payloads are unattested")
	case err != nil:
		cleanup()
		return nil, nil, fmt.Errorf("wire: operator key: %w", err)
	default:
		a, err := crypto.NewAttester(key, cfg.Operator.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: operator key: %w", err)
		}
		logger.InfoContext(ctx, "operator attestation enabled",
			slog.String("attester", a.Address().Hex()),
			slog.Int64("chain_id", cfg.Operator.ChainID),
		)
		attester = a
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger).
		WithCooldown(cfg.Notify.Cooldown.Duration)
	if !deps.Notifier.Enabled() {
		logger.DebugContext(ctx, "no notification senders configured")
	}

	// --- Services ---
	deps.Signals = service.NewSignalService(
		deps.Registry,
		deps.SignalStore,
		deps.AuditStore,
		deps.Archive,
		deps.SignalBus,
		attester,
		logger,
	).WithMarkets(cfg.Analysis.DefaultPlatform, gamma, kalshiClient)

	deps.Engine = resolution.NewEngine(
		deps.SignalStore,
		[]domain.MarketResolver{gamma, kalshiClient},
		resolution.Config{
			Parallelism: cfg.Resolution.Parallelism,
			Interval:    cfg.Resolution.Interval.Duration,
			LockTTL:     cfg.Resolution.LockTTL.Duration,
		},
		logger,
		resolution.WithBus(deps.SignalBus),
		resolution.WithLock(deps.LockManager),
		resolution.WithNotifier(deps.Notifier),
	)

	return deps, cleanup, nil
}

// newProvider builds the configured reasoning provider.
func newProvider(cfg config.ProviderConfig) analysis.Provider {
	if cfg.Kind == "delegated" {
		return llm.NewRelayProvider(cfg.Endpoint, cfg.APIKey)
	}
	return llm.NewMessagesProvider(llm.MessagesConfig{
		Endpoint:   cfg.Endpoint,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		APIVersion: cfg.APIVersion,
		WebSearch:  cfg.WebSearch,
	})
}

// newRegistry registers a pipeline for every data domain.
func newRegistry(cfg *config.Config, executor *analysis.Executor, logger *slog.Logger) *analysis.Registry {
	pcfg := analysis.PipelineConfig{
		DefaultMode:     domain.AnalysisMode(cfg.Analysis.DefaultMode),
		DefaultPlatform: cfg.Analysis.DefaultPlatform,
		EnrichTimeout:   cfg.Analysis.EnrichTimeout.Duration,
		TTL: analysis.TTLPolicy{
			Basic:      cfg.Analysis.BasicTTL.Duration,
			Deep:       cfg.Analysis.DeepTTL.Duration,
			NearEvent:  cfg.Analysis.NearEventTTL.Duration,
			NearWindow: cfg.Analysis.NearEventWindow.Duration,
		},
	}

	sim := mobility.NewSimulator()
	for venue, capacity := range cfg.Mobility.Capacity {
		sim.Capacity[strings.ToLower(venue)] = capacity
	}

	formatter := analysis.NewFormatter()
	reg := analysis.NewRegistry()
	for _, d := range []analysis.Domain{
		analysis.NewWeatherDomain(weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.RatePerSecond)),
		analysis.NewMobilityDomain(sim),
		analysis.NewSentimentDomain(social.NewClient(cfg.Social.BaseURL, cfg.Social.Token)),
		analysis.NewNetworkDomain(evm.NewClient(cfg.Chain.RPCURLs), cfg.Chain.DefaultNetwork),
	} {
		reg.Register(analysis.NewPipeline(d, executor, formatter, pcfg, logger))
	}
	return reg
}

// newKalshiClient builds the Kalshi client, signing requests when an RSA key
// is configured.
func newKalshiClient(cfg config.KalshiConfig) (*kalshi.Client, error) {
	c := kalshi.NewClient(cfg.BaseURL, cfg.APIKey)
	if cfg.RSAPrivateKeyPath == "" {
		return c, nil
	}
	pem, err := os.ReadFile(cfg.RSAPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("kalshi: read rsa key: %w", err)
	}
	if err := c.SetRSAPrivateKey(pem); err != nil {
		return nil, fmt.Errorf("kalshi: %w", err)
	}
	return c, nil
}
