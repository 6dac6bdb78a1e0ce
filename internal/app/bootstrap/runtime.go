package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	appconfig "github.com/wolfman30/lifevault-relay/internal/config"
	"github.com/wolfman30/lifevault-relay/internal/registry"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

// AWSConfigLoader resolves the shared AWS SDK config on first use.
type AWSConfigLoader func(ctx context.Context) (aws.Config, error)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildCallerStore selects the session registry backend from config. The
// returned cleanup releases any connection the store holds.
func BuildCallerStore(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) (registry.Store, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	noop := func() {}

	switch cfg.RegistryBackend {
	case "", "memory":
		logger.Info("caller registry using in-memory store")
		return registry.NewMemoryStore(), noop, nil

	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, nil, fmt.Errorf("bootstrap: redis registry requires a reachable REDIS_ADDR")
		}
		logger.Info("caller registry using redis", "addr", cfg.RedisAddr, "key", cfg.RegistryRedisKey)
		store := registry.NewRedisStore(client, cfg.RegistryRedisKey, otel.Tracer("lifevault.internal.registry"))
		return store, func() { _ = client.Close() }, nil

	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, nil, fmt.Errorf("bootstrap: postgres registry requires DATABASE_URL")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		logger.Info("caller registry using postgres")
		return registry.NewPostgresStore(pool), pool.Close, nil

	case "dynamodb":
		if loadAWS == nil {
			return nil, nil, fmt.Errorf("bootstrap: dynamodb registry requires AWS config")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		logger.Info("caller registry using dynamodb", "table", cfg.CallersTable, "region", cfg.AWSRegion)
		return registry.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.CallersTable), noop, nil

	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown registry backend %q", cfg.RegistryBackend)
	}
}
