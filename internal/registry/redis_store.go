package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps every caller as a field of a single Redis hash so the
// registry size is one HLEN away.
type RedisStore struct {
	redis  *redis.Client
	key    string
	tracer trace.Tracer
}

// NewRedisStore builds a store on the given hash key.
func NewRedisStore(client *redis.Client, key string, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("registry: redis client cannot be nil")
	}
	if key == "" {
		key = "lifevault:callers"
	}
	if tracer == nil {
		tracer = otel.Tracer("lifevault.internal.registry.redis")
	}
	return &RedisStore{redis: client, key: key, tracer: tracer}
}

func (s *RedisStore) Insert(ctx context.Context, caller *Caller) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "registry.redis.insert", trace.WithAttributes(attribute.String("caller.uid", caller.UID)))
	defer span.End()

	data, err := json.Marshal(caller)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("registry: failed to marshal caller: %w", err)
	}
	created, err := s.redis.HSetNX(ctx, s.key, caller.UID, data).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("registry: failed to persist caller: %w", err)
	}
	return created, nil
}

func (s *RedisStore) Exists(ctx context.Context, uid string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "registry.redis.exists")
	defer span.End()

	ok, err := s.redis.HExists(ctx, s.key, uid).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("registry: failed to check caller: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Get(ctx context.Context, uid string) (*Caller, error) {
	ctx, span := s.tracer.Start(ctx, "registry.redis.get")
	defer span.End()

	data, err := s.redis.HGet(ctx, s.key, uid).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCallerNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("registry: failed to load caller: %w", err)
	}
	var caller Caller
	if err := json.Unmarshal(data, &caller); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("registry: failed to decode caller: %w", err)
	}
	return &caller, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "registry.redis.count")
	defer span.End()

	n, err := s.redis.HLen(ctx, s.key).Result()
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("registry: failed to count callers: %w", err)
	}
	return int(n), nil
}
