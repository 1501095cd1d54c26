package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/school-management/internal/core/events"
	"github.com/frahmantamala/school-management/internal/observability"
	"github.com/redis/go-redis/v9"
)

const cachePrefix = "translations"

// NamespaceCache stores built namespace objects per (namespace, language).
type NamespaceCache interface {
	Get(ctx context.Context, namespace, language string) (map[string]any, bool, error)
	Set(ctx context.Context, namespace, language string, value map[string]any) error
	// Invalidate drops a namespace in every language, or everything when namespace is empty.
	Invalidate(ctx context.Context, namespace string) error
}

// RedisCache keeps namespace objects under translations:{namespace}:{language}.
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

func NewRedisCache(client *redis.Client, ttl time.Duration, metrics *observability.Metrics) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, metrics: metrics}
}

// NewRedisClient connects and pings with a bounded timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("translation cache: ping: %w", err)
	}
	return client, nil
}

func cacheKey(namespace, language string) string {
	return strings.Join([]string{cachePrefix, namespace, language}, ":")
}

func (c *RedisCache) Get(ctx context.Context, namespace, language string) (map[string]any, bool, error) {
	payload, err := c.client.Get(ctx, cacheKey(namespace, language)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.RecordCacheMiss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var value map[string]any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, false, fmt.Errorf("decode cached namespace %s/%s: %w", namespace, language, err)
	}
	c.metrics.RecordCacheHit()
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, namespace, language string, value map[string]any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(namespace, language), raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, namespace string) error {
	pattern := cachePrefix + ":*"
	if namespace != "" {
		pattern = cachePrefix + ":" + namespace + ":*"
	}

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// NoopCache is used when redis is disabled; every read misses.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, string) (map[string]any, bool, error) {
	return nil, false, nil
}

func (NoopCache) Set(context.Context, string, string, map[string]any) error { return nil }

func (NoopCache) Invalidate(context.Context, string) error { return nil }

// InvalidationHandler drops the namespaces named by a translation.changed event.
func InvalidationHandler(cache NamespaceCache, logger *slog.Logger) events.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, event events.Event) error {
		changed, ok := event.(*events.TranslationChangedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		if len(changed.Categories) == 0 {
			logger.Info("invalidating all translation namespaces", "key", changed.Key)
			return cache.Invalidate(ctx, "")
		}
		for _, ns := range changed.Categories {
			if err := cache.Invalidate(ctx, ns); err != nil {
				return fmt.Errorf("invalidate namespace %s: %w", ns, err)
			}
		}
		logger.Info("invalidated translation namespaces", "key", changed.Key, "namespaces", changed.Categories)
		return nil
	}
}
