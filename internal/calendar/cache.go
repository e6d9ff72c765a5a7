package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"example.com/ai-meal-planner/backend/internal/models"
)

const cacheKeyPrefix = "calendar:events"

// Cache is a read-through cache of provider event lists.
// A Cache without a Redis client passes every call through to the loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache подключается к Redis по URL; пустой URL отключает кэш.
func NewCache(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return &Cache{}, nil
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Fetch возвращает события из кэша или вызывает load и сохраняет результат.
// Ошибки Redis не прерывают запрос: события читаются напрямую у провайдера.
func (c *Cache) Fetch(ctx context.Context, userID uuid.UUID, provider models.CalendarProvider, start, end time.Time, load func(context.Context) ([]Event, error)) ([]Event, error) {
	if !c.Enabled() {
		return load(ctx)
	}

	key := cacheKey(userID, provider, start, end)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var events []Event
		if err := json.Unmarshal(data, &events); err == nil {
			return events, nil
		}
		slog.Warn("calendar cache entry is corrupt", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		slog.Warn("calendar cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	events, err := load(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(events)
	if err != nil {
		return events, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		slog.Warn("calendar cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	return events, nil
}

// Invalidate удаляет все закэшированные диапазоны пользователя для провайдера.
func (c *Cache) Invalidate(ctx context.Context, userID uuid.UUID, provider models.CalendarProvider) error {
	if !c.Enabled() {
		return nil
	}

	pattern := fmt.Sprintf("%s:%s:%s:*", cacheKeyPrefix, userID, provider)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan calendar cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

func cacheKey(userID uuid.UUID, provider models.CalendarProvider, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d:%d", cacheKeyPrefix, userID, provider, start.Unix(), end.Unix())
}
