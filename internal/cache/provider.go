package cache

// Package cache provides caching for notification dedupe and public order
// tracking responses.

import (
	"context"
	"fmt"
	"time"
)

// Provider is the shared key-value cache contract backed by memory or redis.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// NotificationKey dedupes notification dispatch. The order status is part of
// the key because several distinct transitions share one generic event; keying
// on order and event alone would swallow every update after the first.
func NotificationKey(orderID, event, status string) string {
	return fmt.Sprintf("notify:%s:%s:%s", orderID, event, status)
}

// TrackingKey caches the public tracking response for an order number.
func TrackingKey(orderNumber string) string {
	return fmt.Sprintf("track:%s", orderNumber)
}
