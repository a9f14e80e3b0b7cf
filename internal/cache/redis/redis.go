// Package redisx implements a shared cache tier on Redis. Each value lives
// under its own key with a TTL; a Redis set per tag indexes the keys so a
// tag can be invalidated in one round trip.
package redisx

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alfredjeanlab/catalog/internal/cache"
)

// DefaultPrefix namespaces every key written by the tier.
const DefaultPrefix = "catalog:cache:"

// Config holds connection settings.
type Config struct {
	Addr     string
	DB       int
	Password string
	Prefix   string
}

// Tier is a cache.Tier backed by a Redis client.
type Tier struct {
	rdb    *redis.Client
	prefix string
	logger *slog.Logger
}

// Compile-time check that Tier implements cache.Tier.
var _ cache.Tier = (*Tier)(nil)

// New connects to Redis. The connection is lazy; call Ping to check it.
func New(cfg Config, logger *slog.Logger) *Tier {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &Tier{rdb: rdb, prefix: prefix, logger: logger}
}

// Ping checks connectivity.
func (t *Tier) Ping(ctx context.Context) error {
	if err := t.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the client.
func (t *Tier) Close() error {
	return t.rdb.Close()
}

// valueKey is the Redis key of one (tag, signature) entry. Signatures are
// hashed to keep keys short.
func (t *Tier) valueKey(tag, signature string) string {
	sum := sha1.Sum([]byte(signature))
	return t.prefix + tag + ":" + hex.EncodeToString(sum[:])
}

// tagKey is the set holding every value key written under tag.
func (t *Tier) tagKey(tag string) string {
	return t.prefix + "tag:" + tag
}

func (t *Tier) Get(ctx context.Context, tag, signature string) ([]byte, bool, error) {
	b, err := t.rdb.Get(ctx, t.valueKey(tag, signature)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return b, true, nil
}

func (t *Tier) Set(ctx context.Context, tag, signature string, value []byte, ttl time.Duration) error {
	key := t.valueKey(tag, signature)
	tagKey := t.tagKey(tag)
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, value, ttl)
		p.SAdd(ctx, tagKey, key)
		if ttl > 0 {
			p.Expire(ctx, tagKey, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (t *Tier) InvalidateTag(ctx context.Context, tag string) error {
	tagKey := t.tagKey(tag)
	keys, err := t.rdb.SMembers(ctx, tagKey).Result()
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}
	keys = append(keys, tagKey)
	n, err := t.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	t.logger.Debug("redis tier invalidated", "tag", tag, "deleted", n)
	return nil
}
