package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Versioned caches JSON documents under keys that embed a per-scope version
// number. Bumping the version orphans every key of the scope, which then
// expires through its TTL.
type Versioned struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	group     singleflight.Group
}

// NewVersioned instantiates the cache helper. A nil client disables caching.
func NewVersioned(client *redis.Client, namespace string, ttl time.Duration) *Versioned {
	return &Versioned{client: client, namespace: namespace, ttl: ttl}
}

func (c *Versioned) versionKey(scope string) string {
	return c.namespace + ":version:" + scope
}

// Version returns the current version of scope, initialising it when missing.
func (c *Versioned) Version(ctx context.Context, scope string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := c.versionKey(scope)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes a cache key for scope with its current version.
func (c *Versioned) BuildKey(ctx context.Context, scope string, parts ...string) (string, error) {
	if c == nil {
		return strings.Join(append([]string{scope}, parts...), ":"), nil
	}
	ver, err := c.Version(ctx, scope)
	if err != nil {
		return "", err
	}
	all := append([]string{c.namespace, scope}, parts...)
	return fmt.Sprintf("%s:v%d", strings.Join(all, ":"), ver), nil
}

// FetchJSON loads key into dest or populates it using loader. Concurrent
// misses for the same key share a single loader call.
func (c *Versioned) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}

	// The shared load outlives any single caller; each caller still stops
	// waiting when its own ctx ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		value, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(loadCtx, key, raw, c.ttl).Err(); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

// Bump invalidates every key of scope.
func (c *Versioned) Bump(ctx context.Context, scope string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey(scope)).Err()
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
