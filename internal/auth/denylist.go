package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist remembers revoked token IDs until they would have expired anyway.
type Denylist struct {
	client *redis.Client
	prefix string
}

// NewDenylist constructs a Redis backed denylist.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client, prefix: "auth:revoked:"}
}

// Revoke marks jti as revoked until expiresAt.
func (d *Denylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if d == nil || d.client == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.prefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if d == nil || d.client == nil {
		return false, nil
	}
	err := d.client.Get(ctx, d.prefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
