package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IssueThrottle counts code issues per key. The window slides: every issue
// pushes the expiry of the counter out again.
type IssueThrottle struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

// NewIssueThrottle allows limit issues per key every window. limit <= 0 disables it.
func NewIssueThrottle(rdb *redis.Client, limit int, window time.Duration) *IssueThrottle {
	return &IssueThrottle{rdb: rdb, limit: limit, window: window}
}

// Allow records one issue for key and reports whether it is within the limit
func (t *IssueThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if t.limit <= 0 {
		return true, nil
	}

	k := "otp:issue:" + key
	pipe := t.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(t.limit), nil
}

// TokenBlacklist keeps revoked bearer tokens until they would have expired anyway
type TokenBlacklist struct {
	rdb *redis.Client
}

func NewTokenBlacklist(rdb *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rdb: rdb}
}

// Revoke blacklists token for ttl
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, "blacklist:"+token, "revoked", ttl).Err()
}

// IsRevoked reports whether token has been blacklisted
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.rdb.Exists(ctx, "blacklist:"+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
