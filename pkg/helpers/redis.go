package helpers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RedisResetLedger records consumed password-reset token IDs in Redis,
// keyed per JTI with a TTL matching the token's remaining lifetime.
type RedisResetLedger struct {
	Client *redis.Client
}

func NewRedisResetLedger(rdb *redis.Client) *RedisResetLedger {
	return &RedisResetLedger{Client: rdb}
}

func usedResetKey(jti string) string {
	return "pwd:reset:used:" + jti
}

func (l *RedisResetLedger) IsConsumed(ctx context.Context, jti string) (bool, error) {
	n, err := l.Client.Exists(ctx, usedResetKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisResetLedger) MarkConsumed(ctx context.Context, jti string, ttl time.Duration) error {
	return l.Client.Set(ctx, usedResetKey(jti), "1", ttl).Err()
}
