package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore は Redis にセッションを保存します。有効期限は Redis の TTL に任せます。
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore は Redis ベースのセッションストアを作成します。
func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  "session:",
		timeout: timeout,
	}
}

func (r *RedisStore) key(tokenHash string) string {
	return r.prefix + tokenHash
}

// Put はレコードを ExpiresAt までの TTL 付きで保存します。
func (r *RedisStore) Put(ctx context.Context, rec Record) error {
	if rec.TokenHash == "" || rec.UserID == "" {
		return fmt.Errorf("session: missing token hash or user id")
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Set(ctx, r.key(rec.TokenHash), data, ttl).Err()
}

// Get はレコードを返します。存在しない場合は nil, nil です。
func (r *RedisStore) Get(ctx context.Context, tokenHash string) (*Record, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	val, err := r.client.Get(ctx, r.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return &rec, nil
}

// Delete はレコードを削除します。
func (r *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Del(ctx, r.key(tokenHash)).Err()
}

func (r *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}
