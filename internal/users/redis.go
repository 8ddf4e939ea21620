package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/yourusername/secret-board/internal/apperr"
)

const (
	userKeyPrefix     = "user:"
	usernameKeyPrefix = "user:name:"
	withSecretKey     = "users:with_secret"

	maxTxRetries = 10
)

// createScript はユーザー名の索引確保とドキュメント保存を1ステップで行います。
// 索引が既にあれば何も書き込まず 0 を返します。
var createScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

// RedisStore はユーザーを Redis 上の JSON ドキュメントとして保存します。
type RedisStore struct {
	rdb     *redis.Client
	timeout time.Duration
	now     func() time.Time
}

// NewRedisStore は RedisStore を作成します。timeout は1操作あたりの上限です（0 なら無制限）。
func NewRedisStore(rdb *redis.Client, timeout time.Duration) *RedisStore {
	return &RedisStore{
		rdb:     rdb,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create はユーザーを作成します。
func (s *RedisStore) Create(ctx context.Context, username, credentialHash string) (*User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	user := &User{
		ID:             uuid.NewString(),
		Username:       username,
		CredentialHash: credentialHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return nil, oops.With("operation", "marshal user").Wrap(err)
	}

	created, err := createScript.Run(ctx, s.rdb,
		[]string{usernameKey(username), userKey(user.ID)},
		user.ID, payload,
	).Int()
	if err != nil {
		return nil, apperr.StoreUnavailable("create user", err)
	}
	if created == 0 {
		return nil, oops.With("username", username).Wrap(apperr.ErrDuplicateUsername)
	}
	return user, nil
}

// FindByUsername は username でユーザーを検索します。
func (s *RedisStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id, err := s.rdb.Get(ctx, usernameKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.StoreUnavailable("find user by username", err)
	}
	return s.get(ctx, id)
}

// FindByID は ID でユーザーを検索します。
func (s *RedisStore) FindByID(ctx context.Context, id string) (*User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.get(ctx, id)
}

// UpdateSecret はシークレットを上書きします。
// WATCH でドキュメントを監視し、競合した場合は再試行します。
func (s *RedisStore) UpdateSecret(ctx context.Context, id, secret string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := userKey(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperr.ErrNotFound
			}
			return err
		}
		var user User
		if err := json.Unmarshal(data, &user); err != nil {
			return fmt.Errorf("decode user %s: %w", id, err)
		}
		user.Secret = &secret
		user.UpdatedAt = s.now()
		payload, err := json.Marshal(&user)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, withSecretKey, id)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, apperr.ErrNotFound):
			return err
		default:
			return apperr.StoreUnavailable("update secret", err)
		}
	}
	return apperr.StoreUnavailable("update secret", fmt.Errorf("too many concurrent updates for user %s", id))
}

// ListWithSecret はシークレットを持つユーザーを作成順で返します。
func (s *RedisStore) ListWithSecret(ctx context.Context) ([]*User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ids, err := s.rdb.SMembers(ctx, withSecretKey).Result()
	if err != nil {
		return nil, apperr.StoreUnavailable("list secret holders", err)
	}
	result := make([]*User, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperr.StoreUnavailable("load secret holders", err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// 索引に残っているがドキュメントが無い
			continue
		}
		var user User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, oops.With("operation", "decode user").Wrap(err)
		}
		if user.HasSecret() {
			result = append(result, &user)
		}
	}
	sortByCreation(result)
	return result, nil
}

func (s *RedisStore) get(ctx context.Context, id string) (*User, error) {
	data, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.StoreUnavailable("get user", err)
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, oops.With("operation", "decode user").With("id", id).Wrap(err)
	}
	return &user, nil
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func usernameKey(username string) string {
	return usernameKeyPrefix + username
}
