// Package session はサーバー側セッションの発行・検証・無効化を提供します。
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/samber/oops"

	"github.com/yourusername/secret-board/internal/apperr"
)

const (
	// TokenBytes はトークンの乱数バイト数です（256 bit）。
	TokenBytes = 32
	// DefaultTTL はセッションの既定の有効期限です。
	DefaultTTL = 24 * time.Hour
)

// ErrInvalidSession はトークンが無い・不明・期限切れ・無効化済みの場合に返ります。
var ErrInvalidSession = errors.New("session: invalid or expired")

// Session はクライアントに渡す認証済みセッションです。Token はここでしか平文で扱いません。
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Record はストアに保存する内容です。トークンそのものではなくハッシュを保持します。
type Record struct {
	TokenHash string    `json:"tokenHash"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired は now 時点で期限切れかどうかを返します。
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store はセッションレコードの保存先です。
type Store interface {
	// Put はレコードを保存します。
	Put(ctx context.Context, rec Record) error
	// Get はレコードを返します。存在しない場合は nil, nil です。
	Get(ctx context.Context, tokenHash string) (*Record, error)
	// Delete はレコードを削除します。存在しなくてもエラーにしません。
	Delete(ctx context.Context, tokenHash string) error
}

// Manager はセッションのライフサイクル（Active → Invalidated）を管理します。
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager は Manager を作成します。ttl が 0 以下なら DefaultTTL を使います。
func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Create は userID に紐づく新しいセッションを発行します。
func (m *Manager) Create(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user id cannot be empty")
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	rec := Record{
		TokenHash: HashToken(token),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return nil, storeError("put session", err)
	}

	return &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// Validate はトークンが有効な場合に紐づくユーザーIDを返します。
func (m *Manager) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidSession
	}

	hash := HashToken(token)
	rec, err := m.store.Get(ctx, hash)
	if err != nil {
		return "", storeError("get session", err)
	}
	if rec == nil {
		return "", ErrInvalidSession
	}
	if rec.Expired(m.now()) {
		_ = m.store.Delete(ctx, hash)
		return "", ErrInvalidSession
	}
	return rec.UserID, nil
}

// Invalidate はセッションを無効化します。既に無効なトークンでもエラーにしません。
func (m *Manager) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, HashToken(token)); err != nil {
		return storeError("delete session", err)
	}
	return nil
}

// GenerateToken は暗号論的乱数からトークンを生成します。
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SESSION_TOKEN_FAILED").Wrap(fmt.Errorf("generate token: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken はストアのキーに使うトークンの SHA-256 を返します。
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func storeError(operation string, err error) error {
	if errors.Is(err, apperr.ErrStoreUnavailable) {
		return err
	}
	return apperr.StoreUnavailable(operation, err)
}
