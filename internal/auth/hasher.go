// Package auth は登録・ログイン・ログアウトとアクセス制御を提供します。
package auth

import (
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/secret-board/internal/apperr"
)

// DefaultBcryptCost は BCRYPT_COST 未指定時のコストです。
const DefaultBcryptCost = 10

// CredentialHasher はパスワードの一方向ハッシュと検証を行います。
type CredentialHasher interface {
	// Hash は呼び出しごとに新しいソルトでハッシュを作成します。
	Hash(plaintext string) (string, error)
	// Verify は plaintext が hash と一致するかを返します。壊れた hash は false です。
	Verify(plaintext, hash string) bool
}

// BcryptHasher は bcrypt による CredentialHasher です。
// 平文のパスワードはログにもストアにも残しません。
type BcryptHasher struct {
	cost   int
	logger *slog.Logger
}

// NewBcryptHasher は BcryptHasher を作成します。cost は bcrypt の範囲に丸めます。
func NewBcryptHasher(cost int, logger *slog.Logger) *BcryptHasher {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BcryptHasher{cost: cost, logger: logger}
}

// Cost は実際に使われるコストを返します。
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash は plaintext の bcrypt ハッシュを返します。
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", apperr.Hashing(err)
	}
	return string(b), nil
}

// Verify は plaintext と hash を定数時間で比較します。
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		h.logger.Warn("stored credential hash is malformed", "error", err)
	}
	return false
}
