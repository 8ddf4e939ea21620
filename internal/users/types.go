// Package users はユーザーレコード（認証情報と共有シークレット）の永続化を提供します。
package users

import (
	"context"
	"time"
)

// User は登録済みユーザーを表します。
// CredentialHash はソルト付きハッシュのみで、平文は保持しません。
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	CredentialHash string    `json:"credentialHash"`
	Secret         *string   `json:"secret,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasSecret はシークレットが投稿済みかどうかを返します。
func (u *User) HasSecret() bool {
	return u != nil && u.Secret != nil
}

// Store はユーザーレコードの保存先を抽象化します。
// 実装は複数リクエストからの同時呼び出しに耐える必要があります。
type Store interface {
	// Create はユーザーを作成します。username が既に存在する場合は
	// apperr.ErrDuplicateUsername を返します（存在確認と挿入は不可分）。
	Create(ctx context.Context, username, credentialHash string) (*User, error)
	// FindByUsername は username でユーザーを検索します。見つからない場合は apperr.ErrNotFound です。
	FindByUsername(ctx context.Context, username string) (*User, error)
	// FindByID は ID でユーザーを検索します。見つからない場合は apperr.ErrNotFound です。
	FindByID(ctx context.Context, id string) (*User, error)
	// UpdateSecret はシークレットを上書きします。
	UpdateSecret(ctx context.Context, id, secret string) error
	// ListWithSecret はシークレットを持つユーザーを作成順で返します。
	ListWithSecret(ctx context.Context) ([]*User, error)
}

func clone(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.Secret != nil {
		s := *u.Secret
		cp.Secret = &s
	}
	return &cp
}
