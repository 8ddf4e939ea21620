// Package apperr はアプリケーション全体で共有するエラー種別を定義します。
package apperr

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Kind は呼び出し側が分岐に使うエラーの種別です。
type Kind string

const (
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindDuplicateUsername  Kind = "DUPLICATE_USERNAME"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindNotFound           Kind = "NOT_FOUND"
	KindStoreUnavailable   Kind = "STORE_UNAVAILABLE"
	KindHashing            Kind = "HASHING_ERROR"
	KindInternal           Kind = "INTERNAL_ERROR"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrHashing            = errors.New("credential hashing failed")
)

// KindOf は err の種別を返します。該当しない場合は KindInternal です。
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrDuplicateUsername):
		return KindDuplicateUsername
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, ErrHashing):
		return KindHashing
	default:
		return KindInternal
	}
}

// Recoverable はユーザーが入力を直せば解決するエラーかどうかを返します。
func Recoverable(err error) bool {
	switch KindOf(err) {
	case KindInvalidInput, KindDuplicateUsername, KindInvalidCredentials:
		return true
	default:
		return false
	}
}

// InvalidInput は入力不備のエラーを作成します。
func InvalidInput(field, reason string) error {
	return oops.Code(string(KindInvalidInput)).
		With("field", field).
		Wrap(fmt.Errorf("%w: %s %s", ErrInvalidInput, field, reason))
}

// StoreUnavailable は永続化層の障害を ErrStoreUnavailable として包みます。
// 元のエラーも errors.Is / errors.As で辿れます。
func StoreUnavailable(operation string, cause error) error {
	return oops.Code(string(KindStoreUnavailable)).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrStoreUnavailable, cause))
}

// Hashing はハッシュ計算の失敗を ErrHashing として包みます。
func Hashing(cause error) error {
	return oops.Code(string(KindHashing)).
		Wrap(fmt.Errorf("%w: %w", ErrHashing, cause))
}
