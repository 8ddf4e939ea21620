// Package jobs は認証イベントの非同期処理（監査ログ）を提供します。
package jobs

import (
	"context"
	"time"
)

// EventType は認証イベントの種類を表します。
type EventType string

const (
	EventRegistered      EventType = "registered"
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginFailed     EventType = "login_failed"
	EventLogout          EventType = "logout"
	EventSecretSubmitted EventType = "secret_submitted"
)

// Event は監査ログに残す1件のイベントです。
// パスワードやセッショントークンは含めません。
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	UserID     string    `json:"userId,omitempty"`
	Username   string    `json:"username,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher は認証イベントの送り先です。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher はイベントを捨てる Publisher です。監査が無効な場合に使います。
type NopPublisher struct{}

// Publish は何もしません。
func (NopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}
