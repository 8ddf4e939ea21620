// Package secrets はシークレットの投稿と一覧を提供します。
package secrets

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/secret-board/internal/apperr"
	"github.com/yourusername/secret-board/internal/jobs"
	"github.com/yourusername/secret-board/internal/users"
)

// MaxSecretLength はシークレットの最大文字数です。
const MaxSecretLength = 1000

// Entry は一覧に表示する1件です。ユーザー名以外の識別情報は含めません。
type Entry struct {
	Username string
	Secret   string
}

// Service はシークレットの投稿と一覧を扱います。
type Service struct {
	users  users.Store
	events jobs.Publisher
	logger *slog.Logger
}

// NewService は Service を作成します。
func NewService(store users.Store, events jobs.Publisher, logger *slog.Logger) *Service {
	if events == nil {
		events = jobs.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: store, events: events, logger: logger}
}

// Submit は userID のシークレットを上書きします。前後の空白は取り除きます。
func (s *Service) Submit(ctx context.Context, userID, text string) error {
	secret, err := Normalize(text)
	if err != nil {
		return err
	}
	if err := s.users.UpdateSecret(ctx, userID, secret); err != nil {
		return err
	}

	if err := s.events.Publish(ctx, jobs.Event{Type: jobs.EventSecretSubmitted, UserID: userID}); err != nil {
		s.logger.Warn("failed to publish auth event", "type", jobs.EventSecretSubmitted, "error", err)
	}
	return nil
}

// List はシークレットを投稿済みのユーザーを作成順で返します。
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	list, err := s.users.ListWithSecret(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(list))
	for _, u := range list {
		if !u.HasSecret() {
			continue
		}
		entries = append(entries, Entry{Username: u.Username, Secret: *u.Secret})
	}
	return entries, nil
}

// Normalize は投稿テキストを検証し、保存する形に整えます。
func Normalize(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", apperr.InvalidInput("secret", "must be valid UTF-8")
	}
	secret := strings.TrimSpace(text)
	switch {
	case secret == "":
		return "", apperr.InvalidInput("secret", "is required")
	case utf8.RuneCountInString(secret) > MaxSecretLength:
		return "", apperr.InvalidInput("secret", "is too long")
	}
	return secret, nil
}
