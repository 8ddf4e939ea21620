package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/yourusername/secret-board/internal/apperr"
	"github.com/yourusername/secret-board/internal/jobs"
	"github.com/yourusername/secret-board/internal/session"
	"github.com/yourusername/secret-board/internal/users"
)

const (
	// MaxUsernameBytes はユーザー名の最大バイト数です。
	MaxUsernameBytes = 64
	// MaxPasswordBytes はパスワードの最大バイト数です（bcrypt の上限）。
	MaxPasswordBytes = 72
)

// Authenticator は登録とログインを行い、成功時にセッションを発行します。
type Authenticator struct {
	users    users.Store
	hasher   CredentialHasher
	sessions *session.Manager
	events   jobs.Publisher
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator は Authenticator を作成します。events が nil ならイベントは送りません。
func NewAuthenticator(store users.Store, hasher CredentialHasher, sessions *session.Manager, events jobs.Publisher, logger *slog.Logger) *Authenticator {
	if events == nil {
		events = jobs.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		users:    store,
		hasher:   hasher,
		sessions: sessions,
		events:   events,
		logger:   logger,
	}
}

// Register はアカウントを作成し、新しいセッションを返します。
// ユーザー名が使われている場合は apperr.ErrDuplicateUsername を返し、セッションは作りません。
func (a *Authenticator) Register(ctx context.Context, username, password string) (*session.Session, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := a.users.Create(ctx, username, hash)
	if err != nil {
		return nil, err
	}

	sess, err := a.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	a.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	a.publish(ctx, jobs.Event{Type: jobs.EventRegistered, UserID: user.ID, Username: user.Username})
	return sess, nil
}

// Login は資格情報を検証し、新しいセッションを返します。
// ユーザーが存在しない場合もパスワード不一致の場合も apperr.ErrInvalidCredentials です。
func (a *Authenticator) Login(ctx context.Context, username, password string) (*session.Session, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	user, err := a.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		// 応答時間からユーザーの有無が分からないよう、ダミーのハッシュでも検証する
		a.hasher.Verify(password, a.dummy())
		a.publish(ctx, jobs.Event{Type: jobs.EventLoginFailed, Username: username})
		return nil, invalidCredentials()
	case err != nil:
		return nil, err
	}

	if !a.hasher.Verify(password, user.CredentialHash) {
		a.publish(ctx, jobs.Event{Type: jobs.EventLoginFailed, UserID: user.ID, Username: user.Username})
		return nil, invalidCredentials()
	}

	sess, err := a.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	a.logger.Info("user logged in", "user_id", user.ID)
	a.publish(ctx, jobs.Event{Type: jobs.EventLoginSucceeded, UserID: user.ID, Username: user.Username})
	return sess, nil
}

// Logout はセッションを無効化します。無効なトークンでもエラーにしません。
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	userID, err := a.sessions.Validate(ctx, token)
	if err != nil && !errors.Is(err, session.ErrInvalidSession) {
		return err
	}
	if err := a.sessions.Invalidate(ctx, token); err != nil {
		return err
	}
	if userID != "" {
		a.publish(ctx, jobs.Event{Type: jobs.EventLogout, UserID: userID})
	}
	return nil
}

// CurrentUser はトークンに紐づくユーザーを返します。
func (a *Authenticator) CurrentUser(ctx context.Context, token string) (*users.User, error) {
	userID, err := a.sessions.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := a.users.FindByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, session.ErrInvalidSession
	}
	return user, err
}

func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		hash, err := a.hasher.Hash("secret-board-dummy-credential")
		if err != nil {
			a.logger.Error("failed to prepare dummy credential hash", "error", err)
			return
		}
		a.dummyHash = hash
	})
	return a.dummyHash
}

func (a *Authenticator) publish(ctx context.Context, event jobs.Event) {
	if err := a.events.Publish(ctx, event); err != nil {
		a.logger.Warn("failed to publish auth event", "type", event.Type, "error", err)
	}
}

func validateCredentials(username, password string) error {
	switch {
	case strings.TrimSpace(username) == "":
		return apperr.InvalidInput("username", "is required")
	case len(username) > MaxUsernameBytes:
		return apperr.InvalidInput("username", "is too long")
	case password == "":
		return apperr.InvalidInput("password", "is required")
	case len(password) > MaxPasswordBytes:
		return apperr.InvalidInput("password", "is too long")
	}
	return nil
}

func invalidCredentials() error {
	return oops.Code(string(apperr.KindInvalidCredentials)).Wrap(apperr.ErrInvalidCredentials)
}
