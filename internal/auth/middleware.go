package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/secret-board/internal/session"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーIDを共有するためのキーです。
const ContextUserKey = "auth.user"

// LoginPath は未ログイン時のリダイレクト先です。
const LoginPath = "/login"

// Guard は保護されたルートの前でセッションを確認します。
type Guard struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewGuard は Guard を作成します。
func NewGuard(sessions *session.Manager, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{sessions: sessions, logger: logger}
}

// RequireSession はトークンが有効ならユーザーIDと true を返します。
// 無効なトークンはエラーではなく ok=false です。err はストア障害のときだけ返ります。
func (g *Guard) RequireSession(ctx context.Context, token string) (string, bool, error) {
	userID, err := g.sessions.Validate(ctx, token)
	switch {
	case errors.Is(err, session.ErrInvalidSession):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return userID, true, nil
}

// Middleware は未ログインのリクエストを LoginPath にリダイレクトするミドルウェアです。
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok, err := g.RequireSession(c.Request.Context(), session.Token(c))
		if err != nil {
			g.logger.Error("session validation failed", "path", c.Request.URL.Path, "error", err)
			c.String(http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again later.")
			c.Abort()
			return
		}
		if !ok {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, userID)
		c.Next()
	}
}

// UserID は Middleware が設定したユーザーIDを返します。
func UserID(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserKey)
	return userID, userID != ""
}
