// Package web はブラウザ向けの HTTP ハンドラーとルーティングを提供します。
package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/secret-board/internal/apperr"
	"github.com/yourusername/secret-board/internal/auth"
	"github.com/yourusername/secret-board/internal/secrets"
	"github.com/yourusername/secret-board/internal/session"
)

// フラッシュメッセージ
const (
	msgInvalidRegistration = "Please enter a username (up to 64 characters) and a password (up to 72 characters)."
	msgDuplicateUsername   = "That username is already taken."
	msgInvalidCredentials  = "Invalid username or password."
	msgInvalidSecret       = "Please enter a secret of up to 1000 characters."
	msgUnavailable         = "The service is temporarily unavailable. Please try again later."
	msgInternal            = "An unexpected error occurred. Please try again later."
)

// Handler はページごとのハンドラーをまとめた構造体です。
type Handler struct {
	auth         *auth.Authenticator
	secrets      *secrets.Service
	logger       *slog.Logger
	secureCookie bool
}

// NewHandler は Handler を作成します。secureCookie はログアウト時のクッキー削除に使います。
func NewHandler(authenticator *auth.Authenticator, secretService *secrets.Service, logger *slog.Logger, secureCookie bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:         authenticator,
		secrets:      secretService,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

// Home は GET / のハンドラーです。
func (h *Handler) Home(c *gin.Context) {
	h.render(c, http.StatusOK, "home.html", gin.H{})
}

// RegisterForm は GET /register のハンドラーです。
func (h *Handler) RegisterForm(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{"Title": "Register"})
}

// Register は POST /register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	s, err := h.auth.Register(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindDuplicateUsername:
			h.redirectWithFlash(c, "/register", msgDuplicateUsername)
		case apperr.KindInvalidInput:
			h.redirectWithFlash(c, "/register", msgInvalidRegistration)
		default:
			h.fail(c, "register", err)
		}
		return
	}
	h.startSession(c, s)
}

// LoginForm は GET /login のハンドラーです。
func (h *Handler) LoginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in"})
}

// Login は POST /login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	s, err := h.auth.Login(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		if apperr.Recoverable(err) {
			h.redirectWithFlash(c, "/login", msgInvalidCredentials)
			return
		}
		h.fail(c, "login", err)
		return
	}
	h.startSession(c, s)
}

// Secrets は GET /secrets のハンドラーです。ログインは不要です。
func (h *Handler) Secrets(c *gin.Context) {
	entries, err := h.secrets.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list secrets", err)
		return
	}
	h.render(c, http.StatusOK, "secrets.html", gin.H{
		"Title":   "Secrets",
		"Entries": entries,
	})
}

// SubmitForm は GET /submit のハンドラーです。auth.Guard の後ろに置きます。
func (h *Handler) SubmitForm(c *gin.Context) {
	h.render(c, http.StatusOK, "submit.html", gin.H{"Title": "Submit a secret"})
}

// Submit は POST /submit のハンドラーです。auth.Guard の後ろに置きます。
func (h *Handler) Submit(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.Redirect(http.StatusFound, auth.LoginPath)
		return
	}

	err := h.secrets.Submit(c.Request.Context(), userID, c.PostForm("secret"))
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/secrets")
	case errors.Is(err, apperr.ErrInvalidInput):
		h.redirectWithFlash(c, "/submit", msgInvalidSecret)
	case errors.Is(err, apperr.ErrNotFound):
		// セッションは有効だがユーザーが消えている
		h.logout(c)
		c.Redirect(http.StatusFound, auth.LoginPath)
	default:
		h.fail(c, "submit secret", err)
	}
}

// Logout は GET /logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	h.logout(c)
	c.Redirect(http.StatusFound, "/")
}

// Health はヘルスチェックエンドポイントのハンドラーです。
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "secret-board",
		"version": "0.1.0",
	})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), session.Token(c)); err != nil {
		h.logger.Error("failed to invalidate session", "error", err)
	}
	if err := session.Clear(c, h.secureCookie); err != nil {
		h.logger.Error("failed to clear session cookie", "error", err)
	}
}

func (h *Handler) startSession(c *gin.Context, s *session.Session) {
	// 以前のセッションはクッキーから辿れなくなるので無効化しておく
	if previous := session.Token(c); previous != "" && previous != s.Token {
		if err := h.auth.Logout(c.Request.Context(), previous); err != nil {
			h.logger.Warn("failed to invalidate previous session", "error", err)
		}
	}
	if err := session.SetToken(c, s); err != nil {
		h.fail(c, "save session cookie", err)
		return
	}
	c.Redirect(http.StatusFound, "/secrets")
}

func (h *Handler) redirectWithFlash(c *gin.Context, location, message string) {
	sess := sessions.Default(c)
	sess.AddFlash(message)
	if err := sess.Save(); err != nil {
		h.logger.Warn("failed to save flash message", "error", err)
	}
	c.Redirect(http.StatusFound, location)
}

// fail はエラーをログに残し、詳細を含まない汎用ページを返します。
func (h *Handler) fail(c *gin.Context, operation string, err error) {
	status := http.StatusInternalServerError
	message := msgInternal
	if errors.Is(err, apperr.ErrStoreUnavailable) {
		status = http.StatusServiceUnavailable
		message = msgUnavailable
	}

	h.logger.Error("request failed",
		"operation", operation,
		"kind", apperr.KindOf(err),
		"path", c.Request.URL.Path,
		"error", err,
	)
	h.render(c, status, "error.html", gin.H{"Title": "Error", "Message": message})
}

func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	sess := sessions.Default(c)
	flashes := sess.Flashes()

	token, err := auth.CSRFToken(c)
	if err != nil {
		h.logger.Error("failed to issue csrf token", "error", err)
	}
	if len(flashes) > 0 {
		if err := sess.Save(); err != nil {
			h.logger.Warn("failed to consume flash messages", "error", err)
		}
	}

	data["CSRF"] = token
	data["Flashes"] = flashes
	data["LoggedIn"] = false
	if token := session.Token(c); token != "" {
		user, err := h.auth.CurrentUser(c.Request.Context(), token)
		switch {
		case err == nil:
			data["LoggedIn"] = true
			data["Username"] = user.Username
		case !errors.Is(err, session.ErrInvalidSession):
			h.logger.Warn("failed to resolve current user", "error", err)
		}
	}
	c.HTML(status, name, data)
}
