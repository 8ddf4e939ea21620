// Package main は Web サーバーのエントリーポイントです。
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/secret-board/internal/auth"
	"github.com/yourusername/secret-board/internal/config"
	"github.com/yourusername/secret-board/internal/logging"
	"github.com/yourusername/secret-board/internal/secrets"
	"github.com/yourusername/secret-board/internal/session"
	"github.com/yourusername/secret-board/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ユーザー・セッションの保存先
	b, err := setupBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	// 監査イベント
	events, shutdownAudit, err := setupAudit(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownAudit()

	sessionManager := session.NewManager(b.sessions, cfg.SessionTTL)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost, logger)
	authenticator := auth.NewAuthenticator(b.users, hasher, sessionManager, events, logger)
	secretService := secrets.NewService(b.users, events, logger)

	secure := cfg.GinMode == gin.ReleaseMode
	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		return err
	}
	cookieStore := session.NewCookieStore(secret, session.CookieOptions{
		MaxAge: session.MaxAgeFor(cfg.SessionTTL),
		Secure: secure,
	})

	router, err := web.NewRouter(web.RouterOptions{
		Handler:        web.NewHandler(authenticator, secretService, logger, secure),
		Guard:          auth.NewGuard(sessionManager, logger),
		CookieStore:    cookieStore,
		CSRFProtection: cfg.CSRFProtection,
		AllowedOrigins: cfg.AllowedOrigins(),
		PublicDir:      cfg.PublicDir,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting web server",
			"addr", srv.Addr,
			"mode", cfg.GinMode,
			"store", cfg.StoreBackend,
			"sessions", cfg.SessionBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sessionSecret はクッキー署名鍵を返します。
// 開発時に未設定の場合は起動ごとに一時的な鍵を生成します（再起動でログアウトされます）。
func sessionSecret(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret), nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	logger.Warn("SESSION_SECRET is not set, using an ephemeral key")
	return buf, nil
}
