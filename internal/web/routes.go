package web

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/secret-board/internal/auth"
	"github.com/yourusername/secret-board/internal/logging"
	"github.com/yourusername/secret-board/internal/session"
)

// RouterOptions はルーターの組み立てに必要な依存です。
type RouterOptions struct {
	Handler        *Handler
	Guard          *auth.Guard
	CookieStore    sessions.Store
	CSRFProtection bool
	AllowedOrigins []string
	PublicDir      string
	Logger         *slog.Logger
}

// NewRouter はミドルウェアとルートを登録した gin.Engine を返します。
func NewRouter(opts RouterOptions) (*gin.Engine, error) {
	if opts.Handler == nil || opts.Guard == nil || opts.CookieStore == nil {
		return nil, fmt.Errorf("handler, guard and cookie store are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.Middleware(logger))

	tmpl, err := LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	if len(opts.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = opts.AllowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{
			"Origin",
			"Content-Type",
			"Accept",
			auth.CSRFHeader,
		}
		router.Use(cors.New(corsConfig))
	}

	router.Use(session.Middleware(opts.CookieStore))

	if dir := strings.TrimSpace(opts.PublicDir); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			router.Static("/public", dir)
		} else {
			logger.Debug("public directory not found, static files disabled", "dir", dir)
		}
	}

	setupRoutes(router, opts.Handler, opts.Guard, auth.VerifyCSRF(opts.CSRFProtection))
	return router, nil
}

// setupRoutes はページとフォームのルートを登録します。
// 保護されたルートではセッション確認を CSRF 検証より先に行い、未ログインなら /login に送ります。
func setupRoutes(router *gin.Engine, h *Handler, guard *auth.Guard, csrf gin.HandlerFunc) {
	router.GET("/health", Health)

	router.GET("/", h.Home)
	router.GET("/register", h.RegisterForm)
	router.POST("/register", csrf, h.Register)
	router.GET("/login", h.LoginForm)
	router.POST("/login", csrf, h.Login)
	router.GET("/secrets", h.Secrets)
	router.GET("/logout", h.Logout)

	protected := router.Group("/submit")
	protected.Use(guard.Middleware(), csrf)
	{
		protected.GET("", h.SubmitForm)
		protected.POST("", h.Submit)
	}
}
