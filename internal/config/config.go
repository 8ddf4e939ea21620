// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// バックエンドの種類
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port      string // HTTPサーバーのポート番号
	GinMode   string // Ginの実行モード (debug, release, test)
	PublicDir string // 静的ファイルのディレクトリ

	// セッション設定
	SessionSecret  string        // セッションクッキー署名用の秘密鍵
	SessionTTL     time.Duration // セッションの有効期限
	SessionBackend string        // memory | redis
	CSRFProtection bool          // POST 時に CSRF トークンを検証するか

	// 永続化設定
	StoreBackend string        // memory | redis | postgres
	RedisURL     string        // ユーザー/セッション保存用のRedis接続URL
	DatabaseURL  string        // PostgreSQL の接続文字列
	StoreTimeout time.Duration // ストア操作1回あたりのタイムアウト

	// 認証設定
	BcryptCost int // bcrypt のコスト（ワークファクター）

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// 監査ログ設定
	AuditEnabled   bool   // 認証イベントをキューに流すか
	QueueRedisURL  string // Asynq用Redis接続URL
	AuditMaxEvents int    // 保持する監査イベントの最大件数

	// ログ設定
	LogLevel  string // debug, info, warn, error
	LogFormat string // text | json
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	ginMode := getEnv("GIN_MODE", "debug")
	defaultFormat := "text"
	if ginMode == "release" {
		defaultFormat = "json"
	}

	config := &Config{
		// サーバー設定
		Port:      getEnv("PORT", "3000"),
		GinMode:   ginMode,
		PublicDir: getEnv("PUBLIC_DIR", "public"),

		// セッション設定
		SessionSecret:  getEnv("SESSION_SECRET", ""),
		SessionTTL:     time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 24*60)) * time.Minute,
		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", BackendMemory)),
		CSRFProtection: getEnvAsBool("CSRF_PROTECTION", true),

		// 永続化設定
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		RedisURL:     getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		StoreTimeout: time.Duration(getEnvAsInt("STORE_TIMEOUT_MS", 3000)) * time.Millisecond,

		// 認証設定
		BcryptCost: getEnvAsInt("BCRYPT_COST", 10),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		// 監査ログ設定
		AuditEnabled:   getEnvAsBool("AUDIT_ENABLED", false),
		QueueRedisURL:  getEnv("QUEUE_REDIS_URL", "redis://127.0.0.1:6379/0"),
		AuditMaxEvents: getEnvAsInt("AUDIT_MAX_EVENTS", 1000),

		// ログ設定
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", defaultFormat),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND: %q", c.StoreBackend)
	}

	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND: %q", c.SessionBackend)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_MS must be positive")
	}

	// ローカル開発では署名鍵は任意（起動時に一時的な鍵を生成する）
	// 本番環境では厳格にチェックする
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes in release mode")
		}
		if c.AuditEnabled && c.QueueRedisURL == "" {
			return fmt.Errorf("QUEUE_REDIS_URL is required when AUDIT_ENABLED=true")
		}
	}

	return nil
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
