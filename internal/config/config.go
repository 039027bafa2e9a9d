package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// トークンストアのバックエンド種別。
const (
	TokenStoreCookie   = "cookie"
	TokenStorePostgres = "postgres"
	TokenStoreRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Upstream auth service
	AuthServiceURL     string
	AuthServiceTimeout time.Duration

	// Token store
	TokenStoreBackend string
	TokenCookieMaxAge int
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	// Session gate
	LoginPath string

	// Chat
	ChatReplyDelay time.Duration

	// Rate Limit
	RateLimitGeneral int // req/min/IP
	RateLimitLogin   int // req/min/email

	// Worker
	SlotCleanupInterval time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort        string
	WorkerMetricsPort string // workerが /metrics を公開するポート
	BaseURL           string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// DATABASE_URLとREDIS_ADDRはトークンストアのバックエンドに応じて必須となる。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.AuthServiceURL = strings.TrimRight(os.Getenv("AUTH_SERVICE_URL"), "/")
	if cfg.AuthServiceURL == "" {
		missing = append(missing, "AUTH_SERVICE_URL")
	}

	cfg.TokenStoreBackend = strings.ToLower(getEnvString("TOKEN_STORE_BACKEND", TokenStoreCookie))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")

	switch cfg.TokenStoreBackend {
	case TokenStoreCookie:
	case TokenStorePostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case TokenStoreRedis:
		if cfg.RedisAddr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	default:
		return nil, fmt.Errorf("unsupported TOKEN_STORE_BACKEND: %q (allowed: cookie, postgres, redis)", cfg.TokenStoreBackend)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AuthServiceTimeout = getEnvDuration("AUTH_SERVICE_TIMEOUT", 10*time.Second)
	cfg.TokenCookieMaxAge = getEnvInt("TOKEN_COOKIE_MAX_AGE", 604800)
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.LoginPath = getEnvString("LOGIN_PATH", "/login")
	if err := validateLoginPath(cfg.LoginPath); err != nil {
		return nil, err
	}
	cfg.ChatReplyDelay = getEnvDuration("CHAT_REPLY_DELAY", 1*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.SlotCleanupInterval = getEnvDuration("SLOT_CLEANUP_INTERVAL", 1*time.Hour)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.WorkerMetricsPort = getEnvString("WORKER_METRICS_PORT", "9091")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// reservedPaths はLOGIN_PATHに指定できない、他の画面・APIが使用するパス。
var reservedPaths = []string{
	"/", "/home", "/register", "/logout", "/mi-chat", "/perfil", "/configuracion",
	"/health", "/metrics", "/api", "/static",
}

// validateLoginPath はLOGIN_PATHが単一セグメントの絶対パスで、既存のルートと衝突しないことを検証する。
func validateLoginPath(path string) error {
	if !strings.HasPrefix(path, "/") || strings.Count(path, "/") != 1 || path == "/" {
		return fmt.Errorf("invalid LOGIN_PATH: %q (must be a single-segment absolute path such as /login)", path)
	}
	for _, reserved := range reservedPaths {
		if path == reserved {
			return fmt.Errorf("invalid LOGIN_PATH: %q is already used by another route", path)
		}
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
