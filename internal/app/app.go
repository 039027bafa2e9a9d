// Package app はアプリケーションの初期化とサブコマンドの実行を提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/agentapp/internal/auth"
	"github.com/hitoshi/agentapp/internal/chat"
	"github.com/hitoshi/agentapp/internal/config"
	"github.com/hitoshi/agentapp/internal/database"
	"github.com/hitoshi/agentapp/internal/handler"
	"github.com/hitoshi/agentapp/internal/logger"
	"github.com/hitoshi/agentapp/internal/metrics"
	"github.com/hitoshi/agentapp/internal/middleware"
	"github.com/hitoshi/agentapp/internal/profile"
	"github.com/hitoshi/agentapp/internal/repository"
	"github.com/hitoshi/agentapp/internal/security"
	"github.com/hitoshi/agentapp/internal/session"
	"github.com/hitoshi/agentapp/internal/token"
	"github.com/hitoshi/agentapp/internal/upstream"
	"github.com/hitoshi/agentapp/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envファイルがあれば読み込み、JSON構造化ログをセットアップしてから環境変数のConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの読み込み（存在しない場合は無視する。既存の環境変数は上書きしない）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("token_store", cfg.TokenStoreBackend),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// tokenBackend はトークンストアのバックエンドの構築結果。
type tokenBackend struct {
	stores token.Provider
	health handler.HealthCheckFunc
	close  func()
}

// openTokenBackend は設定に応じてトークンストアのProviderを構築する。
// cookieは外部依存なし、postgresとredisは起動時に疎通を確認する。
func openTokenBackend(ctx context.Context, cfg *config.Config) (*tokenBackend, error) {
	cookieCfg := token.CookieConfig{
		Name:   token.Key,
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
		MaxAge: cfg.TokenCookieMaxAge,
	}
	slotTTL := time.Duration(cfg.TokenCookieMaxAge) * time.Second

	switch cfg.TokenStoreBackend {
	case config.TokenStorePostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Ping(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		slog.Info("database connection established")

		repo := repository.NewPostgresTokenSlotRepo(db, slotTTL)
		return &tokenBackend{
			stores: token.NewSlotProvider(repo, cookieCfg, slog.Default()),
			health: db.PingContext,
			close:  func() { db.Close() },
		}, nil

	case config.TokenStoreRedis:
		client, err := database.OpenRedis(ctx, database.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("redis connection established")

		repo := repository.NewRedisTokenSlotRepo(client, slotTTL)
		return &tokenBackend{
			stores: token.NewSlotProvider(repo, cookieCfg, slog.Default()),
			health: func(ctx context.Context) error { return client.Ping(ctx).Err() },
			close:  func() { client.Close() },
		}, nil

	default:
		return &tokenBackend{
			stores: token.NewCookieProvider(cookieCfg),
			close:  func() {},
		}, nil
	}
}

// runServe はWebサーバーモードで起動する。
// トークンストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	// 1. トークンストア
	backend, err := openTokenBackend(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	defer backend.close()

	// 2. メトリクス
	registry, collector := newMetricsRegistry()

	// 3. ドメインサービスの初期化
	upstreamClient := upstream.NewClient(
		&http.Client{Timeout: cfg.AuthServiceTimeout},
		log,
		cfg.AuthServiceURL,
		collector,
	)
	authService := auth.NewService(upstreamClient, log)

	sanitizer := security.NewSanitizer()
	responder := chat.NewResponder(sanitizer, cfg.ChatReplyDelay, collector, log)
	profileService := profile.NewService(sanitizer, security.NewURLGuard(), log)

	gate := session.NewGate(session.Config{LoginPath: cfg.LoginPath}, collector, log)

	renderer, err := handler.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLogin),
		collector,
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger: log,
		Gate:   gate,
		Stores: backend.stores,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		IPRequestsPerMin:  cfg.RateLimitGeneral,
		Renderer:          renderer,
		AuthService:       authService,
		ChatResponder:     responder,
		ProfileEditor:     profileService,
		HealthCheck:       backend.health,
		StatusRecorder:    collector,
		MetricsHandler:    metrics.Handler(registry),
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れトークンスロットの定期削除ジョブを実行する。PostgreSQLバックエンド専用。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.TokenStoreBackend != config.TokenStorePostgres {
		return fmt.Errorf("worker requires TOKEN_STORE_BACKEND=%s, got %q", config.TokenStorePostgres, cfg.TokenStoreBackend)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Ping(context.Background(), db); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	registry, collector := newMetricsRegistry()
	job := cleanup.NewCleanupJob(db, collector, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsServer := newWorkerMetricsServer(cfg.WorkerMetricsPort, registry)
	go func() {
		slog.Info("worker metrics server starting",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server failed", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// メインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.SlotCleanupInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("worker metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// newMetricsRegistry はGo・プロセスの標準メトリクスとアプリケーションのメトリクスを登録したレジストリを返す。
func newMetricsRegistry() (*prometheus.Registry, *metrics.Collector) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, metrics.NewCollector(registry)
}

// newWorkerMetricsServer はworkerのメトリクスとヘルスチェックを公開するHTTPサーバーを返す。
func newWorkerMetricsServer(port string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
// 解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.Redacted()
}
