package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/hitoshi/agentapp/internal/middleware"
	"github.com/hitoshi/agentapp/internal/model"
	"github.com/hitoshi/agentapp/internal/token"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// セッション
	Gate   SessionGate
	Stores token.Provider

	// ミドルウェア依存
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	IPRequestsPerMin  int // 0以下の場合はIP単位の制限を行わない

	// 画面・API
	Renderer      *Renderer
	AuthService   CredentialService
	ChatResponder ChatResponder
	ProfileEditor ProfileEditor

	// 運用
	HealthCheck    HealthCheckFunc
	StatusRecorder middleware.StatusRecorder // nilでもよい
	MetricsHandler http.Handler              // nilの場合は /metrics を公開しない
}

// NewRouter は全画面・全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders → IP単位レート制限 → CSRF
//	  保護画面: RequireSessionPage
//	  /api:    CORS → RequireSessionAPI → GeneralMiddleware
//
// /health と /metrics はレート制限とCSRFの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.Get("/health", healthHandler(deps.HealthCheck))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	loginPath := deps.Gate.LoginPath()
	pages := NewPageHandler(deps.Renderer, loginPath)
	authHandler := NewAuthHandler(deps.AuthService, deps.Gate, deps.Stores, deps.Renderer)
	chatHandler := NewChatHandler(deps.ChatResponder)
	profileHandler := NewProfileHandler(deps.ProfileEditor)

	r.Group(func(r chi.Router) {
		if deps.IPRequestsPerMin > 0 {
			r.Use(newIPRateLimiter(deps.IPRequestsPerMin))
		}
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Handle("/static/*", staticHandler())

		// --- セッション不要の画面 ---
		r.Get("/", pages.Root)
		r.Get(loginPath, pages.Login)
		r.Get("/register", pages.Register)

		r.With(deps.RateLimiter.CredentialMiddleware()).Post(loginPath, authHandler.Login)
		r.With(deps.RateLimiter.CredentialMiddleware()).Post("/register", authHandler.Register)
		r.Post("/logout", authHandler.Logout)

		// --- 保護画面 ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireSessionPage(deps.Gate, deps.Stores))

			r.Get("/home", pages.Home)
			r.Get("/mi-chat", pages.Chat)
			r.Get("/perfil", pages.Profile)
			r.Get("/configuracion", pages.Settings)
		})

		// --- API ---
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewRequireSessionAPI(deps.Gate, deps.Stores))
				r.Use(deps.RateLimiter.GeneralMiddleware())

				r.Post("/chat/messages", chatHandler.SendMessage)
				r.Get("/profile", profileHandler.GetProfile)
				r.Put("/profile", profileHandler.UpdateProfile)
			})
		})
	})

	return r
}

// newIPRateLimiter はクライアントIP単位のスライディングウィンドウ制限を返す。
// 超過時は統一エラーフォーマットの429を返す。
func newIPRateLimiter(requestsPerMin int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMin,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			slog.Warn("rate limit exceeded",
				slog.String("limit_type", "ip"),
				slog.String("path", r.URL.Path),
			)
			writeAPIErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitExceededError())
		}),
	)
}
