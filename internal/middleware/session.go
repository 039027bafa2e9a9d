// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"

	"github.com/hitoshi/agentapp/internal/model"
	"github.com/hitoshi/agentapp/internal/session"
	"github.com/hitoshi/agentapp/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストにSessionIdentityを格納するためのキー。
var identityContextKey = contextKey("session_identity")

// SessionMounter はゲートの表示判定に必要なインターフェース。
// session.Gateの部分集合として定義する。
type SessionMounter interface {
	Mount(store token.Store) session.Outcome
}

// NewRequireSessionPage は保護ページ用のミドルウェアを返す。
// ゲートがAuthenticatedを返した場合のみSessionIdentityをコンテキストに注入して次へ進み、
// それ以外はRedirectToへ303で遷移させる。
func NewRequireSessionPage(gate SessionMounter, stores token.Provider) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome := gate.Mount(stores(w, r))
			markSession(r.Context(), outcome)

			if outcome.State != session.StateAuthenticated {
				http.Redirect(w, r, outcome.RedirectTo, http.StatusSeeOther)
				return
			}

			ctx := ContextWithIdentity(r.Context(), outcome.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireSessionAPI は保護API用のミドルウェアを返す。
// リダイレクトの代わりに401と統一エラーフォーマットを返す。
func NewRequireSessionAPI(gate SessionMounter, stores token.Provider) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome := gate.Mount(stores(w, r))
			markSession(r.Context(), outcome)

			if outcome.State != session.StateAuthenticated {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := ContextWithIdentity(r.Context(), outcome.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストからSessionIdentityを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*model.SessionIdentity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*model.SessionIdentity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// ContextWithIdentity はコンテキストにSessionIdentityを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.SessionIdentity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
