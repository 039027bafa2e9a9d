// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/agentapp/internal/auth"
	"github.com/hitoshi/agentapp/internal/middleware"
	"github.com/hitoshi/agentapp/internal/model"
	"github.com/hitoshi/agentapp/internal/session"
	"github.com/hitoshi/agentapp/internal/token"
)

// homePath はログイン・登録成功後の遷移先。
const homePath = "/home"

// CredentialService は認証ハンドラーが必要とするサービスインターフェース。
// auth.Serviceが実装する。
type CredentialService interface {
	Login(ctx context.Context, form auth.LoginForm) (string, error)
	Register(ctx context.Context, form auth.RegisterForm) (string, error)
}

// SessionGate はセッションゲートのインターフェース。session.Gateが実装する。
type SessionGate interface {
	Mount(store token.Store) session.Outcome
	Logout(store token.Store) session.Outcome
	LoginPath() string
}

// AuthHandler はログイン・登録・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service  CredentialService
	gate     SessionGate
	stores   token.Provider
	renderer *Renderer
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service CredentialService, gate SessionGate, stores token.Provider, renderer *Renderer) *AuthHandler {
	return &AuthHandler{
		service:  service,
		gate:     gate,
		stores:   stores,
		renderer: renderer,
	}
}

// Login はログインフォームを処理する。
// 成功時はトークンを保存して /home へ303で遷移する。失敗時はエラーメッセージ付きでフォームを再表示する。
// POST {loginPath}
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := auth.LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	tok, err := h.service.Login(r.Context(), form)
	if err != nil {
		status, message := authFailure(err)
		h.renderer.Render(w, status, pageLogin, pageData{
			Title:     "Iniciar sesión",
			CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
			LoginPath: h.gate.LoginPath(),
			Error:     message,
			Email:     form.Email,
		})
		return
	}

	h.completeAuth(w, r, tok)
}

// Register は登録フォームを処理する。
// パスワード強度不足の場合は未達の要件一覧も表示する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := auth.RegisterForm{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}

	tok, err := h.service.Register(r.Context(), form)
	if err != nil {
		status, message := authFailure(err)
		data := pageData{
			Title:     "Crear cuenta",
			CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
			LoginPath: h.gate.LoginPath(),
			Error:     message,
			Name:      form.Name,
			Email:     form.Email,
		}
		if form.Password != "" {
			data.Strength = string(auth.EvaluatePassword(form.Password))
			data.StrengthLabel = strengthLabels[data.Strength]
			data.PasswordErrors = auth.PasswordErrors(form.Password)
		}
		h.renderer.Render(w, status, pageRegister, data)
		return
	}

	h.completeAuth(w, r, tok)
}

// Logout はトークンを削除し、ログイン画面へ303で遷移する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	outcome := h.gate.Logout(h.stores(w, r))
	http.Redirect(w, r, outcome.RedirectTo, http.StatusSeeOther)
}

// completeAuth はトークンが空でない場合のみ保存し、ホーム画面へ遷移する。
func (h *AuthHandler) completeAuth(w http.ResponseWriter, r *http.Request, tok string) {
	if tok != "" {
		h.stores(w, r).Save(tok)
	} else {
		slog.Warn("auth service returned no token", slog.String("path", r.URL.Path))
	}
	http.Redirect(w, r, homePath, http.StatusSeeOther)
}

// authFailure はエラーをフォーム再表示用のステータスとメッセージに変換する。
func authFailure(err error) (int, string) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return mapAPIErrorToHTTPStatus(apiErr), apiErr.Message
	}

	slog.Error("credential submission failed", slog.String("error", err.Error()))
	return http.StatusInternalServerError, model.NewInternalError().Message
}
