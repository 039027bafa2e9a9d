package handler

import (
	"net/http"

	"github.com/hitoshi/agentapp/internal/middleware"
	"github.com/hitoshi/agentapp/internal/profile"
	"github.com/hitoshi/agentapp/internal/session"
)

// PageHandler は画面表示のHTTPハンドラー。
// 保護画面はRequireSessionPageの後に配置し、コンテキストのSessionIdentityを使って描画する。
type PageHandler struct {
	renderer  *Renderer
	loginPath string
}

// NewPageHandler はPageHandlerを生成する。loginPathはゲートのリダイレクト先と同じ値を渡す。
func NewPageHandler(renderer *Renderer, loginPath string) *PageHandler {
	if loginPath == "" {
		loginPath = session.DefaultLoginPath
	}
	return &PageHandler{renderer: renderer, loginPath: loginPath}
}

// Root はログイン画面へ遷移させる。
// GET /
func (h *PageHandler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.loginPath, http.StatusSeeOther)
}

// Login はログイン画面を表示する。
// GET {loginPath}
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, pageLogin, pageData{
		Title:     "Iniciar sesión",
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		LoginPath: h.loginPath,
	})
}

// Register は登録画面を表示する。
// GET /register
func (h *PageHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, pageRegister, pageData{
		Title:     "Crear cuenta",
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		LoginPath: h.loginPath,
	})
}

// Home はホーム画面を表示する。
// GET /home
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderProtected(w, r, pageHome, "Inicio")
}

// Chat はチャット画面を表示する。
// GET /mi-chat
func (h *PageHandler) Chat(w http.ResponseWriter, r *http.Request) {
	h.renderProtected(w, r, pageChat, "Mi Chat")
}

// Settings は設定画面を表示する。
// GET /configuracion
func (h *PageHandler) Settings(w http.ResponseWriter, r *http.Request) {
	h.renderProtected(w, r, pageConfiguracion, "Configuración")
}

// Profile はプロフィール画面を表示する。初期値はトークンの属性から組み立てる。
// GET /perfil
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, h.loginPath, http.StatusSeeOther)
		return
	}

	p := profile.FromIdentity(identity)
	h.renderer.Render(w, http.StatusOK, pageProfile, pageData{
		Title:     "Perfil",
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		LoginPath: h.loginPath,
		Identity:  identity,
		Profile:   p,
		PhotoURL:  photoURL(p.Foto),
	})
}

func (h *PageHandler) renderProtected(w http.ResponseWriter, r *http.Request, page, title string) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, h.loginPath, http.StatusSeeOther)
		return
	}

	h.renderer.Render(w, http.StatusOK, page, pageData{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		LoginPath: h.loginPath,
		Identity:  identity,
	})
}
