package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/agentapp/internal/model"
	"github.com/hitoshi/agentapp/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// 画面テンプレートの名前。templates/<name>.html に対応する。
const (
	pageLogin         = "login"
	pageRegister      = "register"
	pageHome          = "home"
	pageChat          = "mi-chat"
	pageProfile       = "perfil"
	pageConfiguracion = "configuracion"
)

var pageNames = []string{
	pageLogin, pageRegister, pageHome, pageChat, pageProfile, pageConfiguracion,
}

// pageData は画面テンプレートに渡す値。
type pageData struct {
	Title     string
	CSRFToken string
	LoginPath string
	Identity  *model.SessionIdentity
	Profile   model.Profile
	PhotoURL  template.URL

	// フォーム再表示用
	Error          string
	Email          string
	Name           string
	PasswordErrors []string
	Strength       string
	StrengthLabel  string
}

// Renderer は埋め込みテンプレートから画面を描画する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は全画面のテンプレートを読み込む。各画面はlayout.htmlと組み合わせて解析する。
func NewRenderer() (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render は画面を描画する。実行エラーで部分的なHTMLを返さないよう、バッファに描画してから書き込む。
func (rd *Renderer) Render(w http.ResponseWriter, statusCode int, name string, data pageData) {
	tmpl, ok := rd.pages[name]
	if !ok {
		slog.Error("unknown page template", slog.String("page", name))
		http.Error(w, model.NewInternalError().Message, http.StatusInternalServerError)
		return
	}

	if data.LoginPath == "" {
		data.LoginPath = session.DefaultLoginPath
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, model.NewInternalError().Message, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write(buf.Bytes())
}

// strengthLabels はパスワード強度の表示名。
var strengthLabels = map[string]string{
	"weak":   "Débil",
	"medium": "Media",
	"strong": "Fuerte",
}

// photoURL はプロフィール写真を img 要素で表示できる形にする。
// data:image/ と https のURLのみ通し、それ以外は空文字を返す。
func photoURL(foto string) template.URL {
	if strings.HasPrefix(foto, "data:image/") || strings.HasPrefix(foto, "https://") {
		return template.URL(foto)
	}
	return ""
}

// staticHandler は埋め込みの静的ファイルを /static/ 配下で配信する。
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
