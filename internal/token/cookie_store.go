package token

import (
	"log/slog"
	"net/http"
	"net/url"
)

// maxCookieValueSize はブラウザが保持できるCookie値のおおよその上限（バイト）。
// これを超えるとブラウザは警告なしにCookieを破棄する。
const maxCookieValueSize = 4096

// CookieConfig はトークンを保持するCookieの設定。
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
	MaxAge int // 有効期間（秒）
}

// DefaultCookieConfig はデフォルトのCookie設定を返す。
// 有効期間は7日。
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:   Key,
		MaxAge: 7 * 24 * 60 * 60,
	}
}

// CookieStore はブラウザのCookieにトークンを保持するStore。
// 1リクエストの処理中にSaveまたはClearした結果は、同じリクエスト内のReadに反映される。
type CookieStore struct {
	w      http.ResponseWriter
	r      *http.Request
	config CookieConfig

	pending *string // 同一リクエスト内で書き込んだ値。nilなら未書き込み
}

// NewCookieStore はリクエストとレスポンスに紐付いたCookieStoreを生成する。
func NewCookieStore(w http.ResponseWriter, r *http.Request, config CookieConfig) *CookieStore {
	if config.Name == "" {
		config.Name = Key
	}
	return &CookieStore{w: w, r: r, config: config}
}

// NewCookieProvider はCookieStoreを生成するProviderを返す。
// w または r がnilの場合は何もしないStoreを返す。
func NewCookieProvider(config CookieConfig) Provider {
	return func(w http.ResponseWriter, r *http.Request) Store {
		if w == nil || r == nil {
			return nopStore{}
		}
		return NewCookieStore(w, r, config)
	}
}

// Save はトークンをHttpOnly Cookieに保存する。
// Cookieに使えない文字を含む場合もReadで同じ値に戻るようにエスケープする。
func (s *CookieStore) Save(token string) {
	if s.w == nil {
		return
	}
	value := url.QueryEscape(token)
	if len(value) > maxCookieValueSize {
		slog.Warn("token cookie exceeds browser size limit; use the postgres or redis token store backend",
			slog.Int("size", len(value)),
			slog.Int("limit", maxCookieValueSize),
		)
	}
	http.SetCookie(s.w, s.cookie(value, s.config.MaxAge))
	s.pending = &token
}

// Read はCookieからトークンを読み出す。
func (s *CookieStore) Read() (string, bool) {
	if s.pending != nil {
		return *s.pending, *s.pending != ""
	}
	if s.r == nil {
		return "", false
	}
	c, err := s.r.Cookie(s.config.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

// Clear はトークンCookieを失効させる。
func (s *CookieStore) Clear() {
	empty := ""
	s.pending = &empty
	if s.w == nil {
		return
	}
	http.SetCookie(s.w, s.cookie("", -1))
}

func (s *CookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.config.Name,
		Value:    value,
		Path:     "/",
		Domain:   s.config.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// compile-time interface check
var _ Store = (*CookieStore)(nil)
