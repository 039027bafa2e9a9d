package token

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// slotCookieName はサーバー側スロットのIDを保持するCookieの名前。
const slotCookieName = "token_slot"

// slotOpTimeout はスロットの読み書き1回あたりのタイムアウト。
const slotOpTimeout = 3 * time.Second

// SlotRepository はサーバー側でトークンを保持するスロットの永続化インターフェース。
// repository.TokenSlotRepositoryの部分集合として定義する。
type SlotRepository interface {
	// Get はスロットのトークンを返す。存在しない場合は空文字を返す。
	Get(ctx context.Context, slotID string) (string, error)
	// Put はスロットにトークンを保存する。既存の値は上書きする。
	Put(ctx context.Context, slotID, token string) error
	// Delete はスロットを削除する。存在しなくてもエラーにならない。
	Delete(ctx context.Context, slotID string) error
}

// SlotStore はトークン本体をサーバー側スロットに置き、
// ブラウザには不透明なスロットIDのみをCookieで渡すStore。
// 永続化層のエラーはログに記録し、未保存として扱う。
type SlotStore struct {
	w      http.ResponseWriter
	r      *http.Request
	repo   SlotRepository
	config CookieConfig
	logger *slog.Logger

	slotID string
}

// NewSlotStore はリクエストに紐付いたSlotStoreを生成する。
// config.Nameは無視し、スロットID用のCookie名を使用する。
func NewSlotStore(w http.ResponseWriter, r *http.Request, repo SlotRepository, config CookieConfig, logger *slog.Logger) *SlotStore {
	config.Name = slotCookieName
	if logger == nil {
		logger = slog.Default()
	}
	s := &SlotStore{w: w, r: r, repo: repo, config: config, logger: logger}
	if r != nil {
		if c, err := r.Cookie(slotCookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				s.slotID = c.Value
			}
		}
	}
	return s
}

// NewSlotProvider はSlotStoreを生成するProviderを返す。
func NewSlotProvider(repo SlotRepository, config CookieConfig, logger *slog.Logger) Provider {
	return func(w http.ResponseWriter, r *http.Request) Store {
		if w == nil || r == nil {
			return nopStore{}
		}
		return NewSlotStore(w, r, repo, config, logger)
	}
}

// Save はトークンを新しく発行したスロットに保存し、スロットIDをCookieに設定する。
// リクエストが持ってきたスロットIDは再利用せず、旧スロットは削除を試みる。
func (s *SlotStore) Save(token string) {
	if s.w == nil || s.r == nil {
		return
	}

	ctx, cancel := s.context()
	defer cancel()

	if old := s.slotID; old != "" {
		if err := s.repo.Delete(ctx, old); err != nil {
			s.logger.Warn("failed to delete previous token slot",
				slog.String("slot_id", old),
				slog.String("error", err.Error()),
			)
		}
	}
	s.slotID = uuid.New().String()

	if err := s.repo.Put(ctx, s.slotID, token); err != nil {
		s.logger.Error("failed to save token slot",
			slog.String("slot_id", s.slotID),
			slog.String("error", err.Error()),
		)
		s.slotID = ""
		return
	}
	http.SetCookie(s.w, s.cookie(s.slotID, s.config.MaxAge))
}

// Read はスロットIDに対応するトークンを返す。
func (s *SlotStore) Read() (string, bool) {
	if s.r == nil || s.slotID == "" {
		return "", false
	}

	ctx, cancel := s.context()
	defer cancel()

	token, err := s.repo.Get(ctx, s.slotID)
	if err != nil {
		s.logger.Error("failed to read token slot",
			slog.String("slot_id", s.slotID),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	if token == "" {
		return "", false
	}
	return token, true
}

// Clear はスロットを削除し、スロットIDのCookieを失効させる。
func (s *SlotStore) Clear() {
	if s.w == nil || s.r == nil {
		return
	}
	if s.slotID != "" {
		ctx, cancel := s.context()
		defer cancel()

		if err := s.repo.Delete(ctx, s.slotID); err != nil {
			s.logger.Error("failed to delete token slot",
				slog.String("slot_id", s.slotID),
				slog.String("error", err.Error()),
			)
		}
		s.slotID = ""
	}
	http.SetCookie(s.w, s.cookie("", -1))
}

func (s *SlotStore) context() (context.Context, context.CancelFunc) {
	parent := context.Background()
	if s.r != nil {
		parent = s.r.Context()
	}
	return context.WithTimeout(parent, slotOpTimeout)
}

func (s *SlotStore) cookie(value string, maxAge int) *http.Cookie {
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
var _ Store = (*SlotStore)(nil)
