// Package session は保護ページ共通のセッションゲートを提供する。
//
// ゲートは表示のたびにトークンストアを読み、トークンが無い場合と
// ペイロードを復元できない場合はどちらもログイン画面へのリダイレクトに決定する。
// 利用者に対してこの2つは区別しない。
package session

import (
	"errors"
	"log/slog"

	"github.com/hitoshi/agentapp/internal/model"
	"github.com/hitoshi/agentapp/internal/token"
)

// DefaultLoginPath はリダイレクト先のログイン画面のパス。
const DefaultLoginPath = "/login"

// State はゲートの状態を表す。ゼロ値はLoading。
type State int

const (
	// StateLoading はトークンの読み出し前。
	StateLoading State = iota
	// StateAuthenticated はトークンからSessionIdentityを復元できた状態。
	StateAuthenticated
	// StateRedirecting はログイン画面への遷移を決定した状態。
	StateRedirecting
)

// String は状態名を返す。メトリクスのラベルにも使用する。
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// Reason はゲートが状態を決定した理由。
type Reason string

const (
	ReasonResolved       Reason = "resolved"
	ReasonMissingToken   Reason = "missing_token"
	ReasonMalformedToken Reason = "malformed_token"
	ReasonLogout         Reason = "logout"
)

// Outcome はゲートの決定結果。
// StateがAuthenticatedの場合のみIdentityが設定され、
// StateがRedirectingの場合のみRedirectToが設定される。
type Outcome struct {
	State      State
	Identity   *model.SessionIdentity
	RedirectTo string
	Reason     Reason
}

// Recorder はゲートの決定を記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type Recorder interface {
	RecordGateDecision(state, reason string)
}

// Config はゲートの設定。
type Config struct {
	LoginPath string
}

// Gate は保護ページと保護APIが共有するセッションゲート。
// 状態を持たないため、複数のgoroutineから同時に使用できる。
type Gate struct {
	loginPath string
	recorder  Recorder
	logger    *slog.Logger
}

// NewGate はGateを生成する。recorderとloggerはnilでもよい。
func NewGate(config Config, recorder Recorder, logger *slog.Logger) *Gate {
	if config.LoginPath == "" {
		config.LoginPath = DefaultLoginPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		loginPath: config.LoginPath,
		recorder:  recorder,
		logger:    logger,
	}
}

// LoginPath はリダイレクト先のパスを返す。
func (g *Gate) LoginPath() string {
	return g.loginPath
}

// Mount は保護ページの表示時にトークンを読み出し、表示かリダイレクトかを決定する。
// 復元に失敗したトークンはストアから削除しない。再試行もしない。
func (g *Gate) Mount(store token.Store) Outcome {
	raw, ok := store.Read()
	if !ok {
		return g.redirect(ReasonMissingToken)
	}

	identity, err := token.Resolve(raw)
	if err != nil {
		// トークンの値そのものはログに出さない
		if errors.Is(err, token.ErrDecodeFailure) {
			g.logger.Debug("session token could not be decoded",
				slog.String("error", err.Error()),
				slog.Int("token_length", len(raw)),
			)
		}
		return g.redirect(ReasonMalformedToken)
	}

	g.record(StateAuthenticated, ReasonResolved)
	return Outcome{
		State:    StateAuthenticated,
		Identity: identity,
		Reason:   ReasonResolved,
	}
}

// Logout はどの状態からでもストアを削除し、リダイレクトに決定する。
func (g *Gate) Logout(store token.Store) Outcome {
	store.Clear()
	return g.redirect(ReasonLogout)
}

func (g *Gate) redirect(reason Reason) Outcome {
	g.record(StateRedirecting, reason)
	return Outcome{
		State:      StateRedirecting,
		RedirectTo: g.loginPath,
		Reason:     reason,
	}
}

func (g *Gate) record(state State, reason Reason) {
	if g.recorder == nil {
		return
	}
	g.recorder.RecordGateDecision(state.String(), string(reason))
}
