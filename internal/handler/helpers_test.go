package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/agentapp/internal/auth"
	"github.com/hitoshi/agentapp/internal/chat"
	"github.com/hitoshi/agentapp/internal/model"
	"github.com/hitoshi/agentapp/internal/profile"
	"github.com/hitoshi/agentapp/internal/session"
	"github.com/hitoshi/agentapp/internal/token"
)

// compile-time interface check
var (
	_ CredentialService = (*auth.Service)(nil)
	_ SessionGate       = (*session.Gate)(nil)
	_ ChatResponder     = (*chat.Responder)(nil)
	_ ProfileEditor     = (*profile.Service)(nil)
)

// --- モック定義 ---

type mockCredentialService struct {
	loginFn    func(ctx context.Context, form auth.LoginForm) (string, error)
	registerFn func(ctx context.Context, form auth.RegisterForm) (string, error)
}

func (m *mockCredentialService) Login(ctx context.Context, form auth.LoginForm) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, form)
	}
	return "", nil
}

func (m *mockCredentialService) Register(ctx context.Context, form auth.RegisterForm) (string, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, form)
	}
	return "", nil
}

type mockChatResponder struct {
	replyFn func(ctx context.Context, content string) (*model.ChatExchange, error)
}

func (m *mockChatResponder) Reply(ctx context.Context, content string) (*model.ChatExchange, error) {
	if m.replyFn != nil {
		return m.replyFn(ctx, content)
	}
	return nil, nil
}

type mockProfileEditor struct {
	applyFn func(current model.Profile, update model.ProfileUpdate) (model.Profile, error)
}

func (m *mockProfileEditor) Apply(current model.Profile, update model.ProfileUpdate) (model.Profile, error) {
	if m.applyFn != nil {
		return m.applyFn(current, update)
	}
	return current, nil
}

// --- テストヘルパー ---

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newTestLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil))
}

func newTestGate() *session.Gate {
	return session.NewGate(session.Config{}, nil, newTestLogger())
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	rd, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	return rd
}

// fixedProvider はリクエストに関わらず同じStoreを返すProvider。
func fixedProvider(store token.Store) token.Provider {
	return func(http.ResponseWriter, *http.Request) token.Store { return store }
}
