// Package upstream は外部認証サービスのHTTPクライアントを提供する。
// 認証サービスは POST /auth/login と POST /auth/register をJSONで公開している。
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

const (
	// DefaultBaseURL は認証サービスのデフォルトのベースURL。
	DefaultBaseURL = "http://localhost:5000/api"
	// maxResponseSize はレスポンスボディの最大読み取りサイズ。
	maxResponseSize = 1 << 20
)

// 操作名。メトリクスのラベルにも使用する。
const (
	OperationLogin    = "login"
	OperationRegister = "register"
)

// 呼び出し結果。メトリクスのラベルにも使用する。
const (
	ResultSuccess     = "success"
	ResultRejected    = "rejected"
	ResultUnavailable = "unavailable"
)

// ErrUnavailable は認証サービスに到達できない、または応答を解釈できないことを表す。
var ErrUnavailable = errors.New("auth service unavailable")

// RemoteError は認証サービスがerrorフィールド付きで応答したことを表す。
// Messageは認証サービスの文言をそのまま保持し、画面にも表示する。
type RemoteError struct {
	Status  int
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *RemoteError) Error() string {
	return fmt.Sprintf("auth service rejected request (status %d): %s", e.Status, e.Message)
}

// LoginRequest はログインリクエストのボディ。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest は新規登録リクエストのボディ。
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult は認証成功時の結果。
// 認証サービスがtokenを返さなかった場合、Tokenは空文字となる。
type AuthResult struct {
	Token string
}

// authResponse は認証サービスのレスポンスボディ。tokenとerror以外は読み捨てる。
type authResponse struct {
	Token string `json:"token"`
	Error string `json:"error"`
}

// Recorder は呼び出し結果を記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type Recorder interface {
	RecordUpstreamRequest(operation, result string, duration time.Duration)
}

// Client は認証サービスのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	recorder   Recorder
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合はDefaultBaseURLを使用する。recorderはnilでもよい。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string, recorder Recorder) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		recorder:   recorder,
	}
}

// Login はメールアドレスとパスワードでログインし、トークンを取得する。
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	return c.post(ctx, OperationLogin, "/auth/login", req)
}

// Register は新規ユーザーを登録し、トークンを取得する。
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	return c.post(ctx, OperationRegister, "/auth/register", req)
}

// post はJSONボディを送信し、ステータスに関わらずレスポンスのtokenとerrorを解釈する。
func (c *Client) post(ctx context.Context, operation, path string, body any) (*AuthResult, error) {
	start := time.Now()
	endpoint := c.baseURL + path

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("auth service request failed",
			slog.String("operation", operation),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		c.record(operation, ResultUnavailable, start)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("failed to read auth service response",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		c.record(operation, ResultUnavailable, start)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var decoded authResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.logger.Error("failed to parse auth service response",
			slog.String("operation", operation),
			slog.Int("http_status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		c.record(operation, ResultUnavailable, start)
		return nil, fmt.Errorf("%w: invalid response body: %v", ErrUnavailable, err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if decoded.Error != "" || !ok {
		msg := decoded.Error
		if msg == "" {
			msg = fmt.Sprintf("Error del servidor (%d)", resp.StatusCode)
		}
		c.logger.Warn("auth service rejected request",
			slog.String("operation", operation),
			slog.Int("http_status", resp.StatusCode),
		)
		c.record(operation, ResultRejected, start)
		return nil, &RemoteError{Status: resp.StatusCode, Message: msg}
	}

	c.logger.Info("auth service request succeeded",
		slog.String("operation", operation),
		slog.Int("http_status", resp.StatusCode),
		slog.Bool("token_issued", decoded.Token != ""),
	)
	c.record(operation, ResultSuccess, start)
	return &AuthResult{Token: decoded.Token}, nil
}

func (c *Client) record(operation, result string, start time.Time) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordUpstreamRequest(operation, result, time.Since(start))
}
