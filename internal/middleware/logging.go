package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/agentapp/internal/session"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// sessionLogKey はアクセスログ用のゲート判定結果を格納するキー。
var sessionLogKey = contextKey("session_log")

// sessionLog は内側のセッションミドルウェアが書き込み、ログミドルウェアが読み出す。
type sessionLog struct {
	state  string
	reason string
}

// markSession はゲートの判定結果をアクセスログ用に記録する。
// ログミドルウェアを通っていないリクエストでは何もしない。
func markSession(ctx context.Context, outcome session.Outcome) {
	sl, ok := ctx.Value(sessionLogKey).(*sessionLog)
	if !ok {
		return
	}
	sl.state = outcome.State.String()
	sl.reason = string(outcome.Reason)
}

// StatusRecorder はレスポンスのステータスコードを記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type StatusRecorder interface {
	RecordHTTPStatus(status int)
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、ゲートを通過した場合はsession_stateとsession_reasonを含む。
// トークンやメールアドレスは出力しない。recorderはnilでもよい。
func NewLoggingMiddleware(logger *slog.Logger, recorder StatusRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			sl := &sessionLog{}
			ctx := context.WithValue(r.Context(), sessionLogKey, sl)

			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			if sl.state != "" {
				attrs = append(attrs,
					slog.String("session_state", sl.state),
					slog.String("session_reason", sl.reason),
				)
			}

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request", attrs...)

			if recorder != nil {
				recorder.RecordHTTPStatus(rec.statusCode)
			}
		})
	}
}
