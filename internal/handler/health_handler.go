package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthCheckTimeout はバックエンド疎通確認のタイムアウト。
const healthCheckTimeout = 3 * time.Second

// HealthCheckFunc はトークンスロットのバックエンドへの疎通を確認する関数。
type HealthCheckFunc func(ctx context.Context) error

// healthHandler はヘルスチェックのハンドラーを返す。checkがnilの場合は常に200を返す。
// GET /health
func healthHandler(check HealthCheckFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
