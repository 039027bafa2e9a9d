// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// セッションゲート、認証サービスクライアント、ミドルウェアから利用する。
type MetricsCollector interface {
	RecordGateDecision(state, reason string)
	RecordUpstreamRequest(operation, result string, duration time.Duration)
	RecordChatReply()
	RecordRateLimited(limitType string)
	RecordHTTPStatus(statusCode int)
	RecordSlotsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	gateDecisions    *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	chatReplies      prometheus.Counter
	rateLimited      *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	slotsPurged      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentapp_session_gate_decisions_total",
			Help: "セッションゲートの決定数（状態・理由別）",
		}, []string{"state", "reason"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentapp_upstream_auth_requests_total",
			Help: "認証サービスへのリクエスト数（操作・結果別）",
		}, []string{"operation", "result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentapp_upstream_auth_latency_seconds",
			Help:    "認証サービス呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		chatReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentapp_chat_replies_total",
			Help: "チャット応答の合計数",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentapp_rate_limited_total",
			Help: "レート制限で拒否されたリクエスト数",
		}, []string{"limit_type"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentapp_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		slotsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentapp_token_slots_purged_total",
			Help: "期限切れで削除されたトークンスロットの合計数",
		}),
	}

	reg.MustRegister(
		c.gateDecisions,
		c.upstreamRequests,
		c.upstreamLatency,
		c.chatReplies,
		c.rateLimited,
		c.httpStatus,
		c.slotsPurged,
	)

	return c
}

// RecordGateDecision はセッションゲートの決定を記録する。
func (c *Collector) RecordGateDecision(state, reason string) {
	c.gateDecisions.WithLabelValues(state, reason).Inc()
}

// RecordUpstreamRequest は認証サービス呼び出しの結果とレイテンシを記録する。
// resultは success, rejected, unavailable のいずれか。
func (c *Collector) RecordUpstreamRequest(operation, result string, duration time.Duration) {
	c.upstreamRequests.WithLabelValues(operation, result).Inc()
	c.upstreamLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordChatReply はチャット応答を記録する。
func (c *Collector) RecordChatReply() {
	c.chatReplies.Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(limitType string) {
	c.rateLimited.WithLabelValues(limitType).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSlotsPurged は削除されたトークンスロット数を記録する。
func (c *Collector) RecordSlotsPurged(count int64) {
	c.slotsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
