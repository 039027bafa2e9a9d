// Package cleanup は期限切れトークンスロットの定期削除ジョブを提供する。
// PostgreSQLバックエンドのみが対象で、Redisバックエンドはキーの TTL で失効する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval は削除ジョブの既定の実行間隔。
const DefaultInterval = time.Hour

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Recorder は削除件数を記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type Recorder interface {
	RecordSlotsPurged(count int64)
}

// CleanupJob は expires_at を過ぎたトークンスロットを削除するジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	db       Executor
	recorder Recorder
	logger   *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(db Executor, recorder Recorder, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:       db,
		recorder: recorder,
		logger:   logger,
	}
}

// Run は期限切れのスロットを1回削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	result, err := j.db.ExecContext(ctx, `DELETE FROM token_slots WHERE expires_at < now()`)
	if err != nil {
		j.logger.Error("token slot cleanup failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to purge token slots: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("failed to read purged row count",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to read purged row count: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordSlotsPurged(deletedCount)
	}

	j.logger.Info("token slot cleanup completed",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start はintervalごとにRunを実行する。起動直後にも1回実行する。
// コンテキストがキャンセルされるまで戻らない。Runのエラーはログに記録して継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("token slot cleanup scheduler started",
		slog.Duration("interval", interval),
	)

	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("token slot cleanup scheduler stopped")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
