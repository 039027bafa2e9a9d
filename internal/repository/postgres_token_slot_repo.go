package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresTokenSlotRepo はPostgreSQLを使用したトークンスロットリポジトリ。
// 期限切れの行はworkerのクリーンアップジョブが削除する。
type PostgresTokenSlotRepo struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresTokenSlotRepo はPostgresTokenSlotRepoを生成する。ttlが0以下の場合はDefaultSlotTTLを使用する。
func NewPostgresTokenSlotRepo(db *sql.DB, ttl time.Duration) *PostgresTokenSlotRepo {
	if ttl <= 0 {
		ttl = DefaultSlotTTL
	}
	return &PostgresTokenSlotRepo{db: db, ttl: ttl}
}

// Get は有効期限内のスロットのトークンを返す。
func (r *PostgresTokenSlotRepo) Get(ctx context.Context, slotID string) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx,
		`SELECT token FROM token_slots
		 WHERE id = $1 AND expires_at > now()`,
		slotID,
	).Scan(&token)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token slot: %w", err)
	}
	return token, nil
}

// Put はスロットをupsertする。
func (r *PostgresTokenSlotRepo) Put(ctx context.Context, slotID, token string) error {
	expiresAt := time.Now().Add(r.ttl)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO token_slots (id, token, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 ON CONFLICT (id) DO UPDATE
		 SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, updated_at = now()`,
		slotID, token, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put token slot: %w", err)
	}
	return nil
}

// Delete は指定IDのスロットを削除する。
func (r *PostgresTokenSlotRepo) Delete(ctx context.Context, slotID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM token_slots WHERE id = $1`,
		slotID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete token slot: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TokenSlotRepository = (*PostgresTokenSlotRepo)(nil)
