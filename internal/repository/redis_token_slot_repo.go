package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisSlotKeyPrefix はスロットのキー接頭辞。
const redisSlotKeyPrefix = "token_slot:"

// RedisTokenSlotRepo はRedisを使用したトークンスロットリポジトリ。
// 有効期限はキーのTTLで管理するため、クリーンアップジョブは不要。
type RedisTokenSlotRepo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTokenSlotRepo はRedisTokenSlotRepoを生成する。ttlが0以下の場合はDefaultSlotTTLを使用する。
func NewRedisTokenSlotRepo(client *redis.Client, ttl time.Duration) *RedisTokenSlotRepo {
	if ttl <= 0 {
		ttl = DefaultSlotTTL
	}
	return &RedisTokenSlotRepo{client: client, ttl: ttl}
}

func (r *RedisTokenSlotRepo) key(slotID string) string {
	return redisSlotKeyPrefix + slotID
}

// Get はスロットのトークンを返す。キーが存在しない場合は空文字を返す。
func (r *RedisTokenSlotRepo) Get(ctx context.Context, slotID string) (string, error) {
	val, err := r.client.Get(ctx, r.key(slotID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token slot: %w", err)
	}
	return val, nil
}

// Put はスロットにトークンをTTL付きで保存する。
func (r *RedisTokenSlotRepo) Put(ctx context.Context, slotID, token string) error {
	if err := r.client.Set(ctx, r.key(slotID), token, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to put token slot: %w", err)
	}
	return nil
}

// Delete はスロットを削除する。
func (r *RedisTokenSlotRepo) Delete(ctx context.Context, slotID string) error {
	if err := r.client.Del(ctx, r.key(slotID)).Err(); err != nil {
		return fmt.Errorf("failed to delete token slot: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TokenSlotRepository = (*RedisTokenSlotRepo)(nil)
