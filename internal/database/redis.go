package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisOptions はRedis接続の設定。
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// OpenRedis はRedisクライアントを生成し、疎通を確認する。
// 疎通に失敗した場合はクライアントを閉じてエラーを返す。
func OpenRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}
