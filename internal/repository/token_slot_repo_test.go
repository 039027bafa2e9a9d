package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/agentapp/internal/token"
)

// token.SlotStoreから利用できることを検証
var (
	_ token.SlotRepository = (*PostgresTokenSlotRepo)(nil)
	_ token.SlotRepository = (*RedisTokenSlotRepo)(nil)
)

func TestNewPostgresTokenSlotRepo_DefaultTTL(t *testing.T) {
	repo := NewPostgresTokenSlotRepo(nil, 0)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
	if repo.ttl != DefaultSlotTTL {
		t.Errorf("ttl = %v, want %v", repo.ttl, DefaultSlotTTL)
	}
}

func TestNewRedisTokenSlotRepo_CustomTTL(t *testing.T) {
	repo := NewRedisTokenSlotRepo(nil, time.Hour)
	if repo.ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", repo.ttl)
	}
	if got := repo.key("abc"); got != "token_slot:abc" {
		t.Errorf("key = %q, want %q", got, "token_slot:abc")
	}
}

// openTestDB はTEST_DATABASE_URLのPostgreSQLに接続する。未設定や接続不可の場合はスキップする。
// token_slotsテーブルはマイグレーション済みであること。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// openTestRedis はTEST_REDIS_ADDRのRedisに接続する。未設定や接続不可の場合はスキップする。
func openTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR が未設定のためスキップ")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("テスト用Redisに接続できません（スキップ）: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func exerciseSlotRepository(t *testing.T, repo TokenSlotRepository) {
	t.Helper()
	ctx := context.Background()
	slotID := uuid.NewString()

	got, err := repo.Get(ctx, slotID)
	if err != nil || got != "" {
		t.Fatalf("Get(empty) = (%q, %v), want empty", got, err)
	}

	if err := repo.Put(ctx, slotID, "a.b.c"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := repo.Put(ctx, slotID, "x.y.z"); err != nil {
		t.Fatalf("Put (overwrite) failed: %v", err)
	}
	if got, err := repo.Get(ctx, slotID); err != nil || got != "x.y.z" {
		t.Fatalf("Get = (%q, %v), want x.y.z", got, err)
	}

	if err := repo.Delete(ctx, slotID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, slotID); err != nil {
		t.Fatalf("Delete (missing) failed: %v", err)
	}
	if got, err := repo.Get(ctx, slotID); err != nil || got != "" {
		t.Fatalf("Get after delete = (%q, %v), want empty", got, err)
	}
}

func TestPostgresTokenSlotRepo_Lifecycle(t *testing.T) {
	exerciseSlotRepository(t, NewPostgresTokenSlotRepo(openTestDB(t), time.Hour))
}

func TestPostgresTokenSlotRepo_ExpiredSlotIsAbsent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	slotID := uuid.NewString()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO token_slots (id, token, expires_at) VALUES ($1, 'a.b.c', now() - interval '1 minute')`,
		slotID,
	); err != nil {
		t.Fatalf("テストデータ挿入に失敗: %v", err)
	}
	t.Cleanup(func() { db.Exec(`DELETE FROM token_slots WHERE id = $1`, slotID) })

	got, err := NewPostgresTokenSlotRepo(db, time.Hour).Get(ctx, slotID)
	if err != nil || got != "" {
		t.Errorf("Get(expired) = (%q, %v), want empty", got, err)
	}
}

func TestRedisTokenSlotRepo_Lifecycle(t *testing.T) {
	exerciseSlotRepository(t, NewRedisTokenSlotRepo(openTestRedis(t), time.Hour))
}

func TestRedisTokenSlotRepo_SetsTTL(t *testing.T) {
	client := openTestRedis(t)
	repo := NewRedisTokenSlotRepo(client, time.Minute)
	ctx := context.Background()
	slotID := uuid.NewString()

	if err := repo.Put(ctx, slotID, "a.b.c"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	t.Cleanup(func() { client.Del(ctx, repo.key(slotID)) })

	ttl, err := client.TTL(ctx, repo.key(slotID)).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want (0, 1m]", ttl)
	}
}
