// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"
)

// DefaultSlotTTL はトークンスロットの既定の有効期間。トークンCookieの既定MaxAgeと揃える。
const DefaultSlotTTL = 7 * 24 * time.Hour

// TokenSlotRepository はサーバー側でベアラートークンを保持するスロットの永続化インターフェース。
// スロットIDはブラウザのCookieで渡されるUUID。
type TokenSlotRepository interface {
	// Get はスロットのトークンを返す。存在しない、または期限切れの場合は空文字を返す。
	Get(ctx context.Context, slotID string) (string, error)
	// Put はスロットにトークンを保存し、有効期限を延長する。既存の値は上書きする。
	Put(ctx context.Context, slotID, token string) error
	// Delete はスロットを削除する。存在しなくてもエラーにならない。
	Delete(ctx context.Context, slotID string) error
}
