// Package token はベアラートークンの保管とペイロードの復元を提供する。
//
// Storeは固定キー "token" に対応する単一スロットで、保存・読み出し・削除のみを持つ。
// ブラウザのリクエストに紐付かない実行コンテキストでは、保存と削除は何もせず、
// 読み出しは常に未保存として振る舞う。どの操作もpanicやエラーを呼び出し元に返さない。
package token

import (
	"net/http"
	"sync"
)

// Key はトークンを保存する固定の名前。
const Key = "token"

// Store はベアラートークンを1つだけ保持する格納領域。
// 後から書き込んだ値が常に優先される。
type Store interface {
	// Save はトークンを保存する。既存の値は上書きする。形式の検証は行わない。
	Save(token string)
	// Read は保存済みのトークンを返す。未保存の場合はfalseを返す。
	Read() (string, bool)
	// Clear は保存済みのトークンを削除する。未保存でもエラーにならない。
	Clear()
}

// Provider はリクエストごとにStoreを生成する。
// w または r がnilの場合は、ブラウザに紐付かないStoreを返すこと。
type Provider func(w http.ResponseWriter, r *http.Request) Store

// MemoryStore はプロセス内メモリに保持するStore。
// テスト用の差し替えや、リクエストを伴わない処理で使用する。
type MemoryStore struct {
	mu    sync.Mutex
	token string
	ok    bool
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWithToken はトークンを保存済みのMemoryStoreを生成する。
func NewMemoryStoreWithToken(token string) *MemoryStore {
	s := &MemoryStore{}
	s.Save(token)
	return s
}

// Save はトークンを保存する。
func (s *MemoryStore) Save(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.ok = token != ""
}

// Read は保存済みのトークンを返す。
func (s *MemoryStore) Read() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.ok
}

// Clear は保存済みのトークンを削除する。
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.ok = false
}

// nopStore はブラウザに紐付かない実行コンテキスト用のStore。
type nopStore struct{}

func (nopStore) Save(string)          {}
func (nopStore) Read() (string, bool) { return "", false }
func (nopStore) Clear()               {}

// compile-time interface check
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = nopStore{}
)
