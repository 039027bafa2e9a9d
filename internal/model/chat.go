package model

import "time"

// MessageRole はチャットメッセージの送信者を表す。
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ChatMessage はチャット画面に表示する1件のメッセージ。
type ChatMessage struct {
	ID        string
	Role      MessageRole
	Content   string
	CreatedAt time.Time
}

// ChatExchange はユーザーの送信メッセージと、それに対する応答の組。
type ChatExchange struct {
	Request ChatMessage
	Reply   ChatMessage
}
