package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hitoshi/agentapp/internal/model"
)

// ChatResponder はチャットハンドラーが必要とするインターフェース。chat.Responderが実装する。
type ChatResponder interface {
	Reply(ctx context.Context, content string) (*model.ChatExchange, error)
}

// ChatHandler はチャットAPIのHTTPハンドラー。
type ChatHandler struct {
	responder ChatResponder
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(responder ChatResponder) *ChatHandler {
	return &ChatHandler{responder: responder}
}

// chatMessageRequest はメッセージ送信リクエストのボディ。
type chatMessageRequest struct {
	Content string `json:"content"`
}

// chatMessageResponse は1件のメッセージのAPIレスポンス。
type chatMessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// chatExchangeResponse は送信メッセージと応答の組のAPIレスポンス。
type chatExchangeResponse struct {
	Request chatMessageResponse `json:"request"`
	Reply   chatMessageResponse `json:"reply"`
}

// SendMessage はメッセージを受け取り、模擬応答を返す。
// POST /api/chat/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	exchange, err := h.responder.Reply(r.Context(), req.Content)
	if err != nil {
		// クライアントが切断した場合は応答を書かない
		if errors.Is(err, context.Canceled) {
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatExchangeResponse{
		Request: toChatMessageResponse(exchange.Request),
		Reply:   toChatMessageResponse(exchange.Reply),
	})
}

func toChatMessageResponse(m model.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
