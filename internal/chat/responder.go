// Package chat は「Mi Chat」画面の模擬応答を提供する。
// 外部のモデルには接続せず、受け取ったメッセージを定型文で返す。
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/agentapp/internal/model"
	"github.com/hitoshi/agentapp/internal/security"
)

// DefaultReplyDelay は応答を返すまでの待ち時間。
const DefaultReplyDelay = time.Second

// replyFormat は模擬応答の定型文。
const replyFormat = `He recibido tu mensaje: "%s". Estoy aquí para ayudarte.`

// Recorder は応答の生成を記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type Recorder interface {
	RecordChatReply()
}

// Responder は模擬応答を生成する。
type Responder struct {
	sanitizer security.Sanitizer
	delay     time.Duration
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewResponder はResponderを生成する。delayが負の場合は0として扱う。recorderはnilでもよい。
func NewResponder(sanitizer security.Sanitizer, delay time.Duration, recorder Recorder, logger *slog.Logger) *Responder {
	if delay < 0 {
		delay = 0
	}
	return &Responder{
		sanitizer: sanitizer,
		delay:     delay,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Reply はユーザーのメッセージを受け取り、待ち時間の後に応答を返す。
// タグを除去した結果が空の場合はEmptyMessageエラーを返す。
// 待機中にctxがキャンセルされた場合はctxのエラーを返す。
func (r *Responder) Reply(ctx context.Context, content string) (*model.ChatExchange, error) {
	text := r.sanitizer.SanitizeText(content)
	if text == "" {
		return nil, model.NewEmptyMessageError()
	}

	request := model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.MessageRoleUser,
		Content:   text,
		CreatedAt: r.now(),
	}

	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			r.logger.Debug("chat reply canceled", slog.String("error", ctx.Err().Error()))
			return nil, fmt.Errorf("chat reply canceled: %w", ctx.Err())
		}
	}

	reply := model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.MessageRoleAssistant,
		Content:   fmt.Sprintf(replyFormat, text),
		CreatedAt: r.now(),
	}

	if r.recorder != nil {
		r.recorder.RecordChatReply()
	}
	return &model.ChatExchange{Request: request, Reply: reply}, nil
}
