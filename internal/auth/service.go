// Package auth はメールアドレスとパスワードによるログインと新規登録を提供する。
// 入力を検証したうえで外部認証サービスに委譲し、発行されたトークンを返す。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/agentapp/internal/model"
	"github.com/hitoshi/agentapp/internal/upstream"
)

// Authenticator は外部認証サービスの呼び出しを抽象化するインターフェース。
type Authenticator interface {
	Login(ctx context.Context, req upstream.LoginRequest) (*upstream.AuthResult, error)
	Register(ctx context.Context, req upstream.RegisterRequest) (*upstream.AuthResult, error)
}

// Service は認証サービス。
type Service struct {
	client   Authenticator
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(client Authenticator, logger *slog.Logger) *Service {
	return &Service{
		client:   client,
		validate: newValidator(),
		logger:   logger,
	}
}

// Login は入力を検証し、認証サービスでログインする。
// 成功時は発行されたトークンを返す。認証サービスがトークンを返さなかった場合は空文字となる。
func (s *Service) Login(ctx context.Context, form LoginForm) (string, error) {
	form = normalizeLogin(form)
	if err := s.validate.Struct(form); err != nil {
		return "", toAPIError(err, loginMessages)
	}

	result, err := s.client.Login(ctx, upstream.LoginRequest{
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		return "", s.mapUpstreamError(upstream.OperationLogin, err)
	}
	return result.Token, nil
}

// Register は入力を検証し、認証サービスで新規登録する。
// 入力は加工せずに送信する。確認用パスワードは認証サービスに送信しない。
func (s *Service) Register(ctx context.Context, form RegisterForm) (string, error) {
	if err := s.validate.Struct(form); err != nil {
		return "", toAPIError(err, registerMessages)
	}

	result, err := s.client.Register(ctx, upstream.RegisterRequest{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		return "", s.mapUpstreamError(upstream.OperationRegister, err)
	}
	return result.Token, nil
}

// mapUpstreamError は認証サービスのエラーを画面表示用のAPIErrorに変換する。
func (s *Service) mapUpstreamError(operation string, err error) error {
	var remoteErr *upstream.RemoteError
	switch {
	case errors.As(err, &remoteErr):
		return model.NewAuthRejectedError(remoteErr.Message)
	case errors.Is(err, upstream.ErrUnavailable):
		return model.NewAuthUnavailableError()
	default:
		s.logger.Error("unexpected auth service error",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s failed: %w", operation, err)
	}
}
