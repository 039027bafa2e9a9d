// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, chat, profile, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeValidation        = "VALIDATION_FAILED"
	ErrCodeWeakPassword      = "WEAK_PASSWORD"
	ErrCodePasswordMismatch  = "PASSWORD_MISMATCH"
	ErrCodeAuthRejected      = "AUTH_REJECTED"
	ErrCodeAuthUnavailable   = "AUTH_UNAVAILABLE"
	ErrCodeEmptyMessage      = "EMPTY_MESSAGE"
	ErrCodeInvalidProfile    = "INVALID_PROFILE"
	ErrCodeInvalidPhoto      = "INVALID_PHOTO"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewUnauthorizedError はセッション未確立エラーを生成する。
// トークン未保存とトークン破損は区別しない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Debes iniciar sesión para continuar.",
		Category: "auth",
		Action:   "Inicia sesión nuevamente.",
	}
}

// NewInvalidRequestError はリクエストボディを解釈できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "La solicitud no es válida.",
		Category: "validation",
		Action:   "Recarga la página e inténtalo de nuevo.",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Revisa los datos ingresados e inténtalo de nuevo.",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "La contraseña no cumple con los requisitos de seguridad",
		Category: "validation",
		Action:   "Usa al menos 8 caracteres con 4 minúsculas, 1 mayúscula, 1 número y 1 carácter especial.",
	}
}

// NewPasswordMismatchError は確認用パスワード不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "Las contraseñas no coinciden",
		Category: "validation",
		Action:   "Ingresa la misma contraseña en ambos campos.",
	}
}

// NewAuthRejectedError は認証サービスがリクエストを拒否した場合のエラーを生成する。
// messageには認証サービスのerrorフィールドをそのまま渡す。
func NewAuthRejectedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthRejected,
		Message:  message,
		Category: "auth",
		Action:   "Verifica tus credenciales e inténtalo de nuevo.",
	}
}

// NewAuthUnavailableError は認証サービスに接続できない場合のエラーを生成する。
func NewAuthUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthUnavailable,
		Message:  "No se pudo conectar con el servidor",
		Category: "system",
		Action:   "Espera un momento y vuelve a intentarlo.",
	}
}

// NewEmptyMessageError は空のチャットメッセージに対するエラーを生成する。
func NewEmptyMessageError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyMessage,
		Message:  "El mensaje no puede estar vacío.",
		Category: "chat",
		Action:   "Escribe un mensaje antes de enviarlo.",
	}
}

// NewInvalidProfileError はプロフィール項目の検証エラーを生成する。
func NewInvalidProfileError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProfile,
		Message:  fmt.Sprintf("Valor inválido para %s: %s", field, reason),
		Category: "profile",
		Action:   "Corrige el campo indicado y guarda nuevamente.",
	}
}

// NewInvalidPhotoError はプロフィール写真URLの検証エラーを生成する。
func NewInvalidPhotoError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPhoto,
		Message:  "La foto debe ser una imagen válida o una URL pública https.",
		Category: "profile",
		Action:   "Selecciona otra imagen.",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "Demasiadas solicitudes. Inténtalo más tarde.",
		Category: "system",
		Action:   "Espera unos segundos antes de volver a intentarlo.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Ocurrió un error interno.",
		Category: "system",
		Action:   "Espera un momento y vuelve a intentarlo.",
	}
}
