package auth

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/agentapp/internal/model"
)

// emailPattern は登録画面と同じ緩いメールアドレス形式。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// LoginForm はログインフォームの入力。
type LoginForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// RegisterForm は新規登録フォームの入力。
// フィールドの並び順が検証エラーの優先順位になる。
// 空白のみかどうか以外は入力をトリムせずに検証する。
type RegisterForm struct {
	Name            string `validate:"nonblank,min=2"`
	Email           string `validate:"nonblank,looseemail"`
	Password        string `validate:"required,strongpassword"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

// loginMessages はログインフォームの検証エラーメッセージ。キーは "フィールド.タグ"。
var loginMessages = map[string]string{
	"Email.required":    "Por favor ingresa tu correo electrónico",
	"Password.required": "Por favor ingresa tu contraseña",
}

// registerMessages は新規登録フォームの検証エラーメッセージ。
var registerMessages = map[string]string{
	"Name.nonblank":     "Por favor ingresa tu nombre completo",
	"Name.min":          "El nombre debe tener al menos 2 caracteres",
	"Email.nonblank":    "Por favor ingresa tu correo electrónico",
	"Email.looseemail":  "Por favor ingresa un correo electrónico válido",
	"Password.required": "Por favor ingresa una contraseña",
}

// newValidator はフォーム検証用のvalidatorを生成し、独自タグを登録する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 登録はパッケージ初期化時の固定タグのみのため、失敗しない
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("looseemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return EvaluatePassword(fl.Field().String()) == StrengthStrong
	})
	return v
}

// normalizeLogin は前後の空白を除去する。パスワードはそのまま扱う。
func normalizeLogin(form LoginForm) LoginForm {
	form.Email = strings.TrimSpace(form.Email)
	return form
}

// toAPIError はvalidatorのエラーを最初の1件だけAPIErrorに変換する。
func toAPIError(err error, messages map[string]string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "strongpassword":
		return model.NewWeakPasswordError()
	case "eqfield":
		return model.NewPasswordMismatchError()
	}
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return model.NewValidationError(msg)
	}
	return model.NewValidationError("Revisa el campo " + fe.Field())
}
