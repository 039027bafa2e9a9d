// Package profile は「Perfil」画面の編集フォームを扱う。
// 初期値はセッションのトークン属性から組み立て、編集結果はサーバーに保存しない。
package profile

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/agentapp/internal/auth"
	"github.com/hitoshi/agentapp/internal/model"
	"github.com/hitoshi/agentapp/internal/security"
)

// トークン属性のキー。
const (
	AttrEdad            = "edad"
	AttrDireccion       = "direccion"
	AttrFechaNacimiento = "fechaNacimiento"
	AttrComuna          = "comuna"
	AttrRegion          = "region"
	AttrPais            = "pais"
	AttrFoto            = "foto"
)

const (
	// birthDateLayout は生年月日の入力形式。
	birthDateLayout = "2006-01-02"
	// maxAge は年齢の上限。
	maxAge = 150
	// maxTextLength は自由入力欄の最大文字数。
	maxTextLength = 200
	// maxPhotoDataURLSize は data URL で送られる写真の最大バイト数。
	maxPhotoDataURLSize = 2 << 20
)

// FromIdentity はセッションのユーザー情報からプロフィールの初期値を組み立てる。
// 存在しない属性は空文字になる。数値の属性は10進の文字列にする。
func FromIdentity(identity *model.SessionIdentity) model.Profile {
	if identity == nil {
		return model.Profile{}
	}
	return model.Profile{
		Email:           identity.Email,
		Name:            identity.Name,
		Edad:            attributeText(identity, AttrEdad),
		Direccion:       attributeText(identity, AttrDireccion),
		FechaNacimiento: attributeText(identity, AttrFechaNacimiento),
		Comuna:          attributeText(identity, AttrComuna),
		Region:          attributeText(identity, AttrRegion),
		Pais:            attributeText(identity, AttrPais),
		Foto:            attributeText(identity, AttrFoto),
	}
}

func attributeText(identity *model.SessionIdentity, key string) string {
	switch v := identity.Attributes[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Service はプロフィール編集の検証を行う。
type Service struct {
	sanitizer security.Sanitizer
	guard     security.URLGuard
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(sanitizer security.Sanitizer, guard security.URLGuard, logger *slog.Logger) *Service {
	return &Service{
		sanitizer: sanitizer,
		guard:     guard,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// Apply は編集内容を検証し、currentに反映したプロフィールを返す。
// 名前はトークン由来のため変更しない。パスワードは強度のみ検証し、戻り値には含めない。
func (s *Service) Apply(current model.Profile, update model.ProfileUpdate) (model.Profile, error) {
	next := current

	email := strings.TrimSpace(update.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return current, model.NewInvalidProfileError("email", "correo electrónico inválido")
	}
	next.Email = email

	edad := strings.TrimSpace(update.Edad)
	if edad != "" {
		n, err := strconv.Atoi(edad)
		if err != nil || n < 0 || n > maxAge {
			return current, model.NewInvalidProfileError("edad", "debe ser un número entre 0 y 150")
		}
		edad = strconv.Itoa(n)
	}
	next.Edad = edad

	birth := strings.TrimSpace(update.FechaNacimiento)
	if birth != "" {
		if _, err := time.Parse(birthDateLayout, birth); err != nil {
			return current, model.NewInvalidProfileError("fechaNacimiento", "usa el formato AAAA-MM-DD")
		}
	}
	next.FechaNacimiento = birth

	texts := []struct {
		field string
		raw   string
		dst   *string
	}{
		{AttrDireccion, update.Direccion, &next.Direccion},
		{AttrComuna, update.Comuna, &next.Comuna},
		{AttrRegion, update.Region, &next.Region},
		{AttrPais, update.Pais, &next.Pais},
	}
	for _, t := range texts {
		clean := s.sanitizer.SanitizeText(t.raw)
		if utf8.RuneCountInString(clean) > maxTextLength {
			return current, model.NewInvalidProfileError(t.field, "máximo 200 caracteres")
		}
		*t.dst = clean
	}

	foto, err := s.checkPhoto(strings.TrimSpace(update.Foto))
	if err != nil {
		return current, err
	}
	next.Foto = foto

	if update.Password != "" && auth.EvaluatePassword(update.Password) != auth.StrengthStrong {
		return current, model.NewWeakPasswordError()
	}

	s.logger.Info("profile edited",
		slog.Bool("photo_set", next.Foto != ""),
		slog.Bool("password_changed", update.Password != ""),
	)
	return next, nil
}

// checkPhoto はdata:image の data URL または安全な外部https URLのみ受け付ける。
func (s *Service) checkPhoto(foto string) (string, error) {
	if foto == "" {
		return "", nil
	}
	if strings.HasPrefix(strings.ToLower(foto), "data:image/") {
		if len(foto) > maxPhotoDataURLSize || !strings.Contains(foto, ",") {
			return "", model.NewInvalidPhotoError()
		}
		return foto, nil
	}
	if err := s.guard.ValidateURL(foto); err != nil {
		s.logger.Warn("profile photo URL rejected", slog.String("error", err.Error()))
		return "", model.NewInvalidPhotoError()
	}
	return foto, nil
}
