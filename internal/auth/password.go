package auth

import "unicode/utf16"

// Strength はパスワード強度の評価結果。
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// 登録時に表示するパスワード要件の未達メッセージ。
const (
	reqMinLength = "Mínimo 8 caracteres"
	reqLowercase = "Mínimo 4 letras minúsculas"
	reqUppercase = "Mínimo 1 letra mayúscula"
	reqSpecial   = "Al menos 1 carácter especial"
)

// passwordTraits はパスワードに含まれる文字種の集計。
type passwordTraits struct {
	length    int
	lowercase int
	upper     bool
	digit     bool
	special   bool
}

// analyze は文字種を集計する。長さはUTF-16のコード単位で数える。
// 英字と数字はASCIIの範囲のみを対象とし、それ以外はすべて特殊文字として扱う。
func analyze(password string) passwordTraits {
	t := passwordTraits{length: len(utf16.Encode([]rune(password)))}
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			t.lowercase++
		case r >= 'A' && r <= 'Z':
			t.upper = true
		case r >= '0' && r <= '9':
			t.digit = true
		default:
			t.special = true
		}
	}
	return t
}

// EvaluatePassword はパスワード強度を5項目で採点する。
// 8文字以上、小文字4文字以上、大文字、数字、特殊文字のそれぞれで1点。
// 2点以下はweak、4点以下はmedium、5点でstrong。
func EvaluatePassword(password string) Strength {
	t := analyze(password)

	score := 0
	if t.length >= 8 {
		score++
	}
	if t.lowercase >= 4 {
		score++
	}
	if t.upper {
		score++
	}
	if t.digit {
		score++
	}
	if t.special {
		score++
	}

	switch {
	case score <= 2:
		return StrengthWeak
	case score <= 4:
		return StrengthMedium
	default:
		return StrengthStrong
	}
}

// PasswordErrors は登録画面のチェックリストに表示する未達要件を返す。
// 数字の有無はチェックリストに含まれないが、強度の採点には含まれる。
func PasswordErrors(password string) []string {
	t := analyze(password)

	var errs []string
	if t.length < 8 {
		errs = append(errs, reqMinLength)
	}
	if t.lowercase < 4 {
		errs = append(errs, reqLowercase)
	}
	if !t.upper {
		errs = append(errs, reqUppercase)
	}
	if !t.special {
		errs = append(errs, reqSpecial)
	}
	return errs
}
