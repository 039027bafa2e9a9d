// Package security はアプリケーションのセキュリティ機能を提供する。
//
// Sanitizer はチャットメッセージやプロフィールの自由入力欄から
// HTMLタグを除去し、プレーンテキストとして保存・返却できる形にする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer はユーザー入力のテキストを無害化するインターフェース。
type Sanitizer interface {
	// SanitizeText は全てのHTMLタグと属性を除去し、前後の空白を取り除いたテキストを返す。
	// 文字参照はデコードし、デコードで現れたタグも除去する。出力時のエスケープは呼び出し側の責務。
	// 出力に再度適用しても結果は変わらない。
	SanitizeText(raw string) string
}

// textSanitizer はSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer はタグを一切許可しないStrictPolicyでSanitizerを生成する。
func NewSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses は文字参照の入れ子を剥がす最大回数。
const maxSanitizePasses = 8

// SanitizeText はHTMLタグを除去したテキストを返す。
// "&lt;b&gt;" のように文字参照で書かれたタグはデコード後に再びタグになるため、
// 結果が変わらなくなるまで除去とデコードを繰り返す。
func (s *textSanitizer) SanitizeText(raw string) string {
	text := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := s.pass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func (s *textSanitizer) pass(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

// compile-time interface check
var _ Sanitizer = (*textSanitizer)(nil)
