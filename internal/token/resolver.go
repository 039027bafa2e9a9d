package token

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/agentapp/internal/model"
)

// ErrDecodeFailure はトークンのペイロードからSessionIdentityを復元できなかったことを表す。
// 呼び出し元はトークン未保存と同じく未認証として扱う。
var ErrDecodeFailure = errors.New("token decode failure")

// segmentParser はbase64urlセグメントのデコードに使用する。
// パディングの有無はどちらも受け付ける。
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// alphabetReplacer は標準base64のアルファベットをURLセーフ形式に寄せる。
var alphabetReplacer = strings.NewReplacer("+", "-", "/", "_")

// Resolve はトークンの2番目のセグメントをデコードし、SessionIdentityを返す。
//
// 署名の検証と有効期限の確認は行わない。表示用の復元のみを目的とし、
// 認可は外部の認証サービスが毎リクエストで同じトークンを使って行う。
// 構文的に正しい偽造トークンもここでは受け付けられる。
//
// 失敗時はErrDecodeFailureをラップしたエラーを返す。
func Resolve(token string) (*model.SessionIdentity, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrDecodeFailure, len(segments))
	}
	payload := segments[1]
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload segment", ErrDecodeFailure)
	}

	raw, err := segmentParser.DecodeSegment(alphabetReplacer.Replace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrDecodeFailure, err)
	}

	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", ErrDecodeFailure)
	}

	var claims map[string]any
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON payload: %v", ErrDecodeFailure, err)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrDecodeFailure)
	}

	return identityFromClaims(claims)
}

// identityFromClaims はペイロードのJSONオブジェクトをSessionIdentityに変換する。
func identityFromClaims(claims map[string]any) (*model.SessionIdentity, error) {
	email, ok := claims["email"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: email claim is missing or not a string", ErrDecodeFailure)
	}

	identity := &model.SessionIdentity{
		Email:      email,
		Attributes: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		switch k {
		case "email":
			continue
		case "name":
			if name, ok := v.(string); ok && name != "" {
				identity.Name = name
				continue
			}
		}
		identity.Attributes[k] = v
	}

	return identity, nil
}
