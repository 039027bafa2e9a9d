package model

// SessionIdentity はベアラートークンのペイロードから復元した表示用のユーザー情報。
// 保存はせず、保護ページの表示ごとにトークンから再計算する。
//
// emailは必須。nameは文字列で空でない場合のみNameに入り、
// それ以外のキーはすべてAttributesにそのまま保持する。
type SessionIdentity struct {
	Email      string
	Name       string
	Attributes map[string]any
}

// Claims はペイロードのJSONオブジェクトを再構築する。
// 復元元のオブジェクトと同じキーと値を持つ。
func (i *SessionIdentity) Claims() map[string]any {
	claims := make(map[string]any, len(i.Attributes)+2)
	for k, v := range i.Attributes {
		claims[k] = v
	}
	claims["email"] = i.Email
	if i.Name != "" {
		claims["name"] = i.Name
	}
	return claims
}

// DisplayName は画面表示用の名前を返す。nameがない場合はemailを返す。
func (i *SessionIdentity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// Attribute は任意属性を文字列として取得する。
// 存在しない、または文字列でない場合は空文字を返す。
func (i *SessionIdentity) Attribute(key string) string {
	if v, ok := i.Attributes[key].(string); ok {
		return v
	}
	return ""
}
