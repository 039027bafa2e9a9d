package model

// Profile はプロフィール画面の編集フォームの内容。
// 初期値はトークンの属性から組み立て、編集結果は永続化しない。
type Profile struct {
	Email           string
	Name            string
	Edad            string
	Direccion       string
	FechaNacimiento string
	Comuna          string
	Region          string
	Pais            string
	Foto            string
}

// ProfileUpdate はプロフィール編集リクエスト。
// Passwordは受け付けるが、レスポンスには含めない。
type ProfileUpdate struct {
	Email           string
	Edad            string
	Direccion       string
	FechaNacimiento string
	Comuna          string
	Region          string
	Pais            string
	Foto            string
	Password        string
}
