package handler

import (
	"net/http"

	"github.com/hitoshi/agentapp/internal/middleware"
	"github.com/hitoshi/agentapp/internal/model"
	"github.com/hitoshi/agentapp/internal/profile"
)

// ProfileEditor はプロフィールハンドラーが必要とするインターフェース。profile.Serviceが実装する。
type ProfileEditor interface {
	Apply(current model.Profile, update model.ProfileUpdate) (model.Profile, error)
}

// ProfileHandler はプロフィールAPIのHTTPハンドラー。
// 編集結果は保存せず、検証済みの値をそのまま返す。
type ProfileHandler struct {
	editor ProfileEditor
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(editor ProfileEditor) *ProfileHandler {
	return &ProfileHandler{editor: editor}
}

// profileResponse はプロフィールのAPIレスポンス。パスワードは含めない。
type profileResponse struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Edad            string `json:"edad"`
	Direccion       string `json:"direccion"`
	FechaNacimiento string `json:"fechaNacimiento"`
	Comuna          string `json:"comuna"`
	Region          string `json:"region"`
	Pais            string `json:"pais"`
	Foto            string `json:"foto"`
}

// profileUpdateRequest はプロフィール編集リクエストのボディ。
type profileUpdateRequest struct {
	Email           string `json:"email"`
	Edad            string `json:"edad"`
	Direccion       string `json:"direccion"`
	FechaNacimiento string `json:"fechaNacimiento"`
	Comuna          string `json:"comuna"`
	Region          string `json:"region"`
	Pais            string `json:"pais"`
	Foto            string `json:"foto"`
	Password        string `json:"password"`
}

// GetProfile はトークンの属性から組み立てたプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile.FromIdentity(identity)))
}

// UpdateProfile はプロフィールの編集内容を検証し、編集後の値を返す。
// PUT /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req profileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	updated, err := h.editor.Apply(profile.FromIdentity(identity), model.ProfileUpdate{
		Email:           req.Email,
		Edad:            req.Edad,
		Direccion:       req.Direccion,
		FechaNacimiento: req.FechaNacimiento,
		Comuna:          req.Comuna,
		Region:          req.Region,
		Pais:            req.Pais,
		Foto:            req.Foto,
		Password:        req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(updated))
}

func toProfileResponse(p model.Profile) profileResponse {
	return profileResponse{
		Email:           p.Email,
		Name:            p.Name,
		Edad:            p.Edad,
		Direccion:       p.Direccion,
		FechaNacimiento: p.FechaNacimiento,
		Comuna:          p.Comuna,
		Region:          p.Region,
		Pais:            p.Pais,
		Foto:            p.Foto,
	}
}
