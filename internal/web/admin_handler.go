// admin_handler.go -- User management and settings pages (ADMIN and above).
package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/models"
	"github.com/michame/console/internal/validate"
)

const usersPath = dashboardPath + "/users"

type userForm struct {
	Email string
	Name  string
	Role  string
}

type usersData struct {
	Users  []models.UserProfile
	Roles  []models.Role
	Form   userForm
	Errors validate.Errors
}

// Users handles GET /dashboard/users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	h.renderUsers(w, r, http.StatusOK, usersData{Form: userForm{Role: string(models.RoleOperator)}}, "")
}

func (h *Handler) renderUsers(w http.ResponseWriter, r *http.Request, status int, data usersData, errMsg string) {
	env := h.API.Users(r.Context())
	if envelopeExpired(h, w, r, env) {
		return
	}
	v := h.newView(r, "Usuários - Mi Chame", "users")
	v.Error = errMsg
	if !env.Success && v.Error == "" {
		v.Error = env.ErrorText("Erro ao carregar usuários")
	}
	data.Users = env.Data
	data.Roles = models.Roles
	v.Data = data
	h.render(w, r, status, "users.html", v)
}

// CreateUser handles POST /dashboard/users (form: email, name, password, role).
// Validation failures re-render the page with 422 before any backend call.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	form := userForm{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Role:  r.PostFormValue("role"),
	}
	password := r.PostFormValue("password")

	if errs := validate.NewUser(form.Email, password, form.Name, form.Role); !errs.OK() {
		logDebug(r, "create user rejected", "error", errs.Error())
		h.renderUsers(w, r, http.StatusUnprocessableEntity, usersData{Form: form, Errors: errs}, "")
		return
	}

	role, _ := models.ParseRole(form.Role)
	env := h.API.CreateUser(r.Context(), apiclient.NewUser{Email: form.Email, Password: password, Name: form.Name, Role: role})
	if envelopeExpired(h, w, r, env) {
		return
	}
	if !env.Success {
		logWarn(r, "create user failed", "error", env.ErrorText("unknown"))
		h.renderUsers(w, r, http.StatusBadRequest, usersData{Form: form}, env.ErrorText("Erro ao criar usuário"))
		return
	}
	logInfo(r, "user created", "user_id", env.Data.ID)
	SeeOther(w, r, usersPath+"?flash="+url.QueryEscape("Usuário criado"))
}

// DeleteUser handles POST /dashboard/users/{id}/delete.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	env := h.API.DeleteUser(r.Context(), id)
	if envelopeExpired(h, w, r, env) {
		return
	}
	if !env.Success {
		logWarn(r, "delete user failed", "user_id", id, "error", env.ErrorText("unknown"))
		SeeOther(w, r, usersPath+"?flash="+url.QueryEscape(env.ErrorText("Erro ao remover usuário")))
		return
	}
	logInfo(r, "user deleted", "user_id", id)
	SeeOther(w, r, usersPath+"?flash="+url.QueryEscape("Usuário removido"))
}

// ResetUserPassword handles POST /dashboard/users/{id}/reset-password (form: password).
func (h *Handler) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	password := r.PostFormValue("password")
	if failures := validate.DefaultPolicy.Validate(password); len(failures) > 0 {
		SeeOther(w, r, usersPath+"?flash="+url.QueryEscape(failures[0]))
		return
	}

	env := h.API.ResetUserPassword(r.Context(), id, password)
	if envelopeExpired(h, w, r, env) {
		return
	}
	if !env.Success {
		logWarn(r, "reset password failed", "user_id", id, "error", env.ErrorText("unknown"))
		SeeOther(w, r, usersPath+"?flash="+url.QueryEscape(env.ErrorText("Erro ao redefinir senha")))
		return
	}
	logInfo(r, "user password reset", "user_id", id)
	SeeOther(w, r, usersPath+"?flash="+url.QueryEscape("Senha redefinida"))
}

type settingsData struct {
	Health      *models.HealthStatus
	Credentials []models.CredentialInfo
	Missing     *models.MissingCredentials
}

// Settings handles GET /dashboard/settings: backend health and integration credentials.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := h.newView(r, "Configurações - Mi Chame", "settings")
	var data settingsData

	health := h.API.Health(ctx)
	if envelopeExpired(h, w, r, health) {
		return
	}
	if health.Success {
		data.Health = &health.Data
	} else {
		v.Error = health.ErrorText("Backend indisponível")
	}

	creds := h.API.Credentials(ctx)
	if envelopeExpired(h, w, r, creds) {
		return
	}
	data.Credentials = creds.Data.Credentials

	missing := h.API.MissingCredentials(ctx)
	if envelopeExpired(h, w, r, missing) {
		return
	}
	if missing.Success {
		data.Missing = &missing.Data
	}

	v.Data = data
	h.render(w, r, http.StatusOK, "settings.html", v)
}
