// login_handler.go -- GET/POST /login, POST /logout.
package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/michame/console/internal/session"
	"github.com/michame/console/internal/validate"
)

type loginForm struct {
	Email   string
	Expired bool
}

// LoginPage handles GET /login. The browser that signed in goes straight to the dashboard.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if ok, _ := h.boundBrowser(r, h.Session.Snapshot()); ok {
		SeeOther(w, r, dashboardPath)
		return
	}
	v := h.newView(r, "Entrar - Mi Chame", "login")
	v.Data = loginForm{Expired: r.URL.Query().Get("expired") != ""}
	h.render(w, r, http.StatusOK, "login.html", v)
}

// Login handles POST /login (form: email, password).
// Redirects to the dashboard on success; re-renders the form with 401 on failure.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	v := h.newView(r, "Entrar - Mi Chame", "login")
	v.Data = loginForm{Email: email}

	if msg := validate.ValidateEmail(email); msg != "" {
		v.Error = msg
		h.render(w, r, http.StatusBadRequest, "login.html", v)
		return
	}
	if msg := validate.Required("Password", password); msg != "" {
		v.Error = msg
		h.render(w, r, http.StatusBadRequest, "login.html", v)
		return
	}

	if err := h.Session.Login(r.Context(), email, password); err != nil {
		var le *session.LoginError
		if errors.As(err, &le) {
			v.Error = le.Message
		} else {
			v.Error = session.DefaultLoginError
		}
		logWarn(r, "console login failed", "error", err)
		h.render(w, r, http.StatusUnauthorized, "login.html", v)
		return
	}

	snap := h.Session.Snapshot()
	if !snap.IsAuthenticated() {
		// Expired between Login and here.
		v.Error = session.DefaultLoginError
		h.render(w, r, http.StatusUnauthorized, "login.html", v)
		return
	}
	if err := h.bindBrowser(w, r, snap.User.ID); err != nil {
		InternalServerError(w, r, err)
		return
	}

	logInfo(r, "console login succeeded", "user_id", snap.User.ID)
	SeeOther(w, r, dashboardPath)
}

// Logout handles POST /logout. Local state is always cleared, even if the backend call fails.
// A browser without the console cookie only loses its own cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if ok, reason := h.boundBrowser(r, h.Session.Snapshot()); !ok {
		logInfo(r, "console logout ignored", "reason", reason)
		clearConsoleCookie(w, r)
		SeeOther(w, r, loginPath)
		return
	}
	h.Session.Logout(r.Context())
	h.unbindBrowser(w, r)
	logInfo(r, "console logout")
	SeeOther(w, r, loginPath)
}
