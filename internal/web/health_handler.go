// health_handler.go -- Health check handler for GET /health.
package web

import "net/http"

// CheckHealth handles GET /health -- reports the session state and, when signed in,
// whether the backend answers its health endpoint ("unknown" when anonymous, since the
// endpoint needs a token).
// Always 200: the console keeps serving (with fixtures) while the backend is down.
func (h *Handler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	sess := "anonymous"
	backend := "unknown"
	if h.Session.Snapshot().IsAuthenticated() {
		sess = "authenticated"
		backend = "ok"
		if env := h.API.Health(r.Context()); !env.Success {
			logWarn(r, "backend health check failed", "error", env.ErrorText("unknown"))
			backend = "error"
		}
	}

	writeJSON(w, r, http.StatusOK, struct {
		Status  string `json:"status"`
		Backend string `json:"backend"`
		Session string `json:"session"`
	}{"ok", backend, sess})
}
