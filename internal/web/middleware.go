// middleware.go

// Session and role gates for dashboard routes.
package web

import (
	"context"
	"net/http"

	"github.com/michame/console/internal/models"
	"github.com/michame/console/internal/session"
)

// contextKey is unexported to prevent collisions with other packages using the same context.
type contextKey string

const snapshotKey contextKey = "session_snapshot"

// SnapshotFromContext returns the session snapshot RequireSession took.
// Returns false if RequireSession hasn't run.
func SnapshotFromContext(ctx context.Context) (session.Snapshot, bool) {
	snap, ok := ctx.Value(snapshotKey).(session.Snapshot)
	return snap, ok
}

// RequireSession redirects to the login page unless the session is authenticated
// and the request carries the console cookie issued when that user signed in here.
// On success the snapshot is put in the context so the whole request sees one user.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := h.Session.Snapshot()
		if ok, reason := h.boundBrowser(r, snap); !ok {
			logInfo(r, "require session failed", "reason", reason, "state", snap.State.String())
			SeeOther(w, r, loginPath)
			return
		}
		ctx := context.WithValue(r.Context(), snapshotKey, snap)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole returns 403 unless the user's rank is at least role's.
// DO NOT use before RequireSession.
func (h *Handler) RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := SnapshotFromContext(r.Context())
			if !ok || !snap.HasRole(role) {
				logWarn(r, "require role failed", "required", string(role))
				Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
