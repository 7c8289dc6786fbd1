// responses.go -- Package-wide HTTP response helpers.
//
// Shared by handlers and middleware. Messages are fixed strings; user input is
// never echoed here. Pages that need user data go through render.
package web

import (
	"encoding/json"
	"net/http"
)

// InternalServerError logs the error and returns a generic 500.
// Never exposes internal error details to the browser.
func InternalServerError(w http.ResponseWriter, r *http.Request, err error) {
	logError(r, "internal server error", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// BadRequest returns a 400 with the given message.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	logDebug(r, "bad request", "reason", message)
	http.Error(w, message, http.StatusBadRequest)
}

// Forbidden returns a 403. Intentionally vague about which check failed.
func Forbidden(w http.ResponseWriter) {
	http.Error(w, "forbidden", http.StatusForbidden)
}

// SeeOther redirects after a form post so reloads don't resubmit.
func SeeOther(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// writeJSON encodes v with status. Encoding errors are logged, the header is already gone.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logWarn(r, "encoding json response", "error", err)
	}
}
