// browser.go

// Console cookie binding the process session to the browser that signed in.
package web

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/michame/console/internal/session"
)

// ConsoleCookie carries the browser token issued by POST /login.
const ConsoleCookie = "michame_console"

// browserBinding is the hash of the issued token and the user it was issued for.
type browserBinding struct {
	hash   [32]byte
	userID string
}

// bindBrowser mints a token for userID, replaces any earlier binding and sets the cookie.
// A second browser signing in takes the session over from the first.
func (h *Handler) bindBrowser(w http.ResponseWriter, r *http.Request, userID string) error {
	var token [32]byte
	if _, err := rand.Read(token[:]); err != nil {
		return fmt.Errorf("generating browser token with rand: %w", err)
	}

	h.mu.Lock()
	h.browser = &browserBinding{hash: sha256.Sum256(token[:]), userID: userID}
	h.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     ConsoleCookie,
		Value:    base64.RawURLEncoding.EncodeToString(token[:]),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// unbindBrowser forgets the binding and tells the browser to drop its cookie.
func (h *Handler) unbindBrowser(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.browser = nil
	h.mu.Unlock()
	clearConsoleCookie(w, r)
}

// clearConsoleCookie overwrites the cookie with MaxAge=-1 so the browser deletes it.
func clearConsoleCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     ConsoleCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// boundBrowser reports whether r carries the cookie issued for snap's user.
// Returns the reason for the log line when it doesn't.
func (h *Handler) boundBrowser(r *http.Request, snap session.Snapshot) (bool, string) {
	if !snap.IsAuthenticated() {
		return false, "anonymous"
	}
	c, err := r.Cookie(ConsoleCookie)
	if err != nil || c.Value == "" {
		return false, "missing_console_cookie"
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return false, "invalid_cookie_encoding"
	}
	hash := sha256.Sum256(raw)

	h.mu.Lock()
	b := h.browser
	h.mu.Unlock()
	if b == nil || subtle.ConstantTimeCompare(hash[:], b.hash[:]) != 1 {
		return false, "unknown_console_cookie"
	}
	// The credential file may have switched users under a running console.
	if b.userID != snap.User.ID {
		return false, "user_changed"
	}
	return true, ""
}
