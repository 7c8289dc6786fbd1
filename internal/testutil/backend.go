// backend.go
//
// FakeBackend is an in-process stand-in for the Mi Chame REST API.
// It speaks the real envelope, issues HS256 JWT access tokens, and records
// every call so tests can assert on call counts and headers.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/michame/console/internal/models"
)

// FakeSigningKey signs access tokens issued by FakeBackend.
var FakeSigningKey = []byte("michame-fake-backend-signing-key")

// Call is one request received by FakeBackend.
type Call struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	RequestID     string
	Body          []byte
}

type fakeUser struct {
	password string
	profile  models.UserProfile
}

// FakeBackend serves the backend API over httptest.
// Zero-config: NewFakeBackend seeds rides, conversations and credentials.
type FakeBackend struct {
	Server *httptest.Server

	// Intercept runs before routing. Returning true means it wrote the response.
	Intercept func(w http.ResponseWriter, r *http.Request) bool

	// FailRefresh makes /api/auth/refresh reject every token.
	FailRefresh bool

	// AccessTTL sets the exp of issued access tokens. Default 15m.
	AccessTTL time.Duration

	mu          sync.Mutex
	calls       []Call
	users       map[string]*fakeUser // keyed by email
	access      map[string]string    // token -> email
	refresh     map[string]string    // token -> email
	rides       []models.Ride
	logs        map[string][]models.LogEntry
	convs       []models.Conversation
	messages    map[string][]models.Message
	credentials []models.CredentialInfo
	setupDone   bool
}

// NewFakeBackend starts a FakeBackend and closes it when t finishes.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{
		AccessTTL: 15 * time.Minute,
		users:     make(map[string]*fakeUser),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
		logs:      make(map[string][]models.LogEntry),
		messages:  make(map[string][]models.Message),
	}
	fb.seed()
	fb.Server = httptest.NewServer(fb.routes())
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the server base URL (no trailing slash).
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// AddUser registers an account and returns its profile.
func (fb *FakeBackend) AddUser(email, password, name string, role models.Role) models.UserProfile {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.addUserLocked(email, password, name, role)
}

func (fb *FakeBackend) addUserLocked(email, password, name string, role models.Role) models.UserProfile {
	id, _ := uuid.NewV7()
	active := true
	created := time.Now().UTC().Truncate(time.Second)
	p := models.UserProfile{ID: id.String(), Email: email, Name: name, Role: role, IsActive: &active, CreatedAt: &created}
	fb.users[email] = &fakeUser{password: password, profile: p}
	return p
}

// IssueTokens mints a token pair for email as if the user had logged in.
func (fb *FakeBackend) IssueTokens(email string) (access, refresh string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.issueAccessLocked(email), fb.issueRefreshLocked(email)
}

// ExpireAccessTokens invalidates every access token, so the next call gets 401.
func (fb *FakeBackend) ExpireAccessTokens() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.access = make(map[string]string)
}

// RevokeRefreshTokens invalidates every refresh token.
func (fb *FakeBackend) RevokeRefreshTokens() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.refresh = make(map[string]string)
}

// Calls returns a copy of every recorded call.
func (fb *FakeBackend) Calls() []Call {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]Call, len(fb.calls))
	copy(out, fb.calls)
	return out
}

// CallsTo counts recorded calls whose path equals path.
func (fb *FakeBackend) CallsTo(path string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if c.Path == path {
			n++
		}
	}
	return n
}

// ResetCalls drops the call log.
func (fb *FakeBackend) ResetCalls() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls = nil
}

// Ride returns the backend's current copy of a ride.
func (fb *FakeBackend) Ride(id string) (models.Ride, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, r := range fb.rides {
		if r.ID == id {
			return r, true
		}
	}
	return models.Ride{}, false
}

// --- Routing ---

func (fb *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(fb.record)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", fb.handleLogin)
		r.Post("/refresh", fb.handleRefresh)
		r.Post("/setup", fb.handleSetup)

		r.Group(func(r chi.Router) {
			r.Use(fb.requireBearer)
			r.Post("/logout", fb.handleLogout)
			r.Get("/me", fb.handleMe)
			r.Post("/change-password", fb.handleChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(fb.requireRole(models.RoleAdmin))
				r.Get("/users", fb.handleListUsers)
				r.Post("/users", fb.handleCreateUser)
				r.Put("/users/{id}", fb.handleUpdateUser)
				r.Delete("/users/{id}", fb.handleDeleteUser)
				r.Post("/users/{id}/reset-password", fb.handleResetPassword)
			})
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(fb.requireBearer)

		r.Get("/api/rides", fb.handleListRides)
		r.Get("/api/rides/{id}", fb.handleGetRide)
		r.Get("/api/rides/{id}/logs", fb.handleRideLogs)
		r.Post("/api/rides/{id}/refresh", fb.handleGetRide)
		r.Post("/api/rides/{id}/cancel", fb.handleCancelRide)

		r.Get("/api/conversations", fb.handleListConversations)
		r.Get("/api/conversations/stats/active", fb.handleConversationStats)
		r.Get("/api/conversations/{id}", fb.handleGetConversation)
		r.Get("/api/conversations/{id}/messages", fb.handleMessages)

		r.Get("/api/analytics/overview", fb.handleOverview)
		r.Get("/api/analytics/rides-by-day", fb.handleRidesByDay)
		r.Get("/api/analytics/rides-by-status", fb.handleRidesByStatus)
		r.Get("/api/analytics/rides-by-category", fb.handleRidesByCategory)
		r.Get("/api/analytics/recent-events", fb.handleRecentEvents)

		r.Get("/api/settings/health", fb.handleHealth)
		r.Get("/api/settings/webhooks", fb.handleWebhooks)
		r.Get("/api/settings/env", fb.handleEnv)
		r.Post("/api/settings/test/whatsapp", fb.handleTestWhatsApp)
		r.Post("/api/settings/test/machine", fb.handleTestMachine)

		r.Get("/api/credentials", fb.handleListCredentials)
		r.Get("/api/credentials/missing", fb.handleMissingCredentials)
		r.Post("/api/credentials/{name}", fb.handleSaveCredentials)
		r.Post("/api/credentials/{name}/test", fb.handleTestCredentials)
		r.Delete("/api/credentials/{name}", fb.handleDeleteCredential)
	})

	return r
}

// record logs the call, then hands off to Intercept or the router.
func (fb *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		fb.mu.Lock()
		fb.calls = append(fb.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			RawQuery:      r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		intercept := fb.Intercept
		fb.mu.Unlock()

		if intercept != nil && intercept(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Envelope helpers ---

// WriteEnvelope writes {success:true, data} with status.
func WriteEnvelope(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

// WriteError writes {success:false, error:msg} with status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// --- Tokens ---

type ctxUser struct{}

func (fb *FakeBackend) issueAccessLocked(email string) string {
	u := fb.users[email]
	jti, _ := uuid.NewV4()
	claims := jwt.MapClaims{
		"sub":   u.profile.ID,
		"email": email,
		"role":  string(u.profile.Role),
		"exp":   time.Now().Add(fb.AccessTTL).Unix(),
		"jti":   jti.String(),
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(FakeSigningKey)
	fb.access[tok] = email
	return tok
}

func (fb *FakeBackend) issueRefreshLocked(email string) string {
	id, _ := uuid.NewV4()
	tok := "rt_" + id.String()
	fb.refresh[tok] = email
	return tok
}

// requireBearer resolves the access token to a user or answers 401.
func (fb *FakeBackend) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
			WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		fb.mu.Lock()
		email, ok := fb.access[h[len(prefix):]]
		var u *fakeUser
		if ok {
			u = fb.users[email]
		}
		fb.mu.Unlock()
		if !ok || u == nil {
			WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r, u.profile)))
	})
}

func (fb *FakeBackend) requireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !userFrom(r).Role.AtLeast(role) {
				WriteError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
