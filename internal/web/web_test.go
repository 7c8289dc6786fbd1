package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/credstore"
	"github.com/michame/console/internal/models"
	"github.com/michame/console/internal/session"
	"github.com/michame/console/internal/testutil"
)

// --- Test console ---

const (
	operatorEmail = "op@michame.com.br"
	adminEmail    = "admin@michame.com.br"
	viewerEmail   = "viewer@michame.com.br"
	testPassword  = "s3cret!pass"
)

type console struct {
	h      *Handler
	fb     *testutil.FakeBackend
	sess   *session.Session
	router http.Handler

	mu       sync.Mutex
	degraded []string
	cookies  map[string]*http.Cookie
}

// send serves r with the cookies collected so far and keeps any the response sets.
func (c *console) send(r *http.Request) *httptest.ResponseRecorder {
	c.mu.Lock()
	for _, ck := range c.cookies {
		r.AddCookie(ck)
	}
	c.mu.Unlock()

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, r)

	c.mu.Lock()
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
		} else {
			c.cookies[ck.Name] = ck
		}
	}
	c.mu.Unlock()
	return w
}

func (c *console) degradedSources() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.degraded...)
}

// newConsole wires a real session and API client to a FakeBackend, the same way serve does.
func newConsole(t *testing.T, fallback bool) *console {
	t.Helper()
	c := &console{fb: testutil.NewFakeBackend(t), cookies: make(map[string]*http.Cookie)}
	c.fb.AddUser(operatorEmail, testPassword, "Op", models.RoleOperator)
	c.fb.AddUser(adminEmail, testPassword, "Admin", models.RoleAdmin)
	c.fb.AddUser(viewerEmail, testPassword, "Viewer", models.RoleViewer)

	store := credstore.New(credstore.NewMemoryBackend(), credstore.DefaultPrefix)
	client := apiclient.New(c.fb.URL(), store, apiclient.WithNavigator(func(string) { c.sess.Expire() }))
	c.sess = session.New(client, store)
	c.sess.Init(context.Background())

	h, err := NewHandler(c.sess, client, Options{
		WhatsAppLink: "https://wa.me/5519992753360",
		Fallback:     fallback,
		OnDegrade: func(s string) {
			c.mu.Lock()
			c.degraded = append(c.degraded, s)
			c.mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	c.h = h

	r := chi.NewRouter()
	r.Get("/health", h.CheckHealth)
	h.Mount(r)
	c.router = r
	return c
}

func (c *console) get(t *testing.T, path string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	w := c.send(httptest.NewRequest(http.MethodGet, path, nil))
	body, _ := io.ReadAll(w.Body)
	return w, string(body)
}

// getFresh requests path as a browser with no cookies, e.g. another host on the network.
func (c *console) getFresh(t *testing.T, path string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	body, _ := io.ReadAll(w.Body)
	return w, string(body)
}

// post submits a form, adding the CSRF token unless form already carries one.
func (c *console) post(t *testing.T, path string, form url.Values) (*httptest.ResponseRecorder, string) {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if _, ok := form[CSRFField]; !ok {
		form.Set(CSRFField, c.h.CSRFToken())
	}
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := c.send(r)
	body, _ := io.ReadAll(w.Body)
	return w, string(body)
}

func (c *console) login(t *testing.T, email string) {
	t.Helper()
	w, body := c.post(t, "/login", url.Values{"email": {email}, "password": {testPassword}})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("login as %s: expected 303 to /dashboard, got %d %s", email, w.Code, body)
	}
}

func expectRedirect(t *testing.T, w *httptest.ResponseRecorder, prefix string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, prefix) {
		t.Errorf("expected redirect to %s..., got %q", prefix, loc)
	}
}

func expectContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, s := range want {
		if !strings.Contains(body, s) {
			t.Errorf("expected body to contain %q", s)
		}
	}
}

// --- Landing ---

func TestLanding(t *testing.T) {
	c := newConsole(t, true)
	w, body := c.get(t, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	expectContains(t, body, "https://wa.me/5519992753360", "Por que escolher o Mi Chame?", "Capivari", "Maria Santos", "500+")
	if strings.Contains(body, "Sair") {
		t.Error("anonymous landing page should not show the dashboard nav")
	}
}

// --- Login / logout ---

func TestLogin(t *testing.T) {
	t.Run("missing csrf token is forbidden", func(t *testing.T) {
		c := newConsole(t, true)
		w, _ := c.post(t, "/login", url.Values{"email": {operatorEmail}, "password": {testPassword}, CSRFField: {""}})
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})

	t.Run("wrong csrf token is forbidden", func(t *testing.T) {
		c := newConsole(t, true)
		other, _ := GenerateCSRFToken()
		w, _ := c.post(t, "/login", url.Values{"email": {operatorEmail}, "password": {testPassword}, CSRFField: {EncodeCSRFToken(*other)}})
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})

	t.Run("invalid email is rejected before calling the backend", func(t *testing.T) {
		c := newConsole(t, true)
		w, _ := c.post(t, "/login", url.Values{"email": {"not-an-email"}, "password": {testPassword}})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if c.fb.CallsTo("/api/auth/login") != 0 {
			t.Error("expected no backend login call")
		}
	})

	t.Run("backend rejection shows its message", func(t *testing.T) {
		c := newConsole(t, true)
		w, body := c.post(t, "/login", url.Values{"email": {operatorEmail}, "password": {"wrong-password1"}})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
		expectContains(t, body, "Invalid email or password", operatorEmail)
		if c.sess.Snapshot().IsAuthenticated() {
			t.Error("session should stay anonymous")
		}
	})

	t.Run("success authenticates the session", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		if snap := c.sess.Snapshot(); !snap.IsAuthenticated() || snap.User.Email != operatorEmail {
			t.Errorf("expected %s signed in, got %+v", operatorEmail, snap)
		}

		w, _ := c.get(t, "/login")
		expectRedirect(t, w, "/dashboard")
	})

	t.Run("logout clears the session", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		w, _ := c.post(t, "/logout", nil)
		expectRedirect(t, w, "/login")
		if c.sess.Snapshot().IsAuthenticated() {
			t.Error("expected anonymous after logout")
		}
		if c.fb.CallsTo("/api/auth/logout") != 1 {
			t.Error("expected one backend logout call")
		}
	})
}

// --- Gates ---

func TestRequireSession(t *testing.T) {
	c := newConsole(t, true)
	for _, path := range []string{"/dashboard", "/dashboard/analytics", "/dashboard/drivers", "/dashboard/users"} {
		w, _ := c.get(t, path)
		expectRedirect(t, w, "/login")
	}
}

func TestConsoleCookie(t *testing.T) {
	t.Run("login sets an http-only strict cookie", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, adminEmail)
		ck, ok := c.cookies[ConsoleCookie]
		if !ok || ck.Value == "" {
			t.Fatal("expected the console cookie after login")
		}
		if !ck.HttpOnly || ck.SameSite != http.SameSiteStrictMode {
			t.Errorf("expected HttpOnly SameSite=Strict, got %+v", ck)
		}
	})

	t.Run("another browser cannot use the signed-in session", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, adminEmail)
		for _, path := range []string{"/dashboard", "/dashboard/users", "/dashboard/settings"} {
			w, _ := c.getFresh(t, path)
			expectRedirect(t, w, "/login")
		}

		w, body := c.getFresh(t, "/login")
		if w.Code != http.StatusOK {
			t.Fatalf("expected the login form, got %d", w.Code)
		}
		if strings.Contains(body, "Sair") {
			t.Error("login page leaked the signed-in operator")
		}
	})

	t.Run("forged cookie is rejected", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, adminEmail)
		other, _ := GenerateCSRFToken()
		c.cookies[ConsoleCookie] = &http.Cookie{Name: ConsoleCookie, Value: EncodeCSRFToken(*other)}

		w, _ := c.get(t, "/dashboard/users")
		expectRedirect(t, w, "/login")
	})

	t.Run("logout from another browser keeps the session", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)

		form := url.Values{CSRFField: {c.h.CSRFToken()}}
		r := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		c.router.ServeHTTP(w, r)
		expectRedirect(t, w, "/login")

		if !c.sess.Snapshot().IsAuthenticated() {
			t.Error("expected the session to survive a logout without the cookie")
		}
		if c.fb.CallsTo("/api/auth/logout") != 0 {
			t.Error("expected no backend logout call")
		}
		if w, _ := c.get(t, "/dashboard"); w.Code != http.StatusOK {
			t.Errorf("signed-in browser: expected 200, got %d", w.Code)
		}
	})

	t.Run("a later login takes the session over", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		first := c.cookies[ConsoleCookie]

		c.login(t, operatorEmail)
		c.cookies[ConsoleCookie] = first
		w, _ := c.get(t, "/dashboard")
		expectRedirect(t, w, "/login")
	})

	t.Run("session user change unbinds the browser", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		// What a CLI login as someone else ends in once the file watch syncs.
		if err := c.sess.Login(context.Background(), adminEmail, testPassword); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		w, _ := c.get(t, "/dashboard/users")
		expectRedirect(t, w, "/login")
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("operator cannot reach admin pages", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		for _, path := range []string{"/dashboard/users", "/dashboard/settings"} {
			if w, _ := c.get(t, path); w.Code != http.StatusForbidden {
				t.Errorf("%s: expected 403, got %d", path, w.Code)
			}
		}
	})

	t.Run("viewer cannot cancel rides", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, viewerEmail)
		w, _ := c.post(t, "/dashboard/rides/"+testutil.FakeRideRequested+"/cancel", nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
		if c.fb.CallsTo("/api/rides/"+testutil.FakeRideRequested+"/cancel") != 0 {
			t.Error("expected no backend cancel call")
		}
	})
}

// --- Dashboard ---

func TestDashboard(t *testing.T) {
	t.Run("lists backend rides and events", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		w, body := c.get(t, "/dashboard")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		expectContains(t, body, testutil.FakeRideRequested, testutil.FakeRideCompleted, "Ride requested")
		if strings.Contains(body, "dados de demonstração") {
			t.Error("live data should not show the degraded banner")
		}
	})

	t.Run("search filters rides locally", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		_, body := c.get(t, "/dashboard?search="+strings.ToLower(testutil.FakeRideCompleted))
		expectContains(t, body, "1 de 2 corridas")
	})

	t.Run("ride param opens the log viewer", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		_, body := c.get(t, "/dashboard?ride="+testutil.FakeRideRequested)
		expectContains(t, body, "Olá, preciso de um carro", "Cancelar corrida")
	})

	t.Run("unknown ride stays on live data", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		w, body := c.get(t, "/dashboard?ride=RIDE-NOPE")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		expectContains(t, body, testutil.FakeRideRequested)
		if strings.Contains(body, "dados de demonstração") || strings.Contains(body, "RIDE-001") {
			t.Error("a 404 must not switch the page to fixtures")
		}
		if got := c.degradedSources(); len(got) != 0 {
			t.Errorf("expected no degrade, got %v", got)
		}
	})

	t.Run("backend outage falls back to fixtures", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		c.fb.Intercept = func(w http.ResponseWriter, r *http.Request) bool {
			if strings.HasPrefix(r.URL.Path, "/api/rides") || strings.HasPrefix(r.URL.Path, "/api/analytics") {
				testutil.WriteError(w, http.StatusBadGateway, "upstream down")
				return true
			}
			return false
		}

		w, body := c.get(t, "/dashboard")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		expectContains(t, body, "RIDE-001", "dados de demonstração", "Driver Assigned")
		if got := c.degradedSources(); len(got) != 1 || got[0] != "rides" {
			t.Errorf("expected one degrade for rides, got %v", got)
		}
	})

	t.Run("outage without fallback shows the error", func(t *testing.T) {
		c := newConsole(t, false)
		c.login(t, operatorEmail)
		c.fb.Intercept = func(w http.ResponseWriter, r *http.Request) bool {
			if strings.HasPrefix(r.URL.Path, "/api/rides") {
				testutil.WriteError(w, http.StatusBadGateway, "upstream down")
				return true
			}
			return false
		}

		_, body := c.get(t, "/dashboard")
		expectContains(t, body, "upstream down")
		if strings.Contains(body, "RIDE-001") {
			t.Error("fixtures must not be shown with fallback disabled")
		}
	})

	t.Run("unrecoverable 401 sends the browser to login", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		c.fb.ExpireAccessTokens()
		c.fb.RevokeRefreshTokens()

		w, _ := c.get(t, "/dashboard")
		expectRedirect(t, w, "/login?expired=1")
		if c.sess.Snapshot().IsAuthenticated() {
			t.Error("expected the navigator to mark the session anonymous")
		}

		w, _ = c.get(t, "/dashboard")
		expectRedirect(t, w, "/login")
	})
}

// --- Ride actions ---

func TestRideActions(t *testing.T) {
	t.Run("operator cancels a ride", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		w, _ := c.post(t, "/dashboard/rides/"+testutil.FakeRideRequested+"/cancel", url.Values{"reason": {"cliente desistiu"}})
		expectRedirect(t, w, "/dashboard?")
		if !strings.Contains(w.Header().Get("Location"), url.QueryEscape("Corrida cancelada")) {
			t.Errorf("expected success flash, got %q", w.Header().Get("Location"))
		}
		if ride, _ := c.fb.Ride(testutil.FakeRideRequested); ride.Status != models.RideCancelled {
			t.Errorf("expected ride cancelled, got %s", ride.Status)
		}
	})

	t.Run("backend refusal is flashed", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, operatorEmail)
		w, _ := c.post(t, "/dashboard/rides/"+testutil.FakeRideCompleted+"/cancel", nil)
		expectRedirect(t, w, "/dashboard?")
		if !strings.Contains(w.Header().Get("Location"), url.QueryEscape("Ride cannot be cancelled")) {
			t.Errorf("expected backend message in flash, got %q", w.Header().Get("Location"))
		}
	})

	t.Run("refresh re-syncs the ride", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, viewerEmail)
		w, _ := c.post(t, "/dashboard/rides/"+testutil.FakeRideRequested+"/refresh", nil)
		expectRedirect(t, w, "/dashboard?")
		if c.fb.CallsTo("/api/rides/"+testutil.FakeRideRequested+"/refresh") != 1 {
			t.Error("expected one backend refresh call")
		}
	})
}

// --- Other pages ---

func TestPages(t *testing.T) {
	c := newConsole(t, true)
	c.login(t, adminEmail)

	tests := []struct {
		path string
		want []string
	}{
		{"/dashboard/conversations", []string{"Mariana Souza", "Procurando motorista..."}},
		{"/dashboard/conversations?conv=" + testutil.FakeConversation, []string{"Mensagens", "Olá, preciso de um carro"}},
		{"/dashboard/analytics", []string{"Taxa de conclusão", "50.0%", "6pm"}},
		{"/dashboard/drivers", []string{"Sofia Hernandez", "MNO-1357", "4.7"}},
		{"/dashboard/drivers?status=offline", []string{"Ana Garcia"}},
		{"/dashboard/users", []string{operatorEmail, viewerEmail, "Novo usuário"}},
		{"/dashboard/settings", []string{"MACHINE_API_KEY", "****a1b2"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w, body := c.get(t, tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			expectContains(t, body, tt.want...)
		})
	}

	t.Run("driver status filter hides others", func(t *testing.T) {
		_, body := c.get(t, "/dashboard/drivers?status=offline")
		if strings.Contains(body, "Sofia Hernandez") {
			t.Error("available driver shown under offline filter")
		}
	})
}

// --- Users ---

func TestCreateUser(t *testing.T) {
	t.Run("invalid form re-renders with 422 and no backend call", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, adminEmail)
		w, body := c.post(t, "/dashboard/users", url.Values{"email": {"bad"}, "name": {""}, "password": {"short"}, "role": {"OPERATOR"}})
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", w.Code)
		}
		expectContains(t, body, "Name is required")
		for _, call := range c.fb.Calls() {
			if call.Method == http.MethodPost && call.Path == "/api/auth/users" {
				t.Error("expected no backend create call")
			}
		}
	})

	t.Run("valid form creates the user", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, adminEmail)
		w, _ := c.post(t, "/dashboard/users", url.Values{
			"email": {"novo@michame.com.br"}, "name": {"Novo"}, "password": {"outra5enha"}, "role": {"VIEWER"},
		})
		expectRedirect(t, w, "/dashboard/users?flash=")

		_, body := c.get(t, "/dashboard/users")
		expectContains(t, body, "novo@michame.com.br")
	})

	t.Run("reset password enforces the policy", func(t *testing.T) {
		c := newConsole(t, true)
		c.login(t, adminEmail)
		w, _ := c.post(t, "/dashboard/users/some-id/reset-password", url.Values{"password": {"short"}})
		expectRedirect(t, w, "/dashboard/users?flash=")
		if c.fb.CallsTo("/api/auth/users/some-id/reset-password") != 0 {
			t.Error("expected no backend call for a weak password")
		}
	})
}

// --- Health ---

func TestCheckHealth(t *testing.T) {
	c := newConsole(t, true)

	_, body := c.get(t, "/health")
	expectContains(t, body, `"status":"ok"`, `"backend":"unknown"`, `"session":"anonymous"`)

	c.login(t, operatorEmail)
	_, body = c.get(t, "/health")
	expectContains(t, body, `"backend":"ok"`, `"session":"authenticated"`)
}

// --- CSRF ---

func TestValidateCSRFToken(t *testing.T) {
	a, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken failed: %v", err)
	}
	b, _ := GenerateCSRFToken()

	if !ValidateCSRFToken(*a, *a) {
		t.Error("identical tokens should validate")
	}
	if ValidateCSRFToken(*a, *b) {
		t.Error("different tokens should not validate")
	}
}

func TestCSRFMiddleware(t *testing.T) {
	c := newConsole(t, true)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	mw := c.h.CSRFMiddleware(next)

	tests := []struct {
		name   string
		method string
		header string
		want   int
	}{
		{"GET passes without a token", http.MethodGet, "", http.StatusNoContent},
		{"POST with header token passes", http.MethodPost, c.h.CSRFToken(), http.StatusNoContent},
		{"DELETE without token is forbidden", http.MethodDelete, "", http.StatusForbidden},
		{"POST with non-base64 token is forbidden", http.MethodPost, "!!!", http.StatusForbidden},
		{"POST with short token is forbidden", http.MethodPost, "AAAA", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/x", nil)
			if tt.header != "" {
				r.Header.Set("X-CSRF-Token", tt.header)
			}
			w := httptest.NewRecorder()
			mw.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
