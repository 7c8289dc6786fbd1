package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/models"
	"github.com/michame/console/internal/testutil"
)

// --- Helpers ---

// fixedBackend answers every path with the same status and body, counting calls.
func fixedBackend(t *testing.T, status int, body string) (*httptest.Server, *int) {
	t.Helper()
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// assertAnonymous checks the session ended Anonymous with loading cleared.
func assertAnonymous(t *testing.T, s *Session) {
	t.Helper()
	snap := s.Snapshot()
	if snap.IsAuthenticated() {
		t.Errorf("expected anonymous, got user %+v", snap.User)
	}
	if snap.Loading {
		t.Error("expected loading=false")
	}
	if snap.State != StateAnonymous {
		t.Errorf("state: expected anonymous, got %s", snap.State)
	}
}

// --- Login ---

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials store a1/r1 and mark ADMIN", func(t *testing.T) {
		srv, _ := fixedBackend(t, http.StatusOK,
			`{"success":true,"data":{"user":{"id":"u1","email":"ana@michame.com.br","name":"Ana","role":"ADMIN"},"accessToken":"a1","refreshToken":"r1"}}`)
		store := testutil.NewMockStore("", "", nil)
		s := New(apiclient.New(srv.URL, store), store)

		if err := s.Login(ctx, "ana@michame.com.br", "pw"); err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		if store.AccessToken(ctx) != "a1" || store.RefreshToken(ctx) != "r1" {
			t.Errorf("tokens: expected a1/r1, got %q/%q", store.AccessToken(ctx), store.RefreshToken(ctx))
		}
		snap := s.Snapshot()
		if !snap.IsAuthenticated() || !snap.IsAdmin() || snap.IsSuperAdmin() {
			t.Errorf("expected authenticated ADMIN, got %+v", snap)
		}
		if snap.Loading {
			t.Error("expected loading cleared after login")
		}
	})

	t.Run("rejected credentials return the backend message", func(t *testing.T) {
		srv, _ := fixedBackend(t, http.StatusUnauthorized, `{"success":false,"error":"Invalid email or password"}`)
		store := testutil.NewMockStore("", "", nil)
		s := New(apiclient.New(srv.URL, store), store)
		s.Init(ctx)

		err := s.Login(ctx, "ana@michame.com.br", "bad")
		if !errors.Is(err, ErrLoginFailed) {
			t.Fatalf("expected ErrLoginFailed, got %v", err)
		}
		if err.Error() != "Invalid email or password" {
			t.Errorf("message: expected backend text, got %q", err.Error())
		}
		if !store.Empty() {
			t.Error("failed login must not touch the store")
		}
		assertAnonymous(t, s)
	})

	t.Run("success without user data is a failure", func(t *testing.T) {
		for _, body := range []string{
			`{"success":true}`,
			`{"success":true,"data":null}`,
			`{"success":true,"data":{"accessToken":"a1","refreshToken":"r1"}}`,
		} {
			t.Run(body, func(t *testing.T) {
				srv, _ := fixedBackend(t, http.StatusOK, body)
				store := testutil.NewMockStore("", "", nil)
				s := New(apiclient.New(srv.URL, store), store)
				s.Init(ctx)

				err := s.Login(ctx, "ana@michame.com.br", "pw")
				var le *LoginError
				if !errors.As(err, &le) || le.Message != DefaultLoginError {
					t.Errorf("expected default login error, got %v", err)
				}
				if !store.Empty() {
					t.Error("nothing should be stored")
				}
				assertAnonymous(t, s)
			})
		}
	})

	t.Run("rejection without a message uses the default", func(t *testing.T) {
		srv, _ := fixedBackend(t, http.StatusBadRequest, `{"success":false}`)
		store := testutil.NewMockStore("", "", nil)
		s := New(apiclient.New(srv.URL, store), store)

		err := s.Login(ctx, "x", "y")
		var le *LoginError
		if !errors.As(err, &le) || le.Message != DefaultLoginError {
			t.Errorf("expected default login error, got %v", err)
		}
		if s.Snapshot().Loading {
			t.Error("expected loading cleared after failed login")
		}
	})
}

// --- Init ---

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("no stored token goes straight to anonymous without calling the backend", func(t *testing.T) {
		srv, calls := fixedBackend(t, http.StatusOK, `{"success":true}`)
		store := testutil.NewMockStore("", "", nil)
		s := New(apiclient.New(srv.URL, store), store)

		s.Init(ctx)

		assertAnonymous(t, s)
		if *calls != 0 {
			t.Errorf("expected zero backend calls, got %d", *calls)
		}
	})

	t.Run("token without cached user is not validated", func(t *testing.T) {
		srv, calls := fixedBackend(t, http.StatusOK, `{"success":true}`)
		store := testutil.NewMockStore("a1", "r1", nil)
		s := New(apiclient.New(srv.URL, store), store)

		s.Init(ctx)

		assertAnonymous(t, s)
		if *calls != 0 {
			t.Errorf("expected zero backend calls, got %d", *calls)
		}
	})

	t.Run("rejected token clears storage and ends anonymous", func(t *testing.T) {
		srv, _ := fixedBackend(t, http.StatusOK, `{"success":false}`)
		store := testutil.NewMockStore("a1", "r1", &models.UserProfile{ID: "u1", Role: models.RoleAdmin})
		s := New(apiclient.New(srv.URL, store), store)

		s.Init(ctx)

		if !store.Empty() {
			t.Error("expected storage cleared")
		}
		assertAnonymous(t, s)
	})

	t.Run("valid token adopts the server's profile over the cached one", func(t *testing.T) {
		fb := testutil.NewFakeBackend(t)
		server := fb.AddUser("ana@michame.com.br", "pw", "Ana", models.RoleSuperAdmin)
		access, refresh := fb.IssueTokens("ana@michame.com.br")
		cached := server
		cached.Role = models.RoleViewer
		store := testutil.NewMockStore(access, refresh, &cached)
		s := New(apiclient.New(fb.URL(), store), store)

		s.Init(ctx)

		snap := s.Snapshot()
		if snap.State != StateAuthenticated || snap.Loading {
			t.Fatalf("expected authenticated and not loading, got %+v", snap)
		}
		if !snap.IsSuperAdmin() {
			t.Errorf("expected server role SUPER_ADMIN, got %s", snap.User.Role)
		}
	})

	t.Run("success without a profile clears storage and ends anonymous", func(t *testing.T) {
		for _, body := range []string{`{"success":true}`, `{"success":true,"data":null}`, `{"success":true,"data":{}}`} {
			t.Run(body, func(t *testing.T) {
				srv, _ := fixedBackend(t, http.StatusOK, body)
				store := testutil.NewMockStore("a1", "r1", &models.UserProfile{ID: "u1", Role: models.RoleAdmin})
				s := New(apiclient.New(srv.URL, store), store)

				s.Init(ctx)

				if !store.Empty() {
					t.Error("expected storage cleared")
				}
				assertAnonymous(t, s)
			})
		}
	})

	t.Run("runs only once", func(t *testing.T) {
		srv, calls := fixedBackend(t, http.StatusOK, `{"success":true,"data":{"id":"u1","role":"VIEWER"}}`)
		store := testutil.NewMockStore("a1", "r1", &models.UserProfile{ID: "u1"})
		s := New(apiclient.New(srv.URL, store), store)

		s.Init(ctx)
		s.Init(ctx)

		if *calls != 1 {
			t.Errorf("expected one validation call, got %d", *calls)
		}
	})
}

// --- Logout ---

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("offline logout still clears local state", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		store := testutil.NewMockStore("a1", "r1", &models.UserProfile{ID: "u1", Role: models.RoleOperator})
		s := New(apiclient.New(url, store), store)
		s.update(func() { s.user = store.User(ctx) })

		s.Logout(ctx)

		if !store.Empty() {
			t.Error("expected storage cleared")
		}
		if s.User() != nil {
			t.Error("expected user=nil")
		}
		if s.Snapshot().Loading {
			t.Error("expected loading cleared")
		}
	})

	t.Run("store failure still drops the in-memory user", func(t *testing.T) {
		srv, _ := fixedBackend(t, http.StatusOK, `{"success":true}`)
		store := testutil.NewMockStore("a1", "r1", nil)
		store.ClearErr = errors.New("disk full")
		s := New(apiclient.New(srv.URL, store), store)
		s.update(func() { s.user = &models.UserProfile{ID: "u1"} })

		s.Logout(ctx)

		if s.User() != nil {
			t.Error("expected user=nil")
		}
		if store.Clears != 1 {
			t.Errorf("expected one Clear attempt, got %d", store.Clears)
		}
	})
}

// --- RefreshUser ---

func TestRefreshUser(t *testing.T) {
	ctx := context.Background()

	t.Run("failure keeps the current user", func(t *testing.T) {
		srv, _ := fixedBackend(t, http.StatusInternalServerError, `{"success":false,"error":"boom"}`)
		store := testutil.NewMockStore("a1", "r1", nil)
		s := New(apiclient.New(srv.URL, store), store)
		s.update(func() { s.user = &models.UserProfile{ID: "u1", Role: models.RoleAdmin} })

		s.RefreshUser(ctx)

		if u := s.User(); u == nil || u.ID != "u1" {
			t.Errorf("expected user kept, got %+v", u)
		}
	})

	t.Run("success without a profile keeps the current user", func(t *testing.T) {
		srv, _ := fixedBackend(t, http.StatusOK, `{"success":true,"data":null}`)
		store := testutil.NewMockStore("a1", "r1", nil)
		s := New(apiclient.New(srv.URL, store), store)
		s.update(func() { s.user = &models.UserProfile{ID: "u1", Role: models.RoleAdmin} })

		s.RefreshUser(ctx)

		if u := s.User(); u == nil || u.ID != "u1" || u.Role != models.RoleAdmin {
			t.Errorf("expected user kept, got %+v", u)
		}
	})

	t.Run("success replaces the profile wholesale", func(t *testing.T) {
		srv, _ := fixedBackend(t, http.StatusOK, `{"success":true,"data":{"id":"u1","name":"Ana B","role":"OPERATOR"}}`)
		store := testutil.NewMockStore("a1", "r1", nil)
		s := New(apiclient.New(srv.URL, store), store)
		s.update(func() { s.user = &models.UserProfile{ID: "u1", Name: "Ana", Email: "old@x", Role: models.RoleAdmin} })

		s.RefreshUser(ctx)

		u := s.User()
		if u.Name != "Ana B" || u.Role != models.RoleOperator || u.Email != "" {
			t.Errorf("expected fresh profile, got %+v", u)
		}
	})
}

// --- HasRole ---

func TestHasRole(t *testing.T) {
	s := New(nil, testutil.NewMockStore("", "", nil))

	if s.HasRole(models.RoleViewer) {
		t.Error("no user should have no role")
	}

	tests := []struct {
		have, need models.Role
		want       bool
	}{
		{models.RoleSuperAdmin, models.RoleAdmin, true},
		{models.RoleViewer, models.RoleAdmin, false},
		{models.RoleAdmin, models.RoleAdmin, true},
		{models.RoleOperator, models.RoleViewer, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.have)+" needs "+string(tt.need), func(t *testing.T) {
			s.update(func() { s.user = &models.UserProfile{Role: tt.have} })
			if got := s.HasRole(tt.need); got != tt.want {
				t.Errorf("HasRole(%s) as %s: expected %v, got %v", tt.need, tt.have, tt.want, got)
			}
		})
	}
}

// --- Subscribe / Expire ---

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	srv, _ := fixedBackend(t, http.StatusOK,
		`{"success":true,"data":{"user":{"id":"u1","role":"VIEWER"},"accessToken":"a1","refreshToken":"r1"}}`)
	store := testutil.NewMockStore("", "", nil)
	s := New(apiclient.New(srv.URL, store), store)

	var seen []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })

	if err := s.Login(ctx, "x", "y"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// loading on, user set, loading off
	if len(seen) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(seen))
	}
	if !seen[0].Loading || seen[2].Loading || !seen[2].IsAuthenticated() {
		t.Errorf("unexpected notification sequence %+v", seen)
	}

	unsubscribe()
	s.Expire()
	if len(seen) != 3 {
		t.Errorf("expected no notifications after unsubscribe, got %d", len(seen))
	}
	if s.Snapshot().State != StateAnonymous {
		t.Errorf("expected anonymous after Expire, got %s", s.Snapshot().State)
	}
}

func TestExpireViaNavigator(t *testing.T) {
	ctx := context.Background()
	fb := testutil.NewFakeBackend(t)
	fb.AddUser("ana@michame.com.br", "pw", "Ana", models.RoleAdmin)
	store := testutil.NewMockStore("", "", nil)

	var s *Session
	client := apiclient.New(fb.URL(), store, apiclient.WithNavigator(func(string) { s.Expire() }))
	s = New(client, store)

	if err := s.Login(ctx, "ana@michame.com.br", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	fb.ExpireAccessTokens()
	fb.RevokeRefreshTokens()

	if env := client.Rides(ctx, apiclient.RideQuery{}); env.Error != apiclient.SessionExpiredMessage {
		t.Fatalf("expected Session expired, got %+v", env)
	}
	assertAnonymous(t, s)
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	fb := testutil.NewFakeBackend(t)
	fb.AddUser("ana@michame.com.br", "pw", "Ana", models.RoleOperator)
	store := testutil.NewMockStore("", "", nil)
	client := apiclient.New(fb.URL(), store)
	s := New(client, store)
	s.Init(ctx)

	// Another process logs in
	client.Login(ctx, "ana@michame.com.br", "pw")
	s.Sync(ctx)
	if !s.Snapshot().IsAuthenticated() {
		t.Fatal("expected Sync to pick up the new login")
	}

	// Another process logs out
	store.Clear(ctx)
	s.Sync(ctx)
	if s.Snapshot().IsAuthenticated() {
		t.Error("expected Sync to drop the session after external logout")
	}
}

func TestSyncIgnoresEmptyProfile(t *testing.T) {
	ctx := context.Background()
	srv, _ := fixedBackend(t, http.StatusOK, `{"success":true}`)
	store := testutil.NewMockStore("a1", "r1", &models.UserProfile{ID: "u1"})
	s := New(apiclient.New(srv.URL, store), store)
	s.update(func() { s.initialized = true })

	s.Sync(ctx)

	if s.Snapshot().IsAuthenticated() {
		t.Errorf("expected no user adopted, got %+v", s.User())
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateUninitialized: "uninitialized",
		StateLoading:       "loading",
		StateAuthenticated: "authenticated",
		StateAnonymous:     "anonymous",
	} {
		if state.String() != want {
			t.Errorf("expected %q, got %q", want, state.String())
		}
	}
}
