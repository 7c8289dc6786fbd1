// Package session holds the process-wide view of who is logged in.
//
// session.go -- Session state machine with subscribe/notify.
//
// Uninitialized -> Loading -> {Authenticated | Anonymous}, then
// Authenticated <-> Anonymous via Login, Logout and Expire.
// The session is the only component that calls login and logout.
package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/models"
)

// DefaultLoginError is shown when the backend rejects a login without saying why.
const DefaultLoginError = "Erro ao fazer login"

// ErrLoginFailed is wrapped by every error Login returns.
var ErrLoginFailed = errors.New("login failed")

// LoginError carries the message to show the user. errors.Is(err, ErrLoginFailed) holds.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return ErrLoginFailed }

// API is the slice of the backend client the session needs.
// Satisfied by *apiclient.Client.
type API interface {
	Login(ctx context.Context, email, password string) apiclient.Envelope[models.LoginResult]
	Logout(ctx context.Context) apiclient.Raw
	Me(ctx context.Context) apiclient.Envelope[models.UserProfile]
}

// Store is the slice of the credential store the session reads and clears.
// Satisfied by *credstore.Store.
type Store interface {
	AccessToken(ctx context.Context) string
	User(ctx context.Context) *models.UserProfile
	Clear(ctx context.Context) error
}

// State is the session's lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "uninitialized"
	}
}

// Snapshot is an immutable copy of session state handed to subscribers and views.
type Snapshot struct {
	User    *models.UserProfile
	Loading bool
	State   State
}

// IsAuthenticated reports whether a user is present.
func (s Snapshot) IsAuthenticated() bool { return s.User != nil }

// IsAdmin reports whether the user is ADMIN or SUPER_ADMIN.
func (s Snapshot) IsAdmin() bool {
	return s.User != nil && (s.User.Role == models.RoleAdmin || s.User.Role == models.RoleSuperAdmin)
}

// IsSuperAdmin reports whether the user is SUPER_ADMIN.
func (s Snapshot) IsSuperAdmin() bool {
	return s.User != nil && s.User.Role == models.RoleSuperAdmin
}

// HasRole reports whether the user's rank is at least required's. False with no user.
func (s Snapshot) HasRole(required models.Role) bool {
	return s.User != nil && s.User.Role.AtLeast(required)
}

// Session is safe for concurrent use. Subscribers are called outside the lock,
// in registration order, after every state change.
type Session struct {
	api   API
	store Store

	mu          sync.Mutex
	user        *models.UserProfile
	loading     bool
	initialized bool
	subs        map[int]func(Snapshot)
	nextSub     int

	initOnce sync.Once
}

// New returns an uninitialized Session. Call Init before relying on its state.
func New(api API, store Store) *Session {
	return &Session{
		api:   api,
		store: store,
		subs:  make(map[int]func(Snapshot)),
	}
}

// Init runs startup validation once. A stored token and user are checked against
// the backend with Me; the server's profile wins over the cached one. Anything
// else ends Anonymous. Loading is always cleared on return.
func (s *Session) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		s.update(func() { s.loading = true })
		defer s.update(func() {
			s.loading = false
			s.initialized = true
		})

		if s.store.AccessToken(ctx) == "" || s.store.User(ctx) == nil {
			slog.Debug("session: no stored credentials, starting anonymous")
			s.update(func() { s.user = nil })
			return
		}

		env := s.api.Me(ctx)
		if u, ok := profile(env); ok {
			slog.Info("session: restored", "user_id", u.ID, "role", u.Role)
			s.update(func() { s.user = u })
			return
		}

		slog.Info("session: stored token rejected, clearing", "error", env.Error)
		if err := s.store.Clear(ctx); err != nil {
			slog.Error("session: clearing credentials", "error", err)
		}
		s.update(func() { s.user = nil })
	})
}

// Login authenticates and adopts the returned profile. On failure it returns a
// *LoginError with the backend's message (or DefaultLoginError) and changes nothing.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.update(func() { s.loading = true })
	defer s.update(func() { s.loading = false })

	env := s.api.Login(ctx, email, password)
	if !env.Success || env.Data.User.ID == "" {
		msg := env.Error
		if msg == "" {
			msg = DefaultLoginError
		}
		slog.Info("session: login rejected", "email", email)
		return &LoginError{Message: msg}
	}

	u := env.Data.User
	slog.Info("session: logged in", "user_id", u.ID, "role", u.Role)
	s.update(func() {
		s.user = &u
		s.initialized = true
	})
	return nil
}

// Logout tells the backend (best effort) and always clears local state.
func (s *Session) Logout(ctx context.Context) {
	s.update(func() { s.loading = true })
	defer s.update(func() { s.loading = false })

	if env := s.api.Logout(ctx); !env.Success {
		slog.Warn("session: backend logout failed, clearing locally anyway", "error", env.Error)
	}
	if err := s.store.Clear(ctx); err != nil {
		slog.Error("session: clearing credentials", "error", err)
	}
	s.update(func() { s.user = nil })
}

// RefreshUser re-fetches the profile and adopts it. A failure is a silent no-op;
// a transient error must not log anyone out.
func (s *Session) RefreshUser(ctx context.Context) {
	env := s.api.Me(ctx)
	u, ok := profile(env)
	if !ok {
		slog.Debug("session: refresh user failed, keeping current profile", "error", env.Error)
		return
	}
	s.update(func() { s.user = u })
}

// Expire drops the user without any network call. Wired as the API client's
// navigator so an unrecoverable 401 demotes the session to Anonymous.
func (s *Session) Expire() {
	s.mu.Lock()
	had := s.user != nil
	s.mu.Unlock()
	if !had {
		return
	}
	slog.Info("session: expired")
	s.update(func() { s.user = nil })
}

// Sync reconciles with the credential store after another process changed it.
// Cleared credentials log this session out; fresh ones are validated with Me.
func (s *Session) Sync(ctx context.Context) {
	if s.store.AccessToken(ctx) == "" || s.store.User(ctx) == nil {
		s.Expire()
		return
	}
	u, ok := profile(s.api.Me(ctx))
	if !ok {
		// Me already went through refresh; a failure here means the store is being
		// rewritten under us or the backend is down. Keep what we have.
		return
	}
	s.update(func() { s.user = u })
}

// profile returns the user a Me reply carries. A success without a user id is no user.
func profile(env apiclient.Envelope[models.UserProfile]) (*models.UserProfile, bool) {
	if !env.Success || env.Data.ID == "" {
		return nil, false
	}
	u := env.Data
	return &u, true
}

// HasRole reports whether the current user ranks at least required.
func (s *Session) HasRole(required models.Role) bool {
	return s.Snapshot().HasRole(required)
}

// User returns a copy of the current profile, or nil.
func (s *Session) User() *models.UserProfile {
	return s.Snapshot().User
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every subsequent state change and returns a func
// that removes it.
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// update applies change under the lock, then notifies subscribers.
func (s *Session) update(change func()) {
	s.mu.Lock()
	change()
	snap := s.snapshotLocked()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Snapshot), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{Loading: s.loading}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	switch {
	case s.loading && !s.initialized:
		snap.State = StateLoading
	case !s.initialized && s.user == nil:
		snap.State = StateUninitialized
	case s.user != nil:
		snap.State = StateAuthenticated
	default:
		snap.State = StateAnonymous
	}
	return snap
}
