// Package web serves the operator console: landing page, login and the
// session-gated dashboard, rendered server-side from embedded templates.
//
// handler.go -- Handler dependencies, page rendering, shared helpers.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/datasource"
	"github.com/michame/console/internal/format"
	"github.com/michame/console/internal/models"
	"github.com/michame/console/internal/session"
)

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

//go:embed templates/*.html
var templateFS embed.FS

// SessionManager is the process-wide session. Satisfied by *session.Session.
type SessionManager interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context)
	RefreshUser(ctx context.Context)
}

// Backend is the slice of the API client the console calls directly.
// Satisfied by *apiclient.Client.
type Backend interface {
	datasource.API
	RefreshRide(ctx context.Context, id string) apiclient.Envelope[models.Ride]
	CancelRide(ctx context.Context, id, reason string) apiclient.Envelope[models.Ride]
	ConversationMessages(ctx context.Context, id string) apiclient.Envelope[[]models.Message]
	ConversationStats(ctx context.Context) apiclient.Envelope[models.ConversationStats]
	Users(ctx context.Context) apiclient.Envelope[[]models.UserProfile]
	CreateUser(ctx context.Context, u apiclient.NewUser) apiclient.Envelope[models.UserProfile]
	DeleteUser(ctx context.Context, id string) apiclient.Raw
	ResetUserPassword(ctx context.Context, id, newPassword string) apiclient.Raw
	Health(ctx context.Context) apiclient.Envelope[models.HealthStatus]
	Credentials(ctx context.Context) apiclient.Envelope[models.CredentialsData]
	MissingCredentials(ctx context.Context) apiclient.Envelope[models.MissingCredentials]
}

// Options tune the console.
type Options struct {
	WhatsAppLink string
	PollInterval time.Duration
	// Fallback serves fixtures when the backend is unreachable.
	Fallback bool
	// OnDegrade is told which read failed when a page falls back to fixtures.
	OnDegrade func(source string)
}

// Handler holds dependencies for every console route and middleware.
type Handler struct {
	Session SessionManager
	API     Backend
	Options Options

	csrf  [32]byte
	pages map[string]*template.Template

	mu      sync.Mutex
	browser *browserBinding
}

// pageFiles lists every page template; each is parsed together with layout.html.
var pageFiles = []string{
	"landing.html", "login.html", "dashboard.html", "conversations.html",
	"analytics.html", "drivers.html", "users.html", "settings.html",
}

// NewHandler parses the templates and mints the process CSRF token.
func NewHandler(sess SessionManager, api Backend, opts Options) (*Handler, error) {
	token, err := GenerateCSRFToken()
	if err != nil {
		return nil, err
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}

	h := &Handler{Session: sess, API: api, Options: opts, csrf: *token, pages: make(map[string]*template.Template)}
	for _, name := range pageFiles {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		h.pages[name] = t
	}
	return h, nil
}

// CSRFToken returns the encoded token forms must echo back.
func (h *Handler) CSRFToken() string {
	return EncodeCSRFToken(h.csrf)
}

var statusLabels = map[string]string{
	models.RideRequested: "Requested",
	models.RideAccepted:  "Accepted",
	models.RideNoDriver:  "No Driver",
	models.RideFailed:    "Failed",
	models.RideCompleted: "Completed",
	models.RideCancelled: "Cancelled",
}

var templateFuncs = template.FuncMap{
	"price":     func(p *float64) string { return format.OptionalPrice(p, "") },
	"money":     func(v float64) string { return format.Price(v, "") },
	"brl":       func(v float64) string { return format.Price(v, "BRL") },
	"timestamp": format.Timestamp,
	"ago":       format.RelativeTime,
	"phone":     format.PhoneNumber,
	"truncate":  format.Truncate,
	"deref":     format.Deref,
	"status": func(s string) string {
		if l, ok := statusLabels[s]; ok {
			return l
		}
		return s
	},
	// width scales n against total into a 0-100 bar width.
	"width": func(n, total int) int {
		if total <= 0 {
			return 0
		}
		return n * 100 / total
	},
}

// view is the data every page template receives.
type view struct {
	Title      string
	Nav        string
	User       *models.UserProfile
	IsAdmin    bool
	CanOperate bool
	CSRF       string
	Degraded   bool
	Flash      string
	Error      string
	Refresh    int
	WhatsApp   string
	Data       any
}

// newView fills the fields shared by every page.
func (h *Handler) newView(r *http.Request, title, nav string) *view {
	snap, ok := SnapshotFromContext(r.Context())
	if !ok {
		// Ungated pages only show the user to the browser that signed in.
		cur := h.Session.Snapshot()
		if bound, _ := h.boundBrowser(r, cur); bound {
			snap = cur
		}
	}
	return &view{
		Title:      title,
		Nav:        nav,
		User:       snap.User,
		IsAdmin:    snap.IsAdmin(),
		CanOperate: snap.HasRole(models.RoleOperator),
		CSRF:       h.CSRFToken(),
		Flash:      r.URL.Query().Get("flash"),
		WhatsApp:   h.Options.WhatsAppLink,
	}
}

// render executes page into a buffer first so a template error never leaves half a page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, v *view) {
	t, ok := h.pages[page]
	if !ok {
		InternalServerError(w, r, fmt.Errorf("unknown page %q", page))
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		InternalServerError(w, r, fmt.Errorf("rendering %s: %w", page, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// source returns a fresh data source for one page render.
func (h *Handler) source() datasource.Reader {
	return datasource.NewReader(h.API, h.Options.Fallback, h.Options.OnDegrade)
}

// expired reports whether err is a session expiry and, if so, sends the browser to login.
// The API client's navigator has already marked the session anonymous.
func (h *Handler) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, apiclient.ErrSessionExpired) {
		return false
	}
	logInfo(r, "session expired during request")
	SeeOther(w, r, loginPath+"?expired=1")
	return true
}

// envelopeExpired is expired for envelopes returned by Backend calls.
func envelopeExpired[T any](h *Handler, w http.ResponseWriter, r *http.Request, env apiclient.Envelope[T]) bool {
	if env.Success || env.Error != apiclient.SessionExpiredMessage {
		return false
	}
	return h.expired(w, r, apiclient.ErrSessionExpired)
}
