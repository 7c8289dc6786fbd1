// backend_handlers.go -- Endpoint handlers for FakeBackend.
package testutil

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/michame/console/internal/models"
)

func withUser(r *http.Request, u models.UserProfile) context.Context {
	return context.WithValue(r.Context(), ctxUser{}, u)
}

func userFrom(r *http.Request) models.UserProfile {
	u, _ := r.Context().Value(ctxUser{}).(models.UserProfile)
	return u
}

// --- Auth ---

func (fb *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(r, &req) || req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	u, ok := fb.users[req.Email]
	if !ok || u.password != req.Password {
		WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if u.profile.IsActive != nil && !*u.profile.IsActive {
		WriteError(w, http.StatusForbidden, "Account is disabled")
		return
	}
	now := time.Now().UTC().Truncate(time.Second)
	u.profile.LastLoginAt = &now

	WriteEnvelope(w, http.StatusOK, models.LoginResult{
		User:         u.profile,
		AccessToken:  fb.issueAccessLocked(req.Email),
		RefreshToken: fb.issueRefreshLocked(req.Email),
	})
}

func (fb *FakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(r, &req) || req.RefreshToken == "" {
		WriteError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	email, ok := fb.refresh[req.RefreshToken]
	if fb.FailRefresh || !ok {
		WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	WriteEnvelope(w, http.StatusOK, models.RefreshResult{AccessToken: fb.issueAccessLocked(email)})
}

func (fb *FakeBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	decode(r, &req)

	fb.mu.Lock()
	delete(fb.refresh, req.RefreshToken)
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}

func (fb *FakeBackend) handleMe(w http.ResponseWriter, r *http.Request) {
	WriteEnvelope(w, http.StatusOK, userFrom(r))
}

func (fb *FakeBackend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decode(r, &req) || req.NewPassword == "" {
		WriteError(w, http.StatusBadRequest, "New password is required")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	u := fb.users[userFrom(r).Email]
	if u == nil || u.password != req.CurrentPassword {
		WriteError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	u.password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password changed"})
}

func (fb *FakeBackend) handleSetup(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.setupDone || len(fb.users) > 0 {
		WriteError(w, http.StatusBadRequest, "Setup already completed")
		return
	}
	fb.setupDone = true
	fb.addUserLocked("admin@michame.com.br", "changeme123", "Administrador", models.RoleSuperAdmin)
	WriteEnvelope(w, http.StatusCreated, models.SetupResult{
		Email:    "admin@michame.com.br",
		Password: "changeme123",
		Note:     "Change this password after first login",
	})
}

// --- Users ---

func (fb *FakeBackend) handleListUsers(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	out := make([]models.UserProfile, 0, len(fb.users))
	for _, u := range fb.users {
		out = append(out, u.profile)
	}
	fb.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	WriteEnvelope(w, http.StatusOK, out)
}

func (fb *FakeBackend) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string      `json:"email"`
		Password string      `json:"password"`
		Name     string      `json:"name"`
		Role     models.Role `json:"role"`
	}
	if !decode(r, &req) || req.Email == "" || req.Password == "" || req.Name == "" || !req.Role.Valid() {
		WriteError(w, http.StatusBadRequest, "Email, password, name and a valid role are required")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if _, exists := fb.users[req.Email]; exists {
		WriteError(w, http.StatusConflict, "Email already in use")
		return
	}
	WriteEnvelope(w, http.StatusCreated, fb.addUserLocked(req.Email, req.Password, req.Name, req.Role))
}

// findUserLocked returns the user with id. Caller holds mu.
func (fb *FakeBackend) findUserLocked(id string) *fakeUser {
	for _, u := range fb.users {
		if u.profile.ID == id {
			return u
		}
	}
	return nil
}

func (fb *FakeBackend) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var upd models.UserUpdate
	if !decode(r, &upd) {
		WriteError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	u := fb.findUserLocked(chi.URLParam(r, "id"))
	if u == nil {
		WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	if upd.Name != nil {
		u.profile.Name = *upd.Name
	}
	if upd.Role != nil {
		u.profile.Role = *upd.Role
	}
	if upd.IsActive != nil {
		active := *upd.IsActive
		u.profile.IsActive = &active
	}
	if upd.Email != nil && *upd.Email != u.profile.Email {
		delete(fb.users, u.profile.Email)
		u.profile.Email = *upd.Email
		fb.users[u.profile.Email] = u
	}
	WriteEnvelope(w, http.StatusOK, u.profile)
}

func (fb *FakeBackend) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	u := fb.findUserLocked(chi.URLParam(r, "id"))
	if u == nil {
		WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	if u.profile.ID == userFrom(r).ID {
		WriteError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	delete(fb.users, u.profile.Email)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User deleted"})
}

func (fb *FakeBackend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if !decode(r, &req) || req.NewPassword == "" {
		WriteError(w, http.StatusBadRequest, "New password is required")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	u := fb.findUserLocked(chi.URLParam(r, "id"))
	if u == nil {
		WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	u.password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password reset"})
}

// --- Rides ---

func (fb *FakeBackend) handleListRides(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	fb.mu.Lock()
	var matched []models.Ride
	for _, ride := range fb.rides {
		if status == "" || ride.Status == status {
			matched = append(matched, ride)
		}
	}
	fb.mu.Unlock()

	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    append([]models.Ride{}, matched[start:end]...),
		"pagination": map[string]int{
			"page": page, "limit": limit, "total": total, "pages": (total + limit - 1) / limit,
		},
	})
}

func (fb *FakeBackend) handleGetRide(w http.ResponseWriter, r *http.Request) {
	ride, ok := fb.Ride(chi.URLParam(r, "id"))
	if !ok {
		WriteError(w, http.StatusNotFound, "Ride not found")
		return
	}
	WriteEnvelope(w, http.StatusOK, ride)
}

func (fb *FakeBackend) handleRideLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := fb.Ride(id); !ok {
		WriteError(w, http.StatusNotFound, "Ride not found")
		return
	}
	fb.mu.Lock()
	logs := append([]models.LogEntry{}, fb.logs[id]...)
	fb.mu.Unlock()
	WriteEnvelope(w, http.StatusOK, logs)
}

func (fb *FakeBackend) handleCancelRide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	decode(r, &req)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i := range fb.rides {
		if fb.rides[i].ID != chi.URLParam(r, "id") {
			continue
		}
		switch fb.rides[i].Status {
		case models.RideCompleted, models.RideCancelled:
			WriteError(w, http.StatusBadRequest, "Ride cannot be cancelled")
			return
		}
		fb.rides[i].Status = models.RideCancelled
		desc := req.Reason
		fb.rides[i].Events = append(fb.rides[i].Events, models.RideEvent{
			ID: "EVT-CANCEL-" + fb.rides[i].ID, EventType: "cancelled", Title: "Ride cancelled",
			Description: &desc, CreatedAt: time.Now().UTC(),
		})
		WriteEnvelope(w, http.StatusOK, fb.rides[i])
		return
	}
	WriteError(w, http.StatusNotFound, "Ride not found")
}

// --- Conversations ---

func (fb *FakeBackend) handleListConversations(w http.ResponseWriter, r *http.Request) {
	active := r.URL.Query().Get("active")
	fb.mu.Lock()
	var out []models.Conversation
	for _, c := range fb.convs {
		if active == "" || (active == "true") == c.IsActive {
			out = append(out, c)
		}
	}
	fb.mu.Unlock()
	WriteEnvelope(w, http.StatusOK, append([]models.Conversation{}, out...))
}

func (fb *FakeBackend) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, c := range fb.convs {
		if c.ID == chi.URLParam(r, "id") {
			WriteEnvelope(w, http.StatusOK, c)
			return
		}
	}
	WriteError(w, http.StatusNotFound, "Conversation not found")
}

func (fb *FakeBackend) handleMessages(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	msgs, ok := fb.messages[chi.URLParam(r, "id")]
	fb.mu.Unlock()
	if !ok {
		WriteError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	WriteEnvelope(w, http.StatusOK, msgs)
}

func (fb *FakeBackend) handleConversationStats(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	stats := models.ConversationStats{ConversationsToday: len(fb.convs)}
	for _, c := range fb.convs {
		if c.IsActive {
			stats.ActiveConversations++
		}
		stats.MessagesToday += len(fb.messages[c.ID])
	}
	fb.mu.Unlock()
	WriteEnvelope(w, http.StatusOK, stats)
}

// --- Analytics ---

func (fb *FakeBackend) handleOverview(w http.ResponseWriter, r *http.Request) {
	var ov models.AnalyticsOverview
	fb.mu.Lock()
	for _, ride := range fb.rides {
		ov.Rides.Total++
		switch ride.Status {
		case models.RideCompleted:
			ov.Rides.Completed++
			if ride.FinalPrice != nil {
				ov.Revenue.Month += *ride.FinalPrice
			}
		case models.RideCancelled:
			ov.Rides.Cancelled++
		case models.RideRequested, models.RideAccepted:
			ov.Rides.Active++
		}
	}
	ov.Conversations.Active = len(fb.convs)
	fb.mu.Unlock()
	ov.Rides.Month = ov.Rides.Total
	ov.Customers.Total = ov.Rides.Total
	ov.Rides.CompletionRate = "50.0"
	ov.Rides.CancellationRate = "0.0"
	WriteEnvelope(w, http.StatusOK, ov)
}

func (fb *FakeBackend) handleRidesByDay(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	out := make([]models.DayData, 0, days)
	today := time.Now().UTC()
	for i := days - 1; i >= 0; i-- {
		out = append(out, models.DayData{Date: today.AddDate(0, 0, -i).Format("2006-01-02"), Rides: 10 + i, Completed: 8 + i, Revenue: float64(300 + 10*i)})
	}
	WriteEnvelope(w, http.StatusOK, out)
}

func (fb *FakeBackend) handleRidesByStatus(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int{}
	fb.mu.Lock()
	for _, ride := range fb.rides {
		counts[ride.Status]++
	}
	fb.mu.Unlock()
	out := make([]models.StatusCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, models.StatusCount{Status: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	WriteEnvelope(w, http.StatusOK, out)
}

func (fb *FakeBackend) handleRidesByCategory(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int{}
	fb.mu.Lock()
	for _, ride := range fb.rides {
		counts[ride.Category]++
	}
	fb.mu.Unlock()
	out := make([]models.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, models.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	WriteEnvelope(w, http.StatusOK, out)
}

func (fb *FakeBackend) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	fb.mu.Lock()
	var out []models.RecentEvent
	for _, ride := range fb.rides {
		for _, ev := range ride.Events {
			phone := ride.PhoneNumber
			out = append(out, models.RecentEvent{
				ID: ev.ID, RideID: ride.ID, Type: "info", Title: ev.Title,
				Description: ev.Description, Timestamp: ev.CreatedAt, CustomerPhone: &phone, CustomerName: ride.CustomerName,
			})
		}
	}
	fb.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	WriteEnvelope(w, http.StatusOK, out)
}

// --- Settings ---

func (fb *FakeBackend) handleHealth(w http.ResponseWriter, r *http.Request) {
	var h models.HealthStatus
	h.Status = "healthy"
	h.Services.Database.Status = "connected"
	h.Services.MachineGlobal.Status = "configured"
	h.Services.WhatsApp.Status = "configured"
	h.Services.Twilio.Status = "not_configured"
	h.Services.OpenAI.Status = "configured"
	h.Timestamp = time.Now().UTC().Truncate(time.Second)
	WriteEnvelope(w, http.StatusOK, h)
}

func (fb *FakeBackend) handleWebhooks(w http.ResponseWriter, r *http.Request) {
	WriteEnvelope(w, http.StatusOK, map[string]string{
		"whatsapp": fb.Server.URL + "/webhooks/whatsapp",
		"machine":  fb.Server.URL + "/webhooks/machine",
	})
}

func (fb *FakeBackend) handleEnv(w http.ResponseWriter, r *http.Request) {
	WriteEnvelope(w, http.StatusOK, map[string]string{"nodeEnv": "test", "version": "fake"})
}

func (fb *FakeBackend) handleTestWhatsApp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
		Message     string `json:"message"`
	}
	if !decode(r, &req) || req.PhoneNumber == "" {
		WriteError(w, http.StatusBadRequest, "Phone number is required")
		return
	}
	WriteEnvelope(w, http.StatusOK, map[string]string{"messageId": "wamid.fake", "to": req.PhoneNumber})
}

func (fb *FakeBackend) handleTestMachine(w http.ResponseWriter, r *http.Request) {
	WriteEnvelope(w, http.StatusOK, models.ServiceTestResult{Success: true, Service: "machine", Message: "Connection OK"})
}

// --- Credentials ---

func (fb *FakeBackend) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	creds := append([]models.CredentialInfo{}, fb.credentials...)
	fb.mu.Unlock()

	data := models.CredentialsData{Credentials: creds, Grouped: map[string][]models.CredentialInfo{}}
	for _, c := range creds {
		if _, seen := data.Grouped[c.Service]; !seen {
			data.Services = append(data.Services, c.Service)
		}
		data.Grouped[c.Service] = append(data.Grouped[c.Service], c)
	}
	WriteEnvelope(w, http.StatusOK, data)
}

func (fb *FakeBackend) handleMissingCredentials(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	var missing []string
	for _, c := range fb.credentials {
		if !c.IsConfigured {
			missing = append(missing, c.Key)
		}
	}
	fb.mu.Unlock()
	msg := "All required credentials are configured"
	if len(missing) > 0 {
		msg = "Missing: " + strings.Join(missing, ", ")
	}
	WriteEnvelope(w, http.StatusOK, models.MissingCredentials{Missing: append([]string{}, missing...), IsComplete: len(missing) == 0, Message: msg})
}

func (fb *FakeBackend) handleSaveCredentials(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "name")
	var values map[string]string
	if !decode(r, &values) || len(values) == 0 {
		WriteError(w, http.StatusBadRequest, "No credentials provided")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	var saved []string
	for key, val := range values {
		found := false
		for i := range fb.credentials {
			if fb.credentials[i].Key == key {
				fb.credentials[i].IsConfigured = true
				fb.credentials[i].MaskedValue = mask(val)
				found = true
			}
		}
		if !found {
			fb.credentials = append(fb.credentials, models.CredentialInfo{Key: key, Service: service, IsConfigured: true, MaskedValue: mask(val)})
		}
		saved = append(saved, key)
	}
	sort.Strings(saved)
	WriteEnvelope(w, http.StatusOK, models.SavedCredentials{Message: "Credentials saved", SavedKeys: saved})
}

func (fb *FakeBackend) handleTestCredentials(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "name")
	fb.mu.Lock()
	ok := false
	for _, c := range fb.credentials {
		if c.Service == service && c.IsConfigured {
			ok = true
		}
	}
	fb.mu.Unlock()
	if !ok {
		WriteEnvelope(w, http.StatusOK, models.ServiceTestResult{Success: false, Service: service, Message: "Not configured", Error: "missing credentials"})
		return
	}
	WriteEnvelope(w, http.StatusOK, models.ServiceTestResult{Success: true, Service: service, Message: "Connection OK"})
}

func (fb *FakeBackend) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "name")
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i, c := range fb.credentials {
		if c.Key == key {
			fb.credentials = append(fb.credentials[:i], fb.credentials[i+1:]...)
			WriteEnvelope(w, http.StatusOK, models.MessageResult{Message: "Credential deleted"})
			return
		}
	}
	WriteError(w, http.StatusNotFound, "Credential not found")
}

func mask(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
