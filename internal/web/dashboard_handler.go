// dashboard_handler.go -- Session-gated operator pages and ride actions.
package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/datasource"
	"github.com/michame/console/internal/models"
)

// ridesFetchLimit bounds how many rides the dashboard pulls before filtering locally.
const ridesFetchLimit = 100

// eventsLimit is the size of the event feed.
const eventsLimit = 10

var rideStatuses = []string{
	datasource.StatusAll, models.RideRequested, models.RideAccepted, models.RideNoDriver,
	models.RideFailed, models.RideCompleted, models.RideCancelled,
}

type dashboardData struct {
	Search   string
	Status   string
	Statuses []string
	Rides    []models.Ride
	Total    int
	Events   []models.RecentEvent
	Selected *models.Ride
	Logs     []models.LogEntry
}

// Dashboard handles GET /dashboard?search=&status=&ride=.
// Rides are filtered locally by id, phone and status; ?ride= opens the log viewer.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	src := h.source()

	v := h.newView(r, "Painel - Mi Chame", "rides")
	v.Refresh = int(h.Options.PollInterval.Seconds())
	data := dashboardData{
		Search:   q.Get("search"),
		Status:   q.Get("status"),
		Statuses: rideStatuses,
	}
	if data.Status == "" {
		data.Status = datasource.StatusAll
	}

	page, err := src.Rides(ctx, apiclient.RideQuery{Limit: ridesFetchLimit})
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		logWarn(r, "loading rides failed", "error", err)
		v.Error = err.Error()
	}
	data.Total = len(page.Rides)
	data.Rides = datasource.FilterRides(page.Rides, data.Search, data.Status)

	events, err := src.RecentEvents(ctx, eventsLimit)
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		logWarn(r, "loading events failed", "error", err)
	}
	data.Events = events

	if id := q.Get("ride"); id != "" {
		ride, err := src.Ride(ctx, id)
		if h.expired(w, r, err) {
			return
		}
		if err == nil {
			data.Selected = &ride
			logs, err := src.RideLogs(ctx, id)
			if h.expired(w, r, err) {
				return
			}
			data.Logs = logs
		} else if !errors.Is(err, datasource.ErrNotFound) {
			logWarn(r, "loading ride failed", "ride_id", id, "error", err)
		}
	}

	v.Degraded = src.Degraded()
	v.Data = data
	h.render(w, r, http.StatusOK, "dashboard.html", v)
}

type conversationsData struct {
	Active        string
	Conversations []models.Conversation
	Stats         *models.ConversationStats
	Selected      string
	Messages      []models.Message
}

// Conversations handles GET /dashboard/conversations?active=&conv=.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	src := h.source()

	v := h.newView(r, "Conversas - Mi Chame", "conversations")
	v.Refresh = int(h.Options.PollInterval.Seconds())
	data := conversationsData{Active: q.Get("active"), Selected: q.Get("conv")}

	var cq apiclient.ConversationQuery
	if b, err := strconv.ParseBool(data.Active); err == nil {
		cq.Active = &b
	}
	convs, err := src.Conversations(ctx, cq)
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		logWarn(r, "loading conversations failed", "error", err)
		v.Error = err.Error()
	}
	data.Conversations = convs
	v.Degraded = src.Degraded()

	// Stats and transcripts have no fixtures; skip them once degraded.
	if !v.Degraded {
		stats := h.API.ConversationStats(ctx)
		if envelopeExpired(h, w, r, stats) {
			return
		}
		if stats.Success {
			data.Stats = &stats.Data
		}
		if data.Selected != "" {
			msgs := h.API.ConversationMessages(ctx, data.Selected)
			if envelopeExpired(h, w, r, msgs) {
				return
			}
			data.Messages = msgs.Data
		}
	}

	v.Data = data
	h.render(w, r, http.StatusOK, "conversations.html", v)
}

type analyticsData struct {
	Overview  models.AnalyticsOverview
	ByDay     []models.DayData
	ByStatus  []models.StatusCount
	Weekly    []models.WeeklyStat
	Hourly    []models.HourlyStat
	MaxWeekly int
	MaxHourly int
}

// Analytics handles GET /dashboard/analytics.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	src := h.source()
	v := h.newView(r, "Análises - Mi Chame", "analytics")

	var data analyticsData
	var err error
	if data.Overview, err = src.Overview(ctx); h.expired(w, r, err) {
		return
	} else if err != nil {
		v.Error = err.Error()
	}
	if data.ByDay, err = src.RidesByDay(ctx, 7); h.expired(w, r, err) {
		return
	}
	if data.ByStatus, err = src.RidesByStatus(ctx); h.expired(w, r, err) {
		return
	}
	data.Weekly, _ = src.WeeklyStats(ctx)
	data.Hourly, _ = src.HourlyStats(ctx)
	for _, d := range data.Weekly {
		data.MaxWeekly = max(data.MaxWeekly, d.Rides)
	}
	for _, hs := range data.Hourly {
		data.MaxHourly = max(data.MaxHourly, hs.Rides)
	}

	v.Degraded = src.Degraded()
	v.Data = data
	h.render(w, r, http.StatusOK, "analytics.html", v)
}

type driversData struct {
	Search  string
	Status  string
	Drivers []models.Driver
	Summary datasource.DriverSummary
}

// Drivers handles GET /dashboard/drivers?search=&status=. Fixture data only.
func (h *Handler) Drivers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	drivers, err := h.source().Drivers(r.Context())
	if err != nil {
		InternalServerError(w, r, err)
		return
	}

	data := driversData{Search: q.Get("search"), Status: q.Get("status"), Summary: datasource.SummarizeDrivers(drivers)}
	needle := strings.ToLower(data.Search)
	for _, d := range drivers {
		if needle != "" && !strings.Contains(strings.ToLower(d.Name), needle) && !strings.Contains(d.VehiclePlate, data.Search) {
			continue
		}
		if data.Status != "" && data.Status != datasource.StatusAll && d.Status != data.Status {
			continue
		}
		data.Drivers = append(data.Drivers, d)
	}

	v := h.newView(r, "Motoristas - Mi Chame", "drivers")
	v.Data = data
	h.render(w, r, http.StatusOK, "drivers.html", v)
}

// CancelRide handles POST /dashboard/rides/{id}/cancel (form: reason). OPERATOR and above.
func (h *Handler) CancelRide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	env := h.API.CancelRide(r.Context(), id, strings.TrimSpace(r.PostFormValue("reason")))
	if envelopeExpired(h, w, r, env) {
		return
	}
	if !env.Success {
		logWarn(r, "cancel ride failed", "ride_id", id, "error", env.ErrorText("unknown"))
		SeeOther(w, r, rideURL(id, "Falha ao cancelar: "+env.ErrorText("erro desconhecido")))
		return
	}
	logInfo(r, "ride cancelled", "ride_id", id)
	SeeOther(w, r, rideURL(id, "Corrida cancelada"))
}

// RefreshRide handles POST /dashboard/rides/{id}/refresh -- re-syncs the ride with dispatch.
func (h *Handler) RefreshRide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	env := h.API.RefreshRide(r.Context(), id)
	if envelopeExpired(h, w, r, env) {
		return
	}
	if !env.Success {
		logWarn(r, "refresh ride failed", "ride_id", id, "error", env.ErrorText("unknown"))
		SeeOther(w, r, rideURL(id, "Falha ao atualizar: "+env.ErrorText("erro desconhecido")))
		return
	}
	SeeOther(w, r, rideURL(id, "Corrida atualizada"))
}

func rideURL(id, flash string) string {
	v := url.Values{}
	v.Set("ride", id)
	v.Set("flash", flash)
	return dashboardPath + "?" + v.Encode()
}
