// live.go -- DataSource backed by the API client.
package datasource

import (
	"context"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/models"
)

// API is the slice of *apiclient.Client that Live reads from.
type API interface {
	Rides(ctx context.Context, q apiclient.RideQuery) apiclient.Envelope[[]models.Ride]
	Ride(ctx context.Context, id string) apiclient.Envelope[models.Ride]
	RideLogs(ctx context.Context, id string) apiclient.Envelope[[]models.LogEntry]
	RecentEvents(ctx context.Context, limit int) apiclient.Envelope[[]models.RecentEvent]
	Conversations(ctx context.Context, q apiclient.ConversationQuery) apiclient.Envelope[[]models.Conversation]
	Overview(ctx context.Context) apiclient.Envelope[models.AnalyticsOverview]
	RidesByDay(ctx context.Context, days int) apiclient.Envelope[[]models.DayData]
	RidesByStatus(ctx context.Context) apiclient.Envelope[[]models.StatusCount]
}

// Live reads from the backend. Fixture-only data comes from its embedded Static.
type Live struct {
	api      API
	fixtures *Static
}

// NewLive wraps api. fixtures serves drivers and the weekly/hourly charts.
func NewLive(api API, fixtures *Static) *Live {
	return &Live{api: api, fixtures: fixtures}
}

// unwrap turns a failed envelope into an error. Session expiry maps to
// apiclient.ErrSessionExpired so callers can tell it apart from an outage.
func unwrap[T any](op string, env apiclient.Envelope[T]) (T, error) {
	if env.Success {
		return env.Data, nil
	}
	var zero T
	if env.Error == apiclient.SessionExpiredMessage {
		return zero, apiclient.ErrSessionExpired
	}
	return zero, &BackendError{
		Op:      op,
		Message: env.ErrorText("request failed"),
		Status:  env.Status,
		Refused: !env.Unavailable(),
	}
}

func (l *Live) Rides(ctx context.Context, q apiclient.RideQuery) (RidePage, error) {
	env := l.api.Rides(ctx, q)
	rides, err := unwrap("rides", env)
	if err != nil {
		return RidePage{}, err
	}
	page := RidePage{Rides: rides}
	if env.Pagination != nil {
		page.Pagination = *env.Pagination
	} else {
		page.Pagination = apiclient.Pagination{Page: 1, Limit: len(rides), Total: len(rides), Pages: 1}
	}
	return page, nil
}

func (l *Live) Ride(ctx context.Context, id string) (models.Ride, error) {
	return unwrap("ride", l.api.Ride(ctx, id))
}

func (l *Live) RideLogs(ctx context.Context, id string) ([]models.LogEntry, error) {
	return unwrap("ride logs", l.api.RideLogs(ctx, id))
}

func (l *Live) RecentEvents(ctx context.Context, limit int) ([]models.RecentEvent, error) {
	return unwrap("recent events", l.api.RecentEvents(ctx, limit))
}

func (l *Live) Conversations(ctx context.Context, q apiclient.ConversationQuery) ([]models.Conversation, error) {
	return unwrap("conversations", l.api.Conversations(ctx, q))
}

func (l *Live) Overview(ctx context.Context) (models.AnalyticsOverview, error) {
	return unwrap("overview", l.api.Overview(ctx))
}

func (l *Live) RidesByDay(ctx context.Context, days int) ([]models.DayData, error) {
	return unwrap("rides by day", l.api.RidesByDay(ctx, days))
}

func (l *Live) RidesByStatus(ctx context.Context) ([]models.StatusCount, error) {
	return unwrap("rides by status", l.api.RidesByStatus(ctx))
}

func (l *Live) Drivers(ctx context.Context) ([]models.Driver, error) {
	return l.fixtures.Drivers(ctx)
}

func (l *Live) WeeklyStats(ctx context.Context) ([]models.WeeklyStat, error) {
	return l.fixtures.WeeklyStats(ctx)
}

func (l *Live) HourlyStats(ctx context.Context) ([]models.HourlyStat, error) {
	return l.fixtures.HourlyStats(ctx)
}

// Degraded is always false; Live never serves fixtures for backend data.
func (l *Live) Degraded() bool { return false }
