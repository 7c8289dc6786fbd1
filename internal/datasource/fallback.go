// fallback.go -- Live until the backend is unavailable, fixtures afterwards.
package datasource

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/models"
)

// Fallback reads from primary until the backend is unavailable, then serves
// secondary for the rest of its life. Build one per page render or CLI command.
// Session expiry and refusals (4xx, e.g. an unknown ride) are passed through
// untouched; they are not outages.
type Fallback struct {
	primary   DataSource
	secondary DataSource
	onDegrade func(source string)
	degraded  atomic.Bool
}

// NewFallback returns a Fallback. onDegrade, if non-nil, is called once with the
// name of the read that failed (e.g. "rides").
func NewFallback(primary, secondary DataSource, onDegrade func(source string)) *Fallback {
	if onDegrade == nil {
		onDegrade = func(string) {}
	}
	return &Fallback{primary: primary, secondary: secondary, onDegrade: onDegrade}
}

// Degraded reports whether the fixtures are being served.
func (f *Fallback) Degraded() bool {
	return f.degraded.Load()
}

func attempt[T any](f *Fallback, source string, primary, secondary func() (T, error)) (T, error) {
	if !f.degraded.Load() {
		v, err := primary()
		var be *BackendError
		if err == nil || errors.Is(err, apiclient.ErrSessionExpired) || (errors.As(err, &be) && be.Refused) {
			return v, err
		}
		if f.degraded.CompareAndSwap(false, true) {
			slog.Warn("datasource: backend unavailable, serving fixtures", "source", source, "error", err)
			f.onDegrade(source)
		}
	}
	return secondary()
}

func (f *Fallback) Rides(ctx context.Context, q apiclient.RideQuery) (RidePage, error) {
	return attempt(f, "rides",
		func() (RidePage, error) { return f.primary.Rides(ctx, q) },
		func() (RidePage, error) { return f.secondary.Rides(ctx, q) })
}

func (f *Fallback) Ride(ctx context.Context, id string) (models.Ride, error) {
	return attempt(f, "ride",
		func() (models.Ride, error) { return f.primary.Ride(ctx, id) },
		func() (models.Ride, error) { return f.secondary.Ride(ctx, id) })
}

func (f *Fallback) RideLogs(ctx context.Context, id string) ([]models.LogEntry, error) {
	return attempt(f, "ride_logs",
		func() ([]models.LogEntry, error) { return f.primary.RideLogs(ctx, id) },
		func() ([]models.LogEntry, error) { return f.secondary.RideLogs(ctx, id) })
}

func (f *Fallback) RecentEvents(ctx context.Context, limit int) ([]models.RecentEvent, error) {
	return attempt(f, "recent_events",
		func() ([]models.RecentEvent, error) { return f.primary.RecentEvents(ctx, limit) },
		func() ([]models.RecentEvent, error) { return f.secondary.RecentEvents(ctx, limit) })
}

func (f *Fallback) Conversations(ctx context.Context, q apiclient.ConversationQuery) ([]models.Conversation, error) {
	return attempt(f, "conversations",
		func() ([]models.Conversation, error) { return f.primary.Conversations(ctx, q) },
		func() ([]models.Conversation, error) { return f.secondary.Conversations(ctx, q) })
}

func (f *Fallback) Overview(ctx context.Context) (models.AnalyticsOverview, error) {
	return attempt(f, "overview",
		func() (models.AnalyticsOverview, error) { return f.primary.Overview(ctx) },
		func() (models.AnalyticsOverview, error) { return f.secondary.Overview(ctx) })
}

func (f *Fallback) RidesByDay(ctx context.Context, days int) ([]models.DayData, error) {
	return attempt(f, "rides_by_day",
		func() ([]models.DayData, error) { return f.primary.RidesByDay(ctx, days) },
		func() ([]models.DayData, error) { return f.secondary.RidesByDay(ctx, days) })
}

func (f *Fallback) RidesByStatus(ctx context.Context) ([]models.StatusCount, error) {
	return attempt(f, "rides_by_status",
		func() ([]models.StatusCount, error) { return f.primary.RidesByStatus(ctx) },
		func() ([]models.StatusCount, error) { return f.secondary.RidesByStatus(ctx) })
}

// Fixture-only reads always come from secondary.

func (f *Fallback) Drivers(ctx context.Context) ([]models.Driver, error) {
	return f.secondary.Drivers(ctx)
}

func (f *Fallback) WeeklyStats(ctx context.Context) ([]models.WeeklyStat, error) {
	return f.secondary.WeeklyStats(ctx)
}

func (f *Fallback) HourlyStats(ctx context.Context) ([]models.HourlyStat, error) {
	return f.secondary.HourlyStats(ctx)
}
