// static.go -- DataSource over the built-in fixtures.
package datasource

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/models"
)

// Static serves fixtures. It never fails except for unknown ride ids.
type Static struct {
	rides   []models.Ride
	events  []models.RecentEvent
	logs    map[string][]models.LogEntry
	drivers []models.Driver
}

// NewStatic builds fixtures with timestamps relative to now.
func NewStatic(now time.Time) *Static {
	return &Static{
		rides:   fixtureRides(now),
		events:  fixtureEvents(now),
		logs:    fixtureLogs(now),
		drivers: fixtureDrivers(now),
	}
}

func (s *Static) Rides(_ context.Context, q apiclient.RideQuery) (RidePage, error) {
	matched := FilterRides(s.rides, "", q.Status)
	rides, p := Paginate(matched, q.Page, q.Limit)
	return RidePage{Rides: rides, Pagination: p}, nil
}

func (s *Static) Ride(_ context.Context, id string) (models.Ride, error) {
	for _, r := range s.rides {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Ride{}, fmt.Errorf("ride %s: %w", id, ErrNotFound)
}

// RideLogs returns an empty slice for rides without logs.
func (s *Static) RideLogs(_ context.Context, id string) ([]models.LogEntry, error) {
	return slices.Clone(s.logs[id]), nil
}

// RecentEvents returns the newest limit events; limit <= 0 returns all.
func (s *Static) RecentEvents(_ context.Context, limit int) ([]models.RecentEvent, error) {
	out := slices.Clone(s.events)
	slices.SortStableFunc(out, func(a, b models.RecentEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Conversations has no fixtures; the panel shows its empty state.
func (s *Static) Conversations(context.Context, apiclient.ConversationQuery) ([]models.Conversation, error) {
	return []models.Conversation{}, nil
}

// Overview derives the headline numbers from the weekly chart and the fixture rides.
func (s *Static) Overview(context.Context) (models.AnalyticsOverview, error) {
	var ov models.AnalyticsOverview
	for _, d := range weeklyStats {
		ov.Rides.Week += d.Rides
		ov.Revenue.Week += d.Revenue
	}
	last := weeklyStats[len(weeklyStats)-1]
	ov.Rides.Today = last.Rides
	ov.Revenue.Today = last.Revenue
	ov.Rides.Total = ov.Rides.Week
	ov.Rides.Month = ov.Rides.Week
	ov.Revenue.Month = ov.Revenue.Week

	for _, sc := range statusBreakdown {
		switch sc.Status {
		case models.RideCompleted:
			ov.Rides.Completed = sc.Count
		case models.RideCancelled:
			ov.Rides.Cancelled = sc.Count
		}
	}
	ov.Rides.CompletionRate = percent(ov.Rides.Completed, ov.Rides.Total)
	ov.Rides.CancellationRate = percent(ov.Rides.Cancelled, ov.Rides.Total)

	phones := map[string]struct{}{}
	for _, r := range s.rides {
		phones[r.PhoneNumber] = struct{}{}
		if r.Status == models.RideRequested || r.Status == models.RideAccepted {
			ov.Rides.Active++
		}
	}
	ov.Customers.Total = len(phones)
	return ov, nil
}

// RidesByDay returns the last days entries of the weekly chart (at most seven).
func (s *Static) RidesByDay(_ context.Context, days int) ([]models.DayData, error) {
	if days <= 0 || days > len(weeklyStats) {
		days = len(weeklyStats)
	}
	out := make([]models.DayData, 0, days)
	for _, d := range weeklyStats[len(weeklyStats)-days:] {
		out = append(out, models.DayData{
			Date:      d.Date,
			Rides:     d.Rides,
			Completed: int(math.Round(float64(d.Rides*d.SuccessRate) / 100)),
			Revenue:   d.Revenue,
		})
	}
	return out, nil
}

func (s *Static) RidesByStatus(context.Context) ([]models.StatusCount, error) {
	return slices.Clone(statusBreakdown), nil
}

func (s *Static) Drivers(context.Context) ([]models.Driver, error) {
	return slices.Clone(s.drivers), nil
}

func (s *Static) WeeklyStats(context.Context) ([]models.WeeklyStat, error) {
	return slices.Clone(weeklyStats), nil
}

func (s *Static) HourlyStats(context.Context) ([]models.HourlyStat, error) {
	return slices.Clone(hourlyStats), nil
}

// percent formats part/total with one decimal, the way the backend sends rates.
func percent(part, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(part)*100/float64(total))
}
