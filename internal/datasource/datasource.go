// Package datasource supplies the view layer with rides, events and analytics,
// either from the backend or from built-in fixtures when the backend is down.
//
// datasource.go -- DataSource interface, shared errors, client-side filtering.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/michame/console/internal/apiclient"
	"github.com/michame/console/internal/models"
)

// ErrNotFound is returned when a ride is absent, from the fixtures or the backend.
var ErrNotFound = errors.New("not found")

// StatusAll disables the status filter.
const StatusAll = "all"

// RidePage is one page of rides plus its pagination block.
type RidePage struct {
	Rides      []models.Ride        `json:"rides"`
	Pagination apiclient.Pagination `json:"pagination"`
}

// DataSource is everything the dashboard and CLI read.
// Drivers and the weekly/hourly charts have no backend endpoint and are always fixtures.
type DataSource interface {
	Rides(ctx context.Context, q apiclient.RideQuery) (RidePage, error)
	Ride(ctx context.Context, id string) (models.Ride, error)
	RideLogs(ctx context.Context, id string) ([]models.LogEntry, error)
	RecentEvents(ctx context.Context, limit int) ([]models.RecentEvent, error)
	Conversations(ctx context.Context, q apiclient.ConversationQuery) ([]models.Conversation, error)
	Overview(ctx context.Context) (models.AnalyticsOverview, error)
	RidesByDay(ctx context.Context, days int) ([]models.DayData, error)
	RidesByStatus(ctx context.Context) ([]models.StatusCount, error)
	Drivers(ctx context.Context) ([]models.Driver, error)
	WeeklyStats(ctx context.Context) ([]models.WeeklyStat, error)
	HourlyStats(ctx context.Context) ([]models.HourlyStat, error)
}

// BackendError is a failed envelope surfaced as a Go error.
type BackendError struct {
	Op      string
	Message string
	// Status is the backend's HTTP status, 0 when no response arrived.
	Status int
	// Refused is set when the backend answered and declined (4xx). Fallback only
	// replaces outages, never refusals.
	Refused bool
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap maps a backend 404 to ErrNotFound, matching what the fixtures return.
func (e *BackendError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// FilterRides keeps rides whose id contains search (case-insensitive) or whose
// phone number contains it verbatim, and whose status equals status.
// Empty search matches everything; empty status or StatusAll disables the status filter.
func FilterRides(rides []models.Ride, search, status string) []models.Ride {
	needle := strings.ToLower(search)
	out := make([]models.Ride, 0, len(rides))
	for _, r := range rides {
		matchesSearch := search == "" ||
			strings.Contains(strings.ToLower(r.ID), needle) ||
			strings.Contains(r.PhoneNumber, search)
		matchesStatus := status == "" || status == StatusAll || r.Status == status
		if matchesSearch && matchesStatus {
			out = append(out, r)
		}
	}
	return out
}

// DefaultPageSize is used when a query leaves Limit at zero.
const DefaultPageSize = 20

// Paginate slices items the way the backend does: 1-based pages, out-of-range pages empty.
func Paginate[T any](items []T, page, limit int) ([]T, apiclient.Pagination) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	total := len(items)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	out := make([]T, end-start)
	copy(out, items[start:end])
	return out, apiclient.Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + limit - 1) / limit,
	}
}

// DriverSummary is the header row of the drivers page.
type DriverSummary struct {
	Total     int     `json:"total"`
	Available int     `json:"available"`
	Busy      int     `json:"busy"`
	Offline   int     `json:"offline"`
	AvgRating float64 `json:"avgRating"`
}

// SummarizeDrivers counts drivers by status and averages their rating.
func SummarizeDrivers(drivers []models.Driver) DriverSummary {
	var s DriverSummary
	var rating float64
	for _, d := range drivers {
		s.Total++
		rating += d.Rating
		switch d.Status {
		case "available":
			s.Available++
		case "busy":
			s.Busy++
		case "offline":
			s.Offline++
		}
	}
	if s.Total > 0 {
		s.AvgRating = rating / float64(s.Total)
	}
	return s
}

// Reader is a DataSource that reports whether it fell back to fixtures.
type Reader interface {
	DataSource
	Degraded() bool
}

// NewReader builds a fresh Reader over api for one page render or command:
// a Fallback to fixtures when fallback is set, plain Live otherwise.
func NewReader(api API, fallback bool, onDegrade func(source string)) Reader {
	fixtures := NewStatic(time.Now())
	live := NewLive(api, fixtures)
	if !fallback {
		return live
	}
	return NewFallback(live, fixtures, onDegrade)
}
