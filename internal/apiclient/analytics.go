// analytics.go -- Dashboard analytics.
package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/michame/console/internal/models"
)

func (c *Client) Overview(ctx context.Context) Envelope[models.AnalyticsOverview] {
	return request[models.AnalyticsOverview](ctx, c, http.MethodGet, "/api/analytics/overview", nil, true)
}

// RidesByDay returns daily totals for the last days days; 0 lets the backend choose.
func (c *Client) RidesByDay(ctx context.Context, days int) Envelope[[]models.DayData] {
	v := url.Values{}
	if days > 0 {
		v.Set("days", strconv.Itoa(days))
	}
	return request[[]models.DayData](ctx, c, http.MethodGet, "/api/analytics/rides-by-day"+withQuery(v), nil, true)
}

func (c *Client) RidesByStatus(ctx context.Context) Envelope[[]models.StatusCount] {
	return request[[]models.StatusCount](ctx, c, http.MethodGet, "/api/analytics/rides-by-status", nil, true)
}

func (c *Client) RidesByCategory(ctx context.Context) Envelope[[]models.CategoryCount] {
	return request[[]models.CategoryCount](ctx, c, http.MethodGet, "/api/analytics/rides-by-category", nil, true)
}

// RecentEvents returns the latest ride events; 0 lets the backend choose the limit.
func (c *Client) RecentEvents(ctx context.Context, limit int) Envelope[[]models.RecentEvent] {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return request[[]models.RecentEvent](ctx, c, http.MethodGet, "/api/analytics/recent-events"+withQuery(v), nil, true)
}
