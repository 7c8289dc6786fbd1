// rides.go -- Ride requests.
package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/michame/console/internal/models"
)

// RideQuery filters GET /api/rides. Zero fields are omitted from the query.
type RideQuery struct {
	Status string
	Page   int
	Limit  int
}

func (q RideQuery) encode() string {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return withQuery(v)
}

func (c *Client) Rides(ctx context.Context, q RideQuery) Envelope[[]models.Ride] {
	return request[[]models.Ride](ctx, c, http.MethodGet, "/api/rides"+q.encode(), nil, true)
}

func (c *Client) Ride(ctx context.Context, id string) Envelope[models.Ride] {
	return request[models.Ride](ctx, c, http.MethodGet, ridePath(id), nil, true)
}

func (c *Client) RideLogs(ctx context.Context, id string) Envelope[[]models.LogEntry] {
	return request[[]models.LogEntry](ctx, c, http.MethodGet, ridePath(id)+"/logs", nil, true)
}

// RefreshRide asks the backend to re-poll the dispatch provider for this ride.
func (c *Client) RefreshRide(ctx context.Context, id string) Envelope[models.Ride] {
	return request[models.Ride](ctx, c, http.MethodPost, ridePath(id)+"/refresh", nil, true)
}

// CancelRide cancels a ride. An empty reason is omitted from the body.
func (c *Client) CancelRide(ctx context.Context, id, reason string) Envelope[models.Ride] {
	body := struct {
		Reason string `json:"reason,omitempty"`
	}{reason}
	return request[models.Ride](ctx, c, http.MethodPost, ridePath(id)+"/cancel", body, true)
}

func ridePath(id string) string {
	return "/api/rides/" + url.PathEscape(id)
}

// withQuery renders v as "?..." or "" when empty.
func withQuery(v url.Values) string {
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}
