// conversations.go -- WhatsApp conversations.
package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/michame/console/internal/models"
)

// ConversationQuery filters GET /api/conversations. Active nil means both.
type ConversationQuery struct {
	Active *bool
	Page   int
	Limit  int
}

func (q ConversationQuery) encode() string {
	v := url.Values{}
	if q.Active != nil {
		v.Set("active", strconv.FormatBool(*q.Active))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return withQuery(v)
}

func (c *Client) Conversations(ctx context.Context, q ConversationQuery) Envelope[[]models.Conversation] {
	return request[[]models.Conversation](ctx, c, http.MethodGet, "/api/conversations"+q.encode(), nil, true)
}

func (c *Client) Conversation(ctx context.Context, id string) Envelope[models.Conversation] {
	return request[models.Conversation](ctx, c, http.MethodGet, "/api/conversations/"+url.PathEscape(id), nil, true)
}

func (c *Client) ConversationMessages(ctx context.Context, id string) Envelope[[]models.Message] {
	return request[[]models.Message](ctx, c, http.MethodGet, "/api/conversations/"+url.PathEscape(id)+"/messages", nil, true)
}

func (c *Client) ConversationStats(ctx context.Context) Envelope[models.ConversationStats] {
	return request[models.ConversationStats](ctx, c, http.MethodGet, "/api/conversations/stats/active", nil, true)
}
