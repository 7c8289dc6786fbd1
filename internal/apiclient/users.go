// users.go -- User management (ADMIN and above).
package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/michame/console/internal/models"
)

// NewUser is the body of POST /api/auth/users.
type NewUser struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

func (c *Client) Users(ctx context.Context) Envelope[[]models.UserProfile] {
	return request[[]models.UserProfile](ctx, c, http.MethodGet, "/api/auth/users", nil, true)
}

func (c *Client) CreateUser(ctx context.Context, u NewUser) Envelope[models.UserProfile] {
	return request[models.UserProfile](ctx, c, http.MethodPost, "/api/auth/users", u, true)
}

// UpdateUser sends only the non-nil fields of upd.
func (c *Client) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) Envelope[models.UserProfile] {
	return request[models.UserProfile](ctx, c, http.MethodPut, "/api/auth/users/"+url.PathEscape(id), upd, true)
}

func (c *Client) ResetUserPassword(ctx context.Context, id, newPassword string) Raw {
	return request[json.RawMessage](ctx, c, http.MethodPost, "/api/auth/users/"+url.PathEscape(id)+"/reset-password",
		map[string]string{"newPassword": newPassword}, true)
}

func (c *Client) DeleteUser(ctx context.Context, id string) Raw {
	return request[json.RawMessage](ctx, c, http.MethodDelete, "/api/auth/users/"+url.PathEscape(id), nil, true)
}
