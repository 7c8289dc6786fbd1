// auth.go -- Authentication endpoints.
package apiclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/michame/console/internal/models"
)

// Login authenticates with email and password. On success it persists both tokens
// and the user profile; it is the only endpoint wrapper that writes to the store.
// A success reply without a user or an access token is turned into a failure
// and nothing is stored.
func (c *Client) Login(ctx context.Context, email, password string) Envelope[models.LoginResult] {
	env := request[models.LoginResult](ctx, c, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, false)

	if env.Success && (env.Data.AccessToken == "" || env.Data.User.ID == "") {
		slog.Warn("api: login reply carried no session", "has_token", env.Data.AccessToken != "", "has_user", env.Data.User.ID != "")
		return Envelope[models.LoginResult]{Success: false, Error: env.Error, Message: env.Message, Status: env.Status, Outcome: OutcomeFailure}
	}
	if env.Success {
		if err := c.store.SetTokens(ctx, env.Data.AccessToken, env.Data.RefreshToken); err != nil {
			slog.Error("api: persisting tokens after login", "error", err)
		}
		if err := c.store.SetUser(ctx, env.Data.User); err != nil {
			slog.Error("api: persisting user after login", "error", err)
		}
	}
	return env
}

// Logout revokes the stored refresh token on the backend.
// Does not touch local state; the session clears it regardless of the outcome.
func (c *Client) Logout(ctx context.Context) Raw {
	return request[json.RawMessage](ctx, c, http.MethodPost, "/api/auth/logout", map[string]string{
		"refreshToken": c.store.RefreshToken(ctx),
	}, true)
}

// Me fetches the profile behind the current access token.
func (c *Client) Me(ctx context.Context) Envelope[models.UserProfile] {
	return request[models.UserProfile](ctx, c, http.MethodGet, "/api/auth/me", nil, true)
}

// ChangePassword changes the current user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) Raw {
	return request[json.RawMessage](ctx, c, http.MethodPost, "/api/auth/change-password", map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	}, true)
}

// Setup bootstraps the initial SUPER_ADMIN on an empty backend. Unauthenticated.
func (c *Client) Setup(ctx context.Context) Envelope[models.SetupResult] {
	return request[models.SetupResult](ctx, c, http.MethodPost, "/api/auth/setup", nil, false)
}
