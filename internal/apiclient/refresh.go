// refresh.go -- Exchanges the stored refresh token for a new access token.
package apiclient

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/michame/console/internal/models"
)

// RefreshPath is the token refresh endpoint.
const RefreshPath = "/api/auth/refresh"

// Refresh posts the stored refresh token to RefreshPath and stores the new access token.
//
// Returns false without a network call when no refresh token is stored. Never clears
// tokens itself; teardown belongs to Do. The refresh token is not rotated.
func (c *Client) Refresh(ctx context.Context) bool {
	rt := c.store.RefreshToken(ctx)
	if rt == "" {
		slog.Debug("api: no refresh token stored, skipping refresh")
		c.observer.RefreshDone(false)
		return false
	}

	// includeAuth=false so a 401 here cannot recurse into another refresh.
	env := request[models.RefreshResult](ctx, c, http.MethodPost, RefreshPath, map[string]string{"refreshToken": rt}, false)
	if !env.Success || env.Data.AccessToken == "" {
		slog.Warn("api: token refresh rejected", "error", env.Error)
		c.observer.RefreshDone(false)
		return false
	}

	if err := c.store.SetAccessToken(ctx, env.Data.AccessToken); err != nil {
		slog.Error("api: storing refreshed access token", "error", err)
		c.observer.RefreshDone(false)
		return false
	}

	slog.Info("api: access token refreshed")
	c.observer.RefreshDone(true)
	return true
}
