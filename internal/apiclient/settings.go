// settings.go -- Backend health and integration checks.
package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/michame/console/internal/models"
)

func (c *Client) Health(ctx context.Context) Envelope[models.HealthStatus] {
	return request[models.HealthStatus](ctx, c, http.MethodGet, "/api/settings/health", nil, true)
}

// Webhooks returns the webhook URLs the backend expects providers to call.
func (c *Client) Webhooks(ctx context.Context) Raw {
	return request[json.RawMessage](ctx, c, http.MethodGet, "/api/settings/webhooks", nil, true)
}

// EnvInfo returns the backend's non-secret environment summary.
func (c *Client) EnvInfo(ctx context.Context) Raw {
	return request[json.RawMessage](ctx, c, http.MethodGet, "/api/settings/env", nil, true)
}

// TestWhatsApp sends a test message to phone. An empty message lets the backend pick one.
func (c *Client) TestWhatsApp(ctx context.Context, phone, message string) Raw {
	body := struct {
		PhoneNumber string `json:"phoneNumber"`
		Message     string `json:"message,omitempty"`
	}{phone, message}
	return request[json.RawMessage](ctx, c, http.MethodPost, "/api/settings/test/whatsapp", body, true)
}

// TestMachine checks connectivity to the dispatch provider.
func (c *Client) TestMachine(ctx context.Context) Envelope[models.ServiceTestResult] {
	return request[models.ServiceTestResult](ctx, c, http.MethodPost, "/api/settings/test/machine", nil, true)
}
