// credentials.go -- Integration secrets stored on the backend.
package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/michame/console/internal/models"
)

func (c *Client) Credentials(ctx context.Context) Envelope[models.CredentialsData] {
	return request[models.CredentialsData](ctx, c, http.MethodGet, "/api/credentials", nil, true)
}

func (c *Client) MissingCredentials(ctx context.Context) Envelope[models.MissingCredentials] {
	return request[models.MissingCredentials](ctx, c, http.MethodGet, "/api/credentials/missing", nil, true)
}

// SaveCredentials stores key/value secrets for service.
func (c *Client) SaveCredentials(ctx context.Context, service string, values map[string]string) Envelope[models.SavedCredentials] {
	return request[models.SavedCredentials](ctx, c, http.MethodPost, "/api/credentials/"+url.PathEscape(service), values, true)
}

func (c *Client) TestCredentials(ctx context.Context, service string) Envelope[models.ServiceTestResult] {
	return request[models.ServiceTestResult](ctx, c, http.MethodPost, "/api/credentials/"+url.PathEscape(service)+"/test", nil, true)
}

func (c *Client) DeleteCredential(ctx context.Context, key string) Envelope[models.MessageResult] {
	return request[models.MessageResult](ctx, c, http.MethodDelete, "/api/credentials/"+url.PathEscape(key), nil, true)
}
