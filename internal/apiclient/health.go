package apiclient

import (
	"context"
	"net/http"
)

// Ping проверяет, что бэкенд отвечает на GET /health.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "apiclient.Ping", call{
		endpoint: "health",
		method:   http.MethodGet,
		path:     "/health",
	})
}
