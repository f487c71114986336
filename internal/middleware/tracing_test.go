package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"threadpulse/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		observability.Tracer = previous
		_ = tp.Shutdown(context.Background())
	})

	app := fiber.New()
	app.Use(TracingMiddleware())
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/api/ws/events", ok)
	app.Get("/webhooks/threads/deauthorize", ok)
	app.Get("/api/posts/:id", ok)
	app.Get("/api/analytics", ok)

	tests := []struct {
		name       string
		target     string
		wantName   string
		wantTarget string
		secret     string
	}{
		{
			name:       "event stream token",
			target:     "/api/ws/events?token=eyJSECRETJWT",
			wantName:   "GET /api/ws/events",
			wantTarget: "/api/ws/events?token=REDACTED",
			secret:     "eyJSECRETJWT",
		},
		{
			name:       "webhook verify token",
			target:     "/webhooks/threads/deauthorize?hub.mode=subscribe&hub.verify_token=hunter2&hub.challenge=42",
			wantName:   "GET /webhooks/threads/deauthorize",
			wantTarget: "/webhooks/threads/deauthorize?hub.challenge=42&hub.mode=subscribe&hub.verify_token=REDACTED",
			secret:     "hunter2",
		},
		{
			name:       "route pattern instead of raw path",
			target:     "/api/posts/abc-123",
			wantName:   "GET /api/posts/:id",
			wantTarget: "/api/posts/abc-123",
		},
		{
			name:       "plain query kept",
			target:     "/api/analytics?days=7&dimension=day",
			wantName:   "GET /api/analytics",
			wantTarget: "/api/analytics?days=7&dimension=day",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil), -1)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

			ended := recorder.Ended()
			require.NotEmpty(t, ended)
			span := ended[len(ended)-1]
			assert.Equal(t, tt.wantName, span.Name())

			attrs := map[string]string{}
			for _, kv := range span.Attributes() {
				attrs[string(kv.Key)] = kv.Value.Emit()
				if tt.secret != "" {
					assert.NotContains(t, kv.Value.Emit(), tt.secret, "attribute %s", kv.Key)
				}
			}
			assert.Equal(t, tt.wantTarget, attrs["http.target"])
			assert.Equal(t, "200", attrs["http.status_code"])
			assert.NotContains(t, attrs, "http.url")
		})
	}
}

func TestIsCredentialParam(t *testing.T) {
	for key, want := range map[string]bool{
		"token":            true,
		"access_token":     true,
		"hub.verify_token": true,
		"client_secret":    true,
		"code":             true,
		"cursor":           false,
		"limit":            false,
		"hub.challenge":    false,
	} {
		assert.Equal(t, want, isCredentialParam(key), key)
	}
}
