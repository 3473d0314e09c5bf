package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"lokal/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("lokal-test")
	t.Cleanup(func() {
		observability.Tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestTracingMiddleware(t *testing.T) {
	t.Run("sets trace header and locals", func(t *testing.T) {
		exporter := newTestTracer(t)

		app := fiber.New()
		app.Use(requestid.New())
		app.Use(TracingMiddleware())
		app.Get("/api/pins", func(c *fiber.Ctx) error {
			assert.NotEmpty(t, c.Locals("traceID"))
			assert.NotEmpty(t, c.Locals("spanID"))
			return c.SendString("ok")
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/api/pins", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		traceID := resp.Header.Get("X-Trace-ID")
		require.Len(t, traceID, 32)
		assert.NotEqual(t, "00000000000000000000000000000000", traceID)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "GET /api/pins", spans[0].Name)
	})

	t.Run("records status code on the span", func(t *testing.T) {
		exporter := newTestTracer(t)

		app := fiber.New()
		app.Use(TracingMiddleware())
		app.Get("/missing", func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusNotFound)
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		var status int64
		for _, attr := range spans[0].Attributes {
			if string(attr.Key) == "http.status_code" {
				status = attr.Value.AsInt64()
			}
		}
		assert.Equal(t, int64(fiber.StatusNotFound), status)
	})
}
