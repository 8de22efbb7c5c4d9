package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func findSpan(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func attrValue(span sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == attribute.Key(key) {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	r := gin.New()
	r.Use(TracingWithConfig(TracingConfig{Enabled: false, ServiceName: "test"})...)
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, "GET", "/test", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracingWithConfig_Attributes(t *testing.T) {
	sr := setupTestTracer(t)

	r := gin.New()
	r.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test"})...)
	r.Use(RequestID())
	r.Use(Country(CountryConfig{Default: "CO", Supported: []string{"CO", "MX"}}))
	r.GET("/v1/ventas/planes/:id", func(c *gin.Context) {
		c.Set(JWTUserIDKey, "user-9")
		c.Status(http.StatusOK)
	})

	w := serve(r, "GET", "/v1/ventas/planes/p1", map[string]string{"X-Country": "mx", RequestIDHeader: "req-7"})
	require.Equal(t, http.StatusOK, w.Code)

	span := findSpan(sr.Ended(), "GET /v1/ventas/planes/:id")
	require.NotNil(t, span, "HTTP span not found")

	v, ok := attrValue(span, "request_id")
	assert.True(t, ok)
	assert.Equal(t, "req-7", v)
	v, _ = attrValue(span, "country")
	assert.Equal(t, "MX", v)
	v, _ = attrValue(span, "user_id")
	assert.Equal(t, "user-9", v)
}
