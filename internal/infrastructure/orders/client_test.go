package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/salescrm/backend/internal/domain/sales"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.OrdersConfig{BaseURL: srv.URL + "/", Path: "/v1/pedidos", Timeout: 2 * time.Second}, "X-Country")
	require.NoError(t, err)
	return c
}

var query = sales.OrderQuery{
	Type:          sales.OrderTypeSale,
	CommittedDate: time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC),
	Limit:         sales.OrderPageLimit,
}

func TestClient_FetchOrders(t *testing.T) {
	t.Run("sends query and country header and decodes tolerant json", func(t *testing.T) {
		var got *http.Request
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			got = r
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"vendedor_id": 7, "cliente_id": "CLI-1", "items": [
					{"producto_id": 101, "cantidad": "2", "precio_unitario": "100.00", "descuento_pct": 10, "impuesto_pct": "19"},
					{"producto_id": "P2", "cantidad": 1.0, "precio_unitario": 5.5, "descuento_pct": null, "impuesto_pct": null}
				]},
				{"vendedor_id": "VEN-2", "cliente_id": null, "items": []}
			]`))
		})
		ctx := shared.WithCountry(context.Background(), "co")

		orders, err := c.FetchOrders(ctx, query)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "/v1/pedidos", got.URL.Path)
		assert.Equal(t, "VENTA", got.URL.Query().Get("tipo"))
		assert.Equal(t, "2025-10-21", got.URL.Query().Get("fecha_compromiso"))
		assert.Equal(t, "200", got.URL.Query().Get("limit"))
		assert.Equal(t, "0", got.URL.Query().Get("offset"))
		assert.Equal(t, "CO", got.Header.Get("X-Country"))

		require.Len(t, orders, 2)
		assert.Equal(t, "7", orders[0].SalespersonID)
		assert.Equal(t, "CLI-1", orders[0].ClientID)
		require.Len(t, orders[0].Items, 2)
		first := orders[0].Items[0]
		assert.Equal(t, "101", first.ProductID)
		assert.Equal(t, int64(2), first.Quantity)
		assert.True(t, decimal.NewFromInt(100).Equal(first.UnitPrice))
		assert.True(t, decimal.NewFromInt(10).Equal(first.DiscountPct))
		assert.True(t, decimal.NewFromInt(19).Equal(first.TaxPct))
		second := orders[0].Items[1]
		assert.Equal(t, int64(1), second.Quantity)
		assert.True(t, second.DiscountPct.IsZero())
		assert.Equal(t, "", orders[1].ClientID)
	})

	t.Run("empty body means no orders", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		orders, err := c.FetchOrders(context.Background(), query)

		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("error status fails", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gateway down", http.StatusBadGateway)
		})

		_, err := c.FetchOrders(context.Background(), query)

		assert.ErrorIs(t, err, ErrRequestFailed)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("non list body fails", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"detail":"oops"}`))
		})

		_, err := c.FetchOrders(context.Background(), query)

		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("fractional quantity fails", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"vendedor_id":"V","cliente_id":"C","items":[{"producto_id":"P","cantidad":1.5}]}]`))
		})

		_, err := c.FetchOrders(context.Background(), query)

		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("timeout fails", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		})
		c.httpClient.Timeout = 20 * time.Millisecond

		_, err := c.FetchOrders(context.Background(), query)

		assert.Error(t, err)
	})
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(config.OrdersConfig{BaseURL: "not a url"}, "X-Country")
	assert.Error(t, err)
}

func TestClient_ImplementsOrderSource(t *testing.T) {
	var _ sales.OrderSource = (*Client)(nil)
}

func TestClient_PropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var traceparent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`[]`))
	})

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "recalculate")
	defer span.End()

	_, err := c.FetchOrders(ctx, query)

	require.NoError(t, err)
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}
