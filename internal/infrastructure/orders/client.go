// Package orders reads sale orders from the orders service behind the API
// gateway.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/salescrm/backend/internal/domain/sales"
	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/infrastructure/config"
	"github.com/salescrm/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseSize = 10 * 1024 * 1024

var (
	// ErrRequestFailed is returned for responses with status >= 400
	ErrRequestFailed = errors.New("orders: request failed")
	// ErrInvalidResponse is returned when the body is not a list of orders
	ErrInvalidResponse = errors.New("orders: invalid response")
)

// Client implements sales.OrderSource over HTTP
type Client struct {
	endpoint      string
	countryHeader string
	httpClient    *http.Client
}

// NewClient builds a client for cfg. countryHeader carries the request
// country to the gateway. Requests carry the trace context of ctx.
func NewClient(cfg config.OrdersConfig, countryHeader string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("orders: invalid base url %q", cfg.BaseURL)
	}
	return &Client{
		endpoint:      base.String() + cfg.Path,
		countryHeader: countryHeader,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// FetchOrders returns one page of orders matching query
func (c *Client) FetchOrders(ctx context.Context, query sales.OrderQuery) ([]sales.OrderRecord, error) {
	params := url.Values{}
	params.Set("tipo", query.Type)
	params.Set("fecha_compromiso", query.CommittedDate.Format("2006-01-02"))
	params.Set("limit", strconv.Itoa(query.Limit))
	params.Set("offset", strconv.Itoa(query.Offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("orders: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if country := shared.CountryFromContext(ctx); country != "" {
		req.Header.Set(c.countryHeader, strings.ToUpper(country))
	}
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("orders: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d calling GET %s: %s", ErrRequestFailed, resp.StatusCode, req.URL.Path, truncate(body, 512))
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var page []order
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	out := make([]sales.OrderRecord, len(page))
	for i, o := range page {
		out[i] = o.toDomain()
	}
	logger.FromContext(ctx).Debug("Fetched orders",
		zap.String("fecha_compromiso", params.Get("fecha_compromiso")),
		zap.Int("count", len(out)),
	)
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
