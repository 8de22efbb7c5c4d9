package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recalculation and push outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeUpstream = "upstream_error"
	OutcomeError    = "error"
	// push only
	OutcomeIgnored = "ignored"
	OutcomeRetry   = "retry"
)

var (
	AttrCountry = attribute.Key("country")
	AttrOutcome = attribute.Key("outcome")
	AttrTrigger = attribute.Key("trigger")
	AttrEvent   = attribute.Key("event")
)

// BusinessMetrics holds the instruments of plan recalculation and push delivery
type BusinessMetrics struct {
	recalcTotal    metric.Int64Counter
	recalcDuration metric.Float64Histogram
	ordersCounted  metric.Int64Counter
	pushTotal      metric.Int64Counter
}

// NewBusinessMetrics creates the instruments on meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewBusinessMetrics: meter cannot be nil")
	}

	recalcTotal, err := meter.Int64Counter("plan_recalculations_total",
		metric.WithDescription("Plan progress recalculations by outcome"),
		metric.WithUnit("{recalculation}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter plan_recalculations_total: %w", err)
	}
	recalcDuration, err := meter.Float64Histogram("plan_recalculation_duration_seconds",
		metric.WithDescription("Duration of a recalculation including the orders call"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DurationBuckets...))
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram plan_recalculation_duration_seconds: %w", err)
	}
	ordersCounted, err := meter.Int64Counter("plan_orders_counted_total",
		metric.WithDescription("Orders that contributed to a progress snapshot"),
		metric.WithUnit("{order}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter plan_orders_counted_total: %w", err)
	}
	pushTotal, err := meter.Int64Counter("pubsub_messages_total",
		metric.WithDescription("Push deliveries by event and outcome"),
		metric.WithUnit("{message}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter pubsub_messages_total: %w", err)
	}

	return &BusinessMetrics{
		recalcTotal:    recalcTotal,
		recalcDuration: recalcDuration,
		ordersCounted:  ordersCounted,
		pushTotal:      pushTotal,
	}, nil
}

// RecordRecalculation records one recalculation
func (m *BusinessMetrics) RecordRecalculation(ctx context.Context, country, trigger, outcome string, elapsed time.Duration, orders int) {
	attrs := metric.WithAttributes(AttrCountry.String(country), AttrTrigger.String(trigger), AttrOutcome.String(outcome))
	m.recalcTotal.Add(ctx, 1, attrs)
	m.recalcDuration.Record(ctx, elapsed.Seconds(), attrs)
	if orders > 0 {
		m.ordersCounted.Add(ctx, int64(orders), metric.WithAttributes(AttrCountry.String(country)))
	}
}

// RecordPush records one push delivery
func (m *BusinessMetrics) RecordPush(ctx context.Context, event, outcome string) {
	m.pushTotal.Add(ctx, 1, metric.WithAttributes(AttrEvent.String(event), AttrOutcome.String(outcome)))
}
