package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CipherMetrics records transport-encryption cycle outcomes. Status values:
// "success", "query_error", "handler_error", "flush_error".
type CipherMetrics interface {
	// RecordCycle counts one intercepted request/response cycle.
	RecordCycle(ctx context.Context, route, status string)

	// RecordCycleDuration records the end-to-end cycle duration, release
	// step included.
	RecordCycleDuration(ctx context.Context, route string, duration time.Duration, status string)
}

// cipherMetrics implements CipherMetrics using OpenTelemetry instruments.
type cipherMetrics struct {
	cycleCounter  metric.Int64Counter
	durationHisto metric.Float64Histogram
}

// NewCipherMetrics creates a CipherMetrics backed by the provided meter
// provider. The namespace prefixes the metric names.
func NewCipherMetrics(meterProvider metric.MeterProvider, namespace string) (CipherMetrics, error) {
	meter := meterProvider.Meter(namespace)

	cycleCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_cipher_cycles_total", namespace),
		metric.WithDescription("Total number of intercepted request cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_cipher_cycle_duration_seconds", namespace),
		metric.WithDescription("Duration of intercepted request cycles in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle duration histogram: %w", err)
	}

	return &cipherMetrics{
		cycleCounter:  cycleCounter,
		durationHisto: durationHisto,
	}, nil
}

// RecordCycle increments the cycle counter with route and status labels.
func (m *cipherMetrics) RecordCycle(ctx context.Context, route, status string) {
	m.cycleCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("status", status),
		),
	)
}

// RecordCycleDuration records the cycle duration in seconds with route and
// status labels.
func (m *cipherMetrics) RecordCycleDuration(
	ctx context.Context,
	route string,
	duration time.Duration,
	status string,
) {
	m.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("status", status),
		),
	)
}
