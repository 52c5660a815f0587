// Package telemetry implements the MetricsRecorder port using OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

// Compile-time check that Metrics implements outbound.MetricsRecorder.
var _ outbound.MetricsRecorder = (*Metrics)(nil)

// Metrics implements the MetricsRecorder interface using OpenTelemetry.
type Metrics struct {
	stageLatency metric.Float64Histogram
	fillsTotal   metric.Int64Counter
	fillLatency  metric.Float64Histogram
}

// NewMetrics creates a new OpenTelemetry metrics recorder.
// meterName should typically be the package name or service name.
func NewMetrics(meterName string) (*Metrics, error) {
	meter := otel.Meter(meterName)

	stageLatency, err := meter.Float64Histogram(
		"fill_stage_duration_seconds",
		metric.WithDescription("Time spent in each stage of the fill pipeline"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fill_stage_duration_seconds histogram: %w", err)
	}

	fillsTotal, err := meter.Int64Counter(
		"fills_total",
		metric.WithDescription("Total number of fill attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fills_total counter: %w", err)
	}

	fillLatency, err := meter.Float64Histogram(
		"fill_duration_seconds",
		metric.WithDescription("End-to-end time of a fill attempt"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fill_duration_seconds histogram: %w", err)
	}

	return &Metrics{
		stageLatency: stageLatency,
		fillsTotal:   fillsTotal,
		fillLatency:  fillLatency,
	}, nil
}

// RecordStageLatency records the duration of one pipeline stage.
func (m *Metrics) RecordStageLatency(ctx context.Context, stage string, duration time.Duration) {
	m.stageLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordFill records a completed fill attempt and its outcome.
func (m *Metrics) RecordFill(ctx context.Context, outcome string, duration time.Duration) {
	m.fillsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.fillLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}
