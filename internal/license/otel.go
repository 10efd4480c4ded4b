package license

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry instruments for license operations. A
// nil *Metrics is valid and records nothing, so the manager works without
// a meter in tests and tooling.
type Metrics struct {
	statusChecks       metric.Int64Counter
	activationAttempts metric.Int64Counter
	activationDuration metric.Float64Histogram
}

// NewMetrics registers the license instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	statusChecks, err := meter.Int64Counter("license.status.checks",
		metric.WithDescription("License status evaluations by effective state"))
	if err != nil {
		return nil, fmt.Errorf("create status counter: %w", err)
	}
	attempts, err := meter.Int64Counter("license.activation.attempts",
		metric.WithDescription("License activation attempts by result"))
	if err != nil {
		return nil, fmt.Errorf("create activation counter: %w", err)
	}
	duration, err := meter.Float64Histogram("license.activation.duration",
		metric.WithDescription("License activation duration in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create activation histogram: %w", err)
	}
	return &Metrics{
		statusChecks:       statusChecks,
		activationAttempts: attempts,
		activationDuration: duration,
	}, nil
}

func (m *Metrics) recordStatus(ctx context.Context, state State) {
	if m == nil {
		return
	}
	m.statusChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", string(state)),
	))
}

func (m *Metrics) recordActivation(ctx context.Context, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.activationAttempts.Add(ctx, 1, attrs)
	m.activationDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}
