package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/platinummonkey/coachgate"

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	decisionsTotal   metric.Int64Counter
	decisionDuration metric.Float64Histogram
	cacheLookups     metric.Int64Counter
}

// NewOTelMetrics creates the instruments on provider. Pass
// otel.GetMeterProvider() to export through the global provider.
func NewOTelMetrics(provider metric.MeterProvider) (*OTelMetrics, error) {
	meter := provider.Meter(meterName)

	m := &OTelMetrics{}
	var err error

	m.decisionsTotal, err = meter.Int64Counter(
		"coachgate.decisions",
		metric.WithDescription("Total number of access decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decisions counter: %w", err)
	}

	m.decisionDuration, err = meter.Float64Histogram(
		"coachgate.decision.duration",
		metric.WithDescription("Access decision latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision duration histogram: %w", err)
	}

	m.cacheLookups, err = meter.Int64Counter(
		"coachgate.membership_cache.lookups",
		metric.WithDescription("Membership cache lookups by tier and result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache lookups counter: %w", err)
	}

	return m, nil
}

// RecordDecision records one access decision
func (m *OTelMetrics) RecordDecision(resource, outcome, cause string, elapsed time.Duration) {
	ctx := context.Background()
	m.decisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("outcome", outcome),
		attribute.String("cause", cause),
	))
	m.decisionDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordMembershipCache records one membership cache lookup
func (m *OTelMetrics) RecordMembershipCache(tier, result string) {
	m.cacheLookups.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("tier", tier),
		attribute.String("result", result),
	))
}
