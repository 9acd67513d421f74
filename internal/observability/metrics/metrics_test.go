package metrics

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("consent_type", "INITIAL"),
		attribute.String("email", "a@b.com"),
		attribute.String("outcome", "ACCEPTED"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "email" {
			t.Fatalf("expected email to be dropped")
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordConsentEvent(ctx, "INITIAL", "ACCEPTED")
	m.RecordInvestorCreated(ctx)
	m.RecordProfileLookup(ctx, "found", false)
	m.RecordLockWait(ctx, time.Millisecond, "local")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "investorhub"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordConsentEvent(context.Background(), "GENERAL", "ACCEPTED")
}
