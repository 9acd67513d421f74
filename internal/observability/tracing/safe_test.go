package tracing

import (
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsContactDetails(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/exec"),
		attribute.String("email", "a@b.com"),
		attribute.String("phone", "9999"),
	)
	if len(attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(attrs))
	}
	if attrs[0].Key != "http.route" {
		t.Fatalf("expected http.route to be retained, got %s", attrs[0].Key)
	}
}

func TestSafeErrorMasksEmail(t *testing.T) {
	err := SafeError(errors.New("lookup failed for jane.doe@example.com"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if strings.Contains(err.Error(), "example.com") {
		t.Fatalf("expected email to be masked, got %q", err.Error())
	}
	if SafeError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
