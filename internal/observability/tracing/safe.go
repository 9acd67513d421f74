package tracing

import (
	"errors"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
)

var forbiddenAttributeKeys = map[attribute.Key]struct{}{
	"email":          {},
	"investor_email": {},
	"phone":          {},
	"name":           {},
}

// SafeAttributes drops attributes that would carry investor contact details.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	safe := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, forbidden := forbiddenAttributeKeys[attr.Key]; forbidden {
			continue
		}
		safe = append(safe, attr)
	}
	return safe
}

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// SafeError returns err with any email address masked, or nil.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(emailPattern.ReplaceAllString(err.Error(), "[redacted]"))
}
