package statement

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const currencyCode = "INR"

var (
	lakh  = decimal.NewFromInt(100000)
	crore = decimal.NewFromInt(10000000)
)

// FormatAmount renders an amount with Indian digit grouping, e.g. INR 12,34,567.50.
func FormatAmount(amount decimal.Decimal) string {
	return currencyCode + " " + groupIndian(amount.StringFixed(2))
}

// FormatCompact renders large amounts in crore or lakh units, e.g. INR 2.80 Cr.
func FormatCompact(amount decimal.Decimal) string {
	abs := amount.Abs()
	switch {
	case abs.GreaterThanOrEqual(crore):
		return currencyCode + " " + amount.Div(crore).StringFixed(2) + " Cr"
	case abs.GreaterThanOrEqual(lakh):
		return currencyCode + " " + amount.Div(lakh).StringFixed(2) + " L"
	default:
		return FormatAmount(amount)
	}
}

func FormatPercent(value decimal.Decimal) string {
	return value.StringFixed(2) + "%"
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format("02 Jan 2006")
}

func formatOptionalDate(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return formatDate(*value)
}

// groupIndian groups the integer part as 3 digits then pairs: 1,23,45,678.
func groupIndian(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac := fixed, ""
	if idx := strings.IndexByte(fixed, '.'); idx >= 0 {
		intPart, frac = fixed[:idx], fixed[idx:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}

	head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + strings.Join(groups, ",") + "," + tail + frac
}
