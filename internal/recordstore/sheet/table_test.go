package sheet

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestReadAddressesColumnsByHeaderName(t *testing.T) {
	input := "Phone,  Member Since ,EMAIL,Name\n" +
		"9999900000,2024-01-15,asha@example.com,Asha Rao\n" +
		",,,\n" +
		"8888800000,15/02/2024,ravi@example.com,Ravi\n"

	table, err := Read("Investors", strings.NewReader(input))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	rows := table.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(rows))
	}
	if got := rows[0].Get("email"); got != "asha@example.com" {
		t.Fatalf("expected email by header, got %q", got)
	}
	if got := rows[0].Get("member_since"); got != "2024-01-15" {
		t.Fatalf("expected member since by normalized header, got %q", got)
	}
	if rows[1].Line != 4 {
		t.Fatalf("expected blank row to keep line numbering, got line %d", rows[1].Line)
	}
	if got := rows[0].Get("missing column"); got != "" {
		t.Fatalf("expected empty value for unknown column, got %q", got)
	}
}

func TestRequireReportsMissingColumns(t *testing.T) {
	table, err := Read("Payouts", strings.NewReader("Date,Amount\n2024-01-01,100\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	err = table.Require([]string{"date"}, []string{"email", "investor email"})
	if err == nil || !strings.Contains(err.Error(), "email") {
		t.Fatalf("expected missing email column error, got %v", err)
	}
}

func TestReadRejectsEmptySheet(t *testing.T) {
	if _, err := Read("Investors", strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty sheet")
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-02-15", "15/02/2024", "15 Feb 2024", "Feb 15, 2024"} {
		got, err := ParseDate(raw)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", raw, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", raw, got, want)
		}
	}

	got, err := ParseDate("Thu Feb 15 2024 05:30:00 GMT+0530 (India Standard Time)")
	if err != nil {
		t.Fatalf("parse spreadsheet date: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := ParseDate("someday"); err == nil {
		t.Fatalf("expected error for unparseable date")
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"₹5,00,000":  "500000",
		"1,234.50":   "1234.5",
		"":           "0",
		" 42 ":       "42",
		"Rs. 10,000": "10000",
	}
	for raw, want := range cases {
		got, err := ParseAmount(raw)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", raw, err)
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := ParseAmount("lots"); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}

	pct, err := ParsePercent("12.5%")
	if err != nil || !pct.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected 12.5, got %s (%v)", pct, err)
	}
}
