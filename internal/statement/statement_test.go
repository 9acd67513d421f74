package statement

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/investorhub/internal/investor/domain"
)

func TestFormatAmountUsesIndianGrouping(t *testing.T) {
	cases := map[string]string{
		"0":          "INR 0.00",
		"999":        "INR 999.00",
		"1000":       "INR 1,000.00",
		"100000":     "INR 1,00,000.00",
		"1234567.5":  "INR 12,34,567.50",
		"-25000000":  "INR -2,50,00,000.00",
		"9876543210": "INR 9,87,65,43,210.00",
	}
	for in, want := range cases {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatAmount(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	cases := map[string]string{
		"28000000": "INR 2.80 Cr",
		"450000":   "INR 4.50 L",
		"85000":    "INR 85,000.00",
	}
	for in, want := range cases {
		if got := FormatCompact(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatCompact(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderProducesPDF(t *testing.T) {
	next := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	profile := domain.InvestorProfile{
		Name:            "Meera Iyer",
		Email:           "meera@example.com",
		Phone:           "9777700000",
		Consent:         "GIVEN",
		Status:          "ACTIVE",
		TotalInvestment: decimal.NewFromInt(500000),
		ROI:             decimal.NewFromInt(14),
		NextPayoutDate:  &next,
		MemberSince:     time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		Investments: []domain.Investment{
			{Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), FundName: "Office Park", Type: "Commercial Real Estate", Amount: decimal.NewFromInt(500000), Status: "ACTIVE"},
		},
		UpcomingPayouts: []domain.Payout{
			{Date: next, Amount: decimal.NewFromInt(6000), Investment: "Office Park", Status: "SCHEDULED"},
		},
		Agreements: []domain.Agreement{
			{ID: "SAMPLE", Type: "Sample Investment Agreement", Amount: decimal.NewFromInt(500000), Status: "PENDING", Placeholder: true},
		},
		IsPlaceholder: true,
	}

	out, err := NewRenderer().Render(context.Background(), Input{
		Issuer:      "investorhub",
		Profile:     profile,
		GeneratedAt: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("expected PDF output, got %q", out[:min(len(out), 8)])
	}
}

func TestRenderRequiresInvestor(t *testing.T) {
	_, err := NewRenderer().Render(context.Background(), Input{})
	if !errors.Is(err, ErrEmptyInvestor) {
		t.Fatalf("expected ErrEmptyInvestor, got %v", err)
	}
}
