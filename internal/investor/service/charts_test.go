package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/investorhub/internal/investor/domain"
)

func TestTenureDistributionBounds(t *testing.T) {
	investments := []domain.Investment{
		{Amount: decimal.NewFromInt(100), TenureMonths: 2},
		{Amount: decimal.NewFromInt(100), TenureMonths: 12},
		{Amount: decimal.NewFromInt(100), TenureMonths: 13},
		{Amount: decimal.NewFromInt(100), TenureMonths: 18},
		{Amount: decimal.NewFromInt(100), TenureMonths: 24},
		{Amount: decimal.NewFromInt(100), TenureMonths: 36},
		{Amount: decimal.NewFromInt(100), TenureMonths: 0},
	}

	buckets := tenureDistribution(investments)

	want := []struct {
		label string
		count int
	}{
		{"3 Months", 1},
		{"6 Months", 0},
		{"12 Months", 1},
		{"24 Months", 3},
		{"24+ Months", 1},
	}
	if len(buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %+v", len(want), buckets)
	}
	for i, w := range want {
		if buckets[i].Label != w.label || buckets[i].Count != w.count {
			t.Fatalf("bucket %d: expected %s=%d, got %+v", i, w.label, w.count, buckets[i])
		}
	}
	if !buckets[3].Amount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected 300 in the 24 month bucket, got %s", buckets[3].Amount)
	}
}
