package service

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/investorhub/internal/investor/domain"
	recorddomain "github.com/smallbiznis/investorhub/internal/recordstore/domain"
)

const monthLayout = "2006-01"

var hundred = decimal.NewFromInt(100)

type tenureRange struct {
	label     string
	maxMonths int
}

// A range holds tenures above the previous bound up to maxMonths; the open
// range (maxMonths 0) holds everything longer.
var tenureRanges = []tenureRange{
	{label: "3 Months", maxMonths: 3},
	{label: "6 Months", maxMonths: 6},
	{label: "12 Months", maxMonths: 12},
	{label: "24 Months", maxMonths: 24},
	{label: "24+ Months", maxMonths: 0},
}

func buildCharts(investments []domain.Investment, payouts []domain.Payout) domain.Charts {
	investmentHistory := monthlyTotals(len(investments), func(i int) (string, decimal.Decimal, bool) {
		item := investments[i]
		return item.Date.UTC().Format(monthLayout), item.Amount, true
	})
	payoutHistory := monthlyTotals(len(payouts), func(i int) (string, decimal.Decimal, bool) {
		item := payouts[i]
		return item.Date.UTC().Format(monthLayout), item.Amount, item.Status == string(recorddomain.PayoutStatusPaid)
	})

	return domain.Charts{
		InvestmentHistory:   investmentHistory,
		PayoutHistory:       payoutHistory,
		TenureDistribution:  tenureDistribution(investments),
		PortfolioGrowth:     cumulative(investmentHistory),
		PortfolioAllocation: allocation(investments),
	}
}

func monthlyTotals(n int, at func(i int) (string, decimal.Decimal, bool)) []domain.MonthlyPoint {
	totals := make(map[string]decimal.Decimal)
	for i := 0; i < n; i++ {
		month, amount, ok := at(i)
		if !ok {
			continue
		}
		totals[month] = totals[month].Add(amount)
	}

	points := make([]domain.MonthlyPoint, 0, len(totals))
	for month, amount := range totals {
		points = append(points, domain.MonthlyPoint{Month: month, Amount: amount})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Month < points[j].Month
	})
	return points
}

func cumulative(points []domain.MonthlyPoint) []domain.MonthlyPoint {
	out := make([]domain.MonthlyPoint, 0, len(points))
	running := decimal.Zero
	for _, point := range points {
		running = running.Add(point.Amount)
		out = append(out, domain.MonthlyPoint{Month: point.Month, Amount: running})
	}
	return out
}

// tenureDistribution always returns every range so the chart keeps a stable shape.
// Investments without a known tenure are left out.
func tenureDistribution(investments []domain.Investment) []domain.TenureBucket {
	buckets := make([]domain.TenureBucket, len(tenureRanges))
	for i, r := range tenureRanges {
		buckets[i] = domain.TenureBucket{Label: r.label, Amount: decimal.Zero}
	}

	for _, item := range investments {
		if item.TenureMonths <= 0 {
			continue
		}
		idx := len(tenureRanges) - 1
		for i, r := range tenureRanges {
			if r.maxMonths > 0 && item.TenureMonths <= r.maxMonths {
				idx = i
				break
			}
		}
		buckets[idx].Count++
		buckets[idx].Amount = buckets[idx].Amount.Add(item.Amount)
	}
	return buckets
}

// allocation splits active holdings by fund type, largest first.
func allocation(investments []domain.Investment) []domain.AllocationSlice {
	totals := make(map[string]decimal.Decimal)
	grand := decimal.Zero
	for _, item := range investments {
		if item.Status != string(recorddomain.InvestmentStatusActive) {
			continue
		}
		category := strings.TrimSpace(item.Type)
		if category == "" {
			category = "Other"
		}
		totals[category] = totals[category].Add(item.Amount)
		grand = grand.Add(item.Amount)
	}

	slices := make([]domain.AllocationSlice, 0, len(totals))
	for category, amount := range totals {
		percentage := decimal.Zero
		if !grand.IsZero() {
			percentage = amount.Div(grand).Mul(hundred).Round(2)
		}
		slices = append(slices, domain.AllocationSlice{
			Category:   category,
			Amount:     amount,
			Percentage: percentage,
		})
	}
	sort.Slice(slices, func(i, j int) bool {
		if !slices[i].Amount.Equal(slices[j].Amount) {
			return slices[i].Amount.GreaterThan(slices[j].Amount)
		}
		return slices[i].Category < slices[j].Category
	})
	return slices
}
