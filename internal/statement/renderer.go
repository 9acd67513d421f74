package statement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/investorhub/internal/investor/domain"
	"go.uber.org/fx"
)

const ContentType = "application/pdf"

var ErrEmptyInvestor = errors.New("statement requires an investor email")

var Module = fx.Module("statement",
	fx.Provide(NewRenderer),
)

// Input is everything a statement shows; it is rendered as-is.
type Input struct {
	Issuer      string
	Profile     domain.InvestorProfile
	GeneratedAt time.Time
}

type Renderer interface {
	Render(ctx context.Context, in Input) ([]byte, error)
}

type PDFRenderer struct{}

func NewRenderer() Renderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(ctx context.Context, in Input) ([]byte, error) {
	if strings.TrimSpace(in.Profile.Email) == "" {
		return nil, ErrEmptyInvestor
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	p := in.Profile

	issuer := strings.TrimSpace(in.Issuer)
	if issuer == "" {
		issuer = "Investor Relations"
	}

	m.AddRow(12,
		text.NewCol(8, "Portfolio Statement", props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, issuer, props.Text{Size: 10, Align: align.Right, Top: 3}),
	)
	m.AddRow(8,
		text.NewCol(12, "Generated "+formatDate(in.GeneratedAt), props.Text{Size: 8, Align: align.Left}),
	)
	if p.IsPlaceholder {
		m.AddRow(8,
			text.NewCol(12, "Illustrative data: some figures below are samples, not account records.", props.Text{
				Size:  9,
				Style: fontstyle.BoldItalic,
			}),
		)
	}

	m.AddRow(24,
		col.New(6).Add(
			text.New(p.Name, props.Text{Style: fontstyle.Bold}),
			text.New(p.Email, props.Text{Top: 5}),
			text.New(p.Phone, props.Text{Top: 10}),
			text.New("Member since "+formatDate(p.MemberSince), props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Consent: "+string(p.Consent), props.Text{Align: align.Right}),
			text.New("Account: "+string(p.Status), props.Text{Top: 5, Align: align.Right}),
			text.New("Next payout: "+formatOptionalDate(p.NextPayoutDate), props.Text{Top: 10, Align: align.Right}),
		),
	)

	m.AddRow(8, text.NewCol(12, "Summary", props.Text{Size: 12, Style: fontstyle.Bold}))
	summaryRow(m, "Total invested", FormatCompact(p.TotalInvestment))
	summaryRow(m, "Total payouts", FormatCompact(p.TotalPayouts))
	summaryRow(m, "Current portfolio value", FormatCompact(p.CurrentPortfolioValue))
	summaryRow(m, "Return on investment", FormatPercent(p.ROI))

	sectionHeader(m, "Investments", "Date", "Fund", "Type", "Amount")
	for _, item := range p.Investments {
		fund := item.FundName
		if item.Placeholder {
			fund += " (sample)"
		}
		tableRow(m, formatDate(item.Date), fund, item.Type, FormatAmount(item.Amount))
	}

	sectionHeader(m, "Upcoming payouts", "Date", "Investment", "Status", "Amount")
	if len(p.UpcomingPayouts) == 0 {
		m.AddRow(6, text.NewCol(12, "No scheduled payouts.", props.Text{Size: 9}))
	}
	for _, item := range p.UpcomingPayouts {
		tableRow(m, formatDate(item.Date), item.Investment, item.Status, FormatAmount(item.Amount))
	}

	sectionHeader(m, "Agreements", "Date", "Agreement", "Status", "Amount")
	for _, item := range p.Agreements {
		name := fmt.Sprintf("%s (%s)", item.Type, item.ID)
		if item.Placeholder {
			name = item.Type + " (sample)"
		}
		tableRow(m, formatDate(item.Date), name, item.Status, FormatAmount(item.Amount))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate statement: %w", err)
	}
	return doc.GetBytes(), nil
}

func summaryRow(m core.Maroto, label, value string) {
	m.AddRow(6,
		text.NewCol(8, label, props.Text{Size: 9}),
		text.NewCol(4, value, props.Text{Size: 9, Align: align.Right}),
	)
}

func sectionHeader(m core.Maroto, title string, columns ...string) {
	m.AddRow(12, text.NewCol(12, title, props.Text{Size: 12, Style: fontstyle.Bold, Top: 5}))
	m.AddRow(7,
		text.NewCol(2, columns[0], props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, columns[1], props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, columns[2], props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, columns[3], props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(1, line.NewCol(12))
}

func tableRow(m core.Maroto, cells ...string) {
	m.AddRow(6,
		text.NewCol(2, cells[0], props.Text{Size: 9}),
		text.NewCol(4, cells[1], props.Text{Size: 9}),
		text.NewCol(3, cells[2], props.Text{Size: 9}),
		text.NewCol(3, cells[3], props.Text{Size: 9, Align: align.Right}),
	)
}
