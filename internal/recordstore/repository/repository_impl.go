package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/investorhub/internal/recordstore/domain"
	"github.com/smallbiznis/investorhub/pkg/db"
	"github.com/smallbiznis/investorhub/pkg/db/option"
	"github.com/smallbiznis/investorhub/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
}

type store struct {
	db   *gorm.DB
	node *snowflake.Node

	investors   repository.Repository[domain.InvestorRecord]
	investments repository.Repository[domain.InvestmentRecord]
	payouts     repository.Repository[domain.PayoutRecord]
	agreements  repository.Repository[domain.AgreementRecord]
	consents    repository.Repository[domain.ConsentEvent]
}

func Provide(p Params) domain.Store {
	return New(p.DB, p.Node)
}

func New(conn *gorm.DB, node *snowflake.Node) domain.Store {
	return &store{
		db:          conn,
		node:        node,
		investors:   repository.ProvideStore[domain.InvestorRecord](conn),
		investments: repository.ProvideStore[domain.InvestmentRecord](conn),
		payouts:     repository.ProvideStore[domain.PayoutRecord](conn),
		agreements:  repository.ProvideStore[domain.AgreementRecord](conn),
		consents:    repository.ProvideStore[domain.ConsentEvent](conn),
	}
}

var insertionOrder = option.OrderBy("id", option.ASC)

func (s *store) FindInvestorByEmail(ctx context.Context, email string) (*domain.InvestorRecord, error) {
	record, err := s.investors.FindOne(ctx, &domain.InvestorRecord{Email: email})
	if err != nil {
		return nil, domain.NewStoreError("find_investor", err)
	}
	return record, nil
}

func (s *store) AppendInvestor(ctx context.Context, record *domain.InvestorRecord) error {
	if record.ID == 0 {
		record.ID = s.node.Generate()
	}
	if err := s.investors.Create(ctx, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateInvestor
		}
		return domain.NewStoreError("append_investor", err)
	}
	return nil
}

func (s *store) UpdateConsentStatus(ctx context.Context, email string, status domain.ConsentStatus) error {
	rows, err := s.investors.UpdateColumns(ctx, &domain.InvestorRecord{Email: email}, map[string]any{
		"consent_status": status,
	})
	if err != nil {
		return domain.NewStoreError("update_consent_status", err)
	}
	if rows == 0 {
		return domain.NewStoreError("update_consent_status", gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *store) SummarizeInvestors(ctx context.Context) (domain.InvestorSummary, error) {
	var summary domain.InvestorSummary
	err := s.db.WithContext(ctx).
		Model(&domain.InvestorRecord{}).
		Select("COUNT(*), COALESCE(SUM(total_investment), 0), COALESCE(SUM(total_payouts), 0)").
		Row().
		Scan(&summary.Count, &summary.TotalInvestment, &summary.TotalPayouts)
	if err != nil {
		return domain.InvestorSummary{}, domain.NewStoreError("summarize_investors", err)
	}

	var avg decimal.NullDecimal
	err = s.db.WithContext(ctx).
		Model(&domain.InvestorRecord{}).
		Select("AVG(roi)").
		Where("roi <> 0").
		Row().
		Scan(&avg)
	if err != nil {
		return domain.InvestorSummary{}, domain.NewStoreError("summarize_investors", err)
	}

	summary.TotalInvestment = summary.TotalInvestment.Round(2)
	summary.TotalPayouts = summary.TotalPayouts.Round(2)
	if avg.Valid {
		value := avg.Decimal.Round(4)
		summary.AverageROI = &value
	}
	return summary, nil
}

func (s *store) ListInvestmentsByEmail(ctx context.Context, email string) ([]domain.InvestmentRecord, error) {
	rows, err := s.investments.Find(ctx, &domain.InvestmentRecord{InvestorEmail: email}, insertionOrder)
	if err != nil {
		return nil, domain.NewStoreError("list_investments", err)
	}
	return derefAll(rows), nil
}

func (s *store) ListPayoutsByEmail(ctx context.Context, email string) ([]domain.PayoutRecord, error) {
	rows, err := s.payouts.Find(ctx, &domain.PayoutRecord{InvestorEmail: email}, insertionOrder)
	if err != nil {
		return nil, domain.NewStoreError("list_payouts", err)
	}
	return derefAll(rows), nil
}

func (s *store) ListAgreementsByEmail(ctx context.Context, email string) ([]domain.AgreementRecord, error) {
	rows, err := s.agreements.Find(ctx, &domain.AgreementRecord{InvestorEmail: email}, insertionOrder)
	if err != nil {
		return nil, domain.NewStoreError("list_agreements", err)
	}
	return derefAll(rows), nil
}

func (s *store) AppendInvestment(ctx context.Context, record *domain.InvestmentRecord) error {
	if record.ID == 0 {
		record.ID = s.node.Generate()
	}
	return domain.NewStoreError("append_investment", s.investments.Create(ctx, record))
}

func (s *store) AppendPayout(ctx context.Context, record *domain.PayoutRecord) error {
	if record.ID == 0 {
		record.ID = s.node.Generate()
	}
	return domain.NewStoreError("append_payout", s.payouts.Create(ctx, record))
}

func (s *store) AppendAgreement(ctx context.Context, record *domain.AgreementRecord) error {
	if record.ID == 0 {
		record.ID = s.node.Generate()
	}
	if err := s.agreements.Create(ctx, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateAgreement
		}
		return domain.NewStoreError("append_agreement", err)
	}
	return nil
}

// AppendConsentEvent never deduplicates; every call adds one row.
func (s *store) AppendConsentEvent(ctx context.Context, event *domain.ConsentEvent) error {
	if event.ID == 0 {
		event.ID = s.node.Generate()
	}
	if event.Outcome == "" {
		event.Outcome = domain.ConsentOutcomeAccepted
	}
	return domain.NewStoreError("append_consent_event", s.consents.Create(ctx, event))
}

func (s *store) ListConsentEvents(ctx context.Context, filter domain.ConsentEventFilter) ([]*domain.ConsentEvent, error) {
	opts := []option.QueryOption{
		option.OrderBy("recorded_at", option.DESC),
		option.OrderBy("id", option.DESC),
	}
	if filter.Cursor != nil {
		opts = append(opts, option.Where(
			"(recorded_at < ? OR (recorded_at = ? AND id < ?))",
			filter.Cursor.Timestamp, filter.Cursor.Timestamp, filter.Cursor.ID,
		))
	}
	if filter.Limit > 0 {
		opts = append(opts, option.ApplyPagination(filter.Limit, 0))
	}

	events, err := s.consents.Find(ctx, &domain.ConsentEvent{Email: filter.Email}, opts...)
	if err != nil {
		return nil, domain.NewStoreError("list_consent_events", err)
	}
	return events, nil
}

func (s *store) CountConsentEvents(ctx context.Context, email string) (int64, error) {
	count, err := s.consents.Count(ctx, &domain.ConsentEvent{Email: email})
	if err != nil {
		return 0, domain.NewStoreError("count_consent_events", err)
	}
	return count, nil
}

func derefAll[T any](rows []*T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}
	return out
}

var _ domain.Store = (*store)(nil)
