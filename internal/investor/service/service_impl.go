package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/investorhub/internal/clock"
	"github.com/smallbiznis/investorhub/internal/config"
	"github.com/smallbiznis/investorhub/internal/investor/domain"
	"github.com/smallbiznis/investorhub/internal/lock"
	obscontext "github.com/smallbiznis/investorhub/internal/observability/context"
	"github.com/smallbiznis/investorhub/internal/observability/logger"
	"github.com/smallbiznis/investorhub/internal/observability/metrics"
	recorddomain "github.com/smallbiznis/investorhub/internal/recordstore/domain"
	"github.com/smallbiznis/investorhub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const defaultStoreTimeout = 3 * time.Second

type Params struct {
	fx.In

	Store   recorddomain.Store
	Locker  lock.Locker
	Clock   clock.Clock
	Config  config.Config
	Content *config.ContentHolder
	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

type Service struct {
	store   recorddomain.Store
	locker  lock.Locker
	clock   clock.Clock
	content *config.ContentHolder
	metrics *metrics.Metrics
	log     *zap.Logger

	storeTimeout       time.Duration
	placeholderEnabled bool
}

func New(p Params) domain.Service {
	timeout := p.Config.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Service{
		store:              p.Store,
		locker:             p.Locker,
		clock:              p.Clock,
		content:            p.Content,
		metrics:            p.Metrics,
		log:                p.Log.Named("investor.service"),
		storeTimeout:       timeout,
		placeholderEnabled: p.Config.PlaceholderEnabled,
	}
}

func (s *Service) GetOverview(ctx context.Context) (domain.Overview, error) {
	var summary recorddomain.InvestorSummary
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		summary, err = s.store.SummarizeInvestors(ctx)
		return err
	})
	if err != nil {
		return domain.Overview{}, domain.NewServiceError("get_overview", err)
	}

	content := s.content.Get()
	avg := decimal.NewFromFloat(content.AverageReturn)
	if summary.AverageROI != nil {
		avg = *summary.AverageROI
	}

	overview := domain.Overview{
		Overview: domain.OverviewTotals{
			TotalInvestments: summary.TotalInvestment,
			TotalPayouts:     summary.TotalPayouts,
			TotalInvestors:   summary.Count,
			AvgReturns:       avg.Round(2),
		},
		HotDeals: content.HotDeals,
		FAQs:     content.FAQs,
	}
	if overview.HotDeals == nil {
		overview.HotDeals = []config.HotDeal{}
	}
	if overview.FAQs == nil {
		overview.FAQs = []config.FAQ{}
	}
	return overview, nil
}

func (s *Service) GetInvestorProfile(ctx context.Context, req domain.GetInvestorProfileRequest) (domain.InvestorProfile, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return domain.InvestorProfile{}, domain.ErrInvalidEmail
	}

	record, err := s.findInvestor(ctx, email)
	if err != nil {
		s.metrics.RecordProfileLookup(ctx, "error", false)
		return domain.InvestorProfile{}, domain.NewServiceError("get_investor_profile", err)
	}
	if record == nil {
		s.metrics.RecordProfileLookup(ctx, "not_found", false)
		return domain.InvestorProfile{}, domain.ErrNotFound
	}

	var (
		investments []recorddomain.InvestmentRecord
		payouts     []recorddomain.PayoutRecord
		agreements  []recorddomain.AgreementRecord
	)
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		if investments, err = s.store.ListInvestmentsByEmail(ctx, email); err != nil {
			return err
		}
		if payouts, err = s.store.ListPayoutsByEmail(ctx, email); err != nil {
			return err
		}
		agreements, err = s.store.ListAgreementsByEmail(ctx, email)
		return err
	})
	if err != nil {
		s.metrics.RecordProfileLookup(ctx, "error", false)
		return domain.InvestorProfile{}, domain.NewServiceError("get_investor_profile", err)
	}

	profile := s.composeProfile(*record, investments, payouts, agreements)
	s.metrics.RecordProfileLookup(ctx, "found", profile.IsPlaceholder)
	return profile, nil
}

func (s *Service) SubmitConsent(ctx context.Context, req domain.SubmitConsentRequest) (domain.SubmitConsentResult, error) {
	name, email, phone, err := validateContact(req.Name, req.Email, req.Phone)
	if err != nil {
		return domain.SubmitConsentResult{}, err
	}

	var explicitType recorddomain.ConsentType
	if raw := strings.TrimSpace(req.ConsentType); raw != "" {
		parsed, ok := recorddomain.ParseConsentType(raw)
		if !ok {
			return domain.SubmitConsentResult{}, domain.ErrInvalidConsentType
		}
		explicitType = parsed
	}

	log := logger.WithInvestor(logger.WithContext(ctx, s.log), email)

	lockCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	unlock, err := s.locker.Lock(lockCtx, email)
	cancel()
	if err != nil {
		return domain.SubmitConsentResult{}, domain.NewServiceError("lock_investor", err)
	}
	defer unlock()

	existing, err := s.findInvestor(ctx, email)
	if err != nil {
		return domain.SubmitConsentResult{}, domain.NewServiceError("submit_consent", err)
	}
	if existing != nil {
		return s.reaffirm(ctx, log, *existing, name, phone, explicitType), nil
	}

	record := &recorddomain.InvestorRecord{
		Email:                 email,
		Name:                  name,
		Phone:                 phone,
		ConsentStatus:         recorddomain.ConsentStatusGiven,
		AccountStatus:         recorddomain.AccountStatusActive,
		MemberSince:           s.clock.Now(),
		TotalInvestment:       decimal.Zero,
		TotalPayouts:          decimal.Zero,
		CurrentPortfolioValue: decimal.Zero,
		ROI:                   decimal.Zero,
	}
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		return s.store.AppendInvestor(ctx, record)
	})
	if errors.Is(err, recorddomain.ErrDuplicateInvestor) {
		// Another writer created the row between our read and insert.
		log.Info("investor created concurrently, treating as existing")
		existing, err = s.findInvestor(ctx, email)
		if err != nil {
			return domain.SubmitConsentResult{}, domain.NewServiceError("submit_consent", err)
		}
		if existing == nil {
			return domain.SubmitConsentResult{}, domain.NewServiceError("submit_consent", recorddomain.ErrDuplicateInvestor)
		}
		return s.reaffirm(ctx, log, *existing, name, phone, explicitType), nil
	}
	if err != nil {
		return domain.SubmitConsentResult{}, domain.NewServiceError("create_investor", err)
	}

	s.metrics.RecordInvestorCreated(ctx)
	log.Info("investor created")

	consentType := recorddomain.ConsentTypeInitial
	if explicitType != "" {
		consentType = explicitType
	}
	if err := s.appendConsent(ctx, name, email, phone, consentType); err != nil {
		log.Error("consent event append failed after investor creation",
			zap.String("consent_type", string(consentType)),
			zap.Error(err),
		)
	}

	return domain.SubmitConsentResult{Created: true, Record: *record}, nil
}

// reaffirm logs a consent event for an existing investor and promotes its
// consent status. Both writes are best-effort.
func (s *Service) reaffirm(ctx context.Context, log *zap.Logger, record recorddomain.InvestorRecord, name, phone string, explicitType recorddomain.ConsentType) domain.SubmitConsentResult {
	consentType := recorddomain.ConsentTypeReaffirmation
	if explicitType != "" {
		consentType = explicitType
	}
	if err := s.appendConsent(ctx, name, record.Email, phone, consentType); err != nil {
		log.Error("consent event append failed for existing investor",
			zap.String("consent_type", string(consentType)),
			zap.Error(err),
		)
	}

	next := promoteConsent(record.ConsentStatus)
	if next != record.ConsentStatus {
		err := s.withTimeout(ctx, func(ctx context.Context) error {
			return s.store.UpdateConsentStatus(ctx, record.Email, next)
		})
		if err != nil {
			log.Warn("consent status promotion failed",
				zap.String("from", string(record.ConsentStatus)),
				zap.String("to", string(next)),
				zap.Error(err),
			)
		} else {
			record.ConsentStatus = next
		}
	}

	return domain.SubmitConsentResult{Created: false, Record: record}
}

func (s *Service) RecordConsentOnly(ctx context.Context, req domain.RecordConsentRequest) error {
	name, email, phone, err := validateContact(req.Name, req.Email, req.Phone)
	if err != nil {
		return err
	}

	consentType := recorddomain.ConsentTypeGeneral
	if raw := strings.TrimSpace(req.ConsentType); raw != "" {
		parsed, ok := recorddomain.ParseConsentType(raw)
		if !ok {
			return domain.ErrInvalidConsentType
		}
		consentType = parsed
	}

	if err := s.appendConsent(ctx, name, email, phone, consentType); err != nil {
		return domain.NewServiceError("record_consent", err)
	}
	return nil
}

func (s *Service) ListConsentHistory(ctx context.Context, req domain.ListConsentHistoryRequest) (domain.ListConsentHistoryResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return domain.ListConsentHistoryResponse{}, domain.ErrInvalidEmail
	}

	page := pagination.Pagination{PageToken: strings.TrimSpace(req.PageToken), PageSize: req.PageSize}
	limit := page.Limit()

	filter := recorddomain.ConsentEventFilter{Email: email, Limit: limit + 1}
	if page.PageToken != "" {
		cursor, err := decodeConsentCursor(page.PageToken)
		if err != nil {
			return domain.ListConsentHistoryResponse{}, err
		}
		filter.Cursor = cursor
	}

	var events []*recorddomain.ConsentEvent
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		events, err = s.store.ListConsentEvents(ctx, filter)
		return err
	})
	if err != nil {
		return domain.ListConsentHistoryResponse{}, domain.NewServiceError("list_consent_history", err)
	}

	events, pageInfo := pagination.BuildCursorPageInfo(events, limit, func(event *recorddomain.ConsentEvent) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        event.ID.String(),
			CreatedAt: event.Timestamp.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	resp := domain.ListConsentHistoryResponse{Events: make([]recorddomain.ConsentEvent, 0, len(events))}
	for _, event := range events {
		if event == nil {
			continue
		}
		resp.Events = append(resp.Events, *event)
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) appendConsent(ctx context.Context, name, email, phone string, consentType recorddomain.ConsentType) error {
	event := &recorddomain.ConsentEvent{
		Name:        name,
		Email:       email,
		Phone:       phone,
		ConsentType: consentType,
		Outcome:     recorddomain.ConsentOutcomeAccepted,
		Metadata:    requestMetadata(ctx),
		Timestamp:   s.clock.Now(),
	}
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.store.AppendConsentEvent(ctx, event)
	})
	outcome := string(recorddomain.ConsentOutcomeAccepted)
	if err != nil {
		outcome = "failed"
	}
	s.metrics.RecordConsentEvent(ctx, string(consentType), outcome)
	return err
}

func (s *Service) findInvestor(ctx context.Context, email string) (*recorddomain.InvestorRecord, error) {
	var record *recorddomain.InvestorRecord
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.store.FindInvestorByEmail(ctx, email)
		return err
	})
	return record, err
}

func (s *Service) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Service) composeProfile(
	record recorddomain.InvestorRecord,
	investments []recorddomain.InvestmentRecord,
	payouts []recorddomain.PayoutRecord,
	agreements []recorddomain.AgreementRecord,
) domain.InvestorProfile {
	now := s.clock.Now()

	profile := domain.InvestorProfile{
		Name:                  record.Name,
		Email:                 record.Email,
		Phone:                 record.Phone,
		Consent:               record.ConsentStatus,
		Status:                record.AccountStatus,
		TotalInvestment:       record.TotalInvestment,
		TotalPayouts:          record.TotalPayouts,
		CurrentPortfolioValue: record.CurrentPortfolioValue,
		ROI:                   record.ROI,
		NextPayoutDate:        record.NextPayoutDate,
		MemberSince:           record.MemberSince,
		Investments:           make([]domain.Investment, 0, len(investments)),
		Agreements:            make([]domain.Agreement, 0, len(agreements)),
		Payouts:               make([]domain.Payout, 0, len(payouts)),
		UpcomingPayouts:       []domain.Payout{},
	}

	for _, item := range investments {
		profile.Investments = append(profile.Investments, domain.Investment{
			Date:         item.Date,
			FundName:     item.FundName,
			Type:         item.FundType,
			Amount:       item.Amount,
			Status:       string(item.Status),
			Returns:      item.Returns,
			TenureMonths: item.TenureMonths,
		})
	}
	for _, item := range agreements {
		profile.Agreements = append(profile.Agreements, domain.Agreement{
			ID:          item.AgreementID,
			Type:        item.Type,
			Amount:      item.Amount,
			Date:        item.Date,
			Status:      string(item.Status),
			DocumentURL: item.DocumentURL,
		})
	}
	for _, item := range payouts {
		payout := domain.Payout{
			Date:       item.Date,
			Amount:     item.Amount,
			Investment: item.InvestmentRef,
			Status:     string(item.Status),
		}
		profile.Payouts = append(profile.Payouts, payout)
		if item.Status == recorddomain.PayoutStatusScheduled || item.Date.After(now) {
			profile.UpcomingPayouts = append(profile.UpcomingPayouts, payout)
		}
	}
	sort.SliceStable(profile.UpcomingPayouts, func(i, j int) bool {
		return profile.UpcomingPayouts[i].Date.Before(profile.UpcomingPayouts[j].Date)
	})
	if profile.NextPayoutDate == nil && len(profile.UpcomingPayouts) > 0 {
		next := profile.UpcomingPayouts[0].Date
		profile.NextPayoutDate = &next
	}

	if s.placeholderEnabled {
		content := s.content.Get().Placeholder
		if len(profile.Investments) == 0 {
			profile.Investments = []domain.Investment{placeholderInvestment(content.Investment, record.MemberSince)}
			profile.IsPlaceholder = true
		}
		if len(profile.Agreements) == 0 {
			profile.Agreements = []domain.Agreement{placeholderAgreement(content.Agreement, record.MemberSince)}
			profile.IsPlaceholder = true
		}
	}

	profile.Charts = buildCharts(profile.Investments, profile.Payouts)
	return profile
}

func placeholderInvestment(c config.PlaceholderInvestment, at time.Time) domain.Investment {
	return domain.Investment{
		Date:         at,
		FundName:     c.FundName,
		Type:         c.FundType,
		Amount:       decimal.NewFromFloat(c.Amount),
		Status:       string(recorddomain.InvestmentStatusActive),
		Returns:      decimal.NewFromFloat(c.Returns),
		TenureMonths: c.TenureMonths,
		Placeholder:  true,
	}
}

func placeholderAgreement(c config.PlaceholderAgreement, at time.Time) domain.Agreement {
	return domain.Agreement{
		ID:          "SAMPLE",
		Type:        c.Type,
		Amount:      decimal.NewFromFloat(c.Amount),
		Date:        at,
		Status:      string(recorddomain.AgreementStatusPending),
		Placeholder: true,
	}
}

func promoteConsent(status recorddomain.ConsentStatus) recorddomain.ConsentStatus {
	switch status {
	case recorddomain.ConsentStatusGiven, recorddomain.ConsentStatusReaffirmed:
		return recorddomain.ConsentStatusReaffirmed
	default:
		return recorddomain.ConsentStatusGiven
	}
}

func validateContact(rawName, rawEmail, rawPhone string) (name, email, phone string, err error) {
	name = strings.TrimSpace(rawName)
	if name == "" {
		return "", "", "", domain.ErrInvalidName
	}
	email = strings.TrimSpace(rawEmail)
	if email == "" {
		return "", "", "", domain.ErrInvalidEmail
	}
	phone = strings.TrimSpace(rawPhone)
	if phone == "" {
		return "", "", "", domain.ErrInvalidPhone
	}
	return name, email, phone, nil
}

func requestMetadata(ctx context.Context) datatypes.JSONMap {
	metadata := datatypes.JSONMap{}
	if id := obscontext.RequestIDFromContext(ctx); id != "" {
		metadata["request_id"] = id
	}
	if ip := obscontext.ClientIPFromContext(ctx); ip != "" {
		metadata["client_ip"] = ip
	}
	if ua := obscontext.UserAgentFromContext(ctx); ua != "" {
		metadata["user_agent"] = ua
	}
	return metadata
}

func decodeConsentCursor(token string) (*recorddomain.ConsentEventCursor, error) {
	cursor, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	id, err := snowflake.ParseString(cursor.ID)
	if err != nil || id == 0 {
		return nil, pagination.ErrInvalidPageToken
	}
	at, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	return &recorddomain.ConsentEventCursor{ID: id, Timestamp: at}, nil
}
