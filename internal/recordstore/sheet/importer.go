package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/investorhub/internal/clock"
	"github.com/smallbiznis/investorhub/internal/recordstore/domain"
	"go.uber.org/zap"
)

// Column aliases, first entry is the canonical name used in error messages.
var (
	colName           = []string{"name", "full name"}
	colEmail          = []string{"email", "investor email", "email address"}
	colPhone          = []string{"phone", "phone number", "mobile"}
	colMemberSince    = []string{"member since", "timestamp", "joined"}
	colConsent        = []string{"consent", "consent status"}
	colStatus         = []string{"status", "account status"}
	colTotalInvest    = []string{"total investment"}
	colTotalPayouts   = []string{"total payouts"}
	colPortfolioValue = []string{"current portfolio value", "portfolio value"}
	colROI            = []string{"roi", "returns %"}
	colNextPayout     = []string{"next payout date", "next payout"}
	colDate           = []string{"date"}
	colAmount         = []string{"amount"}
	colFundName       = []string{"fund name", "fund"}
	colFundType       = []string{"type", "fund type"}
	colReturns        = []string{"returns"}
	colTenure         = []string{"tenure months", "tenure"}
	colInvestment     = []string{"investment", "investment ref"}
	colAgreementID    = []string{"id", "agreement id"}
	colDocumentURL    = []string{"document url", "document", "documenturl"}
	colConsentType    = []string{"consent type", "consenttype", "consent"}
)

// Sources holds one reader per exported sheet; nil readers are skipped.
type Sources struct {
	Investors   io.Reader
	Investments io.Reader
	Payouts     io.Reader
	Agreements  io.Reader
	Consents    io.Reader
}

type RowError struct {
	Sheet string
	Line  int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.Sheet, e.Line, e.Err)
}

// Report summarises one import run.
type Report struct {
	BatchID              string
	DryRun               bool
	InvestorsCreated     int
	InvestorsSkipped     int
	Investments          int
	InvestmentsSkipped   int
	Payouts              int
	PayoutsSkipped       int
	Agreements           int
	AgreementsSkipped    int
	ConsentEvents        int
	ConsentEventsSkipped int
	RowErrors            []RowError
}

type Importer struct {
	store  domain.Store
	clock  clock.Clock
	log    *zap.Logger
	dryRun bool
}

func NewImporter(store domain.Store, clk clock.Clock, log *zap.Logger, dryRun bool) *Importer {
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{store: store, clock: clk, log: log, dryRun: dryRun}
}

// Import loads every provided sheet. Investors already present by email and
// rows already stored by an earlier run are skipped, so the same export can be
// imported again safely. Bad rows are reported and do not stop the run. Store
// failures abort.
func (im *Importer) Import(ctx context.Context, src Sources) (Report, error) {
	report := Report{BatchID: ulid.Make().String(), DryRun: im.dryRun}
	log := im.log.With(zap.String("batch_id", report.BatchID), zap.Bool("dry_run", im.dryRun))

	steps := []struct {
		name   string
		reader io.Reader
		load   func(context.Context, *Table, *Report) error
	}{
		{"Investors", src.Investors, im.importInvestors},
		{"Investments", src.Investments, im.importInvestments},
		{"Payouts", src.Payouts, im.importPayouts},
		{"Agreements", src.Agreements, im.importAgreements},
		{"LegalConsents", src.Consents, im.importConsents},
	}

	for _, step := range steps {
		if step.reader == nil {
			continue
		}
		table, err := Read(step.name, step.reader)
		if err != nil {
			return report, err
		}
		if err := step.load(ctx, table, &report); err != nil {
			return report, err
		}
		log.Info("sheet imported", zap.String("sheet", step.name), zap.Int("rows", len(table.Rows())))
	}

	if len(report.RowErrors) > 0 {
		log.Warn("rows rejected", zap.Int("count", len(report.RowErrors)))
	}
	return report, nil
}

func (im *Importer) importInvestors(ctx context.Context, table *Table, report *Report) error {
	if err := table.Require(colName, colEmail, colPhone); err != nil {
		return err
	}

	seen := map[string]struct{}{}
	for _, row := range table.Rows() {
		record, err := im.investorFromRow(row)
		if err != nil {
			report.RowErrors = append(report.RowErrors, RowError{table.Name(), row.Line, err})
			continue
		}

		if _, dup := seen[record.Email]; dup {
			report.InvestorsSkipped++
			continue
		}
		seen[record.Email] = struct{}{}

		existing, err := im.store.FindInvestorByEmail(ctx, record.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			report.InvestorsSkipped++
			continue
		}

		if !im.dryRun {
			if err := im.store.AppendInvestor(ctx, record); err != nil {
				if errors.Is(err, domain.ErrDuplicateInvestor) {
					report.InvestorsSkipped++
					continue
				}
				return err
			}
		}
		report.InvestorsCreated++
	}
	return nil
}

func (im *Importer) investorFromRow(row Row) (*domain.InvestorRecord, error) {
	record := &domain.InvestorRecord{
		Name:          row.Get(colName...),
		Email:         row.Get(colEmail...),
		Phone:         row.Get(colPhone...),
		ConsentStatus: domain.ParseConsentStatus(row.Get(colConsent...)),
		AccountStatus: domain.AccountStatusActive,
		MemberSince:   im.clock.Now(),
	}
	if record.Email == "" {
		return nil, errors.New("email is required")
	}
	if record.Name == "" {
		return nil, errors.New("name is required")
	}
	if record.Phone == "" {
		return nil, errors.New("phone is required")
	}

	if strings.EqualFold(row.Get(colStatus...), string(domain.AccountStatusInactive)) {
		record.AccountStatus = domain.AccountStatusInactive
	}
	if raw := row.Get(colMemberSince...); raw != "" {
		since, err := ParseDate(raw)
		if err != nil {
			return nil, err
		}
		record.MemberSince = since
	}
	if raw := row.Get(colNextPayout...); raw != "" {
		next, err := ParseDate(raw)
		if err != nil {
			return nil, err
		}
		record.NextPayoutDate = &next
	}

	var err error
	if record.TotalInvestment, err = ParseAmount(row.Get(colTotalInvest...)); err != nil {
		return nil, err
	}
	if record.TotalPayouts, err = ParseAmount(row.Get(colTotalPayouts...)); err != nil {
		return nil, err
	}
	if record.CurrentPortfolioValue, err = ParseAmount(row.Get(colPortfolioValue...)); err != nil {
		return nil, err
	}
	if record.ROI, err = ParsePercent(row.Get(colROI...)); err != nil {
		return nil, err
	}
	return record, nil
}

func (im *Importer) importInvestments(ctx context.Context, table *Table, report *Report) error {
	if err := table.Require(colDate, colEmail, colAmount); err != nil {
		return err
	}

	keys := newRowKeys(func(ctx context.Context, email string) ([]string, error) {
		stored, err := im.store.ListInvestmentsByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(stored))
		for i := range stored {
			out = append(out, investmentKey(&stored[i]))
		}
		return out, nil
	})

	for _, row := range table.Rows() {
		record, err := investmentFromRow(row)
		if err != nil {
			report.RowErrors = append(report.RowErrors, RowError{table.Name(), row.Line, err})
			continue
		}
		fresh, err := keys.claim(ctx, record.InvestorEmail, investmentKey(record))
		if err != nil {
			return err
		}
		if !fresh {
			report.InvestmentsSkipped++
			continue
		}
		if !im.dryRun {
			if err := im.store.AppendInvestment(ctx, record); err != nil {
				return err
			}
		}
		report.Investments++
	}
	return nil
}

func investmentFromRow(row Row) (*domain.InvestmentRecord, error) {
	email := row.Get(colEmail...)
	if email == "" {
		return nil, errors.New("email is required")
	}
	date, err := ParseDate(row.Get(colDate...))
	if err != nil {
		return nil, err
	}
	amount, err := ParseAmount(row.Get(colAmount...))
	if err != nil {
		return nil, err
	}
	returns, err := ParseAmount(row.Get(colReturns...))
	if err != nil {
		return nil, err
	}
	tenure, err := ParseInt(row.Get(colTenure...))
	if err != nil {
		return nil, err
	}

	fundType := row.Get(colFundType...)
	fundName := row.Get(colFundName...)
	if fundName == "" {
		fundName = fundType
	}

	status := domain.InvestmentStatusActive
	if strings.EqualFold(row.Get(colStatus...), string(domain.InvestmentStatusClosed)) {
		status = domain.InvestmentStatusClosed
	}

	return &domain.InvestmentRecord{
		InvestorEmail: email,
		Date:          date,
		FundName:      fundName,
		FundType:      fundType,
		Amount:        amount,
		Status:        status,
		Returns:       returns,
		TenureMonths:  tenure,
	}, nil
}

func (im *Importer) importPayouts(ctx context.Context, table *Table, report *Report) error {
	if err := table.Require(colDate, colEmail, colAmount); err != nil {
		return err
	}

	keys := newRowKeys(func(ctx context.Context, email string) ([]string, error) {
		stored, err := im.store.ListPayoutsByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(stored))
		for i := range stored {
			out = append(out, payoutKey(&stored[i]))
		}
		return out, nil
	})

	now := im.clock.Now()
	for _, row := range table.Rows() {
		email := row.Get(colEmail...)
		if email == "" {
			report.RowErrors = append(report.RowErrors, RowError{table.Name(), row.Line, errors.New("email is required")})
			continue
		}
		date, err := ParseDate(row.Get(colDate...))
		if err != nil {
			report.RowErrors = append(report.RowErrors, RowError{table.Name(), row.Line, err})
			continue
		}
		amount, err := ParseAmount(row.Get(colAmount...))
		if err != nil {
			report.RowErrors = append(report.RowErrors, RowError{table.Name(), row.Line, err})
			continue
		}

		record := &domain.PayoutRecord{
			InvestorEmail: email,
			Date:          date,
			Amount:        amount,
			InvestmentRef: row.Get(colInvestment...),
			Status:        payoutStatus(row.Get(colStatus...), date, now),
		}
		fresh, err := keys.claim(ctx, email, payoutKey(record))
		if err != nil {
			return err
		}
		if !fresh {
			report.PayoutsSkipped++
			continue
		}
		if !im.dryRun {
			if err := im.store.AppendPayout(ctx, record); err != nil {
				return err
			}
		}
		report.Payouts++
	}
	return nil
}

// payoutStatus honours an explicit status and otherwise treats future dates as scheduled.
func payoutStatus(raw string, date, now time.Time) domain.PayoutStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(domain.PayoutStatusPaid):
		return domain.PayoutStatusPaid
	case string(domain.PayoutStatusScheduled):
		return domain.PayoutStatusScheduled
	}
	if date.After(now) {
		return domain.PayoutStatusScheduled
	}
	return domain.PayoutStatusPaid
}

func (im *Importer) importAgreements(ctx context.Context, table *Table, report *Report) error {
	if err := table.Require(colAgreementID, colEmail, colDate, colAmount); err != nil {
		return err
	}

	for _, row := range table.Rows() {
		record, err := agreementFromRow(row)
		if err != nil {
			report.RowErrors = append(report.RowErrors, RowError{table.Name(), row.Line, err})
			continue
		}
		if !im.dryRun {
			if err := im.store.AppendAgreement(ctx, record); err != nil {
				if errors.Is(err, domain.ErrDuplicateAgreement) {
					report.AgreementsSkipped++
					continue
				}
				return err
			}
		}
		report.Agreements++
	}
	return nil
}

func agreementFromRow(row Row) (*domain.AgreementRecord, error) {
	id := row.Get(colAgreementID...)
	email := row.Get(colEmail...)
	if id == "" || email == "" {
		return nil, errors.New("agreement id and email are required")
	}
	date, err := ParseDate(row.Get(colDate...))
	if err != nil {
		return nil, err
	}
	amount, err := ParseAmount(row.Get(colAmount...))
	if err != nil {
		return nil, err
	}

	status := domain.AgreementStatusActive
	switch strings.ToUpper(row.Get(colStatus...)) {
	case string(domain.AgreementStatusPending):
		status = domain.AgreementStatusPending
	case string(domain.AgreementStatusExpired):
		status = domain.AgreementStatusExpired
	}

	return &domain.AgreementRecord{
		AgreementID:   id,
		InvestorEmail: email,
		Type:          row.Get(colFundType...),
		Amount:        amount,
		Date:          date,
		Status:        status,
		DocumentURL:   row.Get(colDocumentURL...),
	}, nil
}

// importConsents replays the legacy consent log. Free-text consent values
// become GENERAL events. Each imported event carries the key of its sheet row
// in its metadata; live submissions have none and never match.
func (im *Importer) importConsents(ctx context.Context, table *Table, report *Report) error {
	if err := table.Require(colName, colEmail, colPhone); err != nil {
		return err
	}

	keys := newRowKeys(func(ctx context.Context, email string) ([]string, error) {
		stored, err := im.store.ListConsentEvents(ctx, domain.ConsentEventFilter{Email: email})
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(stored))
		for _, event := range stored {
			if key, ok := event.Metadata[importKeyField].(string); ok && key != "" {
				out = append(out, key)
			}
		}
		return out, nil
	})

	for _, row := range table.Rows() {
		email := row.Get(colEmail...)
		if email == "" {
			report.RowErrors = append(report.RowErrors, RowError{table.Name(), row.Line, errors.New("email is required")})
			continue
		}
		at := im.clock.Now()
		stamp := ""
		if raw := row.Get(colMemberSince...); raw != "" {
			parsed, err := ParseDate(raw)
			if err != nil {
				report.RowErrors = append(report.RowErrors, RowError{table.Name(), row.Line, err})
				continue
			}
			at = parsed
			stamp = parsed.Format(time.RFC3339)
		}
		consentType, ok := domain.ParseConsentType(row.Get(colConsentType...))
		if !ok {
			consentType = domain.ConsentTypeGeneral
		}

		name, phone := row.Get(colName...), row.Get(colPhone...)
		key := naturalKey(stamp, string(consentType), name, phone)
		fresh, err := keys.claim(ctx, email, key)
		if err != nil {
			return err
		}
		if !fresh {
			report.ConsentEventsSkipped++
			continue
		}

		event := &domain.ConsentEvent{
			Name:        name,
			Email:       email,
			Phone:       phone,
			ConsentType: consentType,
			Outcome:     domain.ConsentOutcomeAccepted,
			Timestamp:   at,
			Metadata: map[string]interface{}{
				"source":       "sheet_import",
				importKeyField: key,
				"batch_id":     report.BatchID,
			},
		}
		if !im.dryRun {
			if err := im.store.AppendConsentEvent(ctx, event); err != nil {
				return err
			}
		}
		report.ConsentEvents++
	}
	return nil
}

const importKeyField = "import_key"

// rowKeys decides which sheet rows are already stored. Keys are counted, so
// identical rows in one sheet are all imported on the first run and all
// skipped on the next.
type rowKeys struct {
	load   func(ctx context.Context, email string) ([]string, error)
	stored map[string]map[string]int
	seen   map[string]map[string]int
}

func newRowKeys(load func(ctx context.Context, email string) ([]string, error)) *rowKeys {
	return &rowKeys{
		load:   load,
		stored: map[string]map[string]int{},
		seen:   map[string]map[string]int{},
	}
}

// claim reports whether this occurrence of key has no stored counterpart.
func (k *rowKeys) claim(ctx context.Context, email, key string) (bool, error) {
	stored, ok := k.stored[email]
	if !ok {
		existing, err := k.load(ctx, email)
		if err != nil {
			return false, err
		}
		stored = make(map[string]int, len(existing))
		for _, item := range existing {
			stored[item]++
		}
		k.stored[email] = stored
		k.seen[email] = map[string]int{}
	}

	seen := k.seen[email]
	seen[key]++
	return seen[key] > stored[key], nil
}

func naturalKey(parts ...string) string {
	return strings.Join(parts, "|")
}

func investmentKey(r *domain.InvestmentRecord) string {
	return naturalKey(
		r.Date.UTC().Format(time.RFC3339),
		r.Amount.StringFixed(2),
		r.FundName,
		r.FundType,
		strconv.Itoa(r.TenureMonths),
	)
}

// payoutKey leaves the status out so a payout exported again after it was
// paid still matches its scheduled row.
func payoutKey(r *domain.PayoutRecord) string {
	return naturalKey(
		r.Date.UTC().Format(time.RFC3339),
		r.Amount.StringFixed(2),
		r.InvestmentRef,
	)
}
