package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/investorhub/internal/config"
	recorddomain "github.com/smallbiznis/investorhub/internal/recordstore/domain"
	"github.com/smallbiznis/investorhub/pkg/db/pagination"
)

type Service interface {
	GetOverview(context.Context) (Overview, error)
	GetInvestorProfile(context.Context, GetInvestorProfileRequest) (InvestorProfile, error)
	SubmitConsent(context.Context, SubmitConsentRequest) (SubmitConsentResult, error)
	RecordConsentOnly(context.Context, RecordConsentRequest) error
	ListConsentHistory(context.Context, ListConsentHistoryRequest) (ListConsentHistoryResponse, error)
}

type OverviewTotals struct {
	TotalInvestments decimal.Decimal `json:"totalInvestments"`
	TotalPayouts     decimal.Decimal `json:"totalPayouts"`
	TotalInvestors   int64           `json:"totalInvestors"`
	AvgReturns       decimal.Decimal `json:"avgReturns"`
}

type Overview struct {
	Overview OverviewTotals   `json:"overview"`
	HotDeals []config.HotDeal `json:"hotDeals"`
	FAQs     []config.FAQ     `json:"faqs"`
}

type GetInvestorProfileRequest struct {
	Email string
}

type Investment struct {
	Date         time.Time       `json:"date"`
	FundName     string          `json:"fundName"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	Returns      decimal.Decimal `json:"returns"`
	TenureMonths int             `json:"tenureMonths"`
	Placeholder  bool            `json:"placeholder,omitempty"`
}

type Payout struct {
	Date       time.Time       `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	Investment string          `json:"investment"`
	Status     string          `json:"status"`
}

type Agreement struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Status      string          `json:"status"`
	DocumentURL string          `json:"documentUrl"`
	Placeholder bool            `json:"placeholder,omitempty"`
}

// MonthlyPoint is one month of a time series; Month is formatted as YYYY-MM.
type MonthlyPoint struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type TenureBucket struct {
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type AllocationSlice struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

type Charts struct {
	InvestmentHistory   []MonthlyPoint    `json:"investmentHistory"`
	PayoutHistory       []MonthlyPoint    `json:"payoutHistory"`
	TenureDistribution  []TenureBucket    `json:"tenureDistribution"`
	PortfolioGrowth     []MonthlyPoint    `json:"portfolioGrowth"`
	PortfolioAllocation []AllocationSlice `json:"portfolioAllocation"`
}

type InvestorProfile struct {
	Name                  string                     `json:"name"`
	Email                 string                     `json:"email"`
	Phone                 string                     `json:"phone"`
	Consent               recorddomain.ConsentStatus `json:"consent"`
	Status                recorddomain.AccountStatus `json:"status"`
	TotalInvestment       decimal.Decimal            `json:"totalInvestment"`
	TotalPayouts          decimal.Decimal            `json:"totalPayouts"`
	CurrentPortfolioValue decimal.Decimal            `json:"currentPortfolioValue"`
	ROI                   decimal.Decimal            `json:"roi"`
	NextPayoutDate        *time.Time                 `json:"nextPayoutDate"`
	MemberSince           time.Time                  `json:"memberSince"`
	Investments           []Investment               `json:"investments"`
	Agreements            []Agreement                `json:"agreements"`
	Payouts               []Payout                   `json:"payouts"`
	UpcomingPayouts       []Payout                   `json:"upcomingPayouts"`
	Charts
	IsPlaceholder bool `json:"isPlaceholder"`
}

type SubmitConsentRequest struct {
	Name  string
	Email string
	Phone string
	// ConsentType overrides the INITIAL/REAFFIRMATION default when set.
	ConsentType string
}

type SubmitConsentResult struct {
	Created bool
	Record  recorddomain.InvestorRecord
}

type RecordConsentRequest struct {
	Name        string
	Email       string
	Phone       string
	ConsentType string
}

type ListConsentHistoryRequest struct {
	Email     string
	PageToken string
	PageSize  int
}

type ListConsentHistoryResponse struct {
	pagination.PageInfo
	Events []recorddomain.ConsentEvent `json:"events"`
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidPhone       = errors.New("invalid_phone")
	ErrInvalidConsentType = errors.New("invalid_consent_type")
	ErrNotFound           = errors.New("not_found")
)

// ValidationField returns the request field a validation error refers to.
func ValidationField(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrInvalidName):
		return "name", true
	case errors.Is(err, ErrInvalidEmail):
		return "email", true
	case errors.Is(err, ErrInvalidPhone):
		return "phone", true
	case errors.Is(err, ErrInvalidConsentType):
		return "consentType", true
	case errors.Is(err, pagination.ErrInvalidPageToken):
		return "page_token", true
	default:
		return "", false
	}
}

// ServiceError wraps store failures, timeouts and other unexpected faults.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("investor %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewServiceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return &ServiceError{Op: op, Err: err}
}
