package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type InvestorSummary struct {
	Count           int64
	TotalInvestment decimal.Decimal
	TotalPayouts    decimal.Decimal
	// AverageROI is the mean ROI of investors with a non-zero ROI; nil when there are none.
	AverageROI *decimal.Decimal
}

type ConsentEventCursor struct {
	ID        snowflake.ID
	Timestamp time.Time
}

type ConsentEventFilter struct {
	Email  string
	Cursor *ConsentEventCursor
	Limit  int
}

// Store is the table-backed persistence for every record kind, addressed by email.
type Store interface {
	FindInvestorByEmail(ctx context.Context, email string) (*InvestorRecord, error)
	AppendInvestor(ctx context.Context, record *InvestorRecord) error
	UpdateConsentStatus(ctx context.Context, email string, status ConsentStatus) error
	SummarizeInvestors(ctx context.Context) (InvestorSummary, error)

	ListInvestmentsByEmail(ctx context.Context, email string) ([]InvestmentRecord, error)
	ListPayoutsByEmail(ctx context.Context, email string) ([]PayoutRecord, error)
	ListAgreementsByEmail(ctx context.Context, email string) ([]AgreementRecord, error)

	AppendInvestment(ctx context.Context, record *InvestmentRecord) error
	AppendPayout(ctx context.Context, record *PayoutRecord) error
	AppendAgreement(ctx context.Context, record *AgreementRecord) error

	AppendConsentEvent(ctx context.Context, event *ConsentEvent) error
	ListConsentEvents(ctx context.Context, filter ConsentEventFilter) ([]*ConsentEvent, error)
	CountConsentEvents(ctx context.Context, email string) (int64, error)
}

var (
	// ErrDuplicateInvestor is returned by AppendInvestor when the email already has a row.
	ErrDuplicateInvestor = errors.New("duplicate_investor")
	// ErrDuplicateAgreement is returned by AppendAgreement when the agreement id is taken.
	ErrDuplicateAgreement = errors.New("duplicate_agreement")
)

// StoreError wraps any failure of the underlying tables.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}
