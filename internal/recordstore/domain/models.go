package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func init() {
	// Amounts travel as JSON numbers in the base currency unit.
	decimal.MarshalJSONWithoutQuotes = true
}

type ConsentStatus string

const (
	ConsentStatusNone       ConsentStatus = "NONE"
	ConsentStatusGiven      ConsentStatus = "GIVEN"
	ConsentStatusReaffirmed ConsentStatus = "REAFFIRMED"
)

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
)

type InvestmentStatus string

const (
	InvestmentStatusActive InvestmentStatus = "ACTIVE"
	InvestmentStatusClosed InvestmentStatus = "CLOSED"
)

type PayoutStatus string

const (
	PayoutStatusScheduled PayoutStatus = "SCHEDULED"
	PayoutStatusPaid      PayoutStatus = "PAID"
)

type AgreementStatus string

const (
	AgreementStatusActive  AgreementStatus = "ACTIVE"
	AgreementStatusPending AgreementStatus = "PENDING"
	AgreementStatusExpired AgreementStatus = "EXPIRED"
)

type ConsentType string

const (
	ConsentTypeInitial       ConsentType = "INITIAL"
	ConsentTypeReaffirmation ConsentType = "REAFFIRMATION"
	ConsentTypeGeneral       ConsentType = "GENERAL"
)

type ConsentOutcome string

const ConsentOutcomeAccepted ConsentOutcome = "ACCEPTED"

type InvestorRecord struct {
	ID                    snowflake.ID    `gorm:"primaryKey" json:"-"`
	Email                 string          `gorm:"size:191;not null;uniqueIndex" json:"email"`
	Name                  string          `gorm:"not null" json:"name"`
	Phone                 string          `gorm:"not null" json:"phone"`
	ConsentStatus         ConsentStatus   `gorm:"type:varchar(16);not null" json:"consent"`
	AccountStatus         AccountStatus   `gorm:"type:varchar(16);not null" json:"status"`
	MemberSince           time.Time       `gorm:"not null" json:"memberSince"`
	TotalInvestment       decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"totalInvestment"`
	TotalPayouts          decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"totalPayouts"`
	CurrentPortfolioValue decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"currentPortfolioValue"`
	ROI                   decimal.Decimal `gorm:"column:roi;type:decimal(9,4);not null;default:0" json:"roi"`
	NextPayoutDate        *time.Time      `json:"nextPayoutDate"`
	CreatedAt             time.Time       `gorm:"not null" json:"-"`
	UpdatedAt             time.Time       `gorm:"not null" json:"-"`
}

func (InvestorRecord) TableName() string {
	return "investors"
}

type InvestmentRecord struct {
	ID            snowflake.ID     `gorm:"primaryKey" json:"-"`
	InvestorEmail string           `gorm:"size:191;not null;index" json:"-"`
	Date          time.Time        `gorm:"not null" json:"date"`
	FundName      string           `gorm:"not null" json:"fundName"`
	FundType      string           `gorm:"not null" json:"type"`
	Amount        decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status        InvestmentStatus `gorm:"type:varchar(16);not null" json:"status"`
	Returns       decimal.Decimal  `gorm:"type:decimal(20,2);not null;default:0" json:"returns"`
	TenureMonths  int              `gorm:"not null;default:0" json:"tenureMonths"`
	CreatedAt     time.Time        `gorm:"not null" json:"-"`
}

func (InvestmentRecord) TableName() string {
	return "investments"
}

type PayoutRecord struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"-"`
	InvestorEmail string          `gorm:"size:191;not null;index" json:"-"`
	Date          time.Time       `gorm:"not null" json:"date"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	InvestmentRef string          `json:"investment"`
	Status        PayoutStatus    `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt     time.Time       `gorm:"not null" json:"-"`
}

func (PayoutRecord) TableName() string {
	return "payouts"
}

type AgreementRecord struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"-"`
	AgreementID   string          `gorm:"size:191;not null;uniqueIndex" json:"id"`
	InvestorEmail string          `gorm:"size:191;not null;index" json:"-"`
	Type          string          `gorm:"not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Date          time.Time       `gorm:"not null" json:"date"`
	Status        AgreementStatus `gorm:"type:varchar(16);not null" json:"status"`
	DocumentURL   string          `json:"documentUrl"`
	CreatedAt     time.Time       `gorm:"not null" json:"-"`
}

func (AgreementRecord) TableName() string {
	return "agreements"
}

// ConsentEvent is an append-only audit row; it is never updated or deleted.
type ConsentEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"not null" json:"name"`
	Email       string            `gorm:"size:191;not null;index" json:"email"`
	Phone       string            `gorm:"not null" json:"phone"`
	ConsentType ConsentType       `gorm:"type:varchar(16);not null" json:"consentType"`
	Outcome     ConsentOutcome    `gorm:"type:varchar(16);not null" json:"outcome"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	Timestamp   time.Time         `gorm:"column:recorded_at;not null;index" json:"timestamp"`
}

func (ConsentEvent) TableName() string {
	return "consent_events"
}

// Models lists every persisted record kind, in creation order.
func Models() []any {
	return []any{
		&InvestorRecord{},
		&InvestmentRecord{},
		&PayoutRecord{},
		&AgreementRecord{},
		&ConsentEvent{},
	}
}

// ParseConsentType accepts the canonical names case-insensitively.
func ParseConsentType(raw string) (ConsentType, bool) {
	switch ConsentType(strings.ToUpper(strings.TrimSpace(raw))) {
	case ConsentTypeInitial:
		return ConsentTypeInitial, true
	case ConsentTypeReaffirmation:
		return ConsentTypeReaffirmation, true
	case ConsentTypeGeneral:
		return ConsentTypeGeneral, true
	default:
		return "", false
	}
}

// ParseConsentStatus maps canonical and legacy sheet values onto ConsentStatus.
// Older sheets stored free text such as "consent given" or "LEGAL_CONSENT_ACCEPTED".
func ParseConsentStatus(raw string) ConsentStatus {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	switch normalized {
	case string(ConsentStatusGiven), "CONSENT_GIVEN", "LEGAL_CONSENT_ACCEPTED", "CONSENT", "ACCEPTED", "YES", "TRUE":
		return ConsentStatusGiven
	case string(ConsentStatusReaffirmed), "CONSENT_REAFFIRMED":
		return ConsentStatusReaffirmed
	default:
		return ConsentStatusNone
	}
}
