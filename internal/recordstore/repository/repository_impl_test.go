package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/investorhub/internal/migration"
	"github.com/smallbiznis/investorhub/internal/recordstore/domain"
	"github.com/smallbiznis/investorhub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) domain.Store {
	t.Helper()

	conn := db.NewTest(t)
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(conn, node)
}

func newInvestor(email string, total int64) *domain.InvestorRecord {
	return &domain.InvestorRecord{
		Email:           email,
		Name:            "Investor " + email,
		Phone:           "9999900000",
		ConsentStatus:   domain.ConsentStatusGiven,
		AccountStatus:   domain.AccountStatusActive,
		MemberSince:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		TotalInvestment: decimal.NewFromInt(total),
	}
}

func TestFindInvestorByEmailReturnsNilWhenAbsent(t *testing.T) {
	store := newTestStore(t)

	record, err := store.FindInvestorByEmail(context.Background(), "missing@example.com")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestAppendInvestorEnforcesUniqueEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendInvestor(ctx, newInvestor("asha@example.com", 0)))

	err := store.AppendInvestor(ctx, newInvestor("asha@example.com", 0))
	require.ErrorIs(t, err, domain.ErrDuplicateInvestor)

	record, err := store.FindInvestorByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.ConsentStatusGiven, record.ConsentStatus)
	assert.NotZero(t, record.ID)

	// Lookups are exact; a different case is a different key.
	other, err := store.FindInvestorByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestUpdateConsentStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendInvestor(ctx, newInvestor("ravi@example.com", 0)))
	require.NoError(t, store.UpdateConsentStatus(ctx, "ravi@example.com", domain.ConsentStatusReaffirmed))

	record, err := store.FindInvestorByEmail(ctx, "ravi@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentStatusReaffirmed, record.ConsentStatus)

	err = store.UpdateConsentStatus(ctx, "nobody@example.com", domain.ConsentStatusGiven)
	require.Error(t, err)
	assert.True(t, domain.IsStoreError(err))
}

func TestSummarizeInvestors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	summary, err := store.SummarizeInvestors(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Count)
	assert.True(t, summary.TotalInvestment.IsZero())
	assert.Nil(t, summary.AverageROI)

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		record := newInvestor(email, 300000)
		record.TotalPayouts = decimal.NewFromInt(int64(10000 * (i + 1)))
		if i > 0 {
			record.ROI = decimal.NewFromInt(int64(10 + 4*i))
		}
		require.NoError(t, store.AppendInvestor(ctx, record))
	}

	summary, err = store.SummarizeInvestors(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Count)
	assert.True(t, summary.TotalInvestment.Equal(decimal.NewFromInt(900000)), "got %s", summary.TotalInvestment)
	assert.True(t, summary.TotalPayouts.Equal(decimal.NewFromInt(60000)), "got %s", summary.TotalPayouts)
	require.NotNil(t, summary.AverageROI)
	assert.True(t, summary.AverageROI.Equal(decimal.NewFromInt(16)), "got %s", summary.AverageROI)
}

func TestListsPreserveInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	email := "meera@example.com"

	investments, err := store.ListInvestmentsByEmail(ctx, email)
	require.NoError(t, err)
	assert.NotNil(t, investments)
	assert.Empty(t, investments)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, fund := range []string{"Zeta Fund", "Alpha Fund", "Mid Fund"} {
		require.NoError(t, store.AppendInvestment(ctx, &domain.InvestmentRecord{
			InvestorEmail: email,
			Date:          base.AddDate(0, -i, 0),
			FundName:      fund,
			FundType:      "Fixed Income",
			Amount:        decimal.NewFromInt(100000),
			Status:        domain.InvestmentStatusActive,
			TenureMonths:  12,
		}))
	}
	require.NoError(t, store.AppendInvestment(ctx, &domain.InvestmentRecord{
		InvestorEmail: "other@example.com",
		Date:          base,
		FundName:      "Other",
		FundType:      "Tech Startup",
		Amount:        decimal.NewFromInt(1),
		Status:        domain.InvestmentStatusActive,
	}))

	investments, err = store.ListInvestmentsByEmail(ctx, email)
	require.NoError(t, err)
	require.Len(t, investments, 3)
	assert.Equal(t, "Zeta Fund", investments[0].FundName)
	assert.Equal(t, "Alpha Fund", investments[1].FundName)
	assert.Equal(t, "Mid Fund", investments[2].FundName)

	require.NoError(t, store.AppendPayout(ctx, &domain.PayoutRecord{
		InvestorEmail: email,
		Date:          base,
		Amount:        decimal.NewFromInt(5000),
		InvestmentRef: "Zeta Fund",
		Status:        domain.PayoutStatusPaid,
	}))
	payouts, err := store.ListPayoutsByEmail(ctx, email)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, domain.PayoutStatusPaid, payouts[0].Status)
}

func TestAppendAgreementRejectsDuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	agreement := func() *domain.AgreementRecord {
		return &domain.AgreementRecord{
			AgreementID:   "AGR-001",
			InvestorEmail: "meera@example.com",
			Type:          "Investment Agreement",
			Amount:        decimal.NewFromInt(500000),
			Date:          time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Status:        domain.AgreementStatusActive,
			DocumentURL:   "https://docs.example.com/agr-001.pdf",
		}
	}

	require.NoError(t, store.AppendAgreement(ctx, agreement()))
	require.ErrorIs(t, store.AppendAgreement(ctx, agreement()), domain.ErrDuplicateAgreement)

	agreements, err := store.ListAgreementsByEmail(ctx, "meera@example.com")
	require.NoError(t, err)
	require.Len(t, agreements, 1)
	assert.Equal(t, "AGR-001", agreements[0].AgreementID)
}

func TestConsentEventsAreAppendOnlyAndPaginated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	email := "asha@example.com"
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	types := []domain.ConsentType{
		domain.ConsentTypeInitial,
		domain.ConsentTypeReaffirmation,
		domain.ConsentTypeReaffirmation,
	}
	for i, consentType := range types {
		require.NoError(t, store.AppendConsentEvent(ctx, &domain.ConsentEvent{
			Name:        "Asha Rao",
			Email:       email,
			Phone:       "9999900000",
			ConsentType: consentType,
			Timestamp:   at.Add(time.Duration(i) * time.Minute),
		}))
	}
	// Same timestamp as the newest event; ordering falls back to id.
	require.NoError(t, store.AppendConsentEvent(ctx, &domain.ConsentEvent{
		Name:        "Asha Rao",
		Email:       email,
		Phone:       "9999900000",
		ConsentType: domain.ConsentTypeGeneral,
		Timestamp:   at.Add(2 * time.Minute),
	}))

	count, err := store.CountConsentEvents(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	first, err := store.ListConsentEvents(ctx, domain.ConsentEventFilter{Email: email, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, domain.ConsentTypeGeneral, first[0].ConsentType)
	assert.Equal(t, domain.ConsentOutcomeAccepted, first[0].Outcome)
	assert.Equal(t, domain.ConsentTypeReaffirmation, first[1].ConsentType)

	last := first[len(first)-1]
	rest, err := store.ListConsentEvents(ctx, domain.ConsentEventFilter{
		Email:  email,
		Limit:  10,
		Cursor: &domain.ConsentEventCursor{ID: last.ID, Timestamp: last.Timestamp},
	})
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, domain.ConsentTypeReaffirmation, rest[0].ConsentType)
	assert.Equal(t, domain.ConsentTypeInitial, rest[1].ConsentType)
}

func newMockStore(t *testing.T) (domain.Store, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	return New(conn, node), mock
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	cause := errors.New("connection reset by peer")

	mock.ExpectQuery(`SELECT \* FROM "investors"`).WillReturnError(cause)
	_, err := store.FindInvestorByEmail(ctx, "asha@example.com")
	require.Error(t, err)

	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "find_investor", storeErr.Op)
	assert.ErrorIs(t, err, cause)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnError(cause)
	_, err = store.SummarizeInvestors(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsStoreError(err))

	mock.ExpectQuery(`SELECT \* FROM "payouts"`).WillReturnError(cause)
	_, err = store.ListPayoutsByEmail(ctx, "asha@example.com")
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "list_payouts", storeErr.Op)

	require.NoError(t, mock.ExpectationsWereMet())
}
