package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/investorhub/internal/clock"
	"github.com/smallbiznis/investorhub/internal/config"
	investordomain "github.com/smallbiznis/investorhub/internal/investor/domain"
	investorservice "github.com/smallbiznis/investorhub/internal/investor/service"
	"github.com/smallbiznis/investorhub/internal/lock"
	"github.com/smallbiznis/investorhub/internal/migration"
	obsmetrics "github.com/smallbiznis/investorhub/internal/observability/metrics"
	recorddomain "github.com/smallbiznis/investorhub/internal/recordstore/domain"
	"github.com/smallbiznis/investorhub/internal/recordstore/repository"
	"github.com/smallbiznis/investorhub/internal/statement"
	"github.com/smallbiznis/investorhub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	store  recorddomain.Store
}

func newTestServer(t *testing.T, strict bool, svc investordomain.Service) testServer {
	t.Helper()

	var store recorddomain.Store
	fake := clock.NewFakeClock(time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC))
	cfg := config.Config{AppName: "investorhub", HTTPStrictStatus: strict, StoreTimeout: 2 * time.Second, PlaceholderEnabled: true}

	if svc == nil {
		conn := db.NewTest(t)
		require.NoError(t, migration.AutoMigrate(conn))
		node, err := snowflake.NewNode(1)
		require.NoError(t, err)
		store = repository.New(conn, node)

		svc = investorservice.New(investorservice.Params{
			Store:   store,
			Locker:  lock.NewLocalLocker(),
			Clock:   fake,
			Config:  cfg,
			Content: config.NewStaticContentHolder(config.DefaultContent()),
			Log:     zap.NewNop(),
		})
	}

	httpMetrics, err := obsmetrics.NewHTTPMetricsWith(prometheus.NewRegistry())
	require.NoError(t, err)

	engine := NewEngine(EngineConfig{StrictStatus: strict}, httpMetrics)
	NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		Clock:       fake,
		InvestorSvc: svc,
		Statements:  statement.NewRenderer(),
	})

	return testServer{engine: engine, store: store}
}

func (s testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestPreflightReturnsEmptyBodyWithCORS(t *testing.T) {
	srv := newTestServer(t, false, nil)

	for _, path := range []string{"/", "/exec", "/api/investors/consent"} {
		rec, _ := srv.do(t, httptest.NewRequest(http.MethodOptions, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Body.String(), path)
		assertCORS(t, rec)
	}
}

func TestOverviewWithoutParams(t *testing.T) {
	srv := newTestServer(t, false, nil)

	rec, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/exec", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
	assert.Equal(t, true, body["success"])

	overview, ok := body["overview"].(map[string]any)
	require.True(t, ok, "overview missing: %v", body)
	assert.EqualValues(t, 0, overview["totalInvestors"])
	assert.EqualValues(t, 12.5, overview["avgReturns"])
	assert.NotEmpty(t, body["hotDeals"])
	assert.NotEmpty(t, body["faqs"])

	_, alias := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/overview", nil))
	assert.Equal(t, body, alias)
}

func TestSubmitConsentThenLookup(t *testing.T) {
	srv := newTestServer(t, false, nil)
	form := url.Values{
		"name":    {"Asha Rao"},
		"email":   {"asha@example.com"},
		"phone":   {"9999900000"},
		"consent": {"true"},
	}

	rec, body := srv.do(t, formRequest("/exec", form))
	require.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["created"])
	assert.Equal(t, false, body["exists"])
	assert.Equal(t, "New investor added", body["message"])
	investor, ok := body["investor"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "asha@example.com", investor["email"])
	assert.EqualValues(t, 0, investor["totalInvestment"])

	_, body = srv.do(t, jsonRequest("/api/investors/consent", `{"name":"Asha Rao","email":"asha@example.com","phone":9999900000,"consent":true}`))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["created"])
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, "Investor already exists", body["message"])

	rec, body = srv.do(t, httptest.NewRequest(http.MethodGet, "/exec?email=asha%40example.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, "Asha Rao", body["name"])
	assert.Equal(t, "REAFFIRMED", body["consent"])
	assert.Equal(t, true, body["isPlaceholder"])
	for _, key := range []string{"investments", "agreements", "payouts", "upcomingPayouts", "investmentHistory", "payoutHistory", "tenureDistribution", "portfolioGrowth", "portfolioAllocation"} {
		assert.Contains(t, body, key)
	}

	count, err := srv.store.CountConsentEvents(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestInvestorLookupListsPayouts(t *testing.T) {
	srv := newTestServer(t, false, nil)
	ctx := context.Background()

	require.NoError(t, srv.store.AppendInvestor(ctx, &recorddomain.InvestorRecord{
		Email:         "p@example.com",
		Name:          "Priya",
		Phone:         "9000000000",
		ConsentStatus: recorddomain.ConsentStatusGiven,
		AccountStatus: recorddomain.AccountStatusActive,
		MemberSince:   time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, srv.store.AppendPayout(ctx, &recorddomain.PayoutRecord{
		InvestorEmail: "p@example.com",
		Date:          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.NewFromInt(5000),
		InvestmentRef: "Office Park",
		Status:        recorddomain.PayoutStatusPaid,
	}))

	_, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/?email=p%40example.com", nil))
	require.Equal(t, true, body["success"])

	payouts, ok := body["payouts"].([]any)
	require.True(t, ok, "payouts should be a list: %v", body["payouts"])
	require.Len(t, payouts, 1)
	payout := payouts[0].(map[string]any)
	assert.EqualValues(t, 5000, payout["amount"])
	assert.Equal(t, "Office Park", payout["investment"])
	assert.Equal(t, "PAID", payout["status"])
	assert.Empty(t, body["upcomingPayouts"])

	_, body = srv.do(t, jsonRequest("/", `{"name":"Nil","email":"nil@example.com","phone":"1"}`))
	require.Equal(t, true, body["created"])
	_, body = srv.do(t, httptest.NewRequest(http.MethodGet, "/?email=nil%40example.com", nil))
	assert.Equal(t, []any{}, body["payouts"])
}

func TestPlainTextJSONBodyIsAccepted(t *testing.T) {
	srv := newTestServer(t, false, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ravi","email":"ravi@example.com","phone":"9888800000"}`))
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	_, body := srv.do(t, req)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["created"])
}

func TestMissingFieldUsesEnvelope(t *testing.T) {
	srv := newTestServer(t, false, nil)

	rec, body := srv.do(t, formRequest("/exec", url.Values{"name": {"Asha"}, "phone": {"1"}}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Missing required field: email", body["message"])
	assert.Equal(t, "email", body["field"])
}

func TestDeclinedConsentIsRejected(t *testing.T) {
	srv := newTestServer(t, false, nil)

	_, body := srv.do(t, formRequest("/exec", url.Values{
		"name": {"Asha"}, "email": {"asha@example.com"}, "phone": {"1"}, "consent": {"false"},
	}))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "consent", body["field"])

	record, err := srv.store.FindInvestorByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestUnknownInvestor(t *testing.T) {
	for _, strict := range []bool{false, true} {
		srv := newTestServer(t, strict, nil)

		rec, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/investors?email=missing%40example.com", nil))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Investor not found", body["message"])
		if strict {
			assert.Equal(t, http.StatusNotFound, rec.Code)
		} else {
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	}
}

func TestRecordConsentOnly(t *testing.T) {
	srv := newTestServer(t, false, nil)
	form := url.Values{
		"action":      {"recordConsent"},
		"name":        {"Asha Rao"},
		"email":       {"asha@example.com"},
		"phone":       {"9999900000"},
		"consentType": {"general"},
	}

	_, body := srv.do(t, formRequest("/exec", form))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Consent recorded", body["message"])

	_, body = srv.do(t, jsonRequest("/api/consents", `{"name":"Asha Rao","email":"asha@example.com","phone":"9999900000"}`))
	assert.Equal(t, true, body["success"])

	count, err := srv.store.CountConsentEvents(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	record, err := srv.store.FindInvestorByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Nil(t, record)

	form.Set("consentType", "someday")
	_, body = srv.do(t, formRequest("/exec", form))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid consent type", body["message"])
}

func TestConsentHistory(t *testing.T) {
	srv := newTestServer(t, false, nil)
	for i := 0; i < 3; i++ {
		_, body := srv.do(t, formRequest("/exec", url.Values{
			"action": {"recordConsent"}, "name": {"A"}, "email": {"a@example.com"}, "phone": {"1"},
		}))
		require.Equal(t, true, body["success"])
	}

	_, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/investors/consents?email=a%40example.com&page_size=2", nil))
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["events"], 2)
	assert.Equal(t, true, body["hasMore"])
	token, _ := body["nextPageToken"].(string)
	require.NotEmpty(t, token)

	_, body = srv.do(t, httptest.NewRequest(http.MethodGet, "/exec?action=consentHistory&email=a%40example.com&page_size=2&page_token="+url.QueryEscape(token), nil))
	assert.Len(t, body["events"], 1)
	assert.Equal(t, false, body["hasMore"])
}

func TestStatementDownload(t *testing.T) {
	srv := newTestServer(t, false, nil)
	_, body := srv.do(t, formRequest("/exec", url.Values{"name": {"Asha"}, "email": {"asha@example.com"}, "phone": {"1"}}))
	require.Equal(t, true, body["success"])

	rec, _ := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/investors/statement?email=asha%40example.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, statement.ContentType, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	assertCORS(t, rec)
}

type failingService struct {
	investordomain.Service
}

func (failingService) GetOverview(context.Context) (investordomain.Overview, error) {
	return investordomain.Overview{}, investordomain.NewServiceError("get_overview",
		recorddomain.NewStoreError("summarize_investors", errors.New("dial tcp 10.0.0.5:5432: connection refused")))
}

func (failingService) GetInvestorProfile(context.Context, investordomain.GetInvestorProfileRequest) (investordomain.InvestorProfile, error) {
	panic("boom")
}

func TestStoreFailureDoesNotLeakDetails(t *testing.T) {
	for _, strict := range []bool{false, true} {
		srv := newTestServer(t, strict, failingService{})

		rec, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Server error, please try again later", body["message"])
		assert.NotContains(t, rec.Body.String(), "10.0.0.5")
		if strict {
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
		} else {
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	}
}

func TestPanicIsRenderedAsEnvelope(t *testing.T) {
	srv := newTestServer(t, false, failingService{})

	rec, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/exec?email=a%40example.com", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Server error, please try again later", body["message"])
}

func TestUnknownActionAndRoute(t *testing.T) {
	srv := newTestServer(t, false, nil)

	_, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/exec?action=launchRockets", nil))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Unknown action", body["message"])

	rec, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assertCORS(t, rec)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false, nil)

	rec, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}
