package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	investordomain "github.com/smallbiznis/investorhub/internal/investor/domain"
	recorddomain "github.com/smallbiznis/investorhub/internal/recordstore/domain"
	"github.com/smallbiznis/investorhub/internal/statement"
	"github.com/smallbiznis/investorhub/pkg/db/pagination"
)

const (
	actionOverview       = "overview"
	actionGetInvestor    = "getInvestor"
	actionSubmitConsent  = "submitConsent"
	actionRecordConsent  = "recordConsent"
	actionConsentHistory = "consentHistory"
	actionStatement      = "statement"
)

type overviewResponse struct {
	Success bool `json:"success"`
	investordomain.Overview
}

type investorResponse struct {
	Success bool `json:"success"`
	Exists  bool `json:"exists"`
	investordomain.InvestorProfile
}

type submitConsentResponse struct {
	Success  bool                         `json:"success"`
	Message  string                       `json:"message"`
	Exists   bool                         `json:"exists"`
	Created  bool                         `json:"created"`
	Investor *recorddomain.InvestorRecord `json:"investor,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type consentHistoryResponse struct {
	Success bool `json:"success"`
	investordomain.ListConsentHistoryResponse
}

// HandleExecGet serves the single-endpoint GET contract: an email selects the
// investor dashboard, otherwise the public overview.
func (s *Server) HandleExecGet(c *gin.Context) {
	action := strings.TrimSpace(c.Query("action"))
	email := strings.TrimSpace(c.Query("email"))

	switch {
	case action == actionConsentHistory:
		c.Set("action", actionConsentHistory)
		s.ListConsentHistory(c)
	case action == actionGetInvestor || (action == "" && email != ""):
		c.Set("action", actionGetInvestor)
		s.GetInvestor(c)
	case action == "" || action == actionOverview:
		c.Set("action", actionOverview)
		s.GetOverview(c)
	default:
		AbortWithError(c, ErrUnknownAction)
	}
}

// HandleExecPost serves the single-endpoint POST contract: action=recordConsent
// logs consent only, anything else is a consent submission.
func (s *Server) HandleExecPost(c *gin.Context) {
	params, err := bindConsentParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	switch params.Action {
	case actionRecordConsent:
		c.Set("action", actionRecordConsent)
		s.recordConsent(c, params)
	case "", actionSubmitConsent:
		c.Set("action", actionSubmitConsent)
		s.submitConsent(c, params)
	default:
		AbortWithError(c, ErrUnknownAction)
	}
}

func (s *Server) GetOverview(c *gin.Context) {
	overview, err := s.investorSvc.GetOverview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, overviewResponse{Success: true, Overview: overview})
}

func (s *Server) GetInvestor(c *gin.Context) {
	profile, err := s.investorSvc.GetInvestorProfile(c.Request.Context(), investordomain.GetInvestorProfileRequest{
		Email: c.Query("email"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, investorResponse{Success: true, Exists: true, InvestorProfile: profile})
}

func (s *Server) SubmitConsent(c *gin.Context) {
	params, err := bindConsentParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.submitConsent(c, params)
}

func (s *Server) RecordConsent(c *gin.Context) {
	params, err := bindConsentParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordConsent(c, params)
}

func (s *Server) submitConsent(c *gin.Context, params consentParams) {
	if consentDeclined(string(params.Consent)) {
		AbortWithError(c, ErrConsentDeclined)
		return
	}

	res, err := s.investorSvc.SubmitConsent(c.Request.Context(), investordomain.SubmitConsentRequest{
		Name:        params.Name,
		Email:       params.Email,
		Phone:       string(params.Phone),
		ConsentType: params.ConsentType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	message := "Investor already exists"
	if res.Created {
		message = "New investor added"
	}
	record := res.Record
	c.JSON(http.StatusOK, submitConsentResponse{
		Success:  true,
		Message:  message,
		Exists:   !res.Created,
		Created:  res.Created,
		Investor: &record,
	})
}

func (s *Server) recordConsent(c *gin.Context, params consentParams) {
	err := s.investorSvc.RecordConsentOnly(c.Request.Context(), investordomain.RecordConsentRequest{
		Name:        params.Name,
		Email:       params.Email,
		Phone:       string(params.Phone),
		ConsentType: params.ConsentType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Consent recorded"})
}

func (s *Server) ListConsentHistory(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Email string `form:"email"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.investorSvc.ListConsentHistory(c.Request.Context(), investordomain.ListConsentHistoryRequest{
		Email:     query.Email,
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, consentHistoryResponse{Success: true, ListConsentHistoryResponse: resp})
}

func (s *Server) DownloadStatement(c *gin.Context) {
	ctx := c.Request.Context()

	profile, err := s.investorSvc.GetInvestorProfile(ctx, investordomain.GetInvestorProfileRequest{
		Email: c.Query("email"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.statements.Render(ctx, statement.Input{
		Issuer:      s.cfg.AppName,
		Profile:     profile,
		GeneratedAt: s.clock.Now(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="portfolio-statement.pdf"`)
	c.Data(http.StatusOK, statement.ContentType, doc)
}
