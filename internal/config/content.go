package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gosimple/slug"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Content is the marketing and illustrative copy served next to live data.
type Content struct {
	AverageReturn float64            `mapstructure:"average_return"`
	HotDeals      []HotDeal          `mapstructure:"hot_deals"`
	FAQs          []FAQ              `mapstructure:"faqs"`
	Placeholder   PlaceholderContent `mapstructure:"placeholder"`
}

type HotDeal struct {
	ID             string  `mapstructure:"id" json:"id"`
	Title          string  `mapstructure:"title" json:"title"`
	Category       string  `mapstructure:"category" json:"category"`
	Description    string  `mapstructure:"description" json:"description"`
	ExpectedReturn float64 `mapstructure:"expected_return" json:"expectedReturn"`
	TenureMonths   int     `mapstructure:"tenure_months" json:"tenureMonths"`
	MinInvestment  float64 `mapstructure:"min_investment" json:"minInvestment"`
}

type FAQ struct {
	Question string `mapstructure:"question" json:"question"`
	Answer   string `mapstructure:"answer" json:"answer"`
}

// PlaceholderContent describes the single illustrative rows shown to investors
// without real holdings.
type PlaceholderContent struct {
	Investment PlaceholderInvestment `mapstructure:"investment"`
	Agreement  PlaceholderAgreement  `mapstructure:"agreement"`
}

type PlaceholderInvestment struct {
	FundName     string  `mapstructure:"fund_name"`
	FundType     string  `mapstructure:"fund_type"`
	Amount       float64 `mapstructure:"amount"`
	Returns      float64 `mapstructure:"returns"`
	TenureMonths int     `mapstructure:"tenure_months"`
}

type PlaceholderAgreement struct {
	Type   string  `mapstructure:"type"`
	Amount float64 `mapstructure:"amount"`
}

func DefaultContent() Content {
	return Content{
		AverageReturn: 12.5,
		HotDeals: []HotDeal{
			{
				Title:          "Commercial Real Estate Fund",
				Category:       "Commercial Real Estate",
				Description:    "Grade-A office leases with quarterly rental payouts.",
				ExpectedReturn: 14,
				TenureMonths:   24,
				MinInvestment:  500000,
			},
			{
				Title:          "Fixed Income Notes",
				Category:       "Fixed Income",
				Description:    "Secured notes with monthly interest payouts.",
				ExpectedReturn: 11,
				TenureMonths:   12,
				MinInvestment:  100000,
			},
			{
				Title:          "Tech Startup Growth Pool",
				Category:       "Tech Startup",
				Description:    "Diversified pool of revenue-stage technology companies.",
				ExpectedReturn: 18,
				TenureMonths:   36,
				MinInvestment:  250000,
			},
		},
		FAQs: []FAQ{
			{Question: "How do I start investing?", Answer: "Submit your details and accept the consent terms; our team will reach out with the onboarding documents."},
			{Question: "When are payouts made?", Answer: "Payouts follow the schedule in your agreement, usually monthly or quarterly."},
			{Question: "Where can I see my agreements?", Answer: "Signed agreements are listed in your dashboard with a link to the document."},
		},
		Placeholder: PlaceholderContent{
			Investment: PlaceholderInvestment{
				FundName:     "Sample Fixed Income Plan",
				FundType:     "Fixed Income",
				Amount:       500000,
				Returns:      20000,
				TenureMonths: 12,
			},
			Agreement: PlaceholderAgreement{
				Type:   "Sample Investment Agreement",
				Amount: 500000,
			},
		},
	}
}

// ContentHolder serves the latest valid Content and reloads it when the file changes.
type ContentHolder struct {
	current atomic.Value // holds Content
}

func NewContentHolder(cfg Config, log *zap.Logger) (*ContentHolder, error) {
	v := viper.New()

	if cfg.ContentPath != "" {
		v.SetConfigFile(cfg.ContentPath)
	} else {
		v.SetConfigName("content")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/investorhub")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("INVESTORHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &ContentHolder{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		holder.current.Store(normalizeContent(DefaultContent()))
		log.Info("content file not found, using defaults")
		return holder, nil
	}

	content, err := decodeContent(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(content)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeContent(v)
		if err != nil {
			log.Warn("content reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("content reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticContentHolder returns a holder that never reloads.
func NewStaticContentHolder(content Content) *ContentHolder {
	holder := &ContentHolder{}
	holder.current.Store(normalizeContent(content))
	return holder
}

func (h *ContentHolder) Get() Content {
	return h.current.Load().(Content)
}

func decodeContent(v *viper.Viper) (Content, error) {
	var content Content
	if err := v.UnmarshalKey("content", &content); err != nil {
		return Content{}, err
	}
	content = withDefaults(content, v.IsSet("content.average_return"))
	if err := validateContent(content); err != nil {
		return Content{}, err
	}
	return normalizeContent(content), nil
}

func validateContent(c Content) error {
	if c.AverageReturn < 0 {
		return errors.New("content.average_return cannot be negative")
	}
	for _, deal := range c.HotDeals {
		if strings.TrimSpace(deal.Title) == "" {
			return errors.New("content.hot_deals[].title is required")
		}
	}
	for _, faq := range c.FAQs {
		if strings.TrimSpace(faq.Question) == "" {
			return errors.New("content.faqs[].question is required")
		}
	}
	return nil
}

func withDefaults(c Content, averageReturnSet bool) Content {
	defaults := DefaultContent()
	if !averageReturnSet {
		c.AverageReturn = defaults.AverageReturn
	}
	if len(c.HotDeals) == 0 {
		c.HotDeals = defaults.HotDeals
	}
	if len(c.FAQs) == 0 {
		c.FAQs = defaults.FAQs
	}
	if strings.TrimSpace(c.Placeholder.Investment.FundName) == "" {
		c.Placeholder.Investment = defaults.Placeholder.Investment
	}
	if strings.TrimSpace(c.Placeholder.Agreement.Type) == "" {
		c.Placeholder.Agreement = defaults.Placeholder.Agreement
	}
	return c
}

func normalizeContent(c Content) Content {
	deals := make([]HotDeal, 0, len(c.HotDeals))
	for _, deal := range c.HotDeals {
		if strings.TrimSpace(deal.ID) == "" {
			deal.ID = slug.Make(deal.Title)
		}
		deals = append(deals, deal)
	}
	c.HotDeals = deals
	return c
}
