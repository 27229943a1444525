package news

import (
	"context"
	"sync"
	"time"

	"forex-trading-bot/internal/interfaces"
	"forex-trading-bot/internal/logger"
	"forex-trading-bot/internal/trace"
	"forex-trading-bot/internal/types"
)

// Service provides market-wide news sentiment with caching. The forex news
// feed is not instrument-specific, so one report serves every pair.
type Service struct {
	scraper  *Scraper
	analyzer *Analyzer
	cfg      ServiceConfig
	now      func() time.Time

	mu     sync.RWMutex
	cached types.SentimentReport
	at     time.Time
}

// Compile-time interface check
var _ interfaces.Sentiment = (*Service)(nil)

// ServiceConfig configures the sentiment service.
type ServiceConfig struct {
	Sources        []string
	MaxArticles    int
	CacheDuration  time.Duration
	ScraperTimeout time.Duration
	Enabled        bool
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Sources: []string{
			"https://www.fxstreet.com/news",
			"https://www.dailyfx.com/news",
			"https://www.forexlive.com",
		},
		MaxArticles:    10,
		CacheDuration:  10 * time.Minute,
		ScraperTimeout: 10 * time.Second,
		Enabled:        true,
	}
}

// NewService creates a news sentiment service.
func NewService(cfg ServiceConfig) *Service {
	perSource := cfg.MaxArticles
	if len(cfg.Sources) > 0 {
		perSource = cfg.MaxArticles / len(cfg.Sources)
	}
	return &Service{
		scraper:  NewScraper(cfg.Sources, cfg.ScraperTimeout, perSource),
		analyzer: NewAnalyzer(),
		cfg:      cfg,
		now:      time.Now,
	}
}

// AnalyzeNewsSentiment returns the current aggregate sentiment, served from
// cache while fresh. A failed scrape degrades to a neutral report rather
// than failing the caller.
func (s *Service) AnalyzeNewsSentiment(ctx context.Context) (types.SentimentReport, error) {
	if !s.cfg.Enabled {
		return types.SentimentReport{Sentiment: "neutral", Timestamp: s.now()}, nil
	}

	s.mu.RLock()
	cached, at := s.cached, s.at
	s.mu.RUnlock()

	if !at.IsZero() && s.now().Sub(at) < s.cfg.CacheDuration {
		logger.Debug(ctx, "Using cached sentiment",
			"age_minutes", s.now().Sub(at).Minutes(),
			"score", cached.Score,
		)
		return cached, nil
	}

	return s.Refresh(ctx)
}

// Refresh scrapes and scores fresh articles, bypassing the cache.
func (s *Service) Refresh(ctx context.Context) (types.SentimentReport, error) {
	ctx, span := trace.StartSpan(ctx, "news.Refresh")
	defer span.End()

	logger.Info(ctx, "Refreshing news sentiment", "sources", len(s.cfg.Sources))

	articles, errs := s.scraper.Scrape()
	for _, err := range errs {
		logger.Warn(ctx, "News source failed", "error", err)
	}
	if len(articles) > s.cfg.MaxArticles {
		articles = articles[:s.cfg.MaxArticles]
	}

	report := s.analyzer.Aggregate(articles)

	s.mu.Lock()
	s.cached = report
	s.at = s.now()
	s.mu.Unlock()

	logger.Info(ctx, "News sentiment refreshed",
		"sentiment", report.Sentiment,
		"score", report.Score,
		"volatility", report.VolatilityScore,
		"articles", report.ArticlesAnalyzed,
	)
	return report, nil
}

// ShouldAvoidTrading reports whether the sentiment reading is hostile
// enough to block new trades: elevated volatility keywords, or firmly
// negative sentiment.
func (s *Service) ShouldAvoidTrading(report types.SentimentReport) bool {
	if report.VolatilityScore > 0.7 {
		return true
	}
	if report.Sentiment == "negative" && report.Score < -0.3 {
		return true
	}
	return false
}
