package news

import (
	"context"
	"testing"
	"time"

	"forex-trading-bot/internal/types"
)

func TestScoreText(t *testing.T) {
	a := NewAnalyzer()

	score := a.ScoreText("Euro rallies as dollar weakens on upbeat growth data")
	if score <= 0 {
		t.Errorf("Expected positive score, got %f", score)
	}

	score = a.ScoreText("Pound plunges to fresh losses amid recession fears")
	if score >= 0 {
		t.Errorf("Expected negative score, got %f", score)
	}

	score = a.ScoreText("Bank of Japan holds policy meeting on Thursday")
	if score != 0 {
		t.Errorf("Expected zero score for neutral text, got %f", score)
	}

	if a.ScoreText("short") != 0 {
		t.Error("Expected zero score for text below minimum length")
	}
}

func TestVolatilityScore(t *testing.T) {
	a := NewAnalyzer()

	score := a.VolatilityScore("Fed signals interest rate decision as inflation stays high")
	want := 0.3 // fed, interest rate, inflation
	if diff := score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected volatility %f, got %f", want, score)
	}

	if a.VolatilityScore("Quiet session in Asian trading") != 0 {
		t.Error("Expected zero volatility for calm text")
	}
}

func TestVolatilityScoreCapped(t *testing.T) {
	a := NewAnalyzer()

	text := "fed ecb boe boj rba boc interest rate inflation gdp employment trade war brexit election crisis recession"
	if score := a.VolatilityScore(text); score != 1.0 {
		t.Errorf("Expected volatility capped at 1.0, got %f", score)
	}
}

func TestExtractPairs(t *testing.T) {
	pairs := ExtractPairs("EUR/USD extends gains while usd_jpy consolidates near EUR/USD highs")

	if len(pairs) != 2 {
		t.Fatalf("Expected 2 pairs, got %d: %v", len(pairs), pairs)
	}
	if pairs[0] != "EUR_USD" || pairs[1] != "USD_JPY" {
		t.Errorf("Unexpected pairs: %v", pairs)
	}
}

func TestAggregateEmpty(t *testing.T) {
	a := NewAnalyzer()

	report := a.Aggregate(nil)
	if report.Sentiment != "neutral" {
		t.Errorf("Expected neutral sentiment with no articles, got %s", report.Sentiment)
	}
	if report.Score != 0 || report.Confidence != 0 {
		t.Errorf("Expected zero score and confidence, got %f / %f", report.Score, report.Confidence)
	}
	if report.ArticlesAnalyzed != 0 {
		t.Errorf("Expected 0 articles analyzed, got %d", report.ArticlesAnalyzed)
	}
}

func TestAggregateConfidenceSaturates(t *testing.T) {
	a := NewAnalyzer()

	articles := make([]Article, 12)
	for i := range articles {
		articles[i] = Article{Title: "EUR/USD rallies on upbeat eurozone growth surprise"}
	}

	report := a.Aggregate(articles)
	if report.Confidence != 1.0 {
		t.Errorf("Expected confidence 1.0 with 12 articles, got %f", report.Confidence)
	}
	if report.Sentiment != "positive" {
		t.Errorf("Expected positive sentiment, got %s", report.Sentiment)
	}
	if report.ArticlesAnalyzed != 12 {
		t.Errorf("Expected 12 articles analyzed, got %d", report.ArticlesAnalyzed)
	}
}

func TestAggregateFewArticles(t *testing.T) {
	a := NewAnalyzer()

	articles := []Article{
		{Title: "Sterling slumps as losses deepen on recession fears"},
		{Title: "Dollar declines after weak employment miss"},
	}

	report := a.Aggregate(articles)
	if report.Sentiment != "negative" {
		t.Errorf("Expected negative sentiment, got %s", report.Sentiment)
	}
	if report.Confidence != 0.2 {
		t.Errorf("Expected confidence 0.2 with 2 articles, got %f", report.Confidence)
	}
}

func TestServiceDisabled(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.Enabled = false

	svc := NewService(cfg)
	report, err := svc.AnalyzeNewsSentiment(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if report.Sentiment != "neutral" {
		t.Errorf("Expected neutral sentiment when disabled, got %s", report.Sentiment)
	}
}

func TestServiceCacheHit(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.CacheDuration = time.Hour

	svc := NewService(cfg)

	// Seed the cache directly so no scrape happens.
	seeded := types.SentimentReport{Sentiment: "positive", Score: 0.4, Timestamp: time.Now()}
	svc.mu.Lock()
	svc.cached = seeded
	svc.at = time.Now()
	svc.mu.Unlock()

	report, err := svc.AnalyzeNewsSentiment(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if report.Score != 0.4 {
		t.Errorf("Expected cached score 0.4, got %f", report.Score)
	}
}

func TestShouldAvoidTrading(t *testing.T) {
	svc := NewService(DefaultServiceConfig())

	cases := []struct {
		name   string
		report types.SentimentReport
		want   bool
	}{
		{"high volatility", types.SentimentReport{Sentiment: "positive", Score: 0.9, VolatilityScore: 0.8}, true},
		{"deeply negative", types.SentimentReport{Sentiment: "negative", Score: -0.4}, true},
		{"mildly negative", types.SentimentReport{Sentiment: "negative", Score: -0.2}, false},
		{"calm positive", types.SentimentReport{Sentiment: "positive", Score: 0.5, VolatilityScore: 0.3}, false},
		{"volatility at boundary", types.SentimentReport{Sentiment: "neutral", VolatilityScore: 0.7}, false},
	}

	for _, tc := range cases {
		if got := svc.ShouldAvoidTrading(tc.report); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestDedupe(t *testing.T) {
	articles := []Article{
		{Title: "Euro rallies on growth data"},
		{Title: "EURO RALLIES ON GROWTH DATA"},
		{Title: "Dollar slips ahead of payrolls"},
	}

	out := dedupe(articles)
	if len(out) != 2 {
		t.Errorf("Expected 2 unique articles, got %d", len(out))
	}
}
