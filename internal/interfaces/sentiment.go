package interfaces

import (
	"context"

	"forex-trading-bot/internal/types"
)

// Sentiment is the news-sentiment collaborator.
type Sentiment interface {
	// AnalyzeNewsSentiment returns the current aggregate market sentiment,
	// served from cache when fresh enough.
	AnalyzeNewsSentiment(ctx context.Context) (types.SentimentReport, error)
	// Refresh forces a fresh scrape-and-score pass, bypassing the cache.
	Refresh(ctx context.Context) (types.SentimentReport, error)
	// ShouldAvoidTrading reports whether the given sentiment reading is
	// hostile enough that no new trades should be opened.
	ShouldAvoidTrading(report types.SentimentReport) bool
}
