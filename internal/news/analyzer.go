package news

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"forex-trading-bot/internal/types"
)

// Analyzer scores scraped headlines with a finance-tuned lexicon. Each
// article gets a score in [-1, 1]; the aggregate report averages article
// scores and counts volatility keywords.
type Analyzer struct {
	now func() time.Time
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{now: time.Now}
}

var positiveWords = []string{
	"gain", "gains", "rally", "rallies", "surge", "surges", "rise", "rises",
	"strengthen", "strengthens", "bullish", "optimism", "optimistic",
	"recovery", "rebound", "upbeat", "growth", "boost", "boosts",
	"outperform", "soar", "soars", "advance", "advances", "upside",
}

var negativeWords = []string{
	"loss", "losses", "fall", "falls", "drop", "drops", "plunge", "plunges",
	"weaken", "weakens", "bearish", "pessimism", "fears", "fear",
	"slump", "slumps", "decline", "declines", "downturn", "sell-off",
	"selloff", "tumble", "tumbles", "slide", "slides", "downside", "miss",
}

var volatilityKeywords = []string{
	"fed", "ecb", "boe", "boj", "rba", "boc",
	"interest rate", "inflation", "gdp", "employment",
	"trade war", "brexit", "election", "crisis", "recession",
}

var pairPattern = regexp.MustCompile(`[A-Z]{3}[/_][A-Z]{3}`)

// ScoreText returns the lexicon sentiment score for one piece of text,
// in [-1, 1]. Texts too short to score return 0.
func (a *Analyzer) ScoreText(text string) float64 {
	if len(text) < 10 {
		return 0
	}
	words := strings.Fields(strings.ToLower(text))

	pos, neg := 0, 0
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"()")
		if containsWord(positiveWords, w) {
			pos++
		} else if containsWord(negativeWords, w) {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

// VolatilityScore counts volatility-inducing keywords, 0.1 per distinct
// keyword, capped at 1.0.
func (a *Analyzer) VolatilityScore(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, kw := range volatilityKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ExtractPairs pulls currency pair mentions like EUR/USD or EUR_USD.
func ExtractPairs(text string) []string {
	matches := pairPattern.FindAllString(strings.ToUpper(text), -1)
	seen := map[string]bool{}
	pairs := []string{}
	for _, m := range matches {
		norm := strings.ReplaceAll(m, "/", "_")
		if !seen[norm] {
			seen[norm] = true
			pairs = append(pairs, norm)
		}
	}
	sort.Strings(pairs)
	return pairs
}

// Aggregate combines per-article scores into one market-wide report.
// Confidence grows with article count, saturating at ten articles.
func (a *Analyzer) Aggregate(articles []Article) types.SentimentReport {
	if len(articles) == 0 {
		return types.SentimentReport{
			Sentiment: "neutral",
			Timestamp: a.now(),
		}
	}

	totalScore := 0.0
	totalVol := 0.0
	pairSet := map[string]bool{}

	for _, art := range articles {
		text := art.Title + " " + art.Content
		totalScore += a.ScoreText(text)
		totalVol += a.VolatilityScore(text)
		for _, p := range ExtractPairs(text) {
			pairSet[p] = true
		}
	}

	n := float64(len(articles))
	avgScore := totalScore / n
	avgVol := totalVol / n

	sentiment := "neutral"
	if avgScore > 0.1 {
		sentiment = "positive"
	} else if avgScore < -0.1 {
		sentiment = "negative"
	}

	confidence := n / 10.0
	if confidence > 1.0 {
		confidence = 1.0
	}

	pairs := make([]string, 0, len(pairSet))
	for p := range pairSet {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)

	return types.SentimentReport{
		Sentiment:        sentiment,
		Score:            avgScore,
		Confidence:       confidence,
		VolatilityScore:  avgVol,
		ArticlesAnalyzed: len(articles),
		PairsMentioned:   pairs,
		Timestamp:        a.now(),
	}
}

func containsWord(list []string, w string) bool {
	for _, v := range list {
		if v == w {
			return true
		}
	}
	return false
}
