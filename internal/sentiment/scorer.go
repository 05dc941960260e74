package sentiment

import (
	"context"
	"strings"

	"coinlens/internal/domain"
)

// Keyword lists for the heuristic scorer. Hits shift the score away from
// neutral by a fixed increment per excess hit.
var (
	positiveKeywords = []string{
		"bullish", "surge", "rise", "gain", "success", "growth",
		"rally", "breakout", "adoption", "recover", "soar",
	}
	negativeKeywords = []string{
		"bearish", "drop", "fall", "crash", "loss", "decline",
		"dump", "hack", "lawsuit", "ban", "liquidation", "plunge",
	}
)

const scoreIncrement = 0.1

// Score rates text with the keyword-count heuristic: 0.5 neutral base,
// shifted per excess positive/negative hit, clamped to [0.1, 0.9].
func Score(text string) domain.Sentiment {
	text = strings.ToLower(text)
	pos := countMatches(text, positiveKeywords)
	neg := countMatches(text, negativeKeywords)

	score := clamp(0.5+scoreIncrement*float64(pos-neg), 0.1, 0.9)
	return domain.Sentiment{Score: score, Label: Label(score)}
}

// Label maps a score in [0,1] to the five-step label scale.
func Label(score float64) string {
	switch {
	case score > 0.65:
		return "Very Positive"
	case score > 0.55:
		return "Positive"
	case score > 0.45:
		return "Neutral"
	case score > 0.35:
		return "Negative"
	default:
		return "Very Negative"
	}
}

// CoarseLabel collapses the scale to three labels at 0.6/0.4.
func CoarseLabel(score float64) string {
	switch {
	case score > 0.6:
		return "Positive"
	case score < 0.4:
		return "Negative"
	default:
		return "Neutral"
	}
}

// Analyzer produces compound scores in [-1,1] for a batch of texts, one per
// input. Implementations may fail wholesale; callers keep heuristic scores.
type Analyzer interface {
	Analyze(ctx context.Context, texts []string) ([]float64, error)
}

// Scorer scores article text. The keyword heuristic is always computed;
// when an Analyzer is configured its compound scores (rescaled to [0,1])
// replace the heuristic ones.
type Scorer struct {
	analyzer Analyzer
}

func NewScorer(analyzer Analyzer) *Scorer {
	return &Scorer{analyzer: analyzer}
}

func (s *Scorer) ScoreAll(ctx context.Context, texts []string) []domain.Sentiment {
	out := make([]domain.Sentiment, len(texts))
	for i, text := range texts {
		out[i] = Score(text)
	}

	if s.analyzer != nil && len(texts) > 0 {
		compounds, err := s.analyzer.Analyze(ctx, texts)
		if err == nil && len(compounds) == len(texts) {
			for i, c := range compounds {
				score := clamp((c+1)/2, 0, 1)
				out[i] = domain.Sentiment{Score: score, Label: Label(score)}
			}
		}
	}
	return out
}

func countMatches(text string, tokens []string) int {
	count := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			count++
		}
	}
	return count
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
