package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
)

// VaderScorer scores text with the VADER compound score
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer loads the VADER lexicon bundled with govader.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score drops stopwords from text and returns its compound score. Text with
// nothing left scores 0.
func (s *VaderScorer) Score(text string) float64 {
	tokens := meaningful(strings.Fields(strings.ToLower(text)))
	if len(tokens) == 0 {
		return 0
	}
	return s.analyzer.PolarityScores(strings.Join(tokens, " ")).Compound
}
