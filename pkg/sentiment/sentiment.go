package sentiment

import (
	"math"
	"strings"
)

const (
	// normalizationAlpha approximates the maximum expected summed valence.
	normalizationAlpha = 15.0

	boosterIncrement = 0.293
	negationScalar   = -0.74
	lookBack         = 3
)

// Scorer turns one normalized text into a score in [-1, 1]
type Scorer interface {
	Score(text string) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(text string) float64

func (f ScorerFunc) Score(text string) float64 { return f(text) }

// LexiconScorer is the built-in compound scorer
type LexiconScorer struct {
	lexicon Lexicon
}

// NewLexiconScorer builds a scorer over lex, or the built-in lexicon when lex is empty.
func NewLexiconScorer(lex Lexicon) *LexiconScorer {
	if len(lex) == 0 {
		lex = DefaultLexicon()
	}
	return &LexiconScorer{lexicon: lex}
}

// Score returns the compound score of text. Text without any known word scores 0.
func (s *LexiconScorer) Score(text string) float64 {
	tokens := meaningful(strings.Fields(strings.ToLower(text)))
	if len(tokens) == 0 {
		return 0
	}

	valences := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, ok := s.lexicon[tok]
		if !ok || v == 0 {
			continue
		}
		for dist := 1; dist <= lookBack && i-dist >= 0; dist++ {
			prev := tokens[i-dist]
			if boost, ok := boosters[prev]; ok {
				v += scaledBoost(v, boost, dist)
			}
		}
		for dist := 1; dist <= lookBack && i-dist >= 0; dist++ {
			if _, ok := negations[tokens[i-dist]]; ok {
				v *= negationScalar
				break
			}
		}
		valences[i] = v
	}

	applyContrast(tokens, valences)

	sum := 0.0
	for _, v := range valences {
		sum += v
	}
	return compound(sum)
}

// scaledBoost shrinks a booster's effect with its distance from the word.
func scaledBoost(valence, boost float64, dist int) float64 {
	scale := 1.0
	switch dist {
	case 2:
		scale = 0.95
	case 3:
		scale = 0.9
	}
	if valence < 0 {
		boost = -boost
	}
	return boost * scale
}

// applyContrast halves everything before the first "but" and weights what follows by 1.5.
func applyContrast(tokens []string, valences []float64) {
	idx := -1
	for i, tok := range tokens {
		if tok == "but" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	for i := range valences {
		switch {
		case i < idx:
			valences[i] *= 0.5
		case i > idx:
			valences[i] *= 1.5
		}
	}
}

func compound(sum float64) float64 {
	if sum == 0 {
		return 0
	}
	score := sum / math.Sqrt(sum*sum+normalizationAlpha)
	return math.Max(-1, math.Min(1, score))
}

func meaningful(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// ScoreIntervals scores every text, keeping the interval grouping.
func ScoreIntervals(s Scorer, texts [][]string) [][]float64 {
	out := make([][]float64, len(texts))
	for i, interval := range texts {
		out[i] = make([]float64, len(interval))
		for j, text := range interval {
			out[i][j] = s.Score(text)
		}
	}
	return out
}

// Mean is the arithmetic mean of xs, or 0 when xs is empty.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Averages returns the mean score of each interval. Empty intervals average to 0.
func Averages(scores [][]float64) []float64 {
	out := make([]float64, len(scores))
	for i, interval := range scores {
		out[i] = Mean(interval)
	}
	return out
}
