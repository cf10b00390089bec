package sentiment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "twitsent/pkg/errors"
)

func TestLexiconScorer(t *testing.T) {
	s := NewLexiconScorer(nil)

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"single positive word", "good", 0.4404},
		{"negated", "not good", -0.3412},
		{"stopwords ignored", "the good", 0.4404},
		{"negation across stopword", "not the good", -0.3412},
		{"unknown words", "lockdown vaccine pandemic", 0},
		{"empty", "", 0},
		{"only stopwords", "the of and", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Score(tt.text), 1e-3)
		})
	}
}

func TestBoostersStrengthen(t *testing.T) {
	s := NewLexiconScorer(nil)

	assert.Greater(t, s.Score("very good"), s.Score("good"))
	assert.Less(t, s.Score("very bad"), s.Score("bad"))
	assert.Less(t, s.Score("barely good"), s.Score("good"))
}

func TestContrastWeighsLaterClause(t *testing.T) {
	s := NewLexiconScorer(nil)

	assert.Less(t, s.Score("good but bad"), 0.0)
	assert.Greater(t, s.Score("bad but good"), 0.0)
}

func TestScoreIsBounded(t *testing.T) {
	s := NewLexiconScorer(nil)

	pos := s.Score(strings.Repeat("love ", 20))
	neg := s.Score(strings.Repeat("tragedy ", 20))
	assert.LessOrEqual(t, pos, 1.0)
	assert.Greater(t, pos, 0.9)
	assert.GreaterOrEqual(t, neg, -1.0)
	assert.Less(t, neg, -0.9)
}

func TestCustomLexicon(t *testing.T) {
	s := NewLexiconScorer(Lexicon{"vaccine": 2.0})

	assert.Greater(t, s.Score("vaccine"), 0.0)
	assert.Zero(t, s.Score("good"))
}

func TestAverages(t *testing.T) {
	got := Averages([][]float64{{0.5, -0.5, 1}, {}, {0.2}})

	require.Len(t, got, 3)
	assert.InDelta(t, 1.0/3.0, got[0], 1e-9)
	assert.Zero(t, got[1])
	assert.InDelta(t, 0.2, got[2], 1e-9)
	assert.Empty(t, Averages(nil))
}

func TestScoreIntervalsKeepsGrouping(t *testing.T) {
	length := ScorerFunc(func(text string) float64 { return float64(len(text)) })

	got := ScoreIntervals(length, [][]string{{"ab", "c"}, {}, {"dddd"}})
	assert.Equal(t, [][]float64{{2, 1}, {}, {4}}, got)
}

func TestLoadLexicon(t *testing.T) {
	input := "# word\tmean\tstd\traw\ngood\t2.0\t0.5\t[1, 2]\n\nBAD\t-1.5\n"

	lex, err := LoadLexicon(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Lexicon{"good": 2.0, "bad": -1.5}, lex)
}

func TestLoadLexiconErrors(t *testing.T) {
	_, err := LoadLexicon(strings.NewReader("good 2.0\n"))
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))

	_, err = LoadLexicon(strings.NewReader("good\tlots\n"))
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))

	_, err = LoadLexicon(strings.NewReader("# nothing\n"))
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
}

func TestLoadLexiconFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.tsv")
	require.NoError(t, os.WriteFile(path, []byte("calm\t1.0\n"), 0644))

	lex, err := LoadLexiconFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, lex["calm"])

	_, err = LoadLexiconFile(filepath.Join(t.TempDir(), "missing.tsv"))
	assert.Error(t, err)
}

func TestDefaultLexiconIsCopy(t *testing.T) {
	lex := DefaultLexicon()
	lex["good"] = -4

	assert.Equal(t, 1.9, DefaultLexicon()["good"])
}

func TestVaderScorer(t *testing.T) {
	s := NewVaderScorer()

	assert.InDelta(t, 0.4404, s.Score("good"), 1e-3)
	assert.Less(t, s.Score("not good"), 0.0)
	assert.Less(t, s.Score("bad day terrible traffic"), 0.0)
	assert.Greater(t, s.Score("very good"), s.Score("good"))
	assert.Zero(t, s.Score(""))
	assert.Zero(t, s.Score("the of and"))

	pos := s.Score(strings.Repeat("love ", 20))
	assert.LessOrEqual(t, pos, 1.0)
	assert.Greater(t, pos, 0.9)
}
