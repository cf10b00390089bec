package scoring

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitsent/pkg/logger"
	"twitsent/pkg/sentiment"
)

func lengthScorer() sentiment.Scorer {
	return sentiment.ScorerFunc(func(text string) float64 { return float64(len(text)) })
}

func TestScoreIntervalsPreservesLayout(t *testing.T) {
	texts := [][]string{
		{"a", "bb", "ccc"},
		{},
		{"dddd"},
		{"ee", "f"},
	}

	for _, workers := range []int{1, 3, 8} {
		got, err := ScoreIntervals(context.Background(), workers, lengthScorer(), texts, logger.NewNopLogger())
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{1, 2, 3}, {}, {4}, {2, 1}}, got, "workers=%d", workers)
	}
}

func TestScoreIntervalsMatchesSequential(t *testing.T) {
	scorer := sentiment.NewLexiconScorer(nil)
	texts := [][]string{
		{"stay safe", "this is terrible", "not good"},
		{"love my friends", ""},
	}

	got, err := ScoreIntervals(context.Background(), 4, scorer, texts, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, sentiment.ScoreIntervals(scorer, texts), got)
}

func TestScoreIntervalsEmpty(t *testing.T) {
	got, err := ScoreIntervals(context.Background(), 4, lengthScorer(), [][]string{{}, {}}, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{}, {}}, got)
}

func TestScoreIntervalsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	slow := sentiment.ScorerFunc(func(text string) float64 {
		if calls.Add(1) == 1 {
			cancel()
		}
		time.Sleep(time.Millisecond)
		return 1
	})

	texts := [][]string{strings.Fields(strings.Repeat("x ", 200))}
	_, err := ScoreIntervals(ctx, 2, slow, texts, logger.NewNopLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkerPoolSubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(ctx, 0, lengthScorer(), logger.NewNopLogger())
	pool.Start()
	cancel()

	// The queue buffer may accept a job or two; eventually Submit reports shutdown.
	var err error
	for i := 0; i < 10 && err == nil; i++ {
		err = pool.Submit(Job{Text: "x"})
	}
	assert.Error(t, err)
	pool.Stop()
}

func TestWorkerPoolCountsProcessed(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2, lengthScorer(), logger.NewNopLogger())
	pool.Start()

	go func() {
		defer pool.Stop()
		for i := 0; i < 5; i++ {
			_ = pool.Submit(Job{Index: i, Text: "abc"})
		}
	}()

	sum := 0.0
	for r := range pool.Results() {
		sum += r.Score
	}
	assert.Equal(t, 15.0, sum)
	assert.Equal(t, int64(5), pool.Processed())
}
