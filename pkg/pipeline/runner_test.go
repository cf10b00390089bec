package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitsent/pkg/checkpoint"
	"twitsent/pkg/collector"
	errs "twitsent/pkg/errors"
	"twitsent/pkg/logger"
	"twitsent/pkg/metrics"
	"twitsent/pkg/models"
	"twitsent/pkg/retry"
	"twitsent/pkg/storage"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fakeTransport answers keyword and sample rules with fixed texts.
type fakeTransport struct {
	mu         sync.Mutex
	requests   []models.SearchRequest
	failSample bool
	// keywordTexts replaces the default keyword page when set.
	keywordTexts []string
}

func (f *fakeTransport) Search(_ context.Context, req models.SearchRequest) (*models.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if strings.Contains(req.Rule, `"vaccine"`) && f.keywordTexts != nil {
		page := &models.Page{}
		for i, text := range f.keywordTexts {
			page.Items = append(page.Items, models.Item{ID: fmt.Sprintf("k%d", i), Text: text})
		}
		return page, nil
	}
	if strings.Contains(req.Rule, `"vaccine"`) {
		return &models.Page{Items: []models.Item{
			{ID: "1", Text: "Good news about the vaccine! https://t.co/x"},
			{ID: "2", Text: "@someone great progress"},
		}}, nil
	}
	if f.failSample {
		return nil, &errs.Error{Type: errs.ErrorTypeAPI, Message: "service unavailable", Code: 503}
	}
	return &models.Page{Items: []models.Item{{ID: "3", Text: "Bad day, terrible traffic"}}}, nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type countingObserver struct {
	collector.NopObserver
	mu        sync.Mutex
	completed map[string]int
	series    string
}

func (c *countingObserver) IntervalCompleted(models.Interval, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed[c.series]++
}

type fixture struct {
	runner      *Runner
	store       *storage.Store
	transport   *fakeTransport
	checkpoints *checkpoint.Manager
	completed   map[string]int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewNopLogger()

	store, err := storage.Open(dir, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cps, err := checkpoint.NewManager(dir, log)
	require.NoError(t, err)

	m := metrics.New()
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	f := &fixture{
		store:       store,
		transport:   &fakeTransport{},
		checkpoints: cps,
		completed:   map[string]int{},
	}
	var mu sync.Mutex
	f.runner, err = NewRunner(Options{
		Store:       store,
		Transport:   f.transport,
		Client:      collector.ClientConfig{Elevated: true},
		Workers:     2,
		Checkpoints: cps,
		Metrics:     m,
		Observe: func(series string) collector.Observer {
			mu.Lock()
			defer mu.Unlock()
			return &countingObserver{completed: f.completed, series: series}
		},
		Sleeper: retry.NewRecordingSleeper(),
		Logger:  log,
		Now:     func() time.Time { return date(2024, 1, 10) },
	})
	require.NoError(t, err)
	return f
}

func freshRequest() Request {
	return Request{
		Mode:     ModeFresh,
		Keywords: [][]string{{"vaccine"}},
		Start:    date(2024, 1, 1),
		End:      date(2024, 1, 2),
		Interval: 6 * time.Hour,
		MaxItems: 10,
		Elevated: true,
	}
}

func TestFreshRun(t *testing.T) {
	f := newFixture(t)

	report, err := f.runner.Run(context.Background(), freshRequest())
	require.NoError(t, err)

	assert.Equal(t, ModeFresh, report.Mode)
	assert.Equal(t, 8, report.Requests)
	assert.Equal(t, 8, f.transport.count())
	assert.Positive(t, report.RunID)
	assert.Zero(t, report.Archived)

	require.Len(t, report.Keyword.Intervals, 4)
	require.Len(t, report.Sample.Intervals, 4)
	assert.Equal(t, 8, report.Keyword.Items())
	assert.Equal(t, []string{"good news about the vaccine", "great progress"}, report.Keyword.Intervals[0].Items)
	assert.Equal(t, `("vaccine")`, report.Keyword.Rule)

	require.Len(t, report.Keyword.Averages, 4)
	for i := range report.Keyword.Averages {
		assert.Greater(t, report.Keyword.Averages[i], 0.0)
		assert.Less(t, report.Sample.Averages[i], 0.0)
	}

	assert.Equal(t, 4, f.completed[SeriesKeyword])
	assert.Equal(t, 4, f.completed[SeriesSample])

	run, err := f.store.LoadRun(10, 360)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 1), run.Start)
	assert.Equal(t, date(2024, 1, 2), run.End)
	assert.Len(t, run.Text.Rows, 4)
	assert.Equal(t, [][]string{{"bad day terrible traffic"}}, run.TextSample.Rows[:1])

	scores, err := run.Sentiment.Floats()
	require.NoError(t, err)
	require.Len(t, scores, 4)
	assert.InDeltaSlice(t, report.Keyword.Scores[0], scores[0], 1e-9)

	runs, err := f.store.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, OutcomeCompleted, runs[0].Outcome)
	assert.Equal(t, 8, runs[0].RequestCount)
	assert.Equal(t, 8, runs[0].Intervals)
}

func TestFreshRunArchivesPrevious(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), freshRequest())
	require.NoError(t, err)

	req := freshRequest()
	req.Start = date(2024, 1, 3)
	req.End = date(2024, 1, 4)
	report, err := f.runner.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Archived)

	run, err := f.store.LoadRun(10, 360)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 3), run.Start)
	assert.FileExists(t, f.store.Dir()+"/archived_tweet_1.1.24_1.2.24_10_360_.csv")
}

func TestExtendRun(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), freshRequest())
	require.NoError(t, err)

	req := freshRequest()
	req.Mode = ModeExtend
	req.Start = time.Time{}
	req.End = date(2024, 1, 3)
	report, err := f.runner.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, date(2024, 1, 2), report.Start)
	assert.Equal(t, date(2024, 1, 3), report.End)

	run, err := f.store.LoadRun(10, 360)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 1), run.Start)
	assert.Equal(t, date(2024, 1, 3), run.End)
	assert.Equal(t, 2*24*60, run.TotalMinutes)
	assert.Len(t, run.Text.Rows, 8)
	assert.Len(t, run.SentimentSample.Rows, 8)
}

func TestTextsThatNormalizeToEmptyStayAligned(t *testing.T) {
	f := newFixture(t)
	f.transport.keywordTexts = []string{"https://t.co/abc"}

	req := freshRequest()
	req.MaxItems = 1
	report, err := f.runner.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Keyword.Items())

	run, err := f.store.LoadRun(1, 360)
	require.NoError(t, err)
	require.Len(t, run.Text.Rows, 4)
	require.Len(t, run.Sentiment.Rows, 4)
	for i := range run.Text.Rows {
		assert.Equal(t, []string{""}, run.Text.Rows[i], "interval %d", i)
		assert.Len(t, run.Sentiment.Rows[i], len(run.Text.Rows[i]), "interval %d", i)
	}
}

func TestExtendBlockedByForeignFile(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), freshRequest())
	require.NoError(t, err)

	stray := filepath.Join(f.store.Dir(), "tweet_1.1.24_1.3.24_10_360_sample.csv")
	require.NoError(t, os.WriteFile(stray, []byte("foreign\n"), 0o644))

	req := freshRequest()
	req.Mode = ModeExtend
	req.End = date(2024, 1, 3)
	_, err = f.runner.Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeIdentity))

	run, err := f.store.LoadRun(10, 360)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 2), run.End)
	assert.Len(t, run.Text.Rows, 4)
	assert.Len(t, run.SentimentSample.Rows, 4)

	// Once the file is gone the same extension succeeds.
	require.NoError(t, os.Remove(stray))
	_, err = f.runner.Run(context.Background(), req)
	require.NoError(t, err)
	run, err = f.store.LoadRun(10, 360)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 3), run.End)
	assert.Len(t, run.Text.Rows, 8)
}

func TestExtendNothingToDo(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), freshRequest())
	require.NoError(t, err)

	req := freshRequest()
	req.Mode = ModeExtend
	_, err = f.runner.Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
}

func TestExtendWithoutStoredRun(t *testing.T) {
	f := newFixture(t)
	req := freshRequest()
	req.Mode = ModeExtend

	_, err := f.runner.Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeIdentity))
	assert.Zero(t, f.transport.count())
}

func TestFailedRunKeepsPreviousAndCheckpoints(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), freshRequest())
	require.NoError(t, err)

	f.transport.failSample = true
	req := freshRequest()
	req.Start = date(2024, 1, 3)
	req.End = date(2024, 1, 4)
	_, err = f.runner.Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeAPI))

	run, err := f.store.LoadRun(10, 360)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 1), run.Start, "failed run must not archive the stored one")

	snap, err := f.checkpoints.Load(SeriesSample)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, string(errs.ErrorTypeAPI), snap.ErrorType)
	assert.Empty(t, snap.Intervals)

	runs, err := f.store.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, OutcomeFailed, runs[0].Outcome)
	assert.Contains(t, runs[0].Error, "service unavailable")
	assert.Equal(t, 4, runs[0].Intervals)

	// A later successful run clears the stale snapshot.
	f.transport.failSample = false
	_, err = f.runner.Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, f.checkpoints.Exists(SeriesSample))
}

func TestReachCheck(t *testing.T) {
	f := newFixture(t)
	req := freshRequest()
	req.Elevated = false

	_, err := f.runner.Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
	assert.Zero(t, f.transport.count())
}

func TestPlanValidation(t *testing.T) {
	f := newFixture(t)

	req := freshRequest()
	req.Mode = "resume"
	_, _, err := f.runner.Plan(req)
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))

	req = freshRequest()
	req.Keywords = [][]string{{"lang:en"}}
	_, _, err = f.runner.Plan(req)
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))

	req = freshRequest()
	req.MaxItems = 0
	_, _, err = f.runner.Plan(req)
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))

	req = freshRequest()
	req.Interval = 90 * time.Second
	_, _, err = f.runner.Plan(req)
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))

	req = freshRequest()
	req.Keywords = nil
	keyword, sample, err := f.runner.Plan(req)
	require.NoError(t, err)
	assert.Contains(t, keyword.Rule, `("covid")`)
	assert.Contains(t, sample.Rule, `("the")`)
	assert.Equal(t, 4, keyword.IntervalCount())
}

func TestBuildSpecsWithoutStore(t *testing.T) {
	keyword, _, err := BuildSpecs(nil, freshRequest())
	require.NoError(t, err)
	assert.Equal(t, 4, keyword.IntervalCount())

	req := freshRequest()
	req.Mode = ModeExtend
	_, _, err = BuildSpecs(nil, req)
	assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
}

func TestNewRunnerRequiresStoreAndTransport(t *testing.T) {
	_, err := NewRunner(Options{})
	assert.Error(t, err)
}
