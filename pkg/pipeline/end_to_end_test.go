package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitsent/pkg/checkpoint"
	"twitsent/pkg/collector"
	errs "twitsent/pkg/errors"
	"twitsent/pkg/logger"
	"twitsent/pkg/retry"
	"twitsent/pkg/storage"
	"twitsent/pkg/twitter"
)

// mockSearchServer simulates the full-archive search endpoint. Keyword rules
// get two pages per window, everything else one.
type mockSearchServer struct {
	server       *httptest.Server
	requestCount atomic.Int32
	rateLimitOn  int32
	statusOn     map[int32]int

	mu      sync.Mutex
	queries []string
}

func newMockSearchServer() *mockSearchServer {
	m := &mockSearchServer{statusOn: map[int32]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc(twitter.FullArchiveEndpoint, m.handleSearch)
	m.server = httptest.NewServer(mux)
	return m
}

func (m *mockSearchServer) URL() string { return m.server.URL }
func (m *mockSearchServer) Close()      { m.server.Close() }

func (m *mockSearchServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	n := m.requestCount.Add(1)
	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if n == m.rateLimitOn {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"title": "Too Many Requests"})
		return
	}
	if status, ok := m.statusOn[n]; ok {
		w.WriteHeader(status)
		return
	}

	q := r.URL.Query()
	m.mu.Lock()
	m.queries = append(m.queries, q.Get("query"))
	m.mu.Unlock()

	resp := twitter.SearchResponse{}
	switch {
	case strings.Contains(q.Get("query"), `"vaccine"`) && q.Get("next_token") == "":
		resp.Data = []twitter.Tweet{
			{ID: "1", Text: "Great news, the vaccine works! https://t.co/abc"},
			{ID: "2", Text: "RT @health: so happy"},
		}
		resp.Meta.NextToken = "page-2"
	case strings.Contains(q.Get("query"), `"vaccine"`):
		resp.Data = []twitter.Tweet{{ID: "3", Text: "Nice to see progress"}}
	default:
		resp.Data = []twitter.Tweet{{ID: "4", Text: "Awful commute, I hate rain"}}
	}
	resp.Meta.ResultCount = len(resp.Data)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (m *mockSearchServer) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

func newHTTPRunner(t *testing.T, server *mockSearchServer, dir string) (*Runner, *storage.Store, *retry.RecordingSleeper, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()

	client, err := twitter.NewClient(twitter.Config{
		BearerToken: "test-token",
		Elevated:    true,
		BaseURL:     server.URL(),
		Timeout:     5 * time.Second,
	}, log)
	require.NoError(t, err)

	store, err := storage.Open(dir, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cps, err := checkpoint.NewManager(dir, log)
	require.NoError(t, err)

	sleeper := retry.NewRecordingSleeper()
	runner, err := NewRunner(Options{
		Store:       store,
		Transport:   client,
		Client:      collector.ClientConfig{Elevated: true},
		Workers:     3,
		Checkpoints: cps,
		Sleeper:     sleeper,
		Logger:      log,
		Now:         func() time.Time { return date(2024, 1, 10) },
	})
	require.NoError(t, err)
	return runner, store, sleeper, log
}

func TestEndToEndOverHTTP(t *testing.T) {
	server := newMockSearchServer()
	defer server.Close()
	server.rateLimitOn = 3

	runner, store, sleeper, log := newHTTPRunner(t, server, t.TempDir())

	req := freshRequest()
	req.Languages = []string{"en"}
	report, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	// Two pages per keyword window, one per sample window, one throttled attempt.
	assert.Equal(t, int32(13), server.requestCount.Load())
	assert.Equal(t, 13, report.Requests)
	assert.Equal(t, []time.Duration{retry.DefaultCooldown}, sleeper.Calls())

	require.Len(t, report.Keyword.Intervals, 4)
	assert.Equal(t, []string{"great news the vaccine works", "so happy", "nice to see progress"},
		report.Keyword.Intervals[0].Items)
	assert.Equal(t, []string{"awful commute i hate rain"}, report.Sample.Intervals[3].Items)

	for _, q := range server.Queries() {
		assert.True(t, strings.HasSuffix(q, "(lang:en)"), q)
	}

	for i := range report.Keyword.Averages {
		assert.Greater(t, report.Keyword.Averages[i], report.Sample.Averages[i])
	}

	run, err := store.LoadRun(10, 360)
	require.NoError(t, err)
	assert.Len(t, run.Sentiment.Rows, 4)
	assert.True(t, log.HasMessage("Run completed"))
}

func TestEndToEndAuthFailure(t *testing.T) {
	server := newMockSearchServer()
	defer server.Close()
	server.statusOn[1] = http.StatusUnauthorized

	runner, store, sleeper, _ := newHTTPRunner(t, server, t.TempDir())

	_, err := runner.Run(context.Background(), freshRequest())
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeAuth))
	assert.Empty(t, sleeper.Calls())
	assert.Equal(t, int32(1), server.requestCount.Load())

	runs, err := store.Runs(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, OutcomeFailed, runs[0].Outcome)
	assert.Zero(t, runs[0].Intervals)
}
