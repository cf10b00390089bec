package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitsent/pkg/logger"
	"twitsent/pkg/models"
	"twitsent/pkg/retry"
	"twitsent/pkg/twitter"
)

// TestCollectAgainstHTTPServer runs the full stack against a fake search API
// that paginates once per window and throttles the third request.
func TestCollectAgainstHTTPServer(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if n == 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"title":"Too Many Requests"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("next_token") == "" {
			fmt.Fprint(w, `{"data":[{"id":"1","text":"Stay SAFE! #covid"},{"id":"2","text":"RT @x: masks work"}],"meta":{"next_token":"p2"}}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"3","text":"third post"}],"meta":{}}`)
	}))
	defer server.Close()

	log := logger.NewTestLogger()
	client, err := twitter.NewClient(twitter.Config{
		BearerToken: "secret",
		BaseURL:     server.URL,
		Timeout:     5 * time.Second,
	}, log)
	require.NoError(t, err)

	sleeper := retry.NewRecordingSleeper()
	th := NewThrottler(client, ClientConfig{ExpectThrottle: false}, sleeper, log)
	c := New(th, Options{}, log)

	end := time.Now().UTC().Truncate(time.Hour)
	spec := models.CollectionSpec{
		Rule:                `("covid")`,
		Languages:           []string{"en"},
		Start:               end.Add(-2 * time.Hour),
		End:                 end,
		IntervalLength:      time.Hour,
		MaxItemsPerInterval: 10,
	}

	result, err := c.Run(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, result.Intervals, 2)

	assert.Equal(t, []string{"stay safe covid", "masks work", "third post"}, result.Intervals[0].Items)
	assert.Equal(t, []string{"stay safe covid", "masks work", "third post"}, result.Intervals[1].Items)

	// Four successful pages plus one throttled attempt.
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, []time.Duration{retry.DefaultCooldown}, sleeper.Calls())
	assert.True(t, log.HasMessage("Interval collected"))
}
