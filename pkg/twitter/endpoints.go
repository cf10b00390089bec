package twitter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"twitsent/pkg/models"
	"twitsent/pkg/query"
	"twitsent/pkg/ratelimit"
)

const (
	// BaseURL is the production API host
	BaseURL = "https://api.twitter.com"

	// RecentSearchEndpoint covers the last seven days (standard tier)
	RecentSearchEndpoint = "/2/tweets/search/recent"

	// FullArchiveEndpoint covers the whole archive (elevated tier)
	FullArchiveEndpoint = "/2/tweets/search/all"

	// DefaultUserAgent identifies the client to the provider
	DefaultUserAgent = "v2RecentSearchPython"

	tweetFields = "id,text"
)

// SearchEndpoint returns the endpoint path for the tier.
func SearchEndpoint(elevated bool) string {
	if elevated {
		return FullArchiveEndpoint
	}
	return RecentSearchEndpoint
}

// ClampMaxResults keeps a per-request item count inside the provider's accepted range.
func ClampMaxResults(n int) int {
	if n < ratelimit.MinRequestResults {
		return ratelimit.MinRequestResults
	}
	if n > ratelimit.PerRequestCap {
		return ratelimit.PerRequestCap
	}
	return n
}

// FormatTime renders a window bound the way the provider expects.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// SearchParams builds the query string for a search request.
func SearchParams(req models.SearchRequest) url.Values {
	params := url.Values{}
	params.Set("query", query.WithLanguages(req.Rule, req.Languages))
	params.Set("start_time", FormatTime(req.Window.Start))
	params.Set("end_time", FormatTime(req.Window.End))
	params.Set("max_results", strconv.Itoa(ClampMaxResults(req.MaxResults)))
	params.Set("tweet.fields", tweetFields)
	if req.Cursor != "" {
		params.Set("next_token", req.Cursor)
	}
	return params
}

// SearchURL constructs the full request URL against baseURL.
func SearchURL(baseURL string, elevated bool, req models.SearchRequest) string {
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), SearchEndpoint(elevated), SearchParams(req).Encode())
}
