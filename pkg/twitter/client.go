package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "twitsent/pkg/errors"
	"twitsent/pkg/logger"
	"twitsent/pkg/models"
)

// maxBodyPreview bounds how much of an error body is kept on typed errors and logs
const maxBodyPreview = 512

// Config holds what a Client needs to talk to the provider.
type Config struct {
	BearerToken string
	Elevated    bool
	BaseURL     string
	Timeout     time.Duration
	UserAgent   string
}

// Client represents a search API client
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	elevated   bool
	logger     logger.Logger
}

// NewClient creates a search client. A missing bearer token is an auth error.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.BearerToken == "" {
		return nil, &errs.Error{Type: errs.ErrorTypeAuth, Message: "bearer token is required"}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		headers: map[string]string{
			"Authorization": "Bearer " + cfg.BearerToken,
			"User-Agent":    cfg.UserAgent,
			"Accept":        "application/json",
		},
		baseURL:  cfg.BaseURL,
		elevated: cfg.Elevated,
		logger:   log,
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Elevated reports which endpoint the client searches.
func (c *Client) Elevated() bool {
	return c.elevated
}

// Search issues one search request and returns the decoded page.
// Non-success statuses come back as typed errors carrying the code and body.
func (c *Client) Search(ctx context.Context, req models.SearchRequest) (*models.Page, error) {
	url := SearchURL(c.baseURL, c.elevated, req)

	var response SearchResponse
	if err := c.getJSON(ctx, url, &response); err != nil {
		return nil, err
	}

	page := response.ToPage()
	c.logger.DebugWithFields("search page received", map[string]interface{}{
		"items":    len(page.Items),
		"has_more": page.HasMore(),
		"start":    FormatTime(req.Window.Start),
		"end":      FormatTime(req.Window.End),
	})
	return page, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, time.Duration, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"path":     req.URL.Path,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, duration, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	return resp, duration, nil
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, duration, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Logged by path; the query string carries the rule and cursor.
	logger.LogRequest(c.logger, req.Method, req.URL.Path, resp.StatusCode, duration)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return errs.FromStatus(resp.StatusCode, preview(body))
	}

	if err := json.Unmarshal(body, target); err != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview(body),
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
			Body:    preview(body),
		}
	}

	return nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > maxBodyPreview {
		s = s[:maxBodyPreview] + "..."
	}
	return s
}
