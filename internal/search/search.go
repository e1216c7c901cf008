// Package search fetches external evidence from a web search API.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultMaxResults = 10

var ErrMissingKey = errors.New("search api key is not configured")

// FetchError means the search API could not be reached or answered non-2xx.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("search api returned %d", e.Status)
	}
	return fmt.Sprintf("search api unreachable: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Result is one normalized search hit, also accepted as report evidence.
type Result struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Snippet        string  `json:"snippet"`
	PublishedAtUTC *string `json:"publishedAtUtc"`
}

type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	http       *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, maxResults int, logger *zap.Logger) *Client {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxResults: maxResults,
		http:       &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type rawHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	Description string `json:"description"`
	PublishedAt string `json:"published_at"`
	Date        string `json:"date"`
}

type rawResponse struct {
	Hits    []rawHit `json:"hits"`
	Results []rawHit `json:"results"`
}

// Search queries the API and returns at most maxResults normalized hits.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.Configured() {
		return nil, ErrMissingKey
	}

	endpoint := c.baseURL + "/search?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Error("search api error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, &FetchError{Status: resp.StatusCode}
	}

	var raw rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return normalize(raw, c.maxResults), nil
}

func normalize(raw rawResponse, limit int) []Result {
	hits := raw.Hits
	if hits == nil {
		hits = raw.Results
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		r := Result{
			Title:   firstNonEmpty(h.Title, "No Title"),
			URL:     firstNonEmpty(h.URL, h.Link),
			Snippet: firstNonEmpty(h.Snippet, h.Description),
		}
		if published := firstNonEmpty(h.PublishedAt, h.Date); published != "" {
			r.PublishedAtUTC = &published
		}
		out = append(out, r)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
