// Package websearch answers real-time questions through the Tavily search
// API, with a cheap keyword heuristic deciding whether a query needs a
// search at all.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTavilyURL = "https://api.tavily.com/search"

// ErrNoAPIKey indicates the client was built without a Tavily key.
var ErrNoAPIKey = errors.New("TAVILY_API_KEY not configured")

// questionWords trigger a search when they start the query or appear as a
// standalone word inside it.
var questionWords = []string{
	"what", "when", "where", "who", "how", "why", "which",
	"is", "are", "was", "were",
}

// realTimeContexts trigger a search whenever one appears anywhere in the
// query, question or not.
var realTimeContexts = []string{
	"weather", "temperature", "forecast",
	"stock", "price", "ticker",
	"news", "latest", "current",
	"time", "date", "now",
	"today", "tomorrow", "yesterday",
	"exchange rate", "currency",
	"sports", "score", "game",
	"traffic", "route", "direction",
}

// ShouldSearch reports whether query looks like it needs real-time data.
// Case-insensitive substring matching; deliberately coarse.
func ShouldSearch(query string) bool {
	lower := strings.ToLower(query)

	for _, w := range questionWords {
		if strings.HasPrefix(lower, w+" ") || strings.Contains(lower, " "+w+" ") {
			return true
		}
	}
	for _, ctx := range realTimeContexts {
		if strings.Contains(lower, ctx) {
			return true
		}
	}
	return false
}

// Client calls the Tavily search API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Tavily endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Tavily client. An empty apiKey is allowed; Search will
// return ErrNoAPIKey when called.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultTavilyURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

// Result is one raw search hit as Tavily returns it.
type Result struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Search runs a basic-depth Tavily search. It returns the top results as
// a numbered text block ready to splice into an LLM prompt, plus the raw
// result list for callers that want the structured form.
func (c *Client) Search(ctx context.Context, query string) (string, []Result, error) {
	if c.apiKey == "" {
		return "", nil, ErrNoAPIKey
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:      c.apiKey,
		Query:       query,
		MaxResults:  3,
		SearchDepth: "basic",
	})
	if err != nil {
		return "", nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("tavily API error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read response: %w", err)
	}

	var result tavilyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return formatResults(result.Results), result.Results, nil
}

// formatResults renders up to three results as numbered title/snippet/URL
// entries. Snippets are truncated to 200 characters.
func formatResults(results []Result) string {
	if len(results) == 0 {
		return "No search results found."
	}
	if len(results) > 3 {
		results = results[:3]
	}

	entries := make([]string, 0, len(results))
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		snippet := r.Content
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		entries = append(entries, fmt.Sprintf("%d. %s\n   %s\n   %s", i+1, title, snippet, r.URL))
	}
	return strings.Join(entries, "\n\n")
}
