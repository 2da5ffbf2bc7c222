// Package search executes web searches through the SerpAPI REST endpoint.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avoss/lantern/internal/models"
)

const defaultEndpoint = "https://serpapi.com/search.json"

// ErrNoAPIKey is returned when no SerpAPI key is configured; callers queue
// or refuse searches instead of crashing.
var ErrNoAPIKey = errors.New("SerpAPI API key is not set")

type Config struct {
	APIKey     string
	Engine     string
	Endpoint   string
	MaxResults int
	Timeout    time.Duration
}

type Client struct {
	config Config
	client *http.Client
}

func NewWithConfig(config Config) *Client {
	if config.Engine == "" {
		config.Engine = "google"
	}
	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}
	if config.MaxResults == 0 {
		config.MaxResults = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type apiResponse struct {
	Error          string      `json:"error"`
	OrganicResults []apiResult `json:"organic_results"`
}

type apiResult struct {
	Title            string   `json:"title"`
	Link             string   `json:"link"`
	Snippet          string   `json:"snippet"`
	HighlightedWords []string `json:"snippet_highlighted_words"`
}

// Search runs one query and returns at most MaxResults hits.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if c.config.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.config.APIKey)
	params.Set("engine", c.config.Engine)
	params.Set("num", strconv.Itoa(c.config.MaxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("web search request failed: unexpected status %d", resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	if data.Error != "" {
		return nil, fmt.Errorf("SerpAPI error: %s", data.Error)
	}

	limit := c.config.MaxResults
	if limit > len(data.OrganicResults) {
		limit = len(data.OrganicResults)
	}

	results := make([]models.SearchResult, 0, limit)
	for _, res := range data.OrganicResults[:limit] {
		snippet := res.Snippet
		if snippet == "" && len(res.HighlightedWords) > 0 {
			snippet = strings.Join(res.HighlightedWords, " ... ")
		}
		results = append(results, models.SearchResult{
			Title:   res.Title,
			Link:    res.Link,
			Snippet: snippet,
		})
	}
	return results, nil
}
