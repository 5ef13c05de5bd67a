package agent

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

	"github.com/foodsave-ai/foodsave/internal/log"
)

// defaultSearchResults is how many hits a search answer cites.
const defaultSearchResults = 5

// ErrSearchUnavailable indicates the search backend could not be reached
// or returned an unusable response.
var ErrSearchUnavailable = errors.New("search backend unavailable")

// SearchConfig configures the SearXNG-backed search agent.
type SearchConfig struct {
	// BaseURL of the SearXNG instance, e.g. "http://localhost:8080".
	BaseURL string
	Logger  log.Logger

	// HTTPClient is optional; a 10 s-timeout client is used by default.
	HTTPClient *http.Client
}

// Search queries a SearXNG instance. It implements both the Searcher
// interface used for LLM web context and Handler for direct search tasks.
type Search struct {
	baseURL string
	http    *http.Client
	logger  log.Logger
}

// NewSearch creates the search agent.
func NewSearch(cfg SearchConfig) (*Search, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("search base URL is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}

	return &Search{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		logger:  cfg.Logger,
	}, nil
}

// Search implements Searcher against the SearXNG JSON API.
func (s *Search) Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error) {
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("language", "pl")
	params.Set("categories", "general")

	endpoint := s.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSearchUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}

	var payload struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %w", ErrSearchUnavailable, err)
	}

	hits := make([]SearchHit, 0, maxResults)
	for _, r := range payload.Results {
		if r.Title == "" || r.URL == "" {
			continue
		}
		hits = append(hits, SearchHit{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
		if len(hits) == maxResults {
			break
		}
	}

	s.logger.Debug("search completed", "query", query, "hits", len(hits))
	return hits, nil
}

// Handle implements Handler for TypeSearch: it formats the top hits as a
// readable answer instead of feeding them to the LLM.
func (s *Search) Handle(ctx context.Context, cmd Command) (*Response, error) {
	hits, err := s.Search(ctx, cmd.Task, defaultSearchResults)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &Response{
			Text: "Nie znalazłem żadnych wyników dla tego zapytania.",
			Data: map[string]any{"results": []SearchHit{}},
		}, nil
	}

	var sb strings.Builder
	sb.WriteString("Oto co znalazłem:\n\n")
	for i, h := range hits {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, h.Title, h.URL)
		if h.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", h.Snippet)
		}
	}

	return &Response{
		Text: sb.String(),
		Data: map[string]any{"results": hits},
	}, nil
}
