package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Wikipedia knowledge-base client
// Two endpoints are used:
//   - REST summary:  GET /api/rest_v1/page/summary/{title}
//   - Action API:    GET /w/api.php (list=search, prop=extracts)
// Every method makes exactly one HTTP round-trip. Retries are not attempted.
// ---------------------------------------------------------------------------

const (
	defaultWikipediaURL       = "https://en.wikipedia.org"
	defaultWikipediaUserAgent = "HinglishPodcastBot/1.0 (contact@example.com)"
)

// WikipediaService talks to a MediaWiki installation (en.wikipedia.org by default).
type WikipediaService struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// Ensure WikipediaService implements KnowledgeBase at compile time.
var _ KnowledgeBase = (*WikipediaService)(nil)

// NewWikipediaService creates a client. Empty arguments use the English Wikipedia defaults.
func NewWikipediaService(baseURL, userAgent string) *WikipediaService {
	if baseURL == "" {
		baseURL = defaultWikipediaURL
	}
	if userAgent == "" {
		userAgent = defaultWikipediaUserAgent
	}
	return &WikipediaService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type wikiSummaryResponse struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiExtractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string  `json:"title"`
			Extract string  `json:"extract"`
			Missing *string `json:"missing,omitempty"`
		} `json:"pages"`
	} `json:"query"`
}

// Summary fetches the lead-section summary for an exact title.
func (s *WikipediaService) Summary(ctx context.Context, title string) (*Article, error) {
	const op = "wikipedia.summary"

	path := url.PathEscape(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
	endpoint := fmt.Sprintf("%s/api/rest_v1/page/summary/%s?redirect=true", s.baseURL, path)

	body, err := s.get(ctx, op, endpoint)
	if err != nil {
		return nil, err
	}

	var resp wikiSummaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newCallError(KindParse, op, err)
	}

	// The REST API reports missing pages with a problem+json "type" URI.
	if strings.Contains(resp.Type, "not_found") {
		return nil, newCallError(KindRetrievalMiss, op, fmt.Errorf("page %q not found", title))
	}
	if strings.TrimSpace(resp.Extract) == "" {
		return nil, newCallError(KindRetrievalMiss, op, fmt.Errorf("page %q has no summary", title))
	}

	return &Article{Title: resp.Title, Text: resp.Extract}, nil
}

// Search runs a full-text search and returns candidate titles in ranked order.
func (s *WikipediaService) Search(ctx context.Context, query string) ([]string, error) {
	const op = "wikipedia.search"

	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"5"},
		"format":   {"json"},
	}

	body, err := s.get(ctx, op, s.baseURL+"/w/api.php?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp wikiSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newCallError(KindParse, op, err)
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		if hit.Title != "" {
			titles = append(titles, hit.Title)
		}
	}
	if len(titles) == 0 {
		return nil, newCallError(KindRetrievalMiss, op, fmt.Errorf("no results for %q", query))
	}

	return titles, nil
}

// Extract fetches the plain-text introduction of a title.
func (s *WikipediaService) Extract(ctx context.Context, title string) (*Article, error) {
	const op = "wikipedia.extract"

	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"redirects":   {"1"},
		"titles":      {title},
		"format":      {"json"},
	}

	body, err := s.get(ctx, op, s.baseURL+"/w/api.php?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp wikiExtractResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newCallError(KindParse, op, err)
	}

	for pageID, page := range resp.Query.Pages {
		// Page id "-1" is MediaWiki's marker for a missing title.
		if pageID == "-1" || page.Missing != nil {
			continue
		}
		if strings.TrimSpace(page.Extract) != "" {
			return &Article{Title: page.Title, Text: page.Extract}, nil
		}
	}

	return nil, newCallError(KindRetrievalMiss, op, fmt.Errorf("no extract for %q", title))
}

func (s *WikipediaService) get(ctx context.Context, op, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, newCallError(KindTransport, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, newCallError(KindTransport, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newCallError(KindTransport, op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Wikipedia] %s returned status %d: %s", op, resp.StatusCode, truncateString(string(body), 200))
		return nil, newCallError(kindForStatus(resp.StatusCode), op, fmt.Errorf("status %d", resp.StatusCode))
	}

	return body, nil
}
