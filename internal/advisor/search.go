package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const searchEndpoint = "https://api.duckduckgo.com/"

// SearchClient fetches lightweight web context for advisor replies from the
// DuckDuckGo instant-answer API. Every failure degrades to an empty result
// set; search is never on the critical path.
type SearchClient struct {
	endpoint   string
	maxResults int
	httpClient *http.Client
}

func NewSearchClient(maxResults int) *SearchClient {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &SearchClient{
		endpoint:   searchEndpoint,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type instantAnswer struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search returns up to maxResults snippet strings for a query.
func (s *SearchClient) Search(ctx context.Context, query string) ([]string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search URL: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected search status: %d", resp.StatusCode)
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	var results []string
	if answer.AbstractText != "" {
		results = append(results, answer.AbstractText+" ("+answer.AbstractURL+")")
	}
	for _, topic := range answer.RelatedTopics {
		if len(results) >= s.maxResults {
			break
		}
		if topic.Text != "" {
			results = append(results, topic.Text+" ("+topic.FirstURL+")")
		}
	}
	return results, nil
}
