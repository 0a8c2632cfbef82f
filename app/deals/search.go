package deals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultSearchEndpoint = "https://google.serper.dev/search"

// SearchClient queries a web search API for current local deal listings and
// condenses the results into a text digest the extractor can work from.
type SearchClient struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func NewSearchClient(apiKey string) *SearchClient {
	return &SearchClient{
		client:   resty.New().SetTimeout(20 * time.Second),
		endpoint: defaultSearchEndpoint,
		apiKey:   apiKey,
	}
}

func (s *SearchClient) Enabled() bool {
	return s.apiKey != ""
}

type searchResult struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"organic"`
}

// Digest runs the query and flattens the organic results into one block of
// text, one result per paragraph.
func (s *SearchClient) Digest(ctx context.Context, query string) (string, error) {
	var payload searchResult

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", s.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"q": query}).
		SetResult(&payload).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to query search API: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("search API returned status %d", resp.StatusCode())
	}

	var b strings.Builder
	for _, r := range payload.Organic {
		fmt.Fprintf(&b, "%s\n%s\n", r.Title, r.Snippet)
		if r.Date != "" {
			fmt.Fprintf(&b, "Published: %s\n", r.Date)
		}
		fmt.Fprintf(&b, "Link: %s\n\n", r.Link)
	}

	return b.String(), nil
}
