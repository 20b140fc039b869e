package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

type GoogleSearchClient struct {
	cseID   string
	service *customsearch.Service
}

type WebSearchResult struct {
	Title   string
	Link    string
	Snippet string
}

func NewGoogleSearchClient(ctx context.Context, apiKey, cseID string, opts ...option.ClientOption) (*GoogleSearchClient, error) {
	if apiKey == "" || cseID == "" {
		return nil, ErrNotConfigured
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating custom search service: %w", err)
	}

	return &GoogleSearchClient{
		cseID:   cseID,
		service: svc,
	}, nil
}

func (c *GoogleSearchClient) WebSearch(ctx context.Context, query string) ([]WebSearchResult, error) {
	resp, err := c.service.Cse.List().Cx(c.cseID).Q(query).Num(10).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("executing search: %w", err)
	}

	results := make([]WebSearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, WebSearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}

	return results, nil
}

var titleYear = regexp.MustCompile(`^(.+?)\s*\((\d{4})[^)]*\)`)

// parseWebTitle pulls "Title (Year)" out of a result heading such as
// "Heat (1995) - IMDb". Headings without a year keep the text before the
// site suffix.
func parseWebTitle(heading string) (title, year string) {
	if m := titleYear.FindStringSubmatch(heading); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	for _, sep := range []string{" - ", " | "} {
		if before, _, ok := strings.Cut(heading, sep); ok {
			heading = before
		}
	}
	return strings.TrimSpace(heading), ""
}
