package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/contentlab/internal/types"
)

// googleEndpoint is the HTML results page queried by GoogleProvider.
const googleEndpoint = "https://www.google.com/search"

// serpUserAgent is a desktop UA; Google serves a different, unparsable page
// to obvious bots.
const serpUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// GoogleProvider scrapes the Google results page for a query.
type GoogleProvider struct {
	client *http.Client
}

// NewGoogleProvider creates the provider. A nil client gets a default one
// with a sane timeout.
func NewGoogleProvider(client *http.Client) *GoogleProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &GoogleProvider{client: client}
}

// Search fetches up to limit results for the query, in page order.
func (p *GoogleProvider) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	endpoint := fmt.Sprintf("%s?q=%s&num=%d", googleEndpoint, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", serpUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	return parseResultsPage(doc, limit), nil
}

// parseResultsPage walks the organic result blocks of a Google results
// document in page order.
func parseResultsPage(doc *goquery.Document, limit int) []types.SearchResult {
	var results []types.SearchResult
	doc.Find("div.yuRUbf").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Find("a").First().Attr("href")
		if !ok || href == "" {
			return true
		}
		title := strings.TrimSpace(s.Find("h3").First().Text())
		if title == "" {
			title = "No title"
		}
		results = append(results, types.SearchResult{Title: title, URL: href})
		return limit <= 0 || len(results) < limit
	})
	return results
}
