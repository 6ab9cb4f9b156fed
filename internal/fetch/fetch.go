// Package fetch retrieves item pages over HTTP and reduces them to the text
// content the experiment pipeline works on.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ContentLab/1.0)"

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 10 << 20

// Error represents a failure fetching one URL.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// UseBrowser renders JS-heavy pages in a headless browser when plain
	// HTTP yields too little text.
	UseBrowser bool
	Verbose    bool
}

// Fetcher downloads pages and extracts their text content.
type Fetcher struct {
	client *http.Client
	opts   Options
}

// New creates a fetcher with the given options.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Fetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Page fetches the item's URL and returns the extracted page content.
// Stored URLs are often schemeless or relative, so the fetcher works through
// candidate variations (as stored, joined with the model's base URL, https
// and http prefixed) until one succeeds.
func (f *Fetcher) Page(ctx context.Context, rawURL, baseURL string) (*Page, error) {
	var lastErr error
	for _, candidate := range variations(rawURL, baseURL) {
		page, err := f.fetchOne(ctx, candidate)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	if lastErr == nil {
		lastErr = &Error{URL: rawURL, Message: "no fetchable URL variation"}
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOne(ctx context.Context, urlStr string) (*Page, error) {
	html, err := f.getHTML(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	page, err := Extract(urlStr, html)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "extraction failed", Cause: err}
	}

	// Pages that render their content with JavaScript come back nearly
	// empty over plain HTTP; retry those in a headless browser.
	if f.opts.UseBrowser && ShouldUseBrowser(page.Text) {
		rendered, err := WithBrowser(ctx, urlStr, f.opts.Timeout*3, f.opts.Verbose)
		if err != nil {
			return nil, &Error{URL: urlStr, Message: "browser rendering failed", Cause: err}
		}
		if page, err = Extract(urlStr, rendered); err != nil {
			return nil, &Error{URL: urlStr, Message: "extraction failed", Cause: err}
		}
	}

	return page, nil
}

func (f *Fetcher) getHTML(ctx context.Context, urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{URL: urlStr, Message: fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to read body", Cause: err}
	}

	return string(body), nil
}

// variations returns the URL candidates to try, in order, deduplicated.
// Mirrors how stored URLs show up in practice: complete, relative to the
// model's base URL, or missing their scheme.
func variations(rawURL, baseURL string) []string {
	candidates := []string{rawURL}

	if baseURL != "" {
		if base, err := url.Parse(baseURL); err == nil {
			if ref, err := url.Parse(rawURL); err == nil {
				candidates = append(candidates, base.ResolveReference(ref).String())
			}
		}
	}

	if !strings.Contains(rawURL, "://") {
		candidates = append(candidates, "https://"+rawURL, "http://"+rawURL)
	}

	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
