// Package csvio turns uploaded CSV files into model items: one item per row,
// URL taken from a named column, remaining columns kept as extra data.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/jonathan/contentlab/internal/types"
)

// ErrColumnNotFound indicates the configured URL column is missing from the
// CSV header.
type ErrColumnNotFound struct {
	Column string
}

func (e *ErrColumnNotFound) Error() string {
	return fmt.Sprintf("URL column %q not found in CSV", e.Column)
}

// Items parses CSV content into model items. The urlColumn names the header
// field holding each row's URL; a non-empty baseURL resolves relative URLs
// against it, the way the scrape pipeline expects them.
func Items(r io.Reader, urlColumn, baseURL string) ([]types.Item, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	urlIdx := -1
	for i, name := range header {
		if strings.TrimSpace(name) == urlColumn {
			urlIdx = i
			break
		}
	}
	if urlIdx < 0 {
		return nil, &ErrColumnNotFound{Column: urlColumn}
	}

	var items []types.Item
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		item := types.Item{URL: resolveURL(row[urlIdx], baseURL)}
		for i, value := range row {
			if i == urlIdx || i >= len(header) {
				continue
			}
			if item.Extra == nil {
				item.Extra = make(map[string]string)
			}
			item.Extra[strings.TrimSpace(header[i])] = value
		}
		items = append(items, item)
	}

	return items, nil
}

// Check verifies the content parses as CSV with a non-empty header, without
// materializing items. Used to reject malformed uploads early.
func Check(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) == 0 || (len(header) == 1 && strings.TrimSpace(header[0]) == "") {
		return fmt.Errorf("CSV header is empty")
	}
	for {
		if _, err := reader.Read(); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read CSV row: %w", err)
		}
	}
}

// resolveURL joins a possibly-relative row URL with the model's base URL.
func resolveURL(raw, baseURL string) string {
	raw = strings.TrimSpace(raw)
	if baseURL == "" {
		return raw
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}
