// Package types defines the shared domain types for content experiments.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BaseContentKey is the content key addressing an item's scraped base text,
// as opposed to one of its generated variants.
const BaseContentKey = "base-content"

// variantKeyPrefix is the prefix of positional variant keys.
const variantKeyPrefix = "variant-"

// VariantKeyAt returns the content key for the variant at the given index.
// Keys are positional: the variant appended first is always "variant-0".
func VariantKeyAt(index int) string {
	return fmt.Sprintf("%s%d", variantKeyPrefix, index)
}

// VariantIndex parses a variant key back into its index.
// Returns false for BaseContentKey and anything else that is not a
// well-formed variant key.
func VariantIndex(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, variantKeyPrefix)
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// Model represents one content experiment: an ordered set of URL-keyed items
// with their scraped content, generated variants, and ratings.
type Model struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	BaseURL       string       `json:"base_url"`
	URLColumn     string       `json:"url_column"`
	CreatedAt     time.Time    `json:"created_at"`
	LastScrapedID string       `json:"last_scraped_id,omitempty"`
	Items         []Item       `json:"items"`
	Queries       []SavedQuery `json:"queries,omitempty"`
}

// Item is one URL's record within a model. Variants are append-only and
// densely indexed; Ratings is keyed by BaseContentKey or a variant key.
type Item struct {
	URL         string            `json:"url"`
	BaseContent string            `json:"base_content"`
	Title       string            `json:"title,omitempty"`
	ScrapedAt   *time.Time        `json:"scraped_at,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	Variants    []ContentVariant  `json:"variants"`
	Ratings     map[string]int    `json:"ratings,omitempty"`
}

// ContentVariant is one alternative rendering of an item's content.
// Immutable once created; only a generation run produces them.
type ContentVariant struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// SavedQuery records one search test run against a model, kept as history.
type SavedQuery struct {
	Query   string         `json:"query"`
	RanAt   time.Time      `json:"ran_at"`
	Results []SearchResult `json:"results"`
}
