// Package store provides the in-memory view of one model's items: ordered
// URL records with append-only content variants and keyed ratings.
//
// Mutating methods are not internally synchronized. The orchestrator's
// single-flight guarantee means at most one batch mutates a model at a time,
// so the store relies on that exclusivity instead of its own locking.
package store

import (
	"time"

	"github.com/jonathan/contentlab/internal/normalize"
	"github.com/jonathan/contentlab/internal/types"
)

// nowFunc is swapped out in tests.
var nowFunc = time.Now

// Store wraps a model's item list with the operations batch jobs and search
// tests are allowed to perform on it.
type Store struct {
	model *types.Model
}

// New creates a store over the given model. The store mutates the model's
// items in place; the caller persists the model afterwards.
func New(model *types.Model) *Store {
	return &Store{model: model}
}

// Model returns the underlying model.
func (s *Store) Model() *types.Model {
	return s.model
}

// Items returns the ordered item list. The slice aliases the model's items;
// callers iterate it in order and mutate entries only through store methods.
func (s *Store) Items() []types.Item {
	return s.model.Items
}

// Len returns the number of items in the model.
func (s *Store) Len() int {
	return len(s.model.Items)
}

// item returns a pointer to the item with the given URL (exact match).
func (s *Store) item(url string) *types.Item {
	for i := range s.model.Items {
		if s.model.Items[i].URL == url {
			return &s.model.Items[i]
		}
	}
	return nil
}

// SetBaseContent overwrites an item's scraped base text and metadata.
func (s *Store) SetBaseContent(url, title, text string) error {
	it := s.item(url)
	if it == nil {
		return &ErrItemNotFound{URL: url}
	}
	it.Title = title
	it.BaseContent = text
	now := nowFunc()
	it.ScrapedAt = &now
	return nil
}

// AppendVariant appends a new content variant to the item and returns its
// positional key. Variants are never overwritten: the new variant always
// lands at index len(variants).
func (s *Store) AppendVariant(url, text string) (string, error) {
	it := s.item(url)
	if it == nil {
		return "", &ErrItemNotFound{URL: url}
	}
	key := types.VariantKeyAt(len(it.Variants))
	it.Variants = append(it.Variants, types.ContentVariant{Key: key, Text: text})
	return key, nil
}

// Content resolves a content key to the item's text: the base content for
// types.BaseContentKey, otherwise the variant the key addresses.
func (s *Store) Content(url, key string) (string, error) {
	it := s.item(url)
	if it == nil {
		return "", &ErrItemNotFound{URL: url}
	}
	if key == types.BaseContentKey {
		return it.BaseContent, nil
	}
	if idx, ok := types.VariantIndex(key); ok && idx < len(it.Variants) {
		return it.Variants[idx].Text, nil
	}
	return "", &ErrUnknownVariant{URL: url, Key: key}
}

// SetRating records a score for a content unit of the item. The key must
// address the base content or an existing variant; the score must be within
// [0,100].
func (s *Store) SetRating(url, key string, score int) error {
	it := s.item(url)
	if it == nil {
		return &ErrItemNotFound{URL: url}
	}
	if score < 0 || score > 100 {
		return &ErrInvalidScore{Score: score}
	}
	if key != types.BaseContentKey {
		idx, ok := types.VariantIndex(key)
		if !ok || idx >= len(it.Variants) {
			return &ErrUnknownVariant{URL: url, Key: key}
		}
	}
	if it.Ratings == nil {
		it.Ratings = make(map[string]int)
	}
	it.Ratings[key] = score
	return nil
}

// FindByNormalizedURL returns the first item whose URL matches the given one
// after normalization, or nil when none does.
func (s *Store) FindByNormalizedURL(url string) *types.Item {
	want := normalize.URL(url)
	for i := range s.model.Items {
		if normalize.URL(s.model.Items[i].URL) == want {
			return &s.model.Items[i]
		}
	}
	return nil
}

// MergeURL inserts a new empty item for the URL unless an equivalent one
// already exists. It is the single integration point for adding URLs, so
// dedup is uniform across the scrape pipeline and search-test merges.
// Returns the item and whether it was created by this call.
func (s *Store) MergeURL(url string) (*types.Item, bool) {
	if existing := s.FindByNormalizedURL(url); existing != nil {
		return existing, false
	}
	s.model.Items = append(s.model.Items, types.Item{URL: url})
	return &s.model.Items[len(s.model.Items)-1], true
}
