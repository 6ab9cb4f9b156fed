package types

// BatchResult reports the outcome of one batch run over a model's items.
// It is transient: returned to the caller, never persisted.
type BatchResult struct {
	// Feedback holds one human-readable line per processed item, in item
	// order, plus at most one terminal abort line. Callers render these
	// verbatim and must not reorder them.
	Feedback []string `json:"messages"`

	// ItemsProcessed counts items for which the operation was invoked,
	// regardless of per-item outcome. Skipped items are not counted.
	ItemsProcessed int `json:"items_processed"`

	// LastProcessedItem is the URL of the last item the operation was
	// invoked for; empty when no item was processed. Useful for resuming
	// a scrape.
	LastProcessedItem string `json:"last_processed_item,omitempty"`
}
