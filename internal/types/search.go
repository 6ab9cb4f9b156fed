package types

// SearchResult is one entry returned by a search test, ranked by the
// provider's order. Transient: it only becomes an Item when explicitly
// merged into the model.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`

	// Rank is the 1-based position the highlighted URL was found at when
	// it had to be probed beyond the returned window; zero otherwise.
	Rank int `json:"rank,omitempty"`

	// RankNote carries the provider-position note when no numeric rank
	// applies, e.g. "Not found in top 50".
	RankNote string `json:"rank_note,omitempty"`
}

// Classification describes how a search result relates to the model it was
// tested against.
type Classification string

const (
	// ClassHighlighted marks the result matching the URL the caller asked
	// to track.
	ClassHighlighted Classification = "highlighted"
	// ClassExisting marks a result whose URL is already an item of the
	// model (after normalization).
	ClassExisting Classification = "existing"
	// ClassNew marks a result unknown to the model.
	ClassNew Classification = "new"
)
