package store

import "fmt"

// ErrItemNotFound indicates no item with the given URL exists in the model.
type ErrItemNotFound struct {
	URL string
}

func (e *ErrItemNotFound) Error() string {
	return fmt.Sprintf("item not found: %s", e.URL)
}

// ErrInvalidScore indicates a rating outside the accepted [0,100] range.
// Out-of-range scores are rejected, never clamped.
type ErrInvalidScore struct {
	Score int
}

func (e *ErrInvalidScore) Error() string {
	return fmt.Sprintf("invalid score %d: must be between 0 and 100", e.Score)
}

// ErrUnknownVariant indicates a content key that addresses neither the base
// content nor an existing variant of the item.
type ErrUnknownVariant struct {
	URL string
	Key string
}

func (e *ErrUnknownVariant) Error() string {
	return fmt.Sprintf("unknown content key %q for item %s", e.Key, e.URL)
}
