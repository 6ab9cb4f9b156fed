package batch

import "fmt"

// ItemError is a failure scoped to a single item. The runner records it as a
// feedback line and moves on; it never stops the batch.
type ItemError struct {
	URL   string
	Cause error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s: %v", e.URL, e.Cause)
}

func (e *ItemError) Unwrap() error {
	return e.Cause
}

// AbortError is a batch-level failure (rejected credential, malformed
// configuration surfacing mid-run). It stops the batch immediately; feedback
// collected so far is still returned.
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("batch aborted: %v", e.Cause)
}

func (e *AbortError) Unwrap() error {
	return e.Cause
}

// skipError is returned through Skip by operations that decline an item
// without doing any work. Skipped items are not counted as processed.
type skipError struct {
	message string
}

func (e *skipError) Error() string {
	if e.message == "" {
		return "item skipped"
	}
	return e.message
}

// Skip returns an error signalling the runner to pass over the current item.
// A non-empty message becomes a feedback line; an empty one skips silently.
func Skip(message string) error {
	return &skipError{message: message}
}
