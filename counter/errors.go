package counter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPageID is returned by Increment and Get when given an empty
// page identifier. Rejecting it here, at the API boundary, is what lets
// every layer below (buffer, cache, ring) treat "" as an ordinary,
// hashable key without special-casing it.
var ErrInvalidPageID = errors.New("counter: page id must not be empty")

// ErrServiceClosed is returned by operations attempted after Close.
var ErrServiceClosed = errors.New("counter: service is closed")

// FlushError aggregates the pages that failed to flush to their backend
// shard in a single FlushAll call. The underlying per-page deltas are
// re-buffered before FlushError is returned, so a subsequent flush retries
// them; callers only need FlushError to decide whether to log, alert, or
// retry sooner.
type FlushError struct {
	Failed map[string]error
}

func (e *FlushError) Error() string {
	if len(e.Failed) == 0 {
		return "counter: flush failed for 0 pages"
	}
	parts := make([]string, 0, len(e.Failed))
	for page, err := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s: %v", page, err))
	}
	return fmt.Sprintf("counter: flush failed for %d page(s): %s", len(e.Failed), strings.Join(parts, "; "))
}

// Unwrap lets errors.Is/As reach into any one of the wrapped per-page
// causes via errors.Join semantics.
func (e *FlushError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}
