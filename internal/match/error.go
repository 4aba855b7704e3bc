package match

import (
	"errors"
	"fmt"
)

// errEmptyPattern flags a regex/hybrid pattern with no regex source.
var errEmptyPattern = errors.New("match type requires a regex source but none is set")

// Error is a matcher failure scoped to a single pattern. It carries the
// offending pattern's id so callers can skip just that pattern's
// contribution and continue with the rest of the repertoire.
type Error struct {
	PatternID string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pattern %q: %v", e.PatternID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
