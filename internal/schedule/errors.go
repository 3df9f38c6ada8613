package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrCalculation is returned when auto-schedule inputs cannot produce
	// a valid schedule.
	ErrCalculation = errors.New("schedule: calculation failed")

	// ErrManualFormat is the sentinel wrapped by every ParseError so
	// callers can test with errors.Is without inspecting line details.
	ErrManualFormat = errors.New("schedule: invalid manual schedule format")
)

// ParseError describes a malformed manual schedule line. Line numbers are
// 1-based; parsing is all-or-nothing, so the first bad line aborts the call.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid manual schedule on line %d: %q: %s", e.Line, e.Text, e.Reason)
}

// Unwrap lets errors.Is(err, ErrManualFormat) match any parse error.
func (e *ParseError) Unwrap() error {
	return ErrManualFormat
}
