package parsers

import "fmt"

// ParseError reports input that could not be parsed at all. It aborts the
// whole import: no partial rows are returned alongside it.
type ParseError struct {
	Format string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse failed: %v", e.Format, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func parseErr(format string, cause error) error {
	return &ParseError{Format: format, Cause: cause}
}
