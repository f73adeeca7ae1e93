package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidContent = errors.New("event content is not valid structured data")
	ErrEmptyType      = errors.New("event type must not be empty")
	ErrLockTimeout    = errors.New("event log lock not acquired within retry budget")
	ErrAgentNotFound  = errors.New("agent not found")
	ErrLogUnreadable  = errors.New("event log unreadable")
)

// ParseError describes a single malformed log line. Malformed lines are
// isolated and skipped; they never abort a full read of the log.
type ParseError struct {
	Line int
	Raw  string
	Err  error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e ParseError) Unwrap() error {
	return e.Err
}
