package results

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLeague is matched by every *UnknownLeagueError
	ErrUnknownLeague = errors.New("unknown league")

	// ErrFileAccess is matched by every *FileAccessError
	ErrFileAccess = errors.New("season file not readable")

	// ErrMalformedRecord is matched by every *MalformedRecordError
	ErrMalformedRecord = errors.New("malformed record")
)

// UnknownLeagueError is returned when a league key is not configured
type UnknownLeagueError struct {
	Key        string
	Suggestion string // closest configured key, may be empty
}

func (e *UnknownLeagueError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown league %q (did you mean %q?)", e.Key, e.Suggestion)
	}
	return fmt.Sprintf("unknown league %q", e.Key)
}

func (e *UnknownLeagueError) Is(target error) bool {
	return target == ErrUnknownLeague
}

// FileAccessError wraps a failure to open or read a season file
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot read season file %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

func (e *FileAccessError) Is(target error) bool {
	return target == ErrFileAccess
}

// MalformedRecordError describes a line that looked like a date or match line
// but could not be parsed
type MalformedRecordError struct {
	League string
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s line %d: %s: %q", e.League, e.Line, e.Reason, e.Text)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
