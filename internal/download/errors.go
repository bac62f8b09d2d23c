package download

import (
	"errors"
	"fmt"
)

// Kind classifies download failures
type Kind int

const (
	// KindInvalidInput means the user input was rejected before any work started
	KindInvalidInput Kind = iota + 1
	// KindEngine means the download engine failed or returned nothing
	KindEngine
	// KindFilesystem means the output directory could not be prepared
	KindFilesystem
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid-input"
	case KindEngine:
		return "engine"
	case KindFilesystem:
		return "filesystem"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrEmptyInput is returned for empty or whitespace-only input
	ErrEmptyInput = errors.New("empty input")
	// ErrNoResult is returned when the engine finished without a result
	ErrNoResult = errors.New("download failed")
	// ErrOutputBusy is returned when another download holds the output directory
	ErrOutputBusy = errors.New("output directory is busy")
)

// Error is the error type returned by Service.Download
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error returns the message. Engine messages are passed through verbatim.
func (e *Error) Error() string {
	if e.Kind == KindEngine || e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err if it is or wraps an *Error
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}
