package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMount is returned by a mount point whose rendering surface is not
	// available yet. Views treat it as "try again on the next render pass".
	ErrNoMount = errors.New("rendering surface not mounted")

	// ErrUnknownLayout is returned when a layout name is not registered.
	ErrUnknownLayout = errors.New("unknown layout")

	// ErrUnsupportedSelector is returned by engines for label overlay
	// selectors they cannot match.
	ErrUnsupportedSelector = errors.New("unsupported selector")

	// ErrNotInitialized is returned when an engine operation runs before
	// Initialize.
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrSourceClosed is returned when subscribing to a stopped data source.
	ErrSourceClosed = errors.New("data source closed")
)

// EngineError wraps a failure reported by a rendering engine. These are not
// recovered by the view; they propagate to whoever runs it.
type EngineError struct {
	// Op is the engine operation that failed (e.g. "initialize", "layout").
	Op  string
	Err error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError wraps err for op. A nil err yields nil.
func NewEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	return &EngineError{Op: op, Err: err}
}
