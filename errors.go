package veldt

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")
)

// EventError is a declared error event surfaced through Handler.OnError.
// It is distinguishable from transport failures with [errors.As]; the
// stream continues after one is delivered.
type EventError struct {
	Message string
}

func (e *EventError) Error() string { return e.Message }
