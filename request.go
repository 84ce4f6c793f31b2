package veldt

import "fmt"

// Answer modes. An empty mode defers to the server default.
const (
	ModeQuick = "quick"
	ModeDeep  = "deep"
)

// Request carries one question to the answer service.
type Request struct {
	Query string // free-text question, required
	Mode  string // answer mode; empty = server default
	Token string // optional identity token, passed through verbatim
}

// Validate checks universal constraints on Request.
func (r Request) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query must not be empty: %w", ErrValidation)
	}
	switch r.Mode {
	case "", ModeQuick, ModeDeep:
	default:
		return fmt.Errorf("unknown mode %q: %w", r.Mode, ErrValidation)
	}
	return nil
}
