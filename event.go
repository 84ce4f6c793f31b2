// Package veldt defines the domain types and callback contract for the
// Veldt research answer service. The service answers a free-text question
// by fanning work out to named agents and streaming progress plus a final
// cited answer as Server-Sent Events; subpackages implement the transport
// ([api]), the wire framing ([sse]), and the terminal frontend ([tui]).
package veldt

// Event kinds recognized on the wire. Kinds other than [KindDone] and
// [KindError] are normal events and are forwarded to the consumer
// unchanged, so new server-side kinds degrade gracefully.
const (
	KindAgentStart    = "agent_start"
	KindAgentComplete = "agent_complete"
	KindFinal         = "final"
	KindDone          = "done"
	KindError         = "error"
	KindCacheHit      = "cache_hit"
)

// DefaultErrorMessage is reported for declared error events that carry
// neither a detail nor an error field.
const DefaultErrorMessage = "unknown error"

// Event is one decoded record from an answer stream. Type selects the
// event kind; the remaining fields are kind-specific and optional.
type Event struct {
	Type string `json:"type"`

	// agent_start, agent_complete
	Agent   string  `json:"agent,omitempty"`
	Elapsed float64 `json:"elapsed,omitempty"` // seconds

	// final
	Answer     string     `json:"answer,omitempty"`
	Documents  []Document `json:"documents,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`

	// error
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Terminal reports whether the event is the stream's terminal marker.
func (e Event) Terminal() bool { return e.Type == KindDone }

// ErrorMessage resolves the human-readable text of a declared error event:
// Detail when present, else Error, else [DefaultErrorMessage].
func (e Event) ErrorMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Error != "" {
		return e.Error
	}
	return DefaultErrorMessage
}

// Document is the citation metadata attached to a final answer.
type Document struct {
	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score,omitempty"`
}
