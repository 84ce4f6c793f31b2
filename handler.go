package veldt

import "context"

// Handler receives the decoded output of one answer stream. Set the
// callbacks you need; nil callbacks are skipped. Delivery order is the
// authoritative order of server-side progress.
//
// Per stream consumption:
//   - OnEvent fires once per normal event, in arrival order.
//   - OnError fires once per declared error event and once for a transport
//     failure; the stream continues after declared errors.
//   - OnComplete fires exactly once, on every exit path.
type Handler struct {
	OnEvent    func(Event)
	OnError    func(error)
	OnComplete func()
}

// HandleEvent invokes OnEvent when set.
func (h Handler) HandleEvent(e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// HandleError invokes OnError when set.
func (h Handler) HandleError(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// HandleComplete invokes OnComplete when set.
func (h Handler) HandleComplete() {
	if h.OnComplete != nil {
		h.OnComplete()
	}
}

// Asker issues one question and streams the result through a Handler.
// The returned error mirrors any transport failure also delivered to
// OnError, so callers can use conventional error flow. Implementations
// must guarantee OnComplete fires exactly once per call, including on
// transport failure and context cancellation.
type Asker interface {
	Ask(ctx context.Context, req Request, h Handler) error
}
