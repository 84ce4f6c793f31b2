// Package mock provides test doubles for veldt interfaces using function
// fields.
package mock

import (
	"context"

	"github.com/veldt-ai/veldt"
)

// Interface compliance checks.
var (
	_ veldt.Asker = (*Asker)(nil)
	_ veldt.Asker = (*ScriptedAsker)(nil)
)

// Asker is a test double for veldt.Asker.
// Set AskFn before calling Ask.
type Asker struct {
	AskFn func(ctx context.Context, req veldt.Request, h veldt.Handler) error
}

// Ask delegates to AskFn.
func (a *Asker) Ask(ctx context.Context, req veldt.Request, h veldt.Handler) error {
	return a.AskFn(ctx, req, h)
}

// ScriptedAsker replays a fixed sequence through the handler with the same
// delivery contract as the real client: events in order, declared errors
// through OnError without terminating, exactly one completion. Err, when
// set, is delivered through OnError and returned after the scripted events.
type ScriptedAsker struct {
	Events []veldt.Event
	Err    error

	// Requests records every request received, for assertions.
	Requests []veldt.Request
}

// Ask replays the script.
func (a *ScriptedAsker) Ask(ctx context.Context, req veldt.Request, h veldt.Handler) error {
	a.Requests = append(a.Requests, req)
	defer h.HandleComplete()

	for _, ev := range a.Events {
		select {
		case <-ctx.Done():
			err := ctx.Err()
			h.HandleError(err)
			return err
		default:
		}

		switch ev.Type {
		case veldt.KindDone:
			// Terminal markers are consumed by the real client; a script
			// containing one simply stops early.
			return nil
		case veldt.KindError:
			h.HandleError(&veldt.EventError{Message: ev.ErrorMessage()})
		default:
			h.HandleEvent(ev)
		}
	}

	if a.Err != nil {
		h.HandleError(a.Err)
		return a.Err
	}
	return nil
}
