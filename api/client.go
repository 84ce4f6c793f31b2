package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/veldt-ai/veldt"
	"github.com/veldt-ai/veldt/sse"
)

// Interface compliance check.
var _ veldt.Asker = (*Client)(nil)

// Client implements [veldt.Asker] for the Veldt answer service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the service base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets a structured logger for stream diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		log:        slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ask sends the question and consumes the SSE answer stream, dispatching
// through h. Transport failures are delivered to h.OnError and mirrored in
// the return value; h.OnComplete fires exactly once on every path.
func (c *Client) Ask(ctx context.Context, req veldt.Request, h veldt.Handler) error {
	// fire-at-most-once completion gate, armed for every exit path.
	finished := false
	finish := func() {
		if !finished {
			finished = true
			h.HandleComplete()
		}
	}
	defer finish()

	resp, err := c.send(ctx, req)
	if err != nil {
		h.HandleError(err)
		return err
	}
	defer resp.Body.Close()

	reader := sse.NewReader(resp.Body)
	for {
		payload, err := reader.Next()
		if err == io.EOF {
			// Natural end of input, with or without a terminal marker.
			return nil
		}
		if err != nil {
			err = fmt.Errorf("api: read stream: %w", err)
			h.HandleError(err)
			return err
		}
		c.dispatch(payload, h, finish)
	}
}

// send issues the POST and returns a readable response body.
func (c *Client) send(ctx context.Context, req veldt.Request) (*http.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	body, err := marshalAskRequest(req.Query, req.Mode, req.Token)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+askPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return resp, nil
}

// dispatch decodes one block payload and routes it. Undecodable payloads
// are dropped: a block straddling a transport artifact or carrying a
// keep-alive must not abort the stream.
func (c *Client) dispatch(payload string, h veldt.Handler, finish func()) {
	var ev veldt.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		c.log.Debug("dropping undecodable block", "err", err, "len", len(payload))
		return
	}

	switch ev.Type {
	case veldt.KindDone:
		// Idempotent: only the first terminal marker has effect. The read
		// loop keeps draining so trailing blocks are still processed.
		finish()
	case veldt.KindError:
		c.log.Debug("declared error event", "message", ev.ErrorMessage())
		h.HandleError(&veldt.EventError{Message: ev.ErrorMessage()})
	default:
		h.HandleEvent(ev)
	}
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		return fmt.Errorf("api: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("api: %s: %s", apiErr.Error.Code, apiErr.Error.Message)
}
