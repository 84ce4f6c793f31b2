package api_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldt-ai/veldt"
	"github.com/veldt-ai/veldt/api"
)

// sseHandler writes raw SSE chunks with a flush between each, so chunk
// boundaries reach the client roughly where the test places them.
func sseHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, chunk := range chunks {
			fmt.Fprint(w, chunk)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// recorder collects handler callbacks in arrival order.
type recorder struct {
	mu        sync.Mutex
	events    []veldt.Event
	errs      []error
	completes int
}

func (r *recorder) handler() veldt.Handler {
	return veldt.Handler{
		OnEvent: func(e veldt.Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		OnComplete: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.completes++
		},
	}
}

func askChunks(t *testing.T, chunks ...string) (*recorder, error) {
	t.Helper()
	srv := httptest.NewServer(sseHandler(chunks...))
	t.Cleanup(srv.Close)

	client := api.New(api.WithBaseURL(srv.URL))
	rec := &recorder{}
	err := client.Ask(context.Background(), veldt.Request{Query: "q"}, rec.handler())
	return rec, err
}

func TestClient_Ask_NormalFlow(t *testing.T) {
	t.Parallel()

	rec, err := askChunks(t,
		"data: {\"type\":\"agent_start\",\"agent\":\"retriever\"}\n\n",
		"data: {\"type\":\"agent_complete\",\"agent\":\"retriever\",\"elapsed\":1.2}\n\n",
		"data: {\"type\":\"final\",\"answer\":\"ok\",\"confidence\":0.9}\n\n",
		"data: {\"type\":\"done\"}\n\n",
	)
	require.NoError(t, err)

	require.Len(t, rec.events, 3)
	assert.Equal(t, veldt.KindAgentStart, rec.events[0].Type)
	assert.Equal(t, "retriever", rec.events[0].Agent)
	assert.Equal(t, veldt.KindAgentComplete, rec.events[1].Type)
	assert.Equal(t, 1.2, rec.events[1].Elapsed)
	assert.Equal(t, veldt.KindFinal, rec.events[2].Type)
	assert.Equal(t, "ok", rec.events[2].Answer)

	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completes)
}

func TestClient_Ask_PayloadSplitAcrossChunks(t *testing.T) {
	t.Parallel()

	// Exact scenario: a JSON payload split mid-key across two chunks must
	// decode identically to single-chunk delivery.
	rec, err := askChunks(t,
		"data: {\"typ",
		"e\":\"final\",\"answer\":\"ok\"}\n\n",
		"data: {\"type\":\"done\"}\n\n",
	)
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	assert.Equal(t, veldt.Event{Type: veldt.KindFinal, Answer: "ok"}, rec.events[0])
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completes)
}

func TestClient_Ask_NoTerminalMarker(t *testing.T) {
	t.Parallel()

	// Abrupt end without "done" resolves as successful completion.
	rec, err := askChunks(t,
		"data: {\"type\":\"agent_start\",\"agent\":\"a\"}\n\n",
		"data: {\"type\":\"agent_start\",\"agent\":\"b\"}\n\n",
		"data: {\"type\":\"final\",\"answer\":\"partial\"}\n\n",
	)
	require.NoError(t, err)

	require.Len(t, rec.events, 3)
	assert.Equal(t, "a", rec.events[0].Agent)
	assert.Equal(t, "b", rec.events[1].Agent)
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completes)
}

func TestClient_Ask_DuplicateTerminalMarkers(t *testing.T) {
	t.Parallel()

	rec, err := askChunks(t,
		"data: {\"type\":\"done\"}\n\n",
		"data: {\"type\":\"done\"}\n\n",
		"data: {\"type\":\"done\"}\n\n",
	)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.completes)
	assert.Empty(t, rec.errs)
}

func TestClient_Ask_EventsAfterTerminalMarkerStillDispatched(t *testing.T) {
	t.Parallel()

	rec, err := askChunks(t,
		"data: {\"type\":\"done\"}\n\n",
		"data: {\"type\":\"cache_hit\"}\n\n",
	)
	require.NoError(t, err)
	require.Len(t, rec.events, 1)
	assert.Equal(t, veldt.KindCacheHit, rec.events[0].Type)
	assert.Equal(t, 1, rec.completes)
}

func TestClient_Ask_DeclaredErrorEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"detail field", `{"type":"error","detail":"x"}`, "x"},
		{"error field fallback", `{"type":"error","error":"y"}`, "y"},
		{"fixed default", `{"type":"error"}`, veldt.DefaultErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, err := askChunks(t,
				"data: "+tt.payload+"\n\n",
				"data: {\"type\":\"final\",\"answer\":\"still here\"}\n\n",
				"data: {\"type\":\"done\"}\n\n",
			)
			require.NoError(t, err)

			require.Len(t, rec.errs, 1)
			var evErr *veldt.EventError
			require.ErrorAs(t, rec.errs[0], &evErr)
			assert.Equal(t, tt.want, evErr.Message)

			// A declared error does not terminate consumption.
			require.Len(t, rec.events, 1)
			assert.Equal(t, "still here", rec.events[0].Answer)
			assert.Equal(t, 1, rec.completes)
		})
	}
}

func TestClient_Ask_MalformedBlocksDroppedSilently(t *testing.T) {
	t.Parallel()

	rec, err := askChunks(t,
		"data: this is not json\n\n",
		"data: {\"truncated\":\n\n",
		"data: {\"type\":\"final\",\"answer\":\"ok\"}\n\n",
		"data: {\"type\":\"done\"}\n\n",
	)
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "ok", rec.events[0].Answer)
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completes)
}

func TestClient_Ask_KeepAliveBlocksProduceNoCallbacks(t *testing.T) {
	t.Parallel()

	rec, err := askChunks(t,
		": ping\n\n",
		"event: progress\n\n",
		"data: {\"type\":\"done\"}\n\n",
	)
	require.NoError(t, err)
	assert.Empty(t, rec.events)
	assert.Empty(t, rec.errs)
	assert.Equal(t, 1, rec.completes)
}

func TestClient_Ask_MultiLinePayload(t *testing.T) {
	t.Parallel()

	// Two data lines are joined with a newline before decoding; JSON
	// tolerates the embedded newline between tokens.
	rec, err := askChunks(t,
		"data: {\"type\":\"final\",\ndata: \"answer\":\"ok\"}\n\n",
		"data: {\"type\":\"done\"}\n\n",
	)
	require.NoError(t, err)
	require.Len(t, rec.events, 1)
	assert.Equal(t, "ok", rec.events[0].Answer)
}

func TestClient_Ask_UnknownKindsForwarded(t *testing.T) {
	t.Parallel()

	rec, err := askChunks(t,
		"data: {\"type\":\"agent_thought\",\"agent\":\"planner\"}\n\n",
		"data: {\"type\":\"done\"}\n\n",
	)
	require.NoError(t, err)
	require.Len(t, rec.events, 1)
	assert.Equal(t, "agent_thought", rec.events[0].Type)
	assert.Equal(t, "planner", rec.events[0].Agent)
}

func TestClient_Ask_HTTPErrorResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":"rate_limited","message":"slow down"}}`)
	}))
	t.Cleanup(srv.Close)

	client := api.New(api.WithBaseURL(srv.URL))
	rec := &recorder{}
	err := client.Ask(context.Background(), veldt.Request{Query: "q"}, rec.handler())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limited")
	require.Len(t, rec.errs, 1)
	assert.Equal(t, err, rec.errs[0])
	assert.Empty(t, rec.events)
	assert.Equal(t, 1, rec.completes)
}

func TestClient_Ask_TransportFailureBeforeStream(t *testing.T) {
	t.Parallel()

	// Point at a server that is already gone.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := api.New(api.WithBaseURL(srv.URL))
	rec := &recorder{}
	err := client.Ask(context.Background(), veldt.Request{Query: "q"}, rec.handler())

	require.Error(t, err)
	require.Len(t, rec.errs, 1)
	assert.Empty(t, rec.events)
	// Completion is guaranteed even on this path.
	assert.Equal(t, 1, rec.completes)
}

func TestClient_Ask_AbruptCloseMidBlock(t *testing.T) {
	t.Parallel()

	// Connection dies after a complete event but mid-way through the next
	// block. The trailing partial block either decodes or is dropped; the
	// stream still resolves with exactly one completion.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\":\"agent_start\",\"agent\":\"retriever\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"final\",\"ans")
		if flusher != nil {
			flusher.Flush()
		}
		hj, ok := w.(http.Hijacker)
		if ok {
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)

	client := api.New(api.WithBaseURL(srv.URL))
	rec := &recorder{}
	err := client.Ask(context.Background(), veldt.Request{Query: "q"}, rec.handler())

	require.Len(t, rec.events, 1)
	assert.Equal(t, "retriever", rec.events[0].Agent)
	assert.Equal(t, 1, rec.completes)
	// The abrupt close surfaces as a read error on some stacks and as EOF
	// on others; either way the completion guarantee held above.
	if err != nil {
		assert.Len(t, rec.errs, 1)
	}
}

func TestClient_Ask_ContextCancellation(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\":\"agent_start\",\"agent\":\"a\"}\n\n")
		if flusher != nil {
			flusher.Flush()
		}
		close(started)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.New(api.WithBaseURL(srv.URL))
	rec := &recorder{}

	done := make(chan error, 1)
	go func() {
		done <- client.Ask(ctx, veldt.Request{Query: "q"}, rec.handler())
	}()

	<-started
	cancel()

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.events, 1)
	assert.Len(t, rec.errs, 1)
	assert.Equal(t, 1, rec.completes)
}

func TestClient_Ask_InvalidRequest(t *testing.T) {
	t.Parallel()

	client := api.New()
	rec := &recorder{}
	err := client.Ask(context.Background(), veldt.Request{}, rec.handler())

	require.Error(t, err)
	assert.ErrorIs(t, err, veldt.ErrValidation)
	require.Len(t, rec.errs, 1)
	assert.Equal(t, 1, rec.completes)
}

func TestClient_Ask_RequestBody(t *testing.T) {
	t.Parallel()

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = string(body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/ask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		sseHandler("data: {\"type\":\"done\"}\n\n")(w, r)
	}))
	t.Cleanup(srv.Close)

	client := api.New(api.WithBaseURL(srv.URL))
	rec := &recorder{}
	err := client.Ask(context.Background(), veldt.Request{
		Query: "why is the sky blue?",
		Mode:  veldt.ModeDeep,
		Token: "tok_123",
	}, rec.handler())
	require.NoError(t, err)

	assert.JSONEq(t, `{"query":"why is the sky blue?","mode":"deep","token":"tok_123"}`, got)
}

func TestClient_Ask_NilHandlerCallbacks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(sseHandler(
		"data: {\"type\":\"final\",\"answer\":\"ok\"}\n\n",
		"data: {\"type\":\"error\",\"detail\":\"x\"}\n\n",
		"data: {\"type\":\"done\"}\n\n",
	))
	t.Cleanup(srv.Close)

	client := api.New(api.WithBaseURL(srv.URL))
	assert.NotPanics(t, func() {
		err := client.Ask(context.Background(), veldt.Request{Query: "q"}, veldt.Handler{})
		assert.NoError(t, err)
	})
}

func TestClient_Ask_IndependentCallsShareNoState(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(sseHandler(
		"data: {\"type\":\"final\",\"answer\":\"ok\"}\n\n",
		"data: {\"type\":\"done\"}\n\n",
	))
	t.Cleanup(srv.Close)

	client := api.New(api.WithBaseURL(srv.URL))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := &recorder{}
			err := client.Ask(context.Background(), veldt.Request{Query: "q"}, rec.handler())
			assert.NoError(t, err)
			assert.Equal(t, 1, rec.completes)
			assert.Len(t, rec.events, 1)
		}()
	}
	wg.Wait()
}

func TestClient_Ask_HTTPErrorNonJSONBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	}))
	t.Cleanup(srv.Close)

	client := api.New(api.WithBaseURL(srv.URL))
	err := client.Ask(context.Background(), veldt.Request{Query: "q"}, veldt.Handler{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestClient_Ask_DeclaredErrorIsNotTransportError(t *testing.T) {
	t.Parallel()

	rec, err := askChunks(t,
		"data: {\"type\":\"error\",\"detail\":\"index cold\"}\n\n",
		"data: {\"type\":\"done\"}\n\n",
	)
	// Declared errors never surface through the return value.
	require.NoError(t, err)
	require.Len(t, rec.errs, 1)

	var evErr *veldt.EventError
	assert.True(t, errors.As(rec.errs[0], &evErr))
}
