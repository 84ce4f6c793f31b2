// Package api implements [veldt.Asker] against the Veldt answer service.
//
// One Ask call issues a single POST and consumes the SSE response body to
// exhaustion, dispatching decoded events through the caller's handler. The
// completion callback fires exactly once per call no matter how the stream
// ends: terminal marker, natural end of input, transport failure, or
// cancellation. An abrupt close without a terminal marker counts as
// successful completion; truncated answers are distinguished by content,
// not by transport signal.
package api

import "encoding/json"

const (
	defaultBaseURL = "https://api.veldt.dev"
	askPath        = "/v1/ask"
)

// askRequest is the JSON body sent to the ask endpoint.
type askRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode,omitempty"`
	Token string `json:"token,omitempty"`
}

// apiErrorResponse is the JSON body returned on non-2xx HTTP responses.
type apiErrorResponse struct {
	Error apiErrorDetail `json:"error"`
}

type apiErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func marshalAskRequest(query, mode, token string) ([]byte, error) {
	return json.Marshal(askRequest{Query: query, Mode: mode, Token: token})
}
