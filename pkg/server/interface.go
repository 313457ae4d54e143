/*
Package server implements a msgpack IPC for sftrie's five query forms.

The server operates on a synchronous request/response model: a client
sends one msgpack-encoded message on stdin and receives exactly one
msgpack-encoded message on stdout before sending the next; messages are
written back to back with no length prefix. No
request is processed concurrently with another, matching the rest of the
system's single-writer-per-index discipline.

# Message Types

Every request carries an ID the response echoes back. ExactRequest,
PrefixRequest, PredictRequest, ApproxRequest, and ApproxPredictRequest
cover the five query forms from the CLI grammar; HealthRequest is a
plain liveness check.

msgpack frames every message rather than JSON: smaller, faster to
decode, and the natural fit for a hot IPC path handling one request at
a time.
*/
package server

import "github.com/vmihailenco/msgpack/v5"

// ExactRequest asks whether query is a member of the index.
type ExactRequest struct {
	ID    string `msgpack:"id"`
	Query string `msgpack:"q"`
}

// ExactResponse reports membership.
type ExactResponse struct {
	ID          string `msgpack:"id"`
	Found       bool   `msgpack:"found"`
	TimeTakenUS int64  `msgpack:"t"`
}

// PrefixRequest asks for every key on the root-to-query path that is
// itself a stored key.
type PrefixRequest struct {
	ID    string `msgpack:"id"`
	Query string `msgpack:"q"`
}

// PrefixResponse carries the matched prefixes, shortest first.
type PrefixResponse struct {
	ID          string   `msgpack:"id"`
	Prefixes    []string `msgpack:"prefixes"`
	TimeTakenUS int64    `msgpack:"t"`
}

// PredictRequest asks for every key having query as a prefix.
type PredictRequest struct {
	ID    string `msgpack:"id"`
	Query string `msgpack:"q"`
	Limit int    `msgpack:"l,omitempty"`
}

// PredictResponse carries the matched keys.
type PredictResponse struct {
	ID          string   `msgpack:"id"`
	Keys        []string `msgpack:"keys"`
	TimeTakenUS int64    `msgpack:"t"`
}

// ApproxRequest asks for every key within MaxEdits of query.
type ApproxRequest struct {
	ID       string `msgpack:"id"`
	Query    string `msgpack:"q"`
	MaxEdits int    `msgpack:"k"`
	Limit    int    `msgpack:"l,omitempty"`
}

// ApproxMatch is one approximate-search hit.
type ApproxMatch struct {
	Key   string `msgpack:"key"`
	Edits int    `msgpack:"edits"`
}

// ApproxResponse carries the matched keys with their edit distance.
type ApproxResponse struct {
	ID          string        `msgpack:"id"`
	Matches     []ApproxMatch `msgpack:"matches"`
	TimeTakenUS int64         `msgpack:"t"`
}

// ApproxPredictRequest asks for every key reachable by extending some
// prefix within MaxEdits of query.
type ApproxPredictRequest struct {
	ID       string `msgpack:"id"`
	Query    string `msgpack:"q"`
	MaxEdits int    `msgpack:"k"`
	Limit    int    `msgpack:"l,omitempty"`
}

// ApproxPredictMatch is one approximate-predictive hit.
type ApproxPredictMatch struct {
	Key         string `msgpack:"key"`
	EditsPrefix int    `msgpack:"editsPrefix"`
	EditsWhole  int    `msgpack:"editsWhole"`
}

// ApproxPredictResponse carries the matched keys with both edit distances.
type ApproxPredictResponse struct {
	ID          string               `msgpack:"id"`
	Matches     []ApproxPredictMatch `msgpack:"matches"`
	TimeTakenUS int64                `msgpack:"t"`
}

// HealthRequest asks the server to confirm it is still alive.
type HealthRequest struct {
	ID string `msgpack:"id"`
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// ErrorResponse is returned in place of the expected response type when a
// request cannot be served.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"error"`
	Code  int    `msgpack:"code"`
}

// envelope is the wire wrapper every message is framed in, so the reader
// can dispatch on Type before decoding the typed payload.
type envelope struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}
