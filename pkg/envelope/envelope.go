// Package envelope defines the JSON request/response units exchanged between
// hosted web content and native services.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const logPrefix = "envelope:envelope"

// ErrMissingCommand is returned when a request has no cmd.
var ErrMissingCommand = errors.New("Missing command")

// Request is an incoming web message.
type Request struct {
	Cmd       string          `json:"cmd"`
	Args      json.RawMessage `json:"args,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// Response is posted back to the hosted content. Exactly one of Data and
// Error is set, gated by Success.
type Response struct {
	RequestID string      `json:"requestId"`
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// RequestError is a per-message failure that remembers which request it
// belongs to so the reply can be correlated.
type RequestError struct {
	RequestID string
	Err       error
}

func (e *RequestError) Error() string { return e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// emptyData stands in for a nil success payload so that data is always present.
var emptyData = struct{}{}

// Decode parses raw into a Request. Failures are reported as a *RequestError
// carrying whatever requestId was sent; a missing or empty cmd wraps
// ErrMissingCommand.
func Decode(raw []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, &RequestError{RequestID: PeekRequestID(raw), Err: fmt.Errorf("Invalid message: %v", err)}
	}
	if req.Cmd == "" {
		return &req, &RequestError{RequestID: req.RequestID, Err: ErrMissingCommand}
	}
	return &req, nil
}

// PeekRequestID returns the string requestId of raw, or "" when there is none.
func PeekRequestID(raw []byte) string {
	var probe struct {
		RequestID json.RawMessage `json:"requestId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	var id string
	if err := json.Unmarshal(probe.RequestID, &id); err != nil {
		return ""
	}
	return id
}

// IsObject reports whether raw is a syntactically valid JSON object. Anything
// else cannot carry a requestId and is not worth replying to.
func IsObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}

// DecodeArgs unmarshals the request args into v. Absent or null args leave v untouched.
func (r *Request) DecodeArgs(v interface{}) error {
	if len(r.Args) == 0 || bytes.Equal(bytes.TrimSpace(r.Args), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(r.Args, v); err != nil {
		return fmt.Errorf("Invalid args for %s: %v", r.Cmd, err)
	}
	return nil
}

// Success builds a success response.
func Success(requestID string, data interface{}) *Response {
	if data == nil {
		data = emptyData
	}
	return &Response{RequestID: requestID, Success: true, Data: data}
}

// Failure builds a failure response carrying err's message.
func Failure(requestID string, err error) *Response {
	msg := "Unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Response{RequestID: requestID, Success: false, Error: msg}
}

// FailureFor builds a failure response for err, echoing the request id of a
// *RequestError anywhere in its chain.
func FailureFor(err error) *Response {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return Failure(reqErr.RequestID, reqErr.Err)
	}
	return Failure("", err)
}

// Encode serializes a response.
func Encode(resp *Response) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("%s - failed to encode response: %w", logPrefix, err)
	}
	return string(data), nil
}
