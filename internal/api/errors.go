package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Failure classes. Use errors.Is to classify an error returned by Client.
var (
	// ErrNetwork covers rejected requests and non-2xx responses on reads.
	ErrNetwork = errors.New("network failure")
	// ErrMutation covers non-2xx responses on create, rename, delete and ingest.
	ErrMutation = errors.New("mutation failure")
)

// NetworkError is returned when a request could not be completed or a read
// endpoint answered with a non-2xx status.
type NetworkError struct {
	Op         string // operation, e.g. "list groups"
	StatusCode int    // 0 when the request never got a response
	Status     string // HTTP status text
	Err        error  // transport error, if any
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d %s", e.Op, e.StatusCode, e.Status)
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports whether target is ErrNetwork.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// MutationError is returned when the service rejects a mutation.
type MutationError struct {
	Op         string
	StatusCode int
	// Detail is the server-provided message, or the HTTP status text when
	// the server sent none.
	Detail string
}

// Error implements the error interface.
func (e *MutationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// Is reports whether target is ErrMutation.
func (e *MutationError) Is(target error) bool { return target == ErrMutation }

// Message returns the text to show the user for a failed call: the server
// detail for mutations, the status or transport error otherwise.
func Message(err error) string {
	var mErr *MutationError
	if errors.As(err, &mErr) {
		if mErr.Detail == "" {
			return http.StatusText(mErr.StatusCode)
		}
		return mErr.Detail
	}
	var nErr *NetworkError
	if errors.As(err, &nErr) {
		if nErr.Err != nil {
			return nErr.Err.Error()
		}
		return nErr.Status
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// errorBody is the error envelope used by the service. detail is a string
// for handler errors and a list of objects for request validation errors.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationDetail struct {
	Msg string `json:"msg"`
}

// parseDetail extracts the server-provided detail message, if any.
func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []validationDetail
	if err := json.Unmarshal(eb.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, d := range list {
			if d.Msg != "" {
				msgs = append(msgs, d.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// statusText returns the reason phrase for a response.
func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
}

func readNetworkError(op string, resp *http.Response) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return &NetworkError{Op: op, StatusCode: resp.StatusCode, Status: statusText(resp)}
}

func readMutationError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	detail := parseDetail(body)
	if detail == "" {
		detail = statusText(resp)
	}
	return &MutationError{Op: op, StatusCode: resp.StatusCode, Detail: detail}
}
