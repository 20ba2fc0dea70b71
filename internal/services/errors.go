package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed external call so each stage can pick its fallback.
type ErrorKind string

const (
	KindRetrievalMiss ErrorKind = "retrieval_miss" // topic/title not found
	KindTransport     ErrorKind = "transport"      // network, TLS, timeout, 5xx
	KindParse         ErrorKind = "parse"          // response body not in the expected shape
	KindAuth          ErrorKind = "auth"           // missing or rejected credential
)

// CallError is returned by every external-call wrapper in this package.
type CallError struct {
	Kind ErrorKind
	Op   string // e.g. "wikipedia.summary", "openai.script"
	Err  error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func newCallError(kind ErrorKind, op string, err error) *CallError {
	return &CallError{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the ErrorKind from err. Errors that did not come through a
// wrapper are reported as transport failures.
func KindOf(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransport
}

// kindForStatus maps an HTTP status code from a provider to an ErrorKind.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 404:
		return KindRetrievalMiss
	default:
		return KindTransport
	}
}
