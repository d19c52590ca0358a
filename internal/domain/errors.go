package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientTransport signals a connection failure, timeout or 5xx
	// response. Safe to retry.
	ErrTransientTransport = errors.New("transient transport failure")
	// ErrClientRequest signals a 4xx response. Never retried.
	ErrClientRequest = errors.New("request rejected by search engine")
	// ErrSerialization signals a field value that cannot be transmitted.
	ErrSerialization = errors.New("record not serializable")
	// ErrConfiguration signals a missing required connection option.
	ErrConfiguration = errors.New("connection options incomplete")
)

// StatusError wraps a non-2xx response from the search engine. It unwraps
// to ErrClientRequest for 4xx codes and ErrTransientTransport for 5xx, so
// retry classification works through errors.Is.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search engine returned %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code >= 500 {
		return ErrTransientTransport
	}
	return ErrClientRequest
}

// TransportError wraps a failure to reach the search engine at all.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("search engine unreachable: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return ErrTransientTransport }
