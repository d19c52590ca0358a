package esmirror

import "github.com/esmirror/esmirror/internal/domain"

// Sentinel errors for classification with errors.Is.
var (
	// ErrTransientTransport marks connection failures, timeouts and 5xx
	// responses; such failures are retried before they surface.
	ErrTransientTransport = domain.ErrTransientTransport
	// ErrClientRequest marks 4xx responses; never retried.
	ErrClientRequest = domain.ErrClientRequest
	// ErrSerialization marks a record whose value cannot be transmitted;
	// no write is attempted for it.
	ErrSerialization = domain.ErrSerialization
	// ErrConfiguration marks a call issued without the required host/port
	// options; fails before any network activity.
	ErrConfiguration = domain.ErrConfiguration
)
