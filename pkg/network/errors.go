// Package network implements herald's two delivery transports and the
// orchestration that selects between them: a direct point-to-point TCP
// exchange and relay through an MQTT publish/subscribe broker.
package network

import "errors"

// Failure taxonomy. Operations wrap these with detail; callers classify
// with errors.Is.
var (
	// ErrConnect: the transport could not be established (bind, dial, or
	// broker connect). Fatal to the operation.
	ErrConnect = errors.New("connect failed")

	// ErrAuth: the peer rejected the auth tag, or an incoming envelope
	// carried a missing/mismatched one.
	ErrAuth = errors.New("authentication rejected")

	// ErrTimeout: a relay publish was not confirmed within the bound.
	ErrTimeout = errors.New("confirmation timeout")

	// ErrProtocol: malformed or unexpected peer traffic.
	ErrProtocol = errors.New("protocol error")

	// Configuration errors, reported before any network I/O.
	ErrNoTransport = errors.New("no transport configured")
	ErrNoPayload   = errors.New("no message or command template configured")
)
