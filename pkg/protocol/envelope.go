package protocol

import "errors"

// Protocol constants
const (
	// Prefix of the auth line (direct) and auth segment (relay)
	AuthPrefix = "AUTH:"

	// Acknowledgment lines written by a direct listener
	AckOK       = "OK"
	AckAuthFail = "ERR:AUTH"
)

var (
	ErrAuthMismatch = errors.New("auth token missing or mismatched")
	ErrTruncated    = errors.New("truncated envelope")
)

// Envelope is the unit exchanged between a sender and a listener,
// independent of wire encoding. Auth is empty when the operation was
// configured without a token.
//
// Message is a single line of text; it must not contain a line terminator.
type Envelope struct {
	Auth    string
	Message string
}
