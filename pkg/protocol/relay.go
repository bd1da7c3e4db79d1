package protocol

import "strings"

// EncodePayload returns the relay wire form of e, a single blob published
// to the broker topic.
func EncodePayload(e *Envelope) []byte {
	if e.Auth != "" {
		return []byte(AuthPrefix + e.Auth + ":" + e.Message)
	}
	return []byte(e.Message)
}

// DecodePayload parses a relay payload.
//
// When expectedAuth is non-empty the payload must start with the fixed
// prefix AUTH:<expectedAuth>: or decoding fails with ErrAuthMismatch. The
// remainder after the prefix is the message and may itself contain colons.
// When expectedAuth is empty the whole payload is the message verbatim.
func DecodePayload(payload []byte, expectedAuth string) (*Envelope, error) {
	s := string(payload)

	if expectedAuth == "" {
		return &Envelope{Message: s}, nil
	}

	prefix := AuthPrefix + expectedAuth + ":"
	if !strings.HasPrefix(s, prefix) {
		return nil, ErrAuthMismatch
	}

	return &Envelope{Auth: expectedAuth, Message: s[len(prefix):]}, nil
}
