// Package protocol implements the herald notification envelope.
//
// An envelope is the (optional auth tag, message) pair a sender delivers to
// a listener. The same envelope has two wire forms, one per transport:
//
// Direct (line-oriented, newline-terminated UTF-8):
//
//	[AUTH:<token>\n]
//	<message>\n
//
// answered by the listener with a single acknowledgment line, OK on an
// accepted dispatch attempt or ERR:AUTH on rejection.
//
// Relay (single payload blob published to a broker topic):
//
//	[AUTH:<token>:]<message>
//
// The two framings differ deliberately. A direct connection carries exactly
// one envelope, so an auth failure rejects and terminates the connection. A
// relay subscription is long-lived, so one bad payload is discarded and the
// session stays up.
package protocol
