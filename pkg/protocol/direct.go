package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteEnvelope writes the direct wire form of e to w: an optional
// AUTH:<token> line followed by the message line.
func WriteEnvelope(w io.Writer, e *Envelope) error {
	if e.Auth != "" {
		if _, err := fmt.Fprintf(w, "%s%s\n", AuthPrefix, e.Auth); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s\n", e.Message)
	return err
}

// ReadEnvelope reads the direct wire form from r.
//
// When expectedAuth is non-empty the first line must equal
// AUTH:<expectedAuth> exactly; anything else, including EOF before a first
// line, fails with ErrAuthMismatch and the message line is never read. When
// expectedAuth is empty the first line is always the message, even if it
// happens to start with the auth prefix.
//
// EOF before the message line fails with ErrTruncated.
func ReadEnvelope(r *bufio.Reader, expectedAuth string) (*Envelope, error) {
	env := &Envelope{}

	if expectedAuth != "" {
		line, err := readLine(r)
		if err != nil {
			return nil, ErrAuthMismatch
		}
		if line != AuthPrefix+expectedAuth {
			return nil, ErrAuthMismatch
		}
		env.Auth = expectedAuth
	}

	msg, err := readLine(r)
	if err != nil {
		return nil, ErrTruncated
	}
	env.Message = msg

	return env, nil
}

// readLine returns the next line without its terminator. A final line not
// ending in a newline still counts as a line; EOF with no content is an
// error.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
