package network

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"

	"github.com/heraldnet/herald/pkg/dispatch"
	"github.com/heraldnet/herald/pkg/protocol"
)

// DirectListener accepts point-to-point connections and handles them one
// at a time: decode, dispatch, acknowledge, close. A slow command delays
// later connections (they queue at the OS accept backlog) but never drops
// them.
type DirectListener struct {
	Auth   string
	Engine *dispatch.Engine
	Stats  *Stats

	listener net.Listener
}

// ListenDirect binds addr for a direct listener. A bind failure is a
// startup precondition failure, reported as ErrConnect.
func ListenDirect(addr string) (*DirectListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: bind %s: %v", ErrConnect, addr, err)
	}
	return &DirectListener{listener: ln}, nil
}

// Addr returns the bound address.
func (l *DirectListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Serve accepts and handles connections sequentially until stop is closed,
// then returns nil. Per-connection failures are logged and never end the
// loop.
func (l *DirectListener) Serve(stop <-chan struct{}) error {
	go func() {
		<-stop
		l.listener.Close()
	}()

	log.Printf("Listening on %s", l.listener.Addr())
	if l.Engine != nil {
		log.Printf("Command: %s", l.Engine.Template)
	}
	if l.Auth != "" {
		log.Printf("Auth: enabled")
	}

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("Connection error: %v", err)
			continue
		}
		l.handle(conn)
	}
}

// Close unblocks Serve by closing the bound socket.
func (l *DirectListener) Close() error {
	return l.listener.Close()
}

func (l *DirectListener) handle(conn net.Conn) {
	defer conn.Close()

	peer := ""
	if addr := conn.RemoteAddr(); addr != nil {
		peer = addr.String()
	}

	env, err := protocol.ReadEnvelope(bufio.NewReader(conn), l.Auth)
	switch {
	case errors.Is(err, protocol.ErrAuthMismatch):
		log.Printf("[%s] Auth failed", peer)
		l.Stats.AuthFailure()
		fmt.Fprintf(conn, "%s\n", protocol.AckAuthFail)
		return
	case err != nil:
		// No message line before EOF. Drop silently, no acknowledgment.
		return
	}

	log.Printf("[%s] %s", peer, env.Message)
	l.Stats.MessageReceived()

	if l.Engine != nil {
		outcome := l.Engine.Run(env.Message)
		reportOutcome(outcome)
		if outcome.Launched {
			l.Stats.Dispatched()
		}
	}

	// Acknowledgment means "received and dispatch attempted", not "command
	// succeeded".
	fmt.Fprintf(conn, "%s\n", protocol.AckOK)
}

func reportOutcome(o dispatch.Outcome) {
	log.Printf("Running: %s", o.Command)
	switch {
	case !o.Launched:
		log.Printf("Failed to run: %v", o.Err)
	case !o.Success:
		log.Printf("Command failed: %v", o.Err)
	}
}

// DirectSend connects to addr, delivers one envelope, and waits for the
// listener's acknowledgment line.
func DirectSend(addr string, env *protocol.Envelope) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %v", ErrConnect, addr, err)
	}
	defer conn.Close()

	if err := protocol.WriteEnvelope(conn, env); err != nil {
		return fmt.Errorf("%w: write: %v", ErrProtocol, err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("%w: no acknowledgment: %v", ErrProtocol, err)
	}

	switch resp := strings.TrimSpace(line); resp {
	case protocol.AckOK:
		return nil
	case protocol.AckAuthFail:
		return fmt.Errorf("%w by %s", ErrAuth, addr)
	default:
		return fmt.Errorf("%w: unexpected response %q", ErrProtocol, resp)
	}
}
