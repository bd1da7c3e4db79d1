package network

import (
	"fmt"

	"github.com/heraldnet/herald/pkg/dispatch"
	"github.com/heraldnet/herald/pkg/protocol"
)

// Role selects which side of the delivery an operation performs.
type Role int

const (
	RoleListener Role = iota
	RoleSender
)

func (r Role) String() string {
	switch r {
	case RoleListener:
		return "listener"
	case RoleSender:
		return "sender"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Operation is a fully resolved description of one listen or one send
// action: role, transport, payload, optional auth. It is built once per
// process invocation by the configuration layer and immutable afterwards.
//
// A non-empty Address selects the direct transport; a non-empty Broker
// with a Topic selects the relay transport.
type Operation struct {
	Role    Role
	Address string
	Broker  string
	Port    int
	Topic   string

	// Payload is the literal message for a sender, the command template
	// for a listener.
	Payload string
	Auth    string
}

// Validate reports configuration errors before any network I/O.
func (op *Operation) Validate() error {
	direct := op.Address != ""
	relay := op.Broker != "" && op.Topic != ""

	if !direct && !relay {
		if op.Broker != "" {
			return fmt.Errorf("%w: broker set but topic missing", ErrNoTransport)
		}
		return ErrNoTransport
	}
	if op.Payload == "" {
		return ErrNoPayload
	}
	return nil
}

// Run resolves the operation into exactly one of the four role × transport
// combinations and executes it. Listener runs block until stop is closed;
// sender runs return once the send is acknowledged, confirmed, or failed.
// stats may be nil.
func Run(op *Operation, stats *Stats, stop <-chan struct{}) error {
	if err := op.Validate(); err != nil {
		return err
	}

	if op.Address != "" {
		return runDirect(op, stats, stop)
	}
	return runRelay(op, stats, stop)
}

func runDirect(op *Operation, stats *Stats, stop <-chan struct{}) error {
	switch op.Role {
	case RoleListener:
		l, err := ListenDirect(op.Address)
		if err != nil {
			return err
		}
		l.Auth = op.Auth
		l.Engine = &dispatch.Engine{Template: op.Payload}
		l.Stats = stats
		return l.Serve(stop)
	default:
		return DirectSend(op.Address, &protocol.Envelope{Auth: op.Auth, Message: op.Payload})
	}
}

func runRelay(op *Operation, stats *Stats, stop <-chan struct{}) error {
	sess := NewRelaySession(DialBroker(op.Broker, op.Port, op.Role.String()), op.Topic)
	sess.Auth = op.Auth
	sess.Stats = stats

	switch op.Role {
	case RoleListener:
		sess.Engine = &dispatch.Engine{Template: op.Payload}
		return sess.Listen(stop)
	default:
		return sess.Send(&protocol.Envelope{Auth: op.Auth, Message: op.Payload})
	}
}
