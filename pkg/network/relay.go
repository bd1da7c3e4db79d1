package network

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/heraldnet/herald/pkg/dispatch"
	"github.com/heraldnet/herald/pkg/protocol"
)

// Relay QoS: subscribe at-least-once, publish at-most-once.
const (
	subscribeQoS byte = 1
	publishQoS   byte = 0

	// Bound on waiting for the broker to confirm an outgoing publish.
	publishConfirmWait = 5 * time.Second

	disconnectQuiesceMs = 250
)

// RelaySession owns one broker connection for a single listen or send
// operation. Sessions are independent; multiple can run in one process.
type RelaySession struct {
	Auth   string
	Engine *dispatch.Engine
	Stats  *Stats

	// ConfirmTimeout bounds the wait for publish confirmation. Zero means
	// the default of five seconds.
	ConfirmTimeout time.Duration

	client BrokerClient
	topic  string
}

// NewRelaySession wraps an unconnected broker client for the given topic.
func NewRelaySession(client BrokerClient, topic string) *RelaySession {
	return &RelaySession{client: client, topic: topic}
}

func (s *RelaySession) connect() error {
	if tok := s.client.Connect(); tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("%w: broker connect: %v", ErrConnect, tok.Error())
	}
	return nil
}

// Listen subscribes to the session topic and dispatches each incoming
// payload that decodes cleanly. Payloads failing the auth check are logged
// and skipped; the subscription stays up. Listen blocks until stop is
// closed, then disconnects and returns nil.
func (s *RelaySession) Listen(stop <-chan struct{}) error {
	if err := s.connect(); err != nil {
		return err
	}
	defer s.client.Disconnect(disconnectQuiesceMs)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		env, err := protocol.DecodePayload(msg.Payload(), s.Auth)
		if err != nil {
			log.Printf("[%s] Auth failed, message discarded", msg.Topic())
			s.Stats.AuthFailure()
			return
		}

		log.Printf("[%s] %s", msg.Topic(), env.Message)
		s.Stats.MessageReceived()

		if s.Engine != nil {
			outcome := s.Engine.Run(env.Message)
			reportOutcome(outcome)
			if outcome.Launched {
				s.Stats.Dispatched()
			}
		}
	}

	if tok := s.client.Subscribe(s.topic, subscribeQoS, handler); tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("%w: subscribe %q: %v", ErrConnect, s.topic, tok.Error())
	}

	log.Printf("Subscribed to %q", s.topic)
	if s.Engine != nil {
		log.Printf("Command: %s", s.Engine.Template)
	}
	if s.Auth != "" {
		log.Printf("Auth: enabled")
	}

	<-stop
	return nil
}

// Send publishes one envelope to the session topic and waits for the
// broker connection to confirm the outgoing publish. Issuing the publish
// call alone is not delivery; the confirmation must be observed within the
// bound or the send fails with ErrTimeout.
func (s *RelaySession) Send(env *protocol.Envelope) error {
	if err := s.connect(); err != nil {
		return err
	}
	defer s.client.Disconnect(disconnectQuiesceMs)

	wait := s.ConfirmTimeout
	if wait == 0 {
		wait = publishConfirmWait
	}

	tok := s.client.Publish(s.topic, publishQoS, false, protocol.EncodePayload(env))
	if !tok.WaitTimeout(wait) {
		return fmt.Errorf("%w: publish to %q not confirmed within %s", ErrTimeout, s.topic, wait)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: publish to %q: %v", ErrProtocol, s.topic, err)
	}
	return nil
}
