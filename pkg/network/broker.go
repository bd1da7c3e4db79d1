package network

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// BrokerClient is the slice of the MQTT client surface the relay transport
// uses. mqtt.Client satisfies it; tests substitute an in-process broker.
type BrokerClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesceMs uint)
}

// DialBroker builds an MQTT client for broker:port. Each process role gets
// a distinct client identity so a listener and a sender on the same broker
// never collide.
func DialBroker(broker string, port int, role string) BrokerClient {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port)).
		SetClientID(clientID(role)).
		SetCleanSession(true)
	return mqtt.NewClient(opts)
}

func clientID(role string) string {
	return fmt.Sprintf("herald-%s-%s", role, uuid.NewString()[:8])
}
