package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heraldnet/herald/pkg/api"
	"github.com/heraldnet/herald/pkg/config"
	"github.com/heraldnet/herald/pkg/network"
)

const defaultBrokerPort = 1883

var (
	listenAddr = flag.String("listen", "", "Direct listener: bind address (e.g. 0.0.0.0:5555)")
	sendAddr   = flag.String("send", "", "Direct sender: target address (e.g. 192.168.1.10:5555)")
	broker     = flag.String("broker", "", "Relay: broker host")
	brokerPort = flag.Int("port", defaultBrokerPort, "Relay: broker port")
	topic      = flag.String("topic", "", "Relay: topic name")
	subscribe  = flag.Bool("subscribe", false, "Relay listener: subscribe to the topic")
	publish    = flag.Bool("publish", false, "Relay sender: publish to the topic")
	message    = flag.String("message", "", "Listener: command template ({} is replaced by the message). Sender: message to send")
	auth       = flag.String("auth", "", "Optional shared auth token")
	preset     = flag.String("preset", "", "Load a named preset from the config file")
	configPath = flag.String("config", "", "Preset file path (default: <user config dir>/herald/config.yaml)")
	statusPort = flag.Int("status-port", 0, "Listener: serve a status API on this port")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "herald - push a one-line notification and run a command on receipt\n\n")
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: herald [flags]\n\n")
	flag.PrintDefaults()
	fmt.Fprintf(flag.CommandLine.Output(), `
EXAMPLES:
  Listen:    herald --listen 0.0.0.0:5555 -message 'notify-send "Alert" "{}"'
  Send:      herald --send 192.168.1.10:5555 -message 'Build done!'
  Subscribe: herald --subscribe --broker broker.lan --topic herald/alerts -message 'notify-send "{}"'
  Publish:   herald --publish --broker broker.lan --topic herald/alerts -message 'Deploy finished'
`)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	op, err := resolveOperation()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	// External stop signal for the unbounded listener loops.
	stop := make(chan struct{})
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("Shutting down")
		close(stop)
	}()

	var stats *network.Stats
	if op.Role == network.RoleListener {
		stats = network.NewStats()
		if *statusPort > 0 {
			transport := "direct"
			if op.Broker != "" {
				transport = "relay"
			}
			srv := api.NewServer(stats, transport, *statusPort)
			srv.Start()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				srv.Stop(ctx)
			}()
			log.Printf("Status API on :%d", *statusPort)
		}
	}

	if err := network.Run(op, stats, stop); err != nil {
		log.Fatalf("Error: %v", err)
	}

	if op.Role == network.RoleSender {
		fmt.Printf("Sent: %s\n", op.Payload)
	}
}

// resolveOperation merges flags over an optional preset into one fully
// resolved operation. Flags win over preset values.
func resolveOperation() (*network.Operation, error) {
	if *preset != "" {
		if err := applyPreset(*preset); err != nil {
			return nil, err
		}
	}

	modes := 0
	for _, on := range []bool{*listenAddr != "", *sendAddr != "", *subscribe, *publish} {
		if on {
			modes++
		}
	}
	if modes != 1 {
		return nil, errors.New("choose exactly one of --listen, --send, --subscribe, --publish")
	}

	op := &network.Operation{
		Payload: *message,
		Auth:    *auth,
	}

	switch {
	case *listenAddr != "":
		op.Role = network.RoleListener
		op.Address = *listenAddr
	case *sendAddr != "":
		op.Role = network.RoleSender
		op.Address = *sendAddr
	case *subscribe:
		op.Role = network.RoleListener
		op.Broker, op.Port, op.Topic = *broker, *brokerPort, *topic
	case *publish:
		op.Role = network.RoleSender
		op.Broker, op.Port, op.Topic = *broker, *brokerPort, *topic
	}

	if err := op.Validate(); err != nil {
		return nil, err
	}
	return op, nil
}

func applyPreset(name string) error {
	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	f, err := config.Load(path)
	if err != nil {
		return err
	}
	p, err := f.Preset(name)
	if err != nil {
		return err
	}

	if *listenAddr == "" {
		*listenAddr = p.Listen
	}
	if *sendAddr == "" {
		*sendAddr = p.Send
	}
	if *broker == "" {
		*broker = p.Broker
	}
	if *brokerPort == defaultBrokerPort && p.Port != 0 {
		*brokerPort = p.Port
	}
	if *topic == "" {
		*topic = p.Topic
	}
	if !*subscribe {
		*subscribe = p.Subscribe
	}
	if !*publish {
		*publish = p.Publish
	}
	if *message == "" {
		*message = p.Message
	}
	if *auth == "" {
		*auth = p.Auth
	}
	return nil
}
