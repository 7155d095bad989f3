// Package mqtt provides the MQTT transport for mql.
//
// This package manages:
//   - A single connection to the broker (no auto-reconnect)
//   - Publishing with an optional retain flag
//   - Wildcard subscriptions
//   - An ordered event stream of connect, disconnect and message events
//
// # Architecture
//
// paho.mqtt.golang invokes its callbacks on its own goroutines. The
// Client never runs application logic there; it converts each callback
// into an Event and queues it. A single consumer (see package session)
// reads Events and applies them in arrival order.
//
//	paho goroutines → Events() → session.Run → publisher / listener
//
// # Failure model
//
// The first connection loss is final. EventDisconnected is queued and
// the consumer is expected to end the process.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	for ev := range client.Events() {
//	    switch ev.Kind {
//	    case mqtt.EventConnected:
//	        client.Subscribe("mql/log/#")
//	    case mqtt.EventMessage:
//	        fmt.Printf("%s: %s\n", ev.Topic, ev.Payload)
//	    case mqtt.EventDisconnected:
//	        return ev.Err
//	    }
//	}
package mqtt
