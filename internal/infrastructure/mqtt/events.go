package mqtt

import "fmt"

// EventKind identifies what happened on the connection.
type EventKind int

const (
	// EventConnected is delivered once the broker has accepted the session.
	EventConnected EventKind = iota

	// EventDisconnected is delivered when the connection is lost. Err
	// carries the reason reported by the network layer.
	EventDisconnected

	// EventMessage is delivered for every message matching a subscription.
	EventMessage
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMessage:
		return "message"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single notification from the transport.
//
// Events are produced on paho's goroutines and consumed by exactly one
// reader of Events, in the order they were received.
type Event struct {
	Kind    EventKind
	Topic   string
	Payload []byte
	Err     error
}

// eventBuffer is the capacity of the event channel.
const eventBuffer = 256

// emit queues ev for the reader. It blocks while the buffer is full and
// gives up once the client is closed.
func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Events returns the channel carrying connection and message events.
//
// The channel is never closed; readers should also watch their own
// context or the session's end.
func (c *Client) Events() <-chan Event {
	return c.events
}
