// Package sessiontest provides an in-memory transport for tests of
// components that run on a session.
package sessiontest

import (
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/mql/internal/infrastructure/mqtt"
)

// Published is a message recorded by Transport.Publish.
type Published struct {
	Topic   string
	Payload []byte
	Retain  bool
}

// Transport is a fake broker connection. Tests drive the event stream
// with Connect, Deliver and Disconnect and inspect what the code under
// test subscribed to and published.
type Transport struct {
	mu            sync.Mutex
	subscriptions []string
	published     []Published
	publishedCh   chan struct{}

	// SubscribeErr and PublishErr, when set, are returned by the
	// matching method.
	SubscribeErr error
	PublishErr   error

	events chan mqtt.Event
}

// New returns an empty Transport.
func New() *Transport {
	return &Transport{
		events:      make(chan mqtt.Event, 64),
		publishedCh: make(chan struct{}, 64),
	}
}

// Subscribe records pattern.
func (f *Transport) Subscribe(pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeErr != nil {
		return f.SubscribeErr
	}
	f.subscriptions = append(f.subscriptions, pattern)
	return nil
}

// Publish records the message.
func (f *Transport) Publish(topic string, payload []byte, retain bool) error {
	f.mu.Lock()
	if f.PublishErr != nil {
		err := f.PublishErr
		f.mu.Unlock()
		return err
	}
	f.published = append(f.published, Published{
		Topic:   topic,
		Payload: append([]byte(nil), payload...),
		Retain:  retain,
	})
	f.mu.Unlock()

	select {
	case f.publishedCh <- struct{}{}:
	default:
	}
	return nil
}

// Events returns the event stream.
func (f *Transport) Events() <-chan mqtt.Event {
	return f.events
}

// Connect queues an EventConnected.
func (f *Transport) Connect() {
	f.events <- mqtt.Event{Kind: mqtt.EventConnected}
}

// Deliver queues a message event when topic matches a recorded
// subscription, like a broker would. It reports whether the message was
// queued. Callers that deliver right after Connect must wait for the
// session's connected signal first, since subscriptions are made by the
// connect handlers.
func (f *Transport) Deliver(topic string, payload string) bool {
	if !f.subscribed(topic) {
		return false
	}
	f.events <- mqtt.Event{Kind: mqtt.EventMessage, Topic: topic, Payload: []byte(payload)}
	return true
}

func (f *Transport) subscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pattern := range f.subscriptions {
		if Match(pattern, topic) {
			return true
		}
	}
	return false
}

// Match reports whether topic matches an MQTT subscription pattern with
// "+" and "#" wildcards.
func Match(pattern, topic string) bool {
	ps := strings.Split(pattern, "/")
	ts := strings.Split(topic, "/")
	for i, p := range ps {
		switch {
		case p == "#":
			return true
		case i >= len(ts):
			return false
		case p != "+" && p != ts[i]:
			return false
		}
	}
	return len(ps) == len(ts)
}

// Disconnect queues an EventDisconnected carrying err.
func (f *Transport) Disconnect(err error) {
	f.events <- mqtt.Event{Kind: mqtt.EventDisconnected, Err: err}
}

// Subscriptions returns the recorded subscription patterns.
func (f *Transport) Subscriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscriptions...)
}

// Published returns the recorded messages.
func (f *Transport) Published() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Published(nil), f.published...)
}

// WaitPublished waits until at least n messages were published or the
// timeout expires, and returns what was recorded.
func (f *Transport) WaitPublished(n int, timeout time.Duration) []Published {
	deadline := time.After(timeout)
	for {
		if got := f.Published(); len(got) >= n {
			return got
		}
		select {
		case <-f.publishedCh:
		case <-deadline:
			return f.Published()
		}
	}
}
