package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/mql/internal/infrastructure/logging"
	"github.com/nerrad567/mql/internal/infrastructure/mqtt"
)

// Transport is the broker connection a Session drives.
// *mqtt.Client satisfies it.
type Transport interface {
	Subscribe(pattern string) error
	Publish(topic string, payload []byte, retain bool) error
	Events() <-chan mqtt.Event
}

// State is the connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ConnectHandler runs on the session goroutine after the broker accepts
// the connection. A returned error ends the session.
type ConnectHandler func() error

// MessageHandler runs on the session goroutine for every received message.
type MessageHandler func(topic string, payload []byte)

// Session consumes a Transport's events on one goroutine.
//
// Thread Safety:
//   - OnConnect and OnMessage must be called before Run.
//   - State, Connected and WaitConnected are safe from any goroutine.
type Session struct {
	transport Transport
	logger    *logging.Logger

	mu      sync.Mutex
	state   State
	running bool

	onConnect []ConnectHandler
	onMessage []MessageHandler

	connected   chan struct{}
	connectOnce sync.Once

	ended   chan struct{}
	endOnce sync.Once
	err     error
}

// New creates a Session over transport. A nil logger discards output.
func New(transport Transport, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		transport: transport,
		logger:    logger.With("component", "session"),
		state:     Disconnected,
		connected: make(chan struct{}),
		ended:     make(chan struct{}),
	}
}

// Transport returns the underlying transport.
func (s *Session) Transport() Transport {
	return s.transport
}

// OnConnect registers h to run on every Connected event, in
// registration order.
func (s *Session) OnConnect(h ConnectHandler) {
	s.mu.Lock()
	s.onConnect = append(s.onConnect, h)
	s.mu.Unlock()
}

// OnMessage registers h to receive every message, in registration order.
func (s *Session) OnMessage(h MessageHandler) {
	s.mu.Lock()
	s.onMessage = append(s.onMessage, h)
	s.mu.Unlock()
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Connected returns a channel closed once the first connection succeeds.
func (s *Session) Connected() <-chan struct{} {
	return s.connected
}

// Done returns a channel closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.ended
}

// Err returns the error Run ended with, once Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// WaitConnected blocks until the connection is established, ctx is
// done, or the session ends without connecting.
func (s *Session) WaitConnected(ctx context.Context) error {
	select {
	case <-s.connected:
		return nil
	default:
	}

	select {
	case <-s.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ended:
		if err := s.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrEnded, err)
		}
		return ErrEnded
	}
}

// Run consumes events until ctx is cancelled, a connect handler fails,
// or the connection is lost.
//
// Returns:
//   - nil when ctx is cancelled
//   - ErrConnectionLost (wrapping the transport's reason) on disconnect
//   - the first connect handler error
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.state = Connecting
	s.mu.Unlock()

	err := s.loop(ctx)

	s.mu.Lock()
	s.state = Disconnected
	s.err = err
	s.mu.Unlock()
	s.endOnce.Do(func() { close(s.ended) })

	return err
}

func (s *Session) loop(ctx context.Context) error {
	events := s.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := s.handle(ev); err != nil {
				return err
			}
		}
	}
}

// handle applies a single event.
func (s *Session) handle(ev mqtt.Event) error {
	switch ev.Kind {
	case mqtt.EventConnected:
		s.logger.Debug("connected")
		for _, h := range s.connectHandlers() {
			if err := h(); err != nil {
				return err
			}
		}
		s.setState(Connected)
		s.connectOnce.Do(func() { close(s.connected) })

	case mqtt.EventDisconnected:
		s.setState(Disconnected)
		s.logger.Error("connection lost", "error", ev.Err)
		if ev.Err != nil {
			return fmt.Errorf("%w: %w", ErrConnectionLost, ev.Err)
		}
		return ErrConnectionLost

	case mqtt.EventMessage:
		for _, h := range s.messageHandlers() {
			h(ev.Topic, ev.Payload)
		}

	default:
		s.logger.Warn("ignoring unknown transport event", "kind", ev.Kind)
	}
	return nil
}

func (s *Session) connectHandlers() []ConnectHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onConnect
}

func (s *Session) messageHandlers() []MessageHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onMessage
}
