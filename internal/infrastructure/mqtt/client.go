package mqtt

import (
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/mql/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang and turns its callbacks into an ordered
// stream of Events.
//
// Thread Safety:
//   - Subscribe, Publish and Close are safe for concurrent use.
//   - paho callbacks only push onto the event channel; they never call
//     back into mql code.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// newClient builds an unconnected Client around opts.
func newClient(cfg config.MQTTConfig, opts *pahomqtt.ClientOptions) *Client {
	c := &Client{
		cfg:    cfg,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = pahomqtt.NewClient(opts)
	return c
}

// Connect establishes a connection to the MQTT broker.
//
// There is no retry: a broker that cannot be reached is reported as
// ErrConnectionFailed. On success an EventConnected is queued on the
// event stream; a later connection loss queues EventDisconnected and
// the client stays down.
//
// Parameters:
//   - cfg: MQTT configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If initial connection fails within timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	c := newClient(cfg, buildClientOptions(cfg))

	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, brokerURL(cfg), err)
	}

	// The OnConnect callback runs asynchronously; mark the state here so
	// Publish works as soon as Connect returns.
	c.setConnected(true)

	return c, nil
}

// handleConnect is called by paho when the connection is established.
func (c *Client) handleConnect() {
	c.setConnected(true)
	c.emit(Event{Kind: EventConnected})
}

// handleDisconnect is called by paho when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)
	c.emit(Event{Kind: EventDisconnected, Err: err})
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// Close disconnects from the broker and stops event delivery.
// Calling Close more than once is safe.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.done != nil {
			close(c.done)
		}
		if c.client != nil {
			c.client.Disconnect(defaultDisconnectQuiesce)
		}
		c.setConnected(false)
	})
	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// SetLogger sets a logger for error and panic logging.
// If not set, panics in message delivery are recovered silently.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// messageHandler returns the paho handler that forwards every message to
// the event stream, with panic recovery.
func (c *Client) messageHandler() pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		// paho may reuse the payload buffer.
		payload := append([]byte(nil), msg.Payload()...)
		c.emit(Event{Kind: EventMessage, Topic: msg.Topic(), Payload: payload})
	}
}
