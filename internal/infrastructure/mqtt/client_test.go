package mqtt

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mql/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration pointing at a local broker.
// The tests in this file never need the broker to be running.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "mql-test",
		},
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
	panics  bool
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Ack()              {}
func (m *fakeMessage) Payload() []byte {
	if m.panics {
		panic("payload unavailable")
	}
	return m.payload
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event queued")
		return Event{}
	}
}

// =============================================================================
// Options
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "user"
	cfg.Auth.Password = "pass"

	opts := buildClientOptions(cfg)

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://127.0.0.1:1883", opts.Servers[0].String())
	assert.Equal(t, "mql-test", opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.Equal(t, "pass", opts.Password)
	assert.True(t, opts.CleanSession)
	assert.False(t, opts.AutoReconnect)
	assert.False(t, opts.ConnectRetry)
	assert.Equal(t, int64(KeepAlive/time.Second), opts.KeepAlive)
	assert.Nil(t, opts.TLSConfig)
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	assert.Equal(t, "ssl://127.0.0.1:8883", opts.Servers[0].String())
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, uint16(tlsMinVersion), opts.TLSConfig.MinVersion)
}

func TestBuildClientOptions_GeneratedClientID(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = ""

	a := buildClientOptions(cfg).ClientID
	b := buildClientOptions(cfg).ClientID

	assert.True(t, strings.HasPrefix(a, clientIDPrefix))
	assert.Len(t, a, clientIDLen)
	assert.NotEqual(t, a, b)
}

// =============================================================================
// Connection
// =============================================================================

func TestConnect_InvalidQoS(t *testing.T) {
	cfg := testConfig()
	cfg.QoS = 3

	_, err := Connect(cfg)
	require.ErrorIs(t, err, ErrInvalidQoS)
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	require.ErrorIs(t, err, ErrConnectionFailed)
}

func TestClose_Idempotent(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
}

// =============================================================================
// Publish / Subscribe validation
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))
	defer c.Close()

	require.ErrorIs(t, c.Publish("", []byte("x"), false), ErrInvalidTopic)
	require.ErrorIs(t, c.Publish("mql/log/dev1/4", make([]byte, maxPayloadSize+1), false), ErrPublishFailed)
	require.ErrorIs(t, c.Publish("mql/log/dev1/4", []byte("x"), false), ErrNotConnected)
}

func TestSubscribe_Validation(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))
	defer c.Close()

	require.ErrorIs(t, c.Subscribe(""), ErrInvalidTopic)
	require.ErrorIs(t, c.Subscribe("mql/log/#"), ErrNotConnected)
}

// =============================================================================
// Event stream
// =============================================================================

func TestEvents_ConnectionLifecycle(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))
	defer c.Close()

	c.handleConnect()
	lost := assert.AnError
	c.handleDisconnect(lost)

	ev := nextEvent(t, c)
	assert.Equal(t, EventConnected, ev.Kind)

	ev = nextEvent(t, c)
	assert.Equal(t, EventDisconnected, ev.Kind)
	assert.ErrorIs(t, ev.Err, lost)
}

func TestEvents_MessagesInOrder(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))
	defer c.Close()

	handler := c.messageHandler()
	buf := []byte("L 1")
	handler(nil, &fakeMessage{topic: "mql/cmd/dev1", payload: buf})
	handler(nil, &fakeMessage{topic: "mql/cmd/ALL", payload: []byte("C 3 2")})

	// The queued payload must not alias the transport buffer.
	buf[2] = '9'

	ev := nextEvent(t, c)
	assert.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, "mql/cmd/dev1", ev.Topic)
	assert.Equal(t, []byte("L 1"), ev.Payload)

	ev = nextEvent(t, c)
	assert.Equal(t, "mql/cmd/ALL", ev.Topic)
	assert.Equal(t, []byte("C 3 2"), ev.Payload)
}

func TestEvents_HandlerPanicRecovered(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))
	defer c.Close()

	logger := &mockLogger{}
	c.SetLogger(logger)

	assert.NotPanics(t, func() {
		c.messageHandler()(nil, &fakeMessage{topic: "mql/log/dev1/4", panics: true})
	})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	assert.Equal(t, []string{"MQTT handler panic recovered"}, logger.errors)
}

func TestEvents_EmitAfterCloseDoesNotBlock(t *testing.T) {
	c := newClient(testConfig(), buildClientOptions(testConfig()))
	require.NoError(t, c.Close())

	done := make(chan struct{})
	go func() {
		for i := 0; i < eventBuffer*2; i++ {
			c.handleDisconnect(nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit blocked after Close")
	}
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "connected", EventConnected.String())
	assert.Equal(t, "disconnected", EventDisconnected.String())
	assert.Equal(t, "message", EventMessage.String())
	assert.Equal(t, "EventKind(9)", EventKind(9).String())
}
