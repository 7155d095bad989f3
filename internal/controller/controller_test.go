package controller

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mql/internal/protocol"
	"github.com/nerrad567/mql/internal/session"
	"github.com/nerrad567/mql/internal/session/sessiontest"
	"github.com/nerrad567/mql/internal/severity"
)

func newTestController(t *testing.T) (*Controller, *sessiontest.Transport, *session.Session) {
	t.Helper()
	transport := sessiontest.New()
	s := session.New(transport, nil)
	c, err := New(transport, s, "mql", nil)
	require.NoError(t, err)
	return c, transport, s
}

// runSession starts s and stops it when the test ends.
func runSession(t *testing.T, s *session.Session) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-result
	})
}

func TestNew_InvalidPrefix(t *testing.T) {
	_, err := New(sessiontest.New(), session.New(sessiontest.New(), nil), strings.Repeat("p", 32), nil)
	require.ErrorIs(t, err, protocol.ErrPrefixTooLong)
}

func TestSendSetLevel(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		sev       severity.Severity
		wantTopic string
		wantBody  string
	}{
		{name: "unit", target: "dev1", sev: severity.Error, wantTopic: "mql/cmd/dev1", wantBody: "L 1"},
		{name: "broadcast", target: "ALL", sev: severity.Debug2, wantTopic: "mql/cmd/ALL", wantBody: "L a"},
		{name: "star", target: "*", sev: severity.Info, wantTopic: "mql/cmd/ALL", wantBody: "L 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, transport, s := newTestController(t)
			runSession(t, s)
			transport.Connect()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			require.NoError(t, c.SendSetLevel(ctx, tt.target, tt.sev))

			published := transport.Published()
			require.Len(t, published, 1)
			assert.Equal(t, sessiontest.Published{Topic: tt.wantTopic, Payload: []byte(tt.wantBody), Retain: true}, published[0])
		})
	}
}

func TestSendSetCountedLevel(t *testing.T) {
	c, transport, s := newTestController(t)
	runSession(t, s)
	transport.Connect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.SendSetCountedLevel(ctx, "dev1", severity.Debug2, 10))

	published := transport.Published()
	require.Len(t, published, 1)
	assert.Equal(t, sessiontest.Published{Topic: "mql/cmd/dev1", Payload: []byte("C a 10"), Retain: false}, published[0])
}

func TestSend_WaitsForConnect(t *testing.T) {
	c, transport, s := newTestController(t)
	runSession(t, s)

	sent := make(chan error, 1)
	go func() { sent <- c.SendSetLevel(context.Background(), "dev1", severity.Info) }()

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, transport.Published())

	transport.Connect()

	select {
	case err := <-sent:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("command not sent after connect")
	}
	assert.Len(t, transport.Published(), 1)
}

func TestSend_InvalidArguments(t *testing.T) {
	c, transport, _ := newTestController(t)
	ctx := context.Background()

	require.ErrorIs(t, c.SendSetLevel(ctx, "dev1", 16), severity.ErrOutOfRange)
	require.ErrorIs(t, c.SendSetCountedLevel(ctx, "dev1", severity.Info, 0), severity.ErrInvalidCount)
	require.ErrorIs(t, c.SendSetLevel(ctx, "a/b", severity.Info), protocol.ErrInvalidIdentifier)
	assert.Empty(t, transport.Published())
}

func TestSend_Errors(t *testing.T) {
	c, transport, s := newTestController(t)

	// Context ends before the broker accepts the connection.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.SendSetLevel(ctx, "dev1", severity.Info), context.DeadlineExceeded)

	runSession(t, s)
	transport.Connect()
	transport.PublishErr = errors.New("broker refused")
	require.ErrorIs(t, c.SendSetLevel(context.Background(), "dev1", severity.Info), transport.PublishErr)
}

func TestSend_SessionLost(t *testing.T) {
	c, transport, s := newTestController(t)

	result := make(chan error, 1)
	go func() { result <- s.Run(context.Background()) }()
	transport.Disconnect(errors.New("refused"))
	require.ErrorIs(t, <-result, session.ErrConnectionLost)

	err := c.SendSetLevel(context.Background(), "dev1", severity.Info)
	require.ErrorIs(t, err, session.ErrEnded)
}

func TestListen(t *testing.T) {
	c, transport, s := newTestController(t)

	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- c.Listen(ctx, "dev1", severity.Warning, &out) }()

	transport.Connect()
	require.NoError(t, s.WaitConnected(ctx))
	transport.Deliver("mql/log/dev1/1", "hello")
	transport.Deliver("mql/log/dev1/9", "dropped")
	transport.Disconnect(errors.New("broker restart"))

	select {
	case err := <-result:
		require.ErrorIs(t, err, session.ErrConnectionLost)
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("Listen did not end on disconnect")
	}
	cancel()

	assert.Equal(t, []string{"mql/log/dev1/#"}, transport.Subscriptions())
	assert.Equal(t, "dev1             : 1 : ERROR     : \"hello\"\n", out.String())
}

func TestListen_InvalidThreshold(t *testing.T) {
	c, _, _ := newTestController(t)
	require.ErrorIs(t, c.Listen(context.Background(), "", 16, &bytes.Buffer{}), severity.ErrOutOfRange)
}
