package controller

import (
	"context"
	"fmt"
	"io"

	"github.com/nerrad567/mql/internal/infrastructure/logging"
	"github.com/nerrad567/mql/internal/listener"
	"github.com/nerrad567/mql/internal/protocol"
	"github.com/nerrad567/mql/internal/session"
	"github.com/nerrad567/mql/internal/severity"
)

// Publisher is the part of the transport a Controller needs.
type Publisher interface {
	Publish(topic string, payload []byte, retain bool) error
}

// Controller issues control commands for one topic prefix.
type Controller struct {
	transport Publisher
	session   *session.Session
	prefix    string
	base      *logging.Logger
	logger    *logging.Logger
}

// New creates a Controller. The prefix is validated here so later calls
// only fail on their own arguments.
func New(transport Publisher, s *session.Session, prefix string, logger *logging.Logger) (*Controller, error) {
	if err := protocol.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{
		transport: transport,
		session:   s,
		prefix:    prefix,
		base:      logger,
		logger:    logger.With("component", "controller"),
	}, nil
}

// SendSetLevel sets the permanent level of target, or of every unit when
// target is empty, "ALL" or "*". The command is retained.
func (c *Controller) SendSetLevel(ctx context.Context, target string, sev severity.Severity) error {
	return c.send(ctx, target, protocol.SetLevel(sev), true)
}

// SendSetCountedLevel installs a counted override on target for the next
// count emitted records. The command is not retained.
func (c *Controller) SendSetCountedLevel(ctx context.Context, target string, sev severity.Severity, count uint32) error {
	return c.send(ctx, target, protocol.SetCountedLevel(sev, count), false)
}

func (c *Controller) send(ctx context.Context, target string, cmd protocol.Command, retain bool) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	topic, err := protocol.ControlTopic(c.prefix, target)
	if err != nil {
		return err
	}

	if err := c.session.WaitConnected(ctx); err != nil {
		return fmt.Errorf("controller: waiting for connection: %w", err)
	}

	if err := c.transport.Publish(topic, cmd.Payload(), retain); err != nil {
		return fmt.Errorf("controller: sending %q to %s: %w", cmd.String(), topic, err)
	}

	c.logger.Info("control command sent",
		"topic", topic,
		"command", cmd.String(),
		"retain", retain,
	)
	return nil
}

// Listen renders the records of target at or above threshold to out. It
// runs the session itself and returns when ctx is cancelled (nil) or the
// connection is lost. Listen must be the only caller of the session's Run.
func (c *Controller) Listen(ctx context.Context, target string, threshold severity.Severity, out io.Writer, opts ...listener.Option) error {
	l, err := listener.New(listener.Config{
		Prefix:    c.prefix,
		Target:    target,
		Threshold: threshold,
	}, out, append([]listener.Option{listener.WithLogger(c.base)}, opts...)...)
	if err != nil {
		return err
	}

	l.Attach(c.session)
	return c.session.Run(ctx)
}
