package listener

import (
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/mql/internal/infrastructure/logging"
	"github.com/nerrad567/mql/internal/infrastructure/metrics"
	"github.com/nerrad567/mql/internal/protocol"
	"github.com/nerrad567/mql/internal/session"
	"github.com/nerrad567/mql/internal/severity"
)

// lineFormat renders unit-id, hex severity, severity name and payload.
const lineFormat = "%-16s : %x : %-9s : \"%s\"\n"

// Subscriber is the part of the transport a Listener needs.
type Subscriber interface {
	Subscribe(pattern string) error
}

// Config selects what a Listener shows.
type Config struct {
	Prefix string

	// Target is a unit-id, or empty, "ALL" or "*" for every unit.
	Target string

	// Threshold is the least urgent severity rendered.
	Threshold severity.Severity
}

// Record is a rendered log record.
type Record struct {
	Time     time.Time
	Prefix   string
	UnitID   string
	Severity severity.Severity
	Message  string
}

// Sink receives every rendered record.
type Sink interface {
	Name() string
	WriteRecord(rec Record) error
}

// Outcome is what HandleMessage did with a message.
type Outcome int

const (
	Rendered Outcome = iota
	Filtered
	Ignored
	Malformed
)

// String returns the outcome name used in metrics.
func (o Outcome) String() string {
	switch o {
	case Rendered:
		return metrics.ListenRendered
	case Filtered:
		return metrics.ListenFiltered
	case Ignored:
		return metrics.ListenIgnored
	case Malformed:
		return metrics.ListenMalformed
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Option configures a Listener.
type Option func(*Listener)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics counts outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Listener) {
		l.metrics = m
	}
}

// WithSink adds a sink for rendered records.
func WithSink(s Sink) Option {
	return func(l *Listener) {
		if s != nil {
			l.sinks = append(l.sinks, s)
		}
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Listener) {
		l.now = now
	}
}

// Listener filters and renders log records.
//
// HandleMessage is meant to be called from a single goroutine, normally
// the session's.
type Listener struct {
	cfg      Config
	wildcard string
	out      io.Writer

	logger  *logging.Logger
	metrics *metrics.Metrics
	sinks   []Sink
	now     func() time.Time
}

// New creates a Listener writing to out.
func New(cfg Config, out io.Writer, opts ...Option) (*Listener, error) {
	if err := severity.Check(cfg.Threshold); err != nil {
		return nil, err
	}
	wildcard, err := protocol.LogWildcard(cfg.Prefix, cfg.Target)
	if err != nil {
		return nil, err
	}

	l := &Listener{
		cfg:      cfg,
		wildcard: wildcard,
		out:      out,
		logger:   logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "listener")

	return l, nil
}

// Wildcard returns the subscription pattern.
func (l *Listener) Wildcard() string {
	return l.wildcard
}

// Attach registers the Listener on s.
func (l *Listener) Attach(s *session.Session) {
	s.OnConnect(func() error {
		return l.OnConnected(s.Transport())
	})
	s.OnMessage(func(topic string, payload []byte) {
		l.HandleMessage(topic, payload)
	})
}

// OnConnected subscribes to the log wildcard.
func (l *Listener) OnConnected(sub Subscriber) error {
	if err := sub.Subscribe(l.wildcard); err != nil {
		return fmt.Errorf("listener: subscribe %s: %w", l.wildcard, err)
	}
	l.logger.Debug("listening", "pattern", l.wildcard, "threshold", l.cfg.Threshold.String())
	return nil
}

// HandleMessage processes one received message.
func (l *Listener) HandleMessage(topic string, payload []byte) Outcome {
	outcome := l.handle(topic, payload)
	l.metrics.RecordListened(outcome.String())
	return outcome
}

func (l *Listener) handle(topic string, payload []byte) Outcome {
	addr, err := protocol.ParseLogTopic(topic)
	if err != nil {
		if protocol.IsControlTopic(topic) {
			return Ignored
		}
		l.logger.Warn("malformed topic", "topic", topic, "error", err)
		return Malformed
	}

	if !l.cfg.Threshold.Allows(addr.Severity) {
		return Filtered
	}

	if _, err := fmt.Fprintf(l.out, lineFormat, addr.UnitID, uint8(addr.Severity), addr.Severity.String(), payload); err != nil {
		l.logger.Warn("writing record", "error", err)
	}

	rec := Record{
		Time:     l.now(),
		Prefix:   addr.Prefix,
		UnitID:   addr.UnitID,
		Severity: addr.Severity,
		Message:  string(payload),
	}
	for _, s := range l.sinks {
		if err := s.WriteRecord(rec); err != nil {
			l.metrics.RecordSinkError(s.Name())
			l.logger.Warn("sink rejected record", "sink", s.Name(), "error", err)
		}
	}

	return Rendered
}
