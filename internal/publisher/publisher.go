package publisher

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/nerrad567/mql/internal/infrastructure/logging"
	"github.com/nerrad567/mql/internal/infrastructure/metrics"
	"github.com/nerrad567/mql/internal/protocol"
	"github.com/nerrad567/mql/internal/session"
	"github.com/nerrad567/mql/internal/severity"
)

// MaxMessageLen is the number of bytes Logf keeps from a formatted message.
const MaxMessageLen = 255

// Transport is the part of the broker connection a Publisher uses.
type Transport interface {
	Subscribe(pattern string) error
	Publish(topic string, payload []byte, retain bool) error
}

// Config is a producer identity plus its initial level.
type Config struct {
	Prefix string
	UnitID string
	Level  severity.Severity
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records decisions and control commands on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// identity is everything Init derives from a Config.
type identity struct {
	cfg        Config
	logger     *logging.Logger
	logTopics  [severity.Count]string
	ownControl string
	allControl string
	policy     *severity.Policy
}

// Publisher emits log records for one unit and obeys control commands.
//
// Thread Safety:
//   - Log, Logf and the level setters are safe from any goroutine.
//   - Control commands are applied through the same policy mutex that
//     guards emission decisions.
type Publisher struct {
	transport Transport
	logger    *logging.Logger
	metrics   *metrics.Metrics

	mu sync.RWMutex
	id *identity

	// subMu serialises Init and OnConnected. subscribed is set once the
	// control topics were subscribed on a connection.
	subMu      sync.Mutex
	subscribed bool
}

// New creates a Publisher and initialises it from cfg.
//
// Returns a configuration error (protocol.ErrPrefixTooLong,
// protocol.ErrUnitIDTooLong, protocol.ErrInvalidIdentifier or
// severity.ErrOutOfRange) when cfg cannot form valid topics.
func New(transport Transport, cfg Config, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		transport: transport,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "publisher")

	if err := p.Init(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Init replaces the identity, topics and policy. A failed Init leaves
// the previous state untouched. Re-initialising resets any level set by
// control commands to cfg.Level.
//
// When the Publisher is already subscribed, the new control topics are
// subscribed before the identity is swapped. The old subscriptions stay
// on the broker; messages on them no longer match and are ignored.
func (p *Publisher) Init(cfg Config) error {
	id, err := newIdentity(cfg)
	if err != nil {
		return err
	}
	id.logger = p.logger.With("unit", cfg.UnitID)

	p.subMu.Lock()
	defer p.subMu.Unlock()

	if p.subscribed {
		if err := p.subscribe(id); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.id = id
	p.mu.Unlock()

	p.metrics.SetLevel(cfg.UnitID, uint8(cfg.Level))
	return nil
}

func newIdentity(cfg Config) (*identity, error) {
	policy, err := severity.NewPolicy(cfg.Level)
	if err != nil {
		return nil, err
	}

	id := &identity{cfg: cfg, policy: policy}

	for sev := severity.Severity(0); sev < severity.Count; sev++ {
		topic, err := protocol.LogTopic(cfg.Prefix, cfg.UnitID, sev)
		if err != nil {
			return nil, err
		}
		id.logTopics[sev] = topic
	}

	if id.ownControl, err = protocol.ControlTopic(cfg.Prefix, cfg.UnitID); err != nil {
		return nil, err
	}
	if id.allControl, err = protocol.ControlTopic(cfg.Prefix, protocol.Broadcast); err != nil {
		return nil, err
	}

	return id, nil
}

func (p *Publisher) current() *identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id
}

// Config returns the identity the Publisher was last initialised with.
func (p *Publisher) Config() Config {
	return p.current().cfg
}

// ControlTopics returns the unit's own control topic and the broadcast one.
func (p *Publisher) ControlTopics() (own, all string) {
	id := p.current()
	return id.ownControl, id.allControl
}

// Attach registers the Publisher on s: control subscriptions are made on
// every connect and control messages are applied as they arrive.
func (p *Publisher) Attach(s *session.Session) {
	s.OnConnect(p.OnConnected)
	s.OnMessage(func(topic string, payload []byte) {
		if _, err := p.OnControlMessage(topic, payload); err != nil {
			p.current().logger.Debug("discarding control message",
				"topic", topic,
				"payload", string(payload),
				"error", err,
			)
		}
	})
}

// OnConnected subscribes to the unit's control topic and the broadcast
// control topic.
func (p *Publisher) OnConnected() error {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	if err := p.subscribe(p.current()); err != nil {
		return err
	}
	p.subscribed = true
	return nil
}

func (p *Publisher) subscribe(id *identity) error {
	for _, topic := range []string{id.ownControl, id.allControl} {
		if err := p.transport.Subscribe(topic); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSubscribe, topic, err)
		}
	}
	id.logger.Debug("subscribed to control topics", "own", id.ownControl, "all", id.allControl)
	return nil
}

// OnControlMessage applies payload when topic is exactly one of the
// Publisher's control topics. handled reports whether the topic matched.
// A payload that does not parse changes nothing and is returned as
// protocol.ErrMalformedCommand.
func (p *Publisher) OnControlMessage(topic string, payload []byte) (handled bool, err error) {
	id := p.current()
	if topic != id.ownControl && topic != id.allControl {
		return false, nil
	}

	cmd, err := protocol.ParseCommand(payload)
	if err != nil {
		p.metrics.RecordControl(id.cfg.UnitID, "", metrics.ControlMalformed)
		return true, err
	}

	if err := p.apply(id, cmd); err != nil {
		p.metrics.RecordControl(id.cfg.UnitID, cmd.Kind.String(), metrics.ControlRejected)
		return true, err
	}

	p.metrics.RecordControl(id.cfg.UnitID, cmd.Kind.String(), metrics.ControlApplied)
	id.logger.Info("control command applied",
		"topic", topic,
		"command", cmd.String(),
		"level", id.policy.CurrentLevel().String(),
	)
	return true, nil
}

// Apply applies cmd to the severity policy.
func (p *Publisher) Apply(cmd protocol.Command) error {
	return p.apply(p.current(), cmd)
}

func (p *Publisher) apply(id *identity, cmd protocol.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	var err error
	switch cmd.Kind {
	case protocol.CmdSetLevel:
		err = id.policy.SetLevel(cmd.Level)
	case protocol.CmdSetCountedLevel:
		err = id.policy.SetCountedLevel(cmd.Level, cmd.Count)
	}
	if err != nil {
		return err
	}

	p.metrics.SetLevel(id.cfg.UnitID, uint8(id.policy.CurrentLevel()))
	return nil
}

// SetLevel replaces the permanent level locally.
func (p *Publisher) SetLevel(level severity.Severity) error {
	return p.Apply(protocol.SetLevel(level))
}

// SetCountedLevel installs a counted override locally.
func (p *Publisher) SetCountedLevel(level severity.Severity, count uint32) error {
	return p.Apply(protocol.SetCountedLevel(level, count))
}

// CurrentLevel returns the threshold the next Log call will use.
func (p *Publisher) CurrentLevel() severity.Severity {
	return p.current().policy.CurrentLevel()
}

// Log publishes message on the log topic for sev when the policy lets it
// through. Suppressed records cause no I/O and return nil. The message is
// sent as-is with the retain flag off; a transport failure is returned
// and not retried.
func (p *Publisher) Log(sev severity.Severity, message string) error {
	if err := severity.Check(sev); err != nil {
		return err
	}

	id := p.current()
	if !id.policy.DecideEmit(sev) {
		p.metrics.RecordDecision(id.cfg.UnitID, false)
		return nil
	}
	// A pass may have used up a counted override.
	p.metrics.SetLevel(id.cfg.UnitID, uint8(id.policy.CurrentLevel()))

	topic := id.logTopics[sev]
	if err := p.transport.Publish(topic, []byte(message), false); err != nil {
		p.metrics.RecordPublishError(id.cfg.UnitID)
		return fmt.Errorf("%w: %s: %w", ErrPublish, topic, err)
	}
	p.metrics.RecordDecision(id.cfg.UnitID, true)
	return nil
}

// Logf formats a message, keeps at most MaxMessageLen bytes of it, and
// passes it to Log. Truncation never splits a UTF-8 sequence.
func (p *Publisher) Logf(sev severity.Severity, format string, args ...any) error {
	return p.Log(sev, truncate(fmt.Sprintf(format, args...), MaxMessageLen))
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
