package protocol

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/mql/internal/severity"
)

// CommandKind identifies a control command.
type CommandKind byte

// Control command opcodes. The value is the first byte of the payload.
const (
	// CmdSetLevel replaces the permanent level.
	CmdSetLevel CommandKind = 'L'

	// CmdSetCountedLevel installs a counted override.
	CmdSetCountedLevel CommandKind = 'C'
)

// String returns a readable opcode name.
func (k CommandKind) String() string {
	switch k {
	case CmdSetLevel:
		return "set_level"
	case CmdSetCountedLevel:
		return "set_counted_level"
	default:
		return fmt.Sprintf("CommandKind(%q)", byte(k))
	}
}

// Command is a decoded control payload. Count is only meaningful for
// CmdSetCountedLevel.
type Command struct {
	Kind  CommandKind
	Level severity.Severity
	Count uint32
}

// SetLevel returns a command that replaces the permanent level.
func SetLevel(level severity.Severity) Command {
	return Command{Kind: CmdSetLevel, Level: level}
}

// SetCountedLevel returns a command that installs a counted override.
func SetCountedLevel(level severity.Severity, count uint32) Command {
	return Command{Kind: CmdSetCountedLevel, Level: level, Count: count}
}

// Validate checks the command's arguments against the severity and count
// domains.
func (c Command) Validate() error {
	if err := severity.Check(c.Level); err != nil {
		return err
	}
	switch c.Kind {
	case CmdSetLevel:
		return nil
	case CmdSetCountedLevel:
		if c.Count == 0 {
			return fmt.Errorf("%w: got 0", severity.ErrInvalidCount)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown opcode %q", ErrMalformedCommand, byte(c.Kind))
	}
}

// Payload encodes the command, e.g. "L 3" or "C a 10".
func (c Command) Payload() []byte {
	buf := []byte{byte(c.Kind), ' '}
	buf = append(buf, c.Level.Hex()...)
	if c.Kind == CmdSetCountedLevel {
		buf = append(buf, ' ')
		buf = strconv.AppendUint(buf, uint64(c.Count), 10)
	}
	return buf
}

// String returns the encoded payload.
func (c Command) String() string {
	return string(c.Payload())
}

// ParseCommand decodes a control payload.
//
// The whole payload must match the grammar; a missing separator, a bad hex
// digit, a missing or non-decimal count, or trailing bytes all fail with
// ErrMalformedCommand. A count of zero or one that overflows 32 bits is
// also rejected so a parsed command can always be applied.
func ParseCommand(payload []byte) (Command, error) {
	if len(payload) < 3 {
		return Command{}, fmt.Errorf("%w: %q: too short", ErrMalformedCommand, payload)
	}

	kind := CommandKind(payload[0])
	if kind != CmdSetLevel && kind != CmdSetCountedLevel {
		return Command{}, fmt.Errorf("%w: %q: unknown opcode", ErrMalformedCommand, payload)
	}
	if payload[1] != ' ' {
		return Command{}, fmt.Errorf("%w: %q: missing separator", ErrMalformedCommand, payload)
	}

	level, err := severity.ParseHexDigit(string(payload[2:3]))
	if err != nil {
		return Command{}, fmt.Errorf("%w: %q: %w", ErrMalformedCommand, payload, err)
	}
	rest := payload[3:]

	if kind == CmdSetLevel {
		if len(rest) != 0 {
			return Command{}, fmt.Errorf("%w: %q: trailing bytes", ErrMalformedCommand, payload)
		}
		return SetLevel(level), nil
	}

	if len(rest) < 2 || rest[0] != ' ' {
		return Command{}, fmt.Errorf("%w: %q: missing count", ErrMalformedCommand, payload)
	}
	digits := rest[1:]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return Command{}, fmt.Errorf("%w: %q: count must be decimal digits", ErrMalformedCommand, payload)
		}
	}
	count, err := strconv.ParseUint(string(digits), 10, 32)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %q: count out of range", ErrMalformedCommand, payload)
	}
	if count == 0 {
		return Command{}, fmt.Errorf("%w: %q: count must be at least 1", ErrMalformedCommand, payload)
	}

	return SetCountedLevel(level, uint32(count)), nil
}
