package severity

import (
	"fmt"
	"strings"
)

// Severity is a log urgency rank. Lower values are more urgent.
type Severity uint8

// Named severities. The tiers leave room for variants: WARNING has one,
// INFO three and DEBUG seven.
const (
	Fatal    Severity = 0
	Error    Severity = 1
	Warning  Severity = 2
	Warning1 Severity = 3
	Info     Severity = 4
	Info1    Severity = 5
	Info2    Severity = 6
	Info3    Severity = 7
	Debug    Severity = 8
	Debug1   Severity = 9
	Debug2   Severity = 10
	Debug3   Severity = 11
	Debug4   Severity = 12
	Debug5   Severity = 13
	Debug6   Severity = 14
	Debug7   Severity = 15

	// Lowest is the least urgent severity; as a threshold it passes everything.
	Lowest = Debug7
)

// Count is the number of distinct severities.
const Count = 16

var names = [Count]string{
	"FATAL",
	"ERROR",
	"WARNING",
	"WARNING_1",
	"INFO",
	"INFO_1",
	"INFO_2",
	"INFO_3",
	"DEBUG",
	"DEBUG_1",
	"DEBUG_2",
	"DEBUG_3",
	"DEBUG_4",
	"DEBUG_5",
	"DEBUG_6",
	"DEBUG_7",
}

// Valid reports whether s is in 0-15.
func (s Severity) Valid() bool {
	return s < Count
}

// String returns the tier name, e.g. "INFO_2".
func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
	return names[s]
}

// Hex returns the single lower-case hex digit used on the wire.
func (s Severity) Hex() string {
	return fmt.Sprintf("%x", uint8(s)&0x0f)
}

// Allows reports whether a record at severity msg passes threshold s.
func (s Severity) Allows(msg Severity) bool {
	return msg <= s
}

// ParseHexDigit decodes exactly one hex digit (case-insensitive) into a
// severity. Empty or multi-character input fails with ErrInvalidDigit.
func ParseHexDigit(s string) (Severity, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDigit, s)
	}
	v, ok := hexValue(s[0])
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDigit, s)
	}
	return v, nil
}

// hexValue decodes one hex character.
func hexValue(c byte) (Severity, bool) {
	switch {
	case '0' <= c && c <= '9':
		return Severity(c - '0'), true
	case 'a' <= c && c <= 'f':
		return Severity(c-'a') + 10, true
	case 'A' <= c && c <= 'F':
		return Severity(c-'A') + 10, true
	default:
		return 0, false
	}
}

// Parse accepts the operator-facing forms of a severity: a single hex digit,
// a tier name (FATAL, ERROR, WARNING, INFO, DEBUG, case-insensitive) or ALL,
// which selects the least urgent severity.
func Parse(s string) (Severity, error) {
	if len(s) == 1 {
		return ParseHexDigit(s)
	}

	switch strings.ToUpper(s) {
	case "ALL":
		return Lowest, nil
	case "FATAL":
		return Fatal, nil
	case "ERROR":
		return Error, nil
	case "WARNING", "WARN":
		return Warning, nil
	case "INFO":
		return Info, nil
	case "DEBUG":
		return Debug, nil
	}

	for i, name := range names {
		if strings.EqualFold(name, s) {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownName, s)
}

// Check returns ErrOutOfRange when s is not a valid severity.
func Check(s Severity) error {
	if !s.Valid() {
		return fmt.Errorf("%w: got %d", ErrOutOfRange, uint8(s))
	}
	return nil
}
