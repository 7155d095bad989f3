package protocol

import (
	"fmt"
	"strings"

	"github.com/nerrad567/mql/internal/severity"
)

// Grammar constants.
const (
	// LogTag is the second segment of every log topic.
	LogTag = "log"

	// CmdTag is the second segment of every control topic.
	CmdTag = "cmd"

	// Broadcast is the control target that addresses every unit.
	Broadcast = "ALL"

	// MaxPrefixLen is the maximum prefix length in bytes.
	MaxPrefixLen = 31

	// MaxUnitIDLen is the maximum unit-id length in bytes.
	MaxUnitIDLen = 31

	// MaxTopicLen is the maximum length of a composed topic in bytes.
	MaxTopicLen = 127

	// LogFragments is the number of segments in a log topic.
	LogFragments = 4

	// ControlFragments is the number of segments in a control topic.
	ControlFragments = 3
)

// Fragment positions within a log or control topic.
const (
	fragPrefix   = 0
	fragTag      = 1
	fragUnit     = 2
	fragSeverity = 3
)

// =============================================================================
// Identifier Validation
// =============================================================================

// ValidatePrefix checks a topic prefix against the grammar limits.
func ValidatePrefix(prefix string) error {
	if err := validateIdentifier("prefix", prefix); err != nil {
		return err
	}
	if len(prefix) > MaxPrefixLen {
		return fmt.Errorf("%w: %d bytes, maximum %d", ErrPrefixTooLong, len(prefix), MaxPrefixLen)
	}
	return nil
}

// ValidateUnitID checks a unit-id against the grammar limits.
func ValidateUnitID(unitID string) error {
	if err := validateIdentifier("unit-id", unitID); err != nil {
		return err
	}
	if len(unitID) > MaxUnitIDLen {
		return fmt.Errorf("%w: %d bytes, maximum %d", ErrUnitIDTooLong, len(unitID), MaxUnitIDLen)
	}
	return nil
}

// validateIdentifier rejects identifiers that would change the segment
// structure of a topic or turn it into a subscription pattern.
func validateIdentifier(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidIdentifier, kind)
	}
	if strings.ContainsAny(s, "/+#") {
		return fmt.Errorf("%w: %s %q contains '/', '+' or '#'", ErrInvalidIdentifier, kind, s)
	}
	return nil
}

// checkTopicLen enforces MaxTopicLen on a composed topic.
func checkTopicLen(topic string) (string, error) {
	if len(topic) > MaxTopicLen {
		return "", fmt.Errorf("%w: %d bytes, maximum %d", ErrTopicTooLong, len(topic), MaxTopicLen)
	}
	return topic, nil
}

// IsBroadcast reports whether target selects every unit. Empty, "ALL" and
// "*" are accepted.
func IsBroadcast(target string) bool {
	return target == "" || target == Broadcast || target == "*"
}

// =============================================================================
// Topic Builders
// =============================================================================

// LogTopic returns the topic a unit publishes records of severity sev on.
//
// Example: mql/log/dev1/4
func LogTopic(prefix, unitID string, sev severity.Severity) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	if err := ValidateUnitID(unitID); err != nil {
		return "", err
	}
	if err := severity.Check(sev); err != nil {
		return "", err
	}
	return checkTopicLen(prefix + "/" + LogTag + "/" + unitID + "/" + sev.Hex())
}

// ControlTopic returns the control topic for target, or the broadcast
// control topic when target selects every unit.
//
// Example: mql/cmd/dev1, mql/cmd/ALL
func ControlTopic(prefix, target string) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	if IsBroadcast(target) {
		target = Broadcast
	} else if err := ValidateUnitID(target); err != nil {
		return "", err
	}
	return checkTopicLen(prefix + "/" + CmdTag + "/" + target)
}

// LogWildcard returns the subscription pattern for the log traffic of one
// unit, or of every unit when target selects all.
//
// Pattern: mql/log/# or mql/log/dev1/#
func LogWildcard(prefix, target string) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	if IsBroadcast(target) {
		return checkTopicLen(prefix + "/" + LogTag + "/#")
	}
	if err := ValidateUnitID(target); err != nil {
		return "", err
	}
	return checkTopicLen(prefix + "/" + LogTag + "/" + target + "/#")
}

// =============================================================================
// Topic Parsing
// =============================================================================

// LogAddress is the decoded form of a log topic.
type LogAddress struct {
	Prefix   string
	UnitID   string
	Severity severity.Severity
}

// ParseLogTopic decodes a log topic. The topic must split into exactly four
// fragments, the second must be LogTag and the fourth a single hex digit.
//
// Split is asked for one fragment more than the grammar holds so that a
// topic with extra trailing segments shows up as a count mismatch.
func ParseLogTopic(topic string) (LogAddress, error) {
	frags := Split(topic, LogFragments+1)
	if len(frags) != LogFragments {
		return LogAddress{}, fmt.Errorf("%w: %q: expected %d segments", ErrMalformedTopic, topic, LogFragments)
	}
	if frags[fragTag].Text(topic) != LogTag {
		return LogAddress{}, fmt.Errorf("%w: %q: missing %q tag", ErrMalformedTopic, topic, LogTag)
	}
	if frags[fragSeverity].Length != 1 {
		return LogAddress{}, fmt.Errorf("%w: %q: severity must be one hex digit", ErrMalformedTopic, topic)
	}

	sev, err := severity.ParseHexDigit(frags[fragSeverity].Text(topic))
	if err != nil {
		return LogAddress{}, fmt.Errorf("%w: %q: %w", ErrMalformedTopic, topic, err)
	}

	return LogAddress{
		Prefix:   frags[fragPrefix].Text(topic),
		UnitID:   frags[fragUnit].Text(topic),
		Severity: sev,
	}, nil
}

// IsControlTopic reports whether topic follows the control grammar:
// exactly three fragments with CmdTag in the middle.
func IsControlTopic(topic string) bool {
	frags := Split(topic, ControlFragments+1)
	return len(frags) == ControlFragments && frags[fragTag].Text(topic) == CmdTag
}
