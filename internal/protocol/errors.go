package protocol

import "errors"

// Configuration errors are returned when building topics from identifiers
// that break the grammar. Protocol errors (ErrMalformedTopic,
// ErrMalformedCommand) describe bad traffic seen at runtime.
var (
	// ErrPrefixTooLong is returned when a topic prefix exceeds MaxPrefixLen.
	ErrPrefixTooLong = errors.New("protocol: prefix too long")

	// ErrUnitIDTooLong is returned when a unit-id exceeds MaxUnitIDLen.
	ErrUnitIDTooLong = errors.New("protocol: unit-id too long")

	// ErrTopicTooLong is returned when a composed topic exceeds MaxTopicLen.
	ErrTopicTooLong = errors.New("protocol: topic too long")

	// ErrInvalidIdentifier is returned for empty identifiers or identifiers
	// containing topic separators or MQTT wildcards.
	ErrInvalidIdentifier = errors.New("protocol: invalid identifier")

	// ErrMalformedTopic is returned when a received topic does not follow
	// the log grammar.
	ErrMalformedTopic = errors.New("protocol: malformed topic")

	// ErrMalformedCommand is returned when a control payload does not
	// follow the command grammar.
	ErrMalformedCommand = errors.New("protocol: malformed control command")
)
