package publisher

import "errors"

var (
	// ErrPublish wraps a transport failure while emitting a record.
	ErrPublish = errors.New("publisher: publish failed")

	// ErrSubscribe wraps a transport failure while subscribing to the
	// control topics.
	ErrSubscribe = errors.New("publisher: subscribe failed")
)
