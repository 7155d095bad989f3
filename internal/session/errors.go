package session

import "errors"

var (
	// ErrConnectionLost is returned by Run when the broker connection
	// drops. It is fatal for the process.
	ErrConnectionLost = errors.New("session: connection lost")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("session: already running")

	// ErrEnded is returned by WaitConnected when the session finished
	// before the connection was established.
	ErrEnded = errors.New("session: ended before connect")
)
