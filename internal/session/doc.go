// Package session turns the transport's event stream into an ordered,
// single-goroutine lifecycle.
//
// A Session owns the connection state machine
//
//	Disconnected → Connecting → Connected → (lost) → Disconnected
//
// and a one-shot connected signal. Components register connect handlers
// (typically subscriptions) and message handlers before Run is started;
// Run then applies every event in the order the transport delivered it.
// Losing the connection ends Run with ErrConnectionLost; nothing is
// retried.
package session
