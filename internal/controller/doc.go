// Package controller sends level commands to mql units and runs
// listeners.
//
// Commands are fire-and-forget: the Controller waits for the session's
// connected signal, publishes once and returns. Permanent level commands
// are retained by the broker so a unit that connects later still applies
// them; counted commands are not.
package controller
