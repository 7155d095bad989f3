// Package listener renders the log records of one unit, or of every unit,
// as they cross the bus.
//
// A Listener subscribes to a log wildcard, validates each topic against
// the log grammar, drops records less urgent than its display threshold
// and writes one line per remaining record:
//
//	dev1             : 1 : ERROR     : "disk full"
//
// Control traffic that reaches the listener is ignored. Topics that fit
// neither grammar are reported on the diagnostic logger and dropped.
// Rendered records can also be handed to Sinks, such as the InfluxDB
// archive.
package listener
