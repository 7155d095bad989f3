// Package protocol implements the mql wire grammar: topic construction and
// parsing, and the control payload language.
//
// # Topics
//
//	log topic:      <prefix>/log/<unit-id>/<severity-hex-digit>
//	control topic:  <prefix>/cmd/<unit-id>
//	                <prefix>/cmd/ALL
//	log wildcard:   <prefix>/log/#
//	                <prefix>/log/<unit-id>/#
//
// Prefix and unit-id are at most 31 bytes each and a full topic at most 127
// bytes. Breaking these limits is a configuration error reported when the
// topic is built, never at runtime.
//
// # Control payloads
//
//	"L" SP hex-digit                     set level
//	"C" SP hex-digit SP decimal-digits   set counted level
//
// Anything else is malformed and must be discarded by the receiver without
// touching its state.
//
// # Splitting
//
// Split walks a topic once, left to right, and records at most capacity
// fragments. Segments beyond capacity are dropped and not counted, so callers
// size capacity to the largest grammar they accept and treat a short or
// mismatched count as a malformed topic.
//
//	frags := protocol.Split("mql/log/dev1/4", protocol.LogFragments)
//	unit := frags[2].Text("mql/log/dev1/4") // "dev1"
package protocol
