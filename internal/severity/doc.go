// Package severity defines the 4-bit log severity scale and the emission
// policy each publisher applies before a record reaches the bus.
//
// # Scale
//
// Severities run from 0 (most urgent) to 15 (least urgent) and travel on the
// wire as a single hex digit:
//
//	0      FATAL
//	1      ERROR
//	2-3    WARNING, WARNING_1
//	4-7    INFO, INFO_1 .. INFO_3
//	8-15   DEBUG, DEBUG_1 .. DEBUG_7
//
// A record at severity s is emitted under threshold t iff s <= t.
//
// # Counted override
//
// Besides its permanent level, a Policy can carry a temporary counted level.
// While the override is active, decisions use the counted level and every
// record that passes consumes one unit of the count. Suppressed records do
// not consume it. When the count reaches zero the permanent level governs
// again.
//
// # Usage
//
//	policy, err := severity.NewPolicy(severity.Info)
//	if err != nil {
//	    return err
//	}
//	_ = policy.SetCountedLevel(severity.Debug, 10)
//	if policy.DecideEmit(severity.Debug) {
//	    // publish
//	}
package severity
