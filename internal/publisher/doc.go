// Package publisher implements the producer side of mql.
//
// A Publisher owns one unit's identity (prefix and unit-id), its
// precomputed log and control topics, and the severity policy that
// decides which records reach the bus. It subscribes to its own control
// topic and the broadcast topic, and applies the level commands it
// receives there in arrival order.
//
//	pub, err := publisher.New(client, publisher.Config{
//	    Prefix: "mql",
//	    UnitID: "boiler",
//	    Level:  severity.Info,
//	})
//	if err != nil {
//	    return err
//	}
//	pub.Attach(sess)
//
//	_ = pub.Logf(severity.Warning, "flow temperature %d°C", temp)
package publisher
