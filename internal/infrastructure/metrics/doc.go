// Package metrics exposes Prometheus counters for mql publishers and
// listeners and serves them over HTTP.
//
// Every recording method is safe on a nil *Metrics, so components can
// hold an optional collector without guarding each call.
//
// Usage:
//
//	m := metrics.New()
//	srv := metrics.NewServer(":9090", "/metrics", m)
//	go srv.Run(ctx)
//
//	m.RecordDecision("dev1", true)
package metrics
