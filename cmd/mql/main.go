// mql - logging over MQTT
//
// mql listens to the log records units publish on the bus and changes the
// level of running units:
//
//	mql listen [target] [severity]
//	mql level [target] [severity]
//	mql count [target] [severity] [count]
//	mql emit
//
// Broker and topic identity come from flags, MQTT_HOST, MQTT_PORT,
// MQL_PREFIX, MQL_ID and MQL_LEVEL, or a YAML file given with --config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
