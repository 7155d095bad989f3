// Package config handles loading and validating mql configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (MQTT_HOST, MQTT_PORT,
//     MQL_PREFIX, MQL_ID, MQL_LEVEL, MQL_LOG_LEVEL, MQL_INFLUXDB_TOKEN)
//   - Validation of the broker address and the topic identity
//   - Default value handling
//
// Validation of the topic identity uses the same limits as the protocol
// package, so an oversized prefix or unit-id is rejected before any
// connection is attempted.
//
// Usage:
//
//	cfg, err := config.Load("configs/mql.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQL.Prefix)
package config
