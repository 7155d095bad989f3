// Package influxdb archives listened log records in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Records are written
// to the mql_log measurement, tagged by prefix, unit-id and severity name,
// with the message and numeric severity as fields.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//	    logger.Warn("archive write failed", "error", err)
//	})
//	_ = client.WriteLogRecord(influxdb.LogRecord{UnitID: "dev1", Message: "hello"})
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval).
// Batch failures are delivered to the SetOnError callback; connection
// errors are returned directly.
package influxdb
