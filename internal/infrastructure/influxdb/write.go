package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is the InfluxDB measurement holding archived log records.
const Measurement = "mql_log"

// LogRecord is one archived record.
type LogRecord struct {
	Time         time.Time
	Prefix       string
	UnitID       string
	Severity     uint8
	SeverityName string
	Message      string
}

// newLogPoint maps a record onto the mql_log measurement. Identity and
// severity are tags; the numeric severity is also kept as a field so it
// can be compared in queries.
func newLogPoint(rec LogRecord) *write.Point {
	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(
		Measurement,
		map[string]string{
			"prefix":   rec.Prefix,
			"unit_id":  rec.UnitID,
			"severity": rec.SeverityName,
		},
		map[string]interface{}{
			"message": rec.Message,
			"level":   int64(rec.Severity),
		},
		ts,
	)
}

// WriteLogRecord queues rec for the next batch.
//
// The write is non-blocking; failures surface through SetOnError.
func (c *Client) WriteLogRecord(rec LogRecord) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.writeAPI.WritePoint(newLogPoint(rec))
	return nil
}
