package main

import (
	"github.com/nerrad567/mql/internal/infrastructure/influxdb"
	"github.com/nerrad567/mql/internal/listener"
)

// archiveSink feeds rendered records to InfluxDB.
type archiveSink struct {
	client *influxdb.Client
}

func (s archiveSink) Name() string { return "influxdb" }

func (s archiveSink) WriteRecord(rec listener.Record) error {
	return s.client.WriteLogRecord(influxdb.LogRecord{
		Time:         rec.Time,
		Prefix:       rec.Prefix,
		UnitID:       rec.UnitID,
		Severity:     uint8(rec.Severity),
		SeverityName: rec.Severity.String(),
		Message:      rec.Message,
	})
}
