package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mql/internal/infrastructure/config"
	"github.com/nerrad567/mql/internal/infrastructure/influxdb"
	"github.com/nerrad567/mql/internal/infrastructure/logging"
	"github.com/nerrad567/mql/internal/infrastructure/metrics"
	"github.com/nerrad567/mql/internal/listener"
	"github.com/nerrad567/mql/internal/protocol"
	"github.com/nerrad567/mql/internal/severity"
)

// clearEnv blanks the variables config.Default reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"MQTT_HOST", "MQTT_PORT", "MQL_PREFIX", "MQL_ID", "MQL_LEVEL", "MQL_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Commands(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"listen", "level", "count", "emit"})
}

func TestListenArgs(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		wantTarget    string
		wantThreshold severity.Severity
		wantErr       bool
	}{
		{name: "defaults", wantTarget: protocol.Broadcast, wantThreshold: severity.Lowest},
		{name: "target only", args: []string{"dev1"}, wantTarget: "dev1", wantThreshold: severity.Lowest},
		{name: "hex threshold", args: []string{"dev1", "2"}, wantTarget: "dev1", wantThreshold: severity.Warning},
		{name: "named threshold", args: []string{"ALL", "error"}, wantTarget: "ALL", wantThreshold: severity.Error},
		{name: "bad threshold", args: []string{"dev1", "LOUD"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, threshold, err := listenArgs(tt.args)
			if tt.wantErr {
				require.ErrorIs(t, err, severity.ErrUnknownName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, target)
			assert.Equal(t, tt.wantThreshold, threshold)
		})
	}
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantTarget string
		wantSev    severity.Severity
		wantCount  uint32
	}{
		{name: "defaults", wantTarget: protocol.Broadcast, wantSev: severity.Lowest, wantCount: 1},
		{name: "target only", args: []string{"dev1"}, wantTarget: "dev1", wantSev: severity.Lowest, wantCount: 1},
		{name: "target and severity", args: []string{"dev1", "info"}, wantTarget: "dev1", wantSev: severity.Info, wantCount: 1},
		{name: "all three", args: []string{"ALL", "2", "7"}, wantTarget: "ALL", wantSev: severity.Warning, wantCount: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, sev, count, err := commandArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, target)
			assert.Equal(t, tt.wantSev, sev)
			assert.Equal(t, tt.wantCount, count)
		})
	}

	_, _, _, err := commandArgs([]string{"dev1", "4", "0"})
	require.ErrorIs(t, err, severity.ErrInvalidCount)
}

func TestParseCount(t *testing.T) {
	n, err := parseCount("10")
	require.NoError(t, err)
	assert.Equal(t, uint32(10), n)

	for _, bad := range []string{"0", "-1", "x", "4294967296"} {
		_, err := parseCount(bad)
		require.ErrorIs(t, err, severity.ErrInvalidCount, bad)
	}
}

func TestCommands_RejectArgumentsBeforeConnecting(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "level bad severity", args: []string{"level", "dev1", "LOUD"}, wantErr: severity.ErrUnknownName},
		{name: "count zero", args: []string{"count", "dev1", "4", "0"}, wantErr: severity.ErrInvalidCount},
		{name: "listen bad severity", args: []string{"listen", "dev1", "z"}, wantErr: severity.ErrInvalidDigit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := execute(t, "level", "dev1", "4", "extra")
	require.Error(t, err)

	_, err = execute(t, "-x", "this-prefix-is-far-too-long-for-mql", "level", "dev1", "4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mql.prefix")
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	clearEnv(t)

	opts := &rootOptions{
		host:        "broker.local",
		port:        1884,
		prefix:      "plant",
		debug:       true,
		metricsAddr: "127.0.0.1:9191",
	}
	cfg, err := opts.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "broker.local", cfg.MQTT.Broker.Host)
	assert.Equal(t, 1884, cfg.MQTT.Broker.Port)
	assert.Equal(t, "plant", cfg.MQL.Prefix)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9191", cfg.Metrics.Addr)
}

func TestLoadConfig_OverridesAreValidated(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "mql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("influxdb:\n  url: \"\"\n  bucket: \"\"\n"), 0o600))
	opts := &rootOptions{configPath: path}

	_, err := opts.loadConfig()
	require.NoError(t, err)

	_, err = opts.loadConfig(func(cfg *config.Config) error {
		cfg.InfluxDB.Enabled = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "influxdb.bucket")

	// The listen --archive flag goes through the same path and fails
	// before any connection is attempted.
	_, err = execute(t, "--config", path, "listen", "--archive")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "influxdb.url")
}

func TestLoadConfig_EnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MQTT_HOST", "10.1.1.1")
	t.Setenv("MQL_PREFIX", "lab")

	cfg, err := (&rootOptions{}).loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "10.1.1.1", cfg.MQTT.Broker.Host)
	assert.Equal(t, 1883, cfg.MQTT.Broker.Port)
	assert.Equal(t, "lab", cfg.MQL.Prefix)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestApp_RunStopsMetricsWhenDone(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Metrics.Addr = "127.0.0.1:0"

	a := &app{cfg: cfg, logger: logging.Discard(), metrics: metrics.New()}

	called := false
	err = a.run(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	err = a.run(context.Background(), func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestArchiveSink(t *testing.T) {
	sink := archiveSink{client: &influxdb.Client{}}
	assert.Equal(t, "influxdb", sink.Name())

	err := sink.WriteRecord(listener.Record{UnitID: "dev1", Severity: severity.Info, Message: "x"})
	require.ErrorIs(t, err, influxdb.ErrNotConnected)
}
