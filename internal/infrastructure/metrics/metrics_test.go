package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue returns the value of the series of family name whose labels
// include every pair in labels.
func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabels(metric, labels) {
				if c := metric.GetCounter(); c != nil {
					return c.GetValue()
				}
				return metric.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func hasLabels(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestMetrics_PublisherCounters(t *testing.T) {
	m := New()

	m.RecordDecision("dev1", true)
	m.RecordDecision("dev1", true)
	m.RecordDecision("dev1", false)
	m.RecordPublishError("dev1")
	m.RecordControl("dev1", "set_level", ControlApplied)
	m.RecordControl("dev1", "", ControlMalformed)
	m.SetLevel("dev1", 4)

	assert.Equal(t, 2.0, counterValue(t, m, "mql_publisher_records_total", map[string]string{"unit": "dev1", "outcome": OutcomeEmitted}))
	assert.Equal(t, 1.0, counterValue(t, m, "mql_publisher_records_total", map[string]string{"unit": "dev1", "outcome": OutcomeSuppressed}))
	assert.Equal(t, 1.0, counterValue(t, m, "mql_publisher_records_total", map[string]string{"unit": "dev1", "outcome": OutcomeFailed}))
	assert.Equal(t, 1.0, counterValue(t, m, "mql_publisher_control_commands_total", map[string]string{"kind": "set_level", "result": ControlApplied}))
	assert.Equal(t, 1.0, counterValue(t, m, "mql_publisher_control_commands_total", map[string]string{"result": ControlMalformed}))
	assert.Equal(t, 4.0, counterValue(t, m, "mql_publisher_level", map[string]string{"unit": "dev1"}))
}

func TestMetrics_ListenerCounters(t *testing.T) {
	m := New()

	m.RecordListened(ListenRendered)
	m.RecordListened(ListenFiltered)
	m.RecordListened(ListenFiltered)
	m.RecordSinkError("influxdb")

	assert.Equal(t, 1.0, counterValue(t, m, "mql_listener_records_total", map[string]string{"outcome": ListenRendered}))
	assert.Equal(t, 2.0, counterValue(t, m, "mql_listener_records_total", map[string]string{"outcome": ListenFiltered}))
	assert.Equal(t, 1.0, counterValue(t, m, "mql_listener_sink_errors_total", map[string]string{"sink": "influxdb"}))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordDecision("dev1", true)
		m.RecordPublishError("dev1")
		m.RecordControl("dev1", "set_level", ControlApplied)
		m.SetLevel("dev1", 1)
		m.RecordListened(ListenRendered)
		m.RecordSinkError("influxdb")
	})
	assert.Nil(t, m.Registry())
}

func TestServer_Handler(t *testing.T) {
	m := New()
	m.RecordDecision("dev1", true)

	srv := httptest.NewServer(NewServer(":0", "", m).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "mql_publisher_records_total")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0", "/metrics", New())

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != "127.0.0.1:0" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	cancel()
	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunNilMetrics(t *testing.T) {
	require.Error(t, NewServer(":0", "", nil).Run(context.Background()))
}
