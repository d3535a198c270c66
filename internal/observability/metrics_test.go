package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fopsim/internal/simulation"
)

// sample returns the value of the single series of a gathered family.
func sample(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue()
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount())
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestMetrics_Observer(t *testing.T) {
	m, reg := NewMetricsForTesting()
	var _ simulation.Observer = m

	m.DaySimulated(simulation.Lightning, 1000, 250*time.Millisecond)
	m.DaySimulated(simulation.Lightning, 1000, time.Second)
	m.DayFailed(simulation.Human, "input_data")
	m.RunStarted()

	assert.Equal(t, 2.0, sample(t, reg, "fopsim_days_simulated_total"))
	assert.Equal(t, 2000.0, sample(t, reg, "fopsim_replications_total"))
	assert.Equal(t, 1.0, sample(t, reg, "fopsim_day_failures_total"))
	assert.Equal(t, 2.0, sample(t, reg, "fopsim_day_duration_seconds"))
	assert.Equal(t, 1.0, sample(t, reg, "fopsim_run_active"))

	m.RunFinished()
	assert.Equal(t, 0.0, sample(t, reg, "fopsim_run_active"))
}

func TestWriteTextfile(t *testing.T) {
	m, reg := NewMetricsForTesting()
	m.DaySimulated(simulation.Human, 100, 20*time.Millisecond)
	m.DayFailed(simulation.Human, "input_data")

	path := filepath.Join(t.TempDir(), "fopsim.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `fopsim_days_simulated_total{variant="human"} 1`)
	assert.Contains(t, text, `fopsim_replications_total{variant="human"} 100`)
	assert.Contains(t, text, `fopsim_day_failures_total{kind="input_data",variant="human"} 1`)

	assert.Error(t, WriteTextfile(filepath.Join(t.TempDir(), "missing", "fopsim.prom"), reg))
}

func TestNewMetricsWithRegistry_Independent(t *testing.T) {
	a, regA := NewMetricsWithRegistry()
	_, regB := NewMetricsWithRegistry()
	a.RunStarted()

	assert.Equal(t, 1.0, sample(t, regA, "fopsim_run_active"))
	assert.Equal(t, 0.0, sample(t, regB, "fopsim_run_active"))
}
