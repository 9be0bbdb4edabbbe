package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/db47h/lsim"
	hl "github.com/db47h/lsim/hwlib"
	"github.com/db47h/lsim/hwtest"
	"github.com/db47h/lsim/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTickDone(t *testing.T) {
	c := metrics.New("lsim")
	c.TickDone(lsim.TickStats{Status: lsim.Stable, Steps: 3, Events: 5, Evals: 4, Duration: time.Millisecond})
	c.TickDone(lsim.TickStats{Status: lsim.Oscillating, Steps: 1000, Events: 2000, Evals: 1000, Dropped: 7})

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	exp := `
# HELP lsim_propagations_total Number of propagations, by final status
# TYPE lsim_propagations_total counter
lsim_propagations_total{status="oscillating"} 1
lsim_propagations_total{status="stable"} 1
# HELP lsim_steps_total Number of processed instants
# TYPE lsim_steps_total counter
lsim_steps_total 1003
# HELP lsim_dropped_events_total Number of events discarded because their target was removed or after an oscillation
# TYPE lsim_dropped_events_total counter
lsim_dropped_events_total 7
# HELP lsim_oscillating 1 if the last propagation ended in an oscillation
# TYPE lsim_oscillating gauge
lsim_oscillating 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(exp),
		"lsim_propagations_total", "lsim_steps_total", "lsim_dropped_events_total", "lsim_oscillating"))
	require.Equal(t, 8, testutil.CollectAndCount(c))
}

func TestObserver(t *testing.T) {
	c := lsim.MustCircuit("c", "a", "out")
	c.MustAdd(hl.Not, nil, lsim.Loc(0, 0), "in=a, out=out")
	m := metrics.New("test")
	p := lsim.NewPropagator(c, 0, hwtest.Logger(t))
	defer p.Close()
	p.AddObserver(m)

	require.NoError(t, p.Propagate())
	require.NoError(t, p.SetInput("a", lsim.True))
	require.NoError(t, p.Propagate())

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m))
	exp := `
# HELP test_propagations_total Number of propagations, by final status
# TYPE test_propagations_total counter
test_propagations_total{status="stable"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(exp), "test_propagations_total"))
	require.Equal(t, 1, testutil.CollectAndCount(m, "test_propagations_total"))
}
