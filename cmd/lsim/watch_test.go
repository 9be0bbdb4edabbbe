package main

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/db47h/lsim"
	"github.com/db47h/lsim/config"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// oscNetlist oscillates as soon as the clock goes high on the first tick.
const oscNetlist = `
circuits:
  - name: osc
    components:
      - type: Clock
        at: [0, 0]
        attrs: {label: clock}
        conns: out=clk
      - type: NAND
        at: [20, 0]
        conns: in0=clk, in1=x, out=x
`

func logged(h *test.Hook, level logrus.Level, msg string) bool {
	for _, e := range h.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

func TestWatchLoop(t *testing.T) {
	var hook *test.Hook
	log, hook = test.NewNullLogger()
	cfg = config.Default()
	cfg.Clock.Frequency = 1000
	watchOpts.probes, watchOpts.radix = nil, 2

	file := writeNetlist(t, oscNetlist)
	pr := &printer{w: io.Discard}
	s := newSession(lsim.WithSampler(pr))
	defer s.Close()
	require.NoError(t, reload(s, pr, file))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Run(ctx))
	events := make(chan fsnotify.Event)
	errc := make(chan error, 1)
	go func() { errc <- watchLoop(ctx, s, pr, file, events, nil) }()

	// the clock stops on oscillation and the error is reported
	require.Eventually(t, func() bool {
		return logged(hook, logrus.ErrorLevel, "simulation stopped, waiting for the netlist to change")
	}, 2*time.Second, time.Millisecond)
	require.Equal(t, lsim.Stopped, s.ClockState())
	require.True(t, lsim.IsOscillation(s.Err()))

	// a fixed netlist restarts the simulation
	require.NoError(t, os.WriteFile(file, []byte(counterNetlist), 0644))
	events <- fsnotify.Event{Name: file, Op: fsnotify.Write}
	require.Eventually(t, func() bool {
		return logged(hook, logrus.InfoLevel, "netlist reloaded") && s.ClockState() == lsim.Running
	}, 2*time.Second, time.Millisecond)
	require.Equal(t, "top", s.Circuit().Name())

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not exit")
	}
}
