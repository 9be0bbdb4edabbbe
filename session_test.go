package lsim_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/db47h/lsim"
	"github.com/db47h/lsim/config"
	hl "github.com/db47h/lsim/hwlib"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type sampleRecorder struct {
	mu    sync.Mutex
	ticks []uint64
}

func (r *sampleRecorder) Sample(root *lsim.CircuitState, tick uint64) error {
	r.mu.Lock()
	r.ticks = append(r.ticks, tick)
	r.mu.Unlock()
	return nil
}

func (r *sampleRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks)
}

// counterCircuit returns a circuit with a clock driving a 4 bit counter in
// sub-circuit "cnt", and an inverted pin.
func counterCircuit() *lsim.Circuit {
	cnt := lsim.MustCircuit("cnt", "clk", "q[4]")
	cnt.MustAdd(hl.Counter, lsim.Attrs{lsim.AttrWidth: 4, lsim.AttrLabel: "c"}, lsim.Loc(0, 0), "clk=clk, out=q")

	top := lsim.MustCircuit("top", "", "q[4], y")
	top.MustAdd(hl.Clock, lsim.Attrs{lsim.AttrLabel: "clock"}, lsim.Loc(0, 0), "out=clk")
	top.MustAdd(cnt.Factory(), lsim.Attrs{lsim.AttrLabel: "cnt"}, lsim.Loc(20, 0), "clk=clk, q=q")
	top.MustAdd(hl.Pin, lsim.Attrs{lsim.AttrLabel: "a"}, lsim.Loc(0, 40), "out=x")
	top.MustAdd(hl.Not, nil, lsim.Loc(20, 40), "in=x, out=y")
	return top
}

func newSession(t *testing.T, opts ...lsim.Option) *lsim.Session {
	cfg := config.Default()
	cfg.Clock.Frequency = 1000
	s := lsim.NewSession(append([]lsim.Option{lsim.WithConfig(cfg), lsim.WithLogger(testLogger(t))}, opts...)...)
	require.NoError(t, s.LoadGraph(counterCircuit()))
	return s
}

func TestSessionNoCircuit(t *testing.T) {
	s := lsim.NewSession(lsim.WithLogger(testLogger(t)))
	require.Equal(t, lsim.ErrNoCircuit, errors.Cause(s.Tick()))
	require.Equal(t, lsim.ErrNoCircuit, errors.Cause(s.Settle()))
	require.Equal(t, lsim.ErrNoCircuit, s.Run(context.Background()))
	require.Equal(t, lsim.Idle, s.Status())
	require.NoError(t, s.Close())
}

func TestSessionTick(t *testing.T) {
	var rec sampleRecorder
	var stats statsRecorder
	s := newSession(t, lsim.WithSampler(&rec), lsim.WithObserver(&stats))
	defer s.Close()

	require.Equal(t, lsim.Stable, s.Status())
	for i := 0; i < 6; i++ {
		require.NoError(t, s.Tick())
	}
	require.Equal(t, uint64(6), s.Ticks())
	v, err := s.NetValue("", "q")
	require.NoError(t, err)
	require.Equal(t, lsim.NewValue(4, 3), v)

	v, err = s.PortValue("cnt", "c", "out")
	require.NoError(t, err)
	require.Equal(t, lsim.NewValue(4, 3), v)
	v, err = s.PortValue("cnt", "c", "2")
	require.NoError(t, err)
	require.Equal(t, lsim.False, v)
	_, err = s.PortValue("cnt", "c", "7")
	require.Equal(t, lsim.ErrNotFound, errors.Cause(err))
	_, err = s.NetValue("nope", "q")
	require.Equal(t, lsim.ErrNotFound, errors.Cause(err))

	// initial propagation + 6 ticks
	require.Equal(t, 7, rec.len())
	require.Len(t, stats, 7)
	require.Equal(t, uint64(6), rec.ticks[6])

	require.NoError(t, s.Reset())
	require.Equal(t, uint64(0), s.Ticks())
	v, err = s.NetValue("", "q")
	require.NoError(t, err)
	require.Equal(t, lsim.NewValue(4, 0), v)
}

func TestSessionPoke(t *testing.T) {
	s := newSession(t)
	defer s.Close()

	v, err := s.NetValue("", "y")
	require.NoError(t, err)
	require.Equal(t, lsim.True, v)
	require.NoError(t, s.Poke("", "a", ""))
	v, _ = s.NetValue("", "y")
	require.Equal(t, lsim.False, v)
	d, err := s.Display("", "a")
	require.NoError(t, err)
	require.Equal(t, "1", d)

	require.NoError(t, s.Poke("cnt", "c", "9"))
	v, _ = s.NetValue("", "q")
	require.Equal(t, lsim.NewValue(4, 9), v)

	require.Equal(t, lsim.ErrInvalidPoke, errors.Cause(s.Poke("", "nope", "1")))
	require.Equal(t, lsim.ErrInvalidPoke, errors.Cause(s.Poke("", "a", "7")))

	// pokes are rejected while an edit is in progress
	err = s.Edit(func(c *lsim.Circuit) error {
		return s.Poke("", "a", "")
	})
	require.Equal(t, lsim.ErrInvalidPoke, errors.Cause(err))
}

func TestSessionEdit(t *testing.T) {
	s := newSession(t)
	defer s.Close()
	require.NoError(t, s.Edit(func(c *lsim.Circuit) error {
		return c.Connect(c.Find("NOT(20,40)"), "in=x")
	}))
	v, err := s.NetValue("", "y")
	require.NoError(t, err)
	require.Equal(t, lsim.UnknownValue(1), v)

	boom := errors.New("boom")
	require.Equal(t, boom, s.Edit(func(c *lsim.Circuit) error { return boom }))

	require.NoError(t, s.View(func(root *lsim.CircuitState) error {
		require.Len(t, root.Children(), 1)
		return nil
	}))
}

func TestSessionRun(t *testing.T) {
	s := newSession(t)
	defer s.Close()
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, lsim.Running, s.ClockState())
	require.Equal(t, lsim.ErrClockRunning, s.Tick())
	require.Equal(t, lsim.ErrClockRunning, s.LoadGraph(counterCircuit()))
	require.Eventually(t, func() bool { return s.Ticks() >= 4 }, 5*time.Second, time.Millisecond)
	require.NoError(t, s.Stop())
	require.Equal(t, lsim.Stopped, s.ClockState())
	require.NoError(t, s.Err())
}

func TestSessionOscillation(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.OscillationCap = 50
	s := lsim.NewSession(lsim.WithConfig(cfg), lsim.WithLogger(testLogger(t)))
	defer s.Close()
	require.NoError(t, s.LoadGraph(ringOscillator(1)))
	require.NoError(t, s.SetInput("en", lsim.False))
	err := s.SetInput("en", lsim.True)
	require.True(t, lsim.IsOscillation(err))
	require.True(t, lsim.IsOscillation(s.Err()))
	require.Equal(t, lsim.Oscillating, s.Status())
	require.NoError(t, s.SetInput("en", lsim.False))
	require.NoError(t, s.Err())
}

func TestSessionConcurrentEdit(t *testing.T) {
	s := newSession(t)
	defer s.Close()
	c := s.Circuit()
	require.NoError(t, s.Run(context.Background()))

	busy := 0
	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		comp, err := c.Add(hl.Not, nil, lsim.Loc(100, 100), "in=x")
		if errors.Cause(err) == lsim.ErrBusy {
			busy++
			continue
		}
		require.NoError(t, err)
		for {
			if err = c.Remove(comp); errors.Cause(err) != lsim.ErrBusy {
				break
			}
			busy++
		}
		require.NoError(t, err)
	}
	require.NoError(t, s.Stop())
	require.Equal(t, 4, c.Len())
	require.NotZero(t, s.Ticks())
	t.Logf("%d edits rejected", busy)

	// the state tree is consistent after the edits
	require.NoError(t, s.Tick())
	v, err := s.NetValue("", "y")
	require.NoError(t, err)
	require.True(t, v.IsFullyDefined())
}
