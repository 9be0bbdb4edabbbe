package lsim_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/db47h/lsim"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestClockStep(t *testing.T) {
	var n int32
	var during lsim.ClockState
	var c *lsim.Clock
	c = lsim.NewClock(func() error {
		atomic.AddInt32(&n, 1)
		during = c.State()
		return nil
	}, time.Millisecond, true, testLogger(t))

	require.Equal(t, lsim.Stopped, c.State())
	require.NoError(t, c.Step())
	require.NoError(t, c.Step())
	require.Equal(t, int32(2), atomic.LoadInt32(&n))
	require.Equal(t, lsim.Stepping, during)
	require.Equal(t, lsim.Stopped, c.State())
	require.Nil(t, c.Done())
	require.NoError(t, c.Stop())
}

func TestClockRun(t *testing.T) {
	var n int32
	c := lsim.NewClock(func() error {
		atomic.AddInt32(&n, 1)
		return nil
	}, time.Millisecond, true, testLogger(t))

	require.NoError(t, c.Start(context.Background()))
	require.Equal(t, lsim.Running, c.State())
	require.Equal(t, lsim.ErrClockRunning, c.Start(context.Background()))
	require.Equal(t, lsim.ErrClockRunning, c.Step())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&n) >= 3 }, 5*time.Second, time.Millisecond)
	require.NoError(t, c.Stop())
	require.Equal(t, lsim.Stopped, c.State())

	// no tick after Stop returns
	k := atomic.LoadInt32(&n)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, k, atomic.LoadInt32(&n))
}

func TestClockContext(t *testing.T) {
	c := lsim.NewClock(func() error { return nil }, time.Millisecond, true, testLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	done := c.Done()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("clock did not stop")
	}
	require.Equal(t, lsim.Stopped, c.State())
	require.NoError(t, c.Stop())
}

func TestClockError(t *testing.T) {
	boom := errors.New("boom")
	c := lsim.NewClock(func() error { return boom }, time.Millisecond, true, testLogger(t))
	require.NoError(t, c.Start(context.Background()))
	<-c.Done()
	err := c.Stop()
	require.Equal(t, boom, errors.Cause(err))

	// restart after a failure
	require.NoError(t, c.Start(context.Background()))
	<-c.Done()
	require.Error(t, c.Stop())
}

func TestClockOscillation(t *testing.T) {
	osc := &lsim.OscillationError{Tick: 1, Steps: 10}
	for _, stop := range []bool{true, false} {
		var n int32
		c := lsim.NewClock(func() error {
			atomic.AddInt32(&n, 1)
			return osc
		}, time.Millisecond, stop, testLogger(t))
		require.NoError(t, c.Start(context.Background()))
		if stop {
			<-c.Done()
			require.True(t, lsim.IsOscillation(c.Stop()))
			require.Equal(t, int32(1), atomic.LoadInt32(&n))
			continue
		}
		require.Eventually(t, func() bool { return atomic.LoadInt32(&n) >= 3 }, 5*time.Second, time.Millisecond)
		require.Equal(t, lsim.Running, c.State())
		require.NoError(t, c.Stop())
	}
}
