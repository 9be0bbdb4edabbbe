// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ClockState is the state of a clock driver.
//
type ClockState int32

// Clock driver states.
//
const (
	Stopped ClockState = iota
	Stepping
	Running
)

func (s ClockState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Stepping:
		return "stepping"
	case Running:
		return "running"
	}
	return "invalid"
}

// A Clock drives ticks, either one at a time with Step or periodically with
// Start. A tick in progress always completes before the clock stops.
//
type Clock struct {
	tick      func() error
	period    time.Duration
	stopOnOsc bool
	log       logrus.FieldLogger

	mu     sync.Mutex
	state  ClockState
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewClock returns a stopped clock calling tick at every tick. When running,
// ticks are spaced by period. If stopOnOscillation is true, a running clock
// stops after a tick returns an *OscillationError. Other errors always stop a
// running clock.
//
func NewClock(tick func() error, period time.Duration, stopOnOscillation bool, log logrus.FieldLogger) *Clock {
	if period <= 0 {
		period = time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Clock{tick: tick, period: period, stopOnOsc: stopOnOscillation, log: log}
}

// State returns the current clock state.
//
func (c *Clock) State() ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetPeriod changes the tick period. It takes effect on the next Start.
//
func (c *Clock) SetPeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.period = d
	c.mu.Unlock()
}

// Step runs a single tick. The clock is in the Stepping state until the tick
// completes. It fails with ErrClockRunning if the clock is running.
//
func (c *Clock) Step() error {
	c.mu.Lock()
	if c.state == Running {
		c.mu.Unlock()
		return ErrClockRunning
	}
	c.state = Stepping
	c.mu.Unlock()
	err := c.tick()
	c.mu.Lock()
	if c.state == Stepping {
		c.state = Stopped
	}
	c.mu.Unlock()
	return err
}

// Start runs ticks periodically in a new goroutine until ctx is done, Stop is
// called or a tick fails.
//
func (c *Clock) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Running {
		return ErrClockRunning
	}
	if c.cancel != nil {
		// stopped by a failed tick
		c.cancel()
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.state = Running
	c.err = nil
	go c.run(ctx, c.period, c.done)
	c.log.WithField("period", c.period).Debug("clock started")
	return nil
}

func (c *Clock) run(ctx context.Context, period time.Duration, done chan struct{}) {
	t := time.NewTicker(period)
	defer func() {
		t.Stop()
		c.mu.Lock()
		c.state = Stopped
		c.mu.Unlock()
		close(done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		// ticks are never interrupted
		err := c.tick()
		if err == nil {
			continue
		}
		if IsOscillation(err) && !c.stopOnOsc {
			c.log.WithError(err).Warn("tick failed")
			continue
		}
		c.log.WithError(err).Error("clock stopped")
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return
	}
}

// Done returns a channel closed when a running clock stops, or nil if the
// clock was never started.
//
func (c *Clock) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Stop stops a running clock and waits for the current tick to complete. It
// returns the error that stopped the clock, if any.
//
func (c *Clock) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	if cancel == nil {
		c.state = Stopped
		c.mu.Unlock()
		return nil
	}
	c.cancel = nil
	c.mu.Unlock()
	cancel()
	<-done
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.WithMessage(c.err, "clock")
}
