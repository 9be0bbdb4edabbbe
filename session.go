// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"context"
	"strconv"
	"sync"

	"github.com/db47h/lsim/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A Sampler is notified with the root state after every tick that reached a
// stable state.
//
type Sampler interface {
	Sample(root *CircuitState, tick uint64) error
}

// Option configures a Session.
//
type Option func(*Session)

// WithConfig sets the session configuration.
//
func WithConfig(c *config.Config) Option {
	return func(s *Session) { s.cfg = c }
}

// WithLogger sets the session logger.
//
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) { s.log = l }
}

// WithObserver registers an Observer with every propagator created by the
// session.
//
func WithObserver(o Observer) Option {
	return func(s *Session) { s.obs = append(s.obs, o) }
}

// WithSampler registers a Sampler.
//
func WithSampler(sp Sampler) Option {
	return func(s *Session) { s.samplers = append(s.samplers, sp) }
}

// Session is the entry point for tools driving a simulation. It serializes
// ticks, circuit edits and pokes: each one runs to completion before the next
// one starts. All methods are safe for concurrent use.
//
type Session struct {
	mu       sync.Mutex
	cfg      *config.Config
	log      logrus.FieldLogger
	obs      []Observer
	samplers []Sampler
	circuit  *Circuit
	p        *Propagator
	clock    *Clock
	lastErr  error
}

// NewSession returns a new session with no circuit loaded.
//
func NewSession(opts ...Option) *Session {
	s := &Session{}
	for _, o := range opts {
		o(s)
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.clock = NewClock(s.tick, s.cfg.Period(), s.cfg.Clock.StopOnOscillation, s.log)
	return s
}

// Config returns the session configuration.
//
func (s *Session) Config() *config.Config { return s.cfg }

// LoadGraph replaces the simulated circuit with c and resets the simulation.
//
func (s *Session) LoadGraph(c *Circuit) error {
	if s.clock.State() == Running {
		return ErrClockRunning
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p != nil {
		s.p.Close()
	}
	s.circuit = c
	s.p = NewPropagator(c, s.cfg.Simulation.OscillationCap, s.log.WithField("circuit", c.Name()))
	for _, o := range s.obs {
		s.p.AddObserver(o)
	}
	s.log.WithFields(logrus.Fields{
		"circuit":    c.Name(),
		"components": c.Len(),
	}).Info("circuit loaded")
	return s.autoPropagate()
}

// Circuit returns the loaded circuit.
//
func (s *Session) Circuit() *Circuit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.circuit
}

func (s *Session) propagate() error { return s.settled(s.p.Propagate()) }

// settled records the result of a propagation and notifies samplers.
func (s *Session) settled(err error) error {
	s.lastErr = err
	if err == nil {
		s.sample()
	}
	return err
}

func (s *Session) autoPropagate() error {
	if !s.cfg.Simulation.AutoPropagate {
		return nil
	}
	return s.propagate()
}

func (s *Session) sample() {
	if len(s.samplers) == 0 {
		return
	}
	defer s.p.lockCircuits()()
	for _, sp := range s.samplers {
		if err := sp.Sample(s.p.Root(), s.p.Ticks()); err != nil {
			s.log.WithError(err).Warn("sample failed")
		}
	}
}

func (s *Session) tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return ErrNoCircuit
	}
	return s.settled(s.p.Tick())
}

// Tick runs a single clock tick. It fails with ErrClockRunning if the clock
// is running.
//
func (s *Session) Tick() error { return s.clock.Step() }

// Settle propagates pending events without ticking the clock.
//
func (s *Session) Settle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return ErrNoCircuit
	}
	return s.propagate()
}

// Step processes a single instant of pending events.
//
func (s *Session) Step() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return false, ErrNoCircuit
	}
	return s.p.Step()
}

// Run starts the clock. Ticks run at the configured frequency until ctx is
// done or Stop is called.
//
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.p != nil
	s.mu.Unlock()
	if !loaded {
		return ErrNoCircuit
	}
	return s.clock.Start(ctx)
}

// Stop stops the clock after the current tick.
//
func (s *Session) Stop() error { return s.clock.Stop() }

// Done returns a channel closed when the running clock stops.
//
func (s *Session) Done() <-chan struct{} { return s.clock.Done() }

// ClockState returns the state of the clock driver.
//
func (s *Session) ClockState() ClockState { return s.clock.State() }

// Status returns the propagator status.
//
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return Idle
	}
	return s.p.Status()
}

// Err returns the error returned by the last propagation.
//
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Ticks returns the number of clock ticks since the last reset.
//
func (s *Session) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return 0
	}
	return s.p.Ticks()
}

// find looks up a state and a component in it. The caller must hold the
// circuit locks.
func (s *Session) find(path, name string) (*CircuitState, *Component, error) {
	n, err := s.p.Root().Lookup(path)
	if err != nil {
		return nil, nil, err
	}
	if name == "" {
		return n, nil, nil
	}
	comp := n.circuit.Find(name)
	if comp == nil {
		return nil, nil, errors.Wrap(ErrNotFound, "component "+name+" in "+n.String())
	}
	return n, comp, nil
}

// locate is like find but acquires the circuit locks.
func (s *Session) locate(path, name string) (*CircuitState, *Component, error) {
	if s.p == nil {
		return nil, nil, ErrNoCircuit
	}
	defer s.p.lockCircuits()()
	return s.find(path, name)
}

// Poke sends user input to the poker of the named component in the state at
// path. It fails with ErrInvalidPoke if a tick or edit is in progress or if
// the input is rejected. See CircuitState.Lookup for the path syntax.
//
func (s *Session) Poke(path, comp, input string) error {
	if !s.mu.TryLock() {
		return errors.Wrap(ErrInvalidPoke, "simulation in progress")
	}
	defer s.mu.Unlock()
	n, c, err := s.locate(path, comp)
	if err != nil {
		return errors.Wrap(ErrInvalidPoke, err.Error())
	}
	if err = s.p.Poke(n, c, input); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"state": n.String(), "component": c.String(), "input": input}).Debug("poke")
	return s.autoPropagate()
}

// Display returns the printable state of the named component as given by its
// poker.
//
func (s *Session) Display(path, comp string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, c, err := s.locate(path, comp)
	if err != nil {
		return "", err
	}
	return s.p.Display(n, c)
}

// SetInput sets an input pin of the top level circuit.
//
func (s *Session) SetInput(name string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return ErrNoCircuit
	}
	if err := s.p.SetInput(name, v); err != nil {
		return err
	}
	return s.autoPropagate()
}

// PortValue returns the value of a port of the named component in the state at
// path. port is either a port name or a port index.
//
func (s *Session) PortValue(path, comp, port string) (Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return Value{}, ErrNoCircuit
	}
	defer s.p.lockCircuits()()
	n, c, err := s.find(path, comp)
	if err != nil {
		return Value{}, err
	}
	i := c.PortIndex(port)
	if i < 0 {
		if i, err = strconv.Atoi(port); err != nil || i < 0 || i >= c.NumPorts() {
			return Value{}, errors.Wrap(ErrNotFound, "port "+port+" of "+c.String())
		}
	}
	return n.PortValue(c, i), nil
}

// NetValue returns the value of the named net in the state at path.
//
func (s *Session) NetValue(path, net string) (Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return Value{}, ErrNoCircuit
	}
	defer s.p.lockCircuits()()
	n, _, err := s.find(path, "")
	if err != nil {
		return Value{}, err
	}
	v, ok := n.NetValue(net)
	if !ok {
		return Value{}, errors.Wrap(ErrNotFound, "net "+net+" in "+n.String())
	}
	return v, nil
}

// Edit calls fn with the loaded circuit. Changes made by fn are applied to the
// simulation state, then propagated if auto propagation is enabled.
//
// Circuits can also be edited directly from any goroutine. Such edits fail
// with ErrBusy while a tick or another session operation is in progress.
//
func (s *Session) Edit(fn func(c *Circuit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return ErrNoCircuit
	}
	if err := fn(s.circuit); err != nil {
		return err
	}
	return s.autoPropagate()
}

// View calls fn with the root state. fn must not keep references to the state
// after it returns.
//
func (s *Session) View(fn func(root *CircuitState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return ErrNoCircuit
	}
	defer s.p.lockCircuits()()
	return fn(s.p.Root())
}

// Reset discards the simulation state and starts over.
//
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return ErrNoCircuit
	}
	s.p.Reset()
	s.lastErr = nil
	return s.autoPropagate()
}

// Close stops the clock and releases the simulation state.
//
func (s *Session) Close() error {
	err := s.clock.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p != nil {
		s.p.Close()
		s.p = nil
	}
	return err
}
