// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"container/heap"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultOscillationCap is the default maximum number of steps in a tick.
//
const DefaultOscillationCap = 1000

// Status is the state of a propagator.
//
type Status int32

// Propagator states.
//
const (
	Idle Status = iota
	Draining
	Stable
	Oscillating
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Draining:
		return "draining"
	case Stable:
		return "stable"
	case Oscillating:
		return "oscillating"
	}
	return "invalid"
}

// TickStats reports what happened during a call to Propagate.
//
type TickStats struct {
	Tick     uint64
	Status   Status
	Steps    int // processed instants
	Events   int // applied driver updates
	Evals    int // behavior invocations
	Dropped  int // events discarded because their target is gone or after an oscillation
	Duration time.Duration
}

// An Observer is notified at the end of every call to Propagate or Tick, once
// circuits can be edited again.
//
type Observer interface {
	TickDone(s TickStats)
}

type netKey struct {
	node NodeID
	net  string
}

type driverKey struct {
	node NodeID
	ref  PortRef
}

type evalKey struct {
	node NodeID
	comp *Component
}

type dirtyNet struct {
	netKey
	force bool
}

// Propagator is the discrete event simulator for a circuit and all its
// sub-circuits.
//
// Each step processes one instant: all pending events scheduled at that
// instant are applied, the values of the affected nets are recomputed by
// combining all their drivers, and every component reading a changed net is
// evaluated once. Behaviors schedule new events at now + delay.
//
// A Propagator is not safe for concurrent use. It is however safe to mutate
// the simulated circuits from other goroutines: every method that touches the
// state tree holds the edit locks of all the circuits it uses, and changes are
// applied to the state tree by the mutating goroutine.
//
type Propagator struct {
	chg    sync.Mutex // serializes circuit change notifications
	root   *Circuit
	cap    int
	log    logrus.FieldLogger
	obs    []Observer
	nodes  map[NodeID]*CircuitState
	lastID NodeID
	top    *CircuitState
	status int32

	q     queue
	seq   uint64
	now   uint64
	ticks uint64

	work    []dirtyNet
	workIdx map[netKey]int
	evalq   []evalKey
	evalSet map[evalKey]bool

	touchedNets    map[netKey]bool
	touchedDrivers map[driverKey]bool
	stats          TickStats
}

// NewPropagator returns a new propagator for circuit c. If oscillationCap is
// less or equal to 0, DefaultOscillationCap is used. If log is nil, the logrus
// standard logger is used.
//
// The returned propagator has all components of c scheduled for their initial
// evaluation.
//
func NewPropagator(c *Circuit, oscillationCap int, log logrus.FieldLogger) *Propagator {
	if oscillationCap <= 0 {
		oscillationCap = DefaultOscillationCap
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Propagator{
		root:  c,
		cap:   oscillationCap,
		log:   log,
		nodes: make(map[NodeID]*CircuitState),
	}
	p.Reset()
	return p
}

// AddObserver registers o to be notified after every call to Propagate.
//
func (p *Propagator) AddObserver(o Observer) { p.obs = append(p.obs, o) }

// Reset discards the current state tree and all pending events, then builds a
// new state tree with all components scheduled for evaluation.
//
func (p *Propagator) Reset() {
	defer p.lockCircuits()()
	if p.top != nil {
		p.top.destroy()
	}
	p.q = p.q[:0]
	p.seq, p.now, p.ticks = 0, 0, 0
	p.work = p.work[:0]
	p.workIdx = make(map[netKey]int)
	p.evalq = p.evalq[:0]
	p.evalSet = make(map[evalKey]bool)
	p.resetTouched()
	p.top = p.newNode(p.root, nil, nil)
	p.setStatus(Idle)
}

// Close releases the state tree. The propagator must not be used afterwards.
//
func (p *Propagator) Close() {
	defer p.lockCircuits()()
	if p.top != nil {
		p.top.destroy()
		p.top = nil
	}
	p.q = nil
}

// Root returns the state of the top level circuit.
//
func (p *Propagator) Root() *CircuitState { return p.top }

// Circuit returns the top level circuit.
//
func (p *Propagator) Circuit() *Circuit { return p.root }

// Node returns the live state with the given id or nil.
//
func (p *Propagator) Node(id NodeID) *CircuitState { return p.nodes[id] }

// NumNodes returns the number of live circuit states.
//
func (p *Propagator) NumNodes() int { return len(p.nodes) }

// Status returns the current status. It is safe to call Status concurrently
// with other methods.
//
func (p *Propagator) Status() Status { return Status(atomic.LoadInt32(&p.status)) }

func (p *Propagator) setStatus(s Status) { atomic.StoreInt32(&p.status, int32(s)) }

// Now returns the current simulation time.
//
func (p *Propagator) Now() uint64 { return p.now }

// Ticks returns the number of clock ticks since the last reset.
//
func (p *Propagator) Ticks() uint64 { return p.ticks }

// OscillationCap returns the maximum number of steps per tick.
//
func (p *Propagator) OscillationCap() int { return p.cap }

// Pending returns the number of queued events.
//
func (p *Propagator) Pending() int { return len(p.q) }

func (p *Propagator) pending() bool {
	return len(p.q) > 0 || len(p.work) > 0 || len(p.evalq) > 0
}

func (p *Propagator) schedule(n *CircuitState, ref PortRef, v Value, delay uint64) {
	p.seq++
	heap.Push(&p.q, &event{at: p.now + delay, seq: p.seq, node: n.id, ref: ref, val: v})
}

func (p *Propagator) scheduleEval(n *CircuitState, comp *Component) {
	p.schedule(n, PortRef{comp, -1}, Value{}, 0)
}

func (p *Propagator) markDirty(n *CircuitState, net string, force bool) {
	k := netKey{n.id, net}
	if i, ok := p.workIdx[k]; ok {
		p.work[i].force = p.work[i].force || force
		return
	}
	p.workIdx[k] = len(p.work)
	p.work = append(p.work, dirtyNet{k, force})
}

func (p *Propagator) addEval(n *CircuitState, comp *Component) {
	k := evalKey{n.id, comp}
	if p.evalSet[k] {
		return
	}
	p.evalSet[k] = true
	p.evalq = append(p.evalq, k)
}

func (p *Propagator) resetTouched() {
	p.touchedNets = make(map[netKey]bool)
	p.touchedDrivers = make(map[driverKey]bool)
}

func (p *Propagator) setDriver(n *CircuitState, ref PortRef, v Value) bool {
	if old, ok := n.drivers[ref]; ok && old == v {
		return false
	}
	n.drivers[ref] = v
	p.touchedDrivers[driverKey{n.id, ref}] = true
	return true
}

// circuits returns the circuits used by the state tree, ordered by creation.
func (p *Propagator) circuits() []*Circuit {
	p.chg.Lock()
	defer p.chg.Unlock()
	seen := map[*Circuit]bool{p.root: true}
	cs := []*Circuit{p.root}
	for _, n := range p.nodes {
		if !seen[n.circuit] {
			seen[n.circuit] = true
			cs = append(cs, n.circuit)
		}
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].id < cs[j].id })
	return cs
}

func sameCircuits(a, b []*Circuit) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// lockCircuits acquires the edit locks of all circuits used by the state tree
// and returns a function releasing them. The tree can only change while one of
// these locks is held by a mutation, so it is stable once all are acquired.
func (p *Propagator) lockCircuits() func() {
	for {
		cs := p.circuits()
		for _, c := range cs {
			c.mu.Lock()
		}
		if sameCircuits(cs, p.circuits()) {
			return func() {
				for i := len(cs) - 1; i >= 0; i-- {
					cs[i].mu.Unlock()
				}
			}
		}
		for i := len(cs) - 1; i >= 0; i-- {
			cs[i].mu.Unlock()
		}
	}
}

// apply applies e to its target state.
func (p *Propagator) apply(e *event) {
	n := p.nodes[e.node]
	if n == nil {
		p.stats.Dropped++
		return
	}
	c := e.ref.Comp
	if c != nil && c.circuit != n.circuit {
		p.stats.Dropped++
		return
	}
	if e.ref.Index < 0 {
		p.addEval(n, c)
		return
	}
	var net string
	if c == nil {
		if e.ref.Index >= len(n.circuit.inputs) || n.circuit.inputs[e.ref.Index].Width != e.val.Width() {
			p.stats.Dropped++
			return
		}
		net = n.circuit.inputs[e.ref.Index].Name
	} else {
		if e.ref.Index >= len(c.ports) || c.ports[e.ref.Index].Dir != Output || c.ports[e.ref.Index].Width != e.val.Width() {
			// stale event from before an attribute change
			p.stats.Dropped++
			return
		}
		net = c.Net(e.ref.Index)
	}
	p.stats.Events++
	if p.setDriver(n, e.ref, e.val) && net != "" {
		p.markDirty(n, net, false)
	}
}

// resolve returns the combined value of all the drivers of net.
func (n *CircuitState) resolve(net *Net) Value {
	var v Value
	driven := false
	for _, d := range net.Drivers {
		dv, ok := n.drivers[d]
		if !ok {
			continue
		}
		if driven {
			v = Combine(v, dv)
		} else {
			v, driven = dv, true
		}
	}
	if !driven {
		return UnknownValue(net.Width)
	}
	return v
}

// merge recomputes the values of dirty nets and forwards changes to readers,
// sub-circuit inputs and parent outputs.
func (p *Propagator) merge() {
	for i := 0; i < len(p.work); i++ {
		w := p.work[i]
		delete(p.workIdx, w.netKey)
		n := p.nodes[w.node]
		if n == nil {
			continue
		}
		net := n.circuit.nets[w.net]
		if net == nil {
			delete(n.nets, w.net)
			continue
		}
		v := n.resolve(net)
		if old, ok := n.nets[net.Name]; ok && old == v && !w.force {
			continue
		}
		n.nets[net.Name] = v
		p.touchedNets[w.netKey] = true
		for _, r := range net.Readers {
			s := r.Comp.factory.sub
			if s == nil {
				p.addEval(n, r.Comp)
				continue
			}
			if child := n.children[r.Comp]; child != nil && p.setDriver(child, PortRef{nil, r.Index}, v) {
				p.markDirty(child, s.inputs[r.Index].Name, false)
			}
		}
		if net.output >= 0 && n.parent != nil {
			pc := n.parentComp
			ref := PortRef{pc, len(n.circuit.inputs) + net.output}
			if p.setDriver(n.parent, ref, v) {
				if name := pc.Net(ref.Index); name != "" {
					p.markDirty(n.parent, name, false)
				}
			}
		}
	}
	p.work = p.work[:0]
}

func (p *Propagator) invoke() {
	q := p.evalq
	p.evalq = nil
	p.evalSet = make(map[evalKey]bool)
	for _, k := range q {
		n := p.nodes[k.node]
		if n == nil || k.comp.circuit != n.circuit {
			continue
		}
		p.eval(n, k.comp)
	}
}

func (p *Propagator) eval(n *CircuitState, comp *Component) {
	if comp.factory.Propagate == nil {
		return
	}
	p.stats.Evals++
	defer func() {
		if r := recover(); r != nil {
			p.log.WithFields(logrus.Fields{
				"state":     n.String(),
				"component": comp.String(),
			}).Errorf("behavior panic: %v", r)
			for i := range comp.ports {
				if comp.ports[i].Dir == Output {
					p.schedule(n, PortRef{comp, i}, ErrorValue(comp.ports[i].Width), 0)
				}
			}
		}
	}()
	comp.factory.Propagate(&InstanceState{p: p, node: n, comp: comp})
}

// step processes the next instant.
func (p *Propagator) step() {
	p.stats.Steps++
	if len(p.work) == 0 && len(p.evalq) == 0 && len(p.q) > 0 {
		p.now = p.q[0].at
	}
	for len(p.q) > 0 && p.q[0].at <= p.now {
		p.apply(heap.Pop(&p.q).(*event))
	}
	p.merge()
	p.invoke()
}

// Step processes a single instant. It returns true if there are more pending
// events. Step does not check for oscillations.
//
func (p *Propagator) Step() (bool, error) {
	if p.Status() == Draining {
		return false, ErrBusy
	}
	if !p.pending() {
		p.setStatus(Stable)
		return false, nil
	}
	defer p.lockCircuits()()
	p.setStatus(Draining)
	p.step()
	if p.pending() {
		p.setStatus(Idle)
		return true, nil
	}
	p.setStatus(Stable)
	return false, nil
}

// Propagate processes pending events until there are none left, or until the
// number of steps exceeds the oscillation cap. In the latter case, all pending
// events are dropped, all nets and drivers updated since the call to Propagate
// are set to Error and an *OscillationError is returned.
//
func (p *Propagator) Propagate() error {
	if p.Status() == Draining {
		return ErrBusy
	}
	unlock := p.lockCircuits()
	err := p.propagate()
	unlock()
	p.tickDone()
	return err
}

func (p *Propagator) tickDone() {
	for _, o := range p.obs {
		o.TickDone(p.stats)
	}
}

func (p *Propagator) propagate() error {
	start := time.Now()
	p.setStatus(Draining)
	p.stats = TickStats{Tick: p.ticks}
	p.resetTouched()
	var err error
	for p.pending() {
		if p.stats.Steps >= p.cap {
			err = p.abort()
			break
		}
		p.step()
	}
	if err == nil {
		p.setStatus(Stable)
	}
	p.stats.Status = p.Status()
	p.stats.Duration = time.Since(start)
	return err
}

func (p *Propagator) abort() error {
	p.stats.Dropped += len(p.q)
	p.q = p.q[:0]
	p.work = p.work[:0]
	p.workIdx = make(map[netKey]int)
	p.evalq = p.evalq[:0]
	p.evalSet = make(map[evalKey]bool)

	for k := range p.touchedDrivers {
		if n := p.nodes[k.node]; n != nil {
			if v, ok := n.drivers[k.ref]; ok {
				n.drivers[k.ref] = ErrorValue(v.Width())
			}
		}
	}
	var names []string
	for k := range p.touchedNets {
		n := p.nodes[k.node]
		if n == nil {
			continue
		}
		if net := n.circuit.nets[k.net]; net != nil {
			n.nets[k.net] = ErrorValue(net.Width)
			names = append(names, n.String()+"."+k.net)
		}
	}
	sort.Strings(names)
	p.setStatus(Oscillating)
	p.log.WithFields(logrus.Fields{
		"tick":  p.ticks,
		"steps": p.stats.Steps,
		"nets":  len(names),
	}).Warn("oscillation detected")
	return &OscillationError{Tick: p.ticks, Steps: p.stats.Steps, Nets: names}
}

// ToggleClocks advances the tick count and notifies every clock source in the
// state tree. Clocks that change value are scheduled for evaluation.
//
func (p *Propagator) ToggleClocks() error {
	if p.Status() == Draining {
		return ErrBusy
	}
	defer p.lockCircuits()()
	p.toggleClocks()
	return nil
}

func (p *Propagator) toggleClocks() {
	p.ticks++
	p.top.Walk(func(n *CircuitState) bool {
		for _, comp := range n.circuit.comps {
			ck := comp.factory.Clocked()
			if ck == nil {
				continue
			}
			d, changed := ck.ClockTick(comp.attrs, n.data[comp], p.ticks)
			n.data[comp] = d
			if changed {
				p.scheduleEval(n, comp)
			}
		}
		return true
	})
}

// Tick toggles clocks and propagates. Circuits cannot be mutated until both
// are done.
//
func (p *Propagator) Tick() error {
	if p.Status() == Draining {
		return ErrBusy
	}
	unlock := p.lockCircuits()
	p.toggleClocks()
	err := p.propagate()
	unlock()
	p.tickDone()
	return err
}

// SetInput schedules the named input pin of the top level circuit to be set to
// v at the current instant.
//
func (p *Propagator) SetInput(name string, v Value) error {
	if p.Status() == Draining {
		return ErrBusy
	}
	defer p.lockCircuits()()
	for i, in := range p.root.inputs {
		if in.Name != name {
			continue
		}
		if v.Width() != in.Width {
			return &WidthError{Net: name, Port: name, Want: in.Width, Got: v.Width()}
		}
		p.schedule(p.top, PortRef{nil, i}, v, 0)
		return nil
	}
	return errors.Wrap(ErrNotFound, "input pin "+name)
}

// Poke applies user input to the private data of comp in state n and schedules
// comp for evaluation. It fails with ErrInvalidPoke, without changing
// anything, if the propagator is draining, if comp does not have the poker
// capability or if the poker rejects the input.
//
func (p *Propagator) Poke(n *CircuitState, comp *Component, input string) error {
	if p.Status() == Draining {
		return errors.Wrap(ErrInvalidPoke, "simulation in progress")
	}
	defer p.lockCircuits()()
	if n == nil || n.dead || n.p != p || comp.circuit != n.circuit {
		return errors.Wrap(ErrInvalidPoke, "component not found")
	}
	pk := comp.factory.Poker()
	if pk == nil {
		return errors.Wrap(ErrInvalidPoke, comp.String()+" cannot be poked")
	}
	d, err := pk.ApplyPoke(comp.attrs, n.data[comp], input)
	if err != nil {
		return errors.Wrap(ErrInvalidPoke, comp.String()+": "+err.Error())
	}
	n.data[comp] = d
	p.scheduleEval(n, comp)
	return nil
}

// Display returns the printable private data of comp in state n as given by
// its Poker.
//
func (p *Propagator) Display(n *CircuitState, comp *Component) (string, error) {
	if p.Status() == Draining {
		return "", ErrBusy
	}
	defer p.lockCircuits()()
	if n == nil || n.dead || comp.circuit != n.circuit {
		return "", errors.Wrap(ErrNotFound, "component")
	}
	pk := comp.factory.Poker()
	if pk == nil {
		return "", errors.Wrap(ErrInvalidPoke, comp.String()+" cannot be poked")
	}
	return pk.ReadForDisplay(comp.attrs, n.data[comp]), nil
}
