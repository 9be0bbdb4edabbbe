// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

var (
	lastID        uint64
	lastCircuitID uint64
)

// A Component is a placed occurrence of a component type in a circuit.
//
type Component struct {
	id      uint64
	factory *Factory
	attrs   Attrs
	loc     Location
	ports   []Port
	conns   map[string]string // port name -> net name
	circuit *Circuit
}

// ID returns a process wide unique identifier for c.
//
func (c *Component) ID() uint64 { return c.id }

// Factory returns the component type of c.
//
func (c *Component) Factory() *Factory { return c.factory }

// Attrs returns the attributes of c. The returned map must not be modified.
//
func (c *Component) Attrs() Attrs { return c.attrs }

// Location returns the location of c.
//
func (c *Component) Location() Location { return c.loc }

// Bounds returns the bounds of c on the schematic.
//
func (c *Component) Bounds() Bounds {
	if c.factory.Bounds == nil {
		return Bounds{c.loc.X, c.loc.Y, 0, 0}
	}
	return c.factory.Bounds(c.attrs).At(c.loc)
}

// Circuit returns the circuit c belongs to or nil if c has been removed.
//
func (c *Component) Circuit() *Circuit { return c.circuit }

// NumPorts returns the number of ports of c.
//
func (c *Component) NumPorts() int { return len(c.ports) }

// Port returns the resolved descriptor of port i.
//
func (c *Component) Port(i int) Port { return c.ports[i] }

// Ports returns a copy of the resolved port list of c.
//
func (c *Component) Ports() []Port {
	return append([]Port(nil), c.ports...)
}

// PortIndex returns the index of the named port or -1.
//
func (c *Component) PortIndex(name string) int {
	for i := range c.ports {
		if c.ports[i].Name == name {
			return i
		}
	}
	return -1
}

// Net returns the name of the net connected to port i, or "" if the port is not
// connected.
//
func (c *Component) Net(i int) string {
	if i < 0 || i >= len(c.ports) {
		return ""
	}
	return c.conns[c.ports[i].Name]
}

func (c *Component) netNames() []string {
	var ns []string
	for i := range c.ports {
		if n := c.Net(i); n != "" {
			ns = append(ns, n)
		}
	}
	return ns
}

// Label returns the label attribute of c.
//
func (c *Component) Label() string { return c.attrs.String(AttrLabel) }

// String returns the label of c or its type name and location.
//
func (c *Component) String() string {
	if l := c.Label(); l != "" {
		return l
	}
	return c.factory.Name + c.loc.String()
}

// Circuit is the static topology of a circuit: boundary pins, components and
// the nets connecting them. A Circuit can be placed into other circuits as a
// sub-circuit via its Factory.
//
// Mutations are serialized by an edit lock that a propagator also holds for the
// whole duration of a tick, clock toggling included. Any mutation returns
// ErrBusy if the lock is held, either by another mutation or by a tick of a
// state tree that uses the circuit. Listeners are called with the edit lock
// held.
//
// Read accessors are not synchronized with mutations made by other goroutines.
//
type Circuit struct {
	id      uint64
	name    string
	inputs  []Port
	outputs []Port
	comps   []*Component
	nets    map[string]*Net
	mu      sync.Mutex // edit lock
	subMu   sync.Mutex
	subs    []*Subscription
	factory *Factory
}

// NewCircuit returns a new empty circuit. The inputs and outputs arguments
// declare the boundary pins, as in "a, b, sel[2]" where sel is 2 bits wide.
//
func NewCircuit(name string, inputs, outputs string) (*Circuit, error) {
	ins, err := boundary(inputs, Input)
	if err != nil {
		return nil, errors.Wrap(err, name+" inputs")
	}
	outs, err := boundary(outputs, Output)
	if err != nil {
		return nil, errors.Wrap(err, name+" outputs")
	}
	for _, i := range ins {
		for _, o := range outs {
			if i.Name == o.Name {
				return nil, errors.Errorf("%s: pin %s declared as both input and output", name, i.Name)
			}
		}
	}
	c := &Circuit{id: atomic.AddUint64(&lastCircuitID, 1), name: name, inputs: ins, outputs: outs}
	if c.nets, err = c.buildNets(nil); err != nil {
		return nil, err
	}
	return c, nil
}

// MustCircuit is like NewCircuit but panics on error.
//
func MustCircuit(name string, inputs, outputs string) *Circuit {
	c, err := NewCircuit(name, inputs, outputs)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the circuit name.
//
func (c *Circuit) Name() string { return c.name }

// Inputs returns the boundary input pins.
//
func (c *Circuit) Inputs() []Port { return append([]Port(nil), c.inputs...) }

// Outputs returns the boundary output pins.
//
func (c *Circuit) Outputs() []Port { return append([]Port(nil), c.outputs...) }

// Components returns the components of c in insertion order.
//
func (c *Circuit) Components() []*Component { return append([]*Component(nil), c.comps...) }

// Find returns the component labeled name or, if there is none, the first
// component whose String() is name.
//
func (c *Circuit) Find(name string) *Component {
	for _, comp := range c.comps {
		if comp.Label() == name {
			return comp
		}
	}
	for _, comp := range c.comps {
		if comp.String() == name {
			return comp
		}
	}
	return nil
}

// Len returns the number of components in c.
//
func (c *Circuit) Len() int { return len(c.comps) }

// Factory returns a factory that places c as a sub-circuit. Its ports are the
// boundary inputs followed by the boundary outputs of c.
//
func (c *Circuit) Factory() *Factory {
	if c.factory != nil {
		return c.factory
	}
	h := len(c.inputs)
	if len(c.outputs) > h {
		h = len(c.outputs)
	}
	c.factory = &Factory{
		Name:  c.name,
		Attrs: Attrs{},
		Ports: func(Attrs) ([]Port, error) {
			ps := make([]Port, 0, len(c.inputs)+len(c.outputs))
			ps = append(ps, c.inputs...)
			return append(ps, c.outputs...), nil
		},
		Bounds: func(Attrs) Bounds { return Bounds{0, -5, 40, 10*h + 10} },
		sub:    c,
	}
	return c.factory
}

// uses returns true if other is placed, directly or not, in c.
func (c *Circuit) uses(other *Circuit) bool {
	seen := make(map[*Circuit]bool)
	var walk func(*Circuit) bool
	walk = func(x *Circuit) bool {
		if x == other {
			return true
		}
		if seen[x] {
			return false
		}
		seen[x] = true
		for _, comp := range x.comps {
			if s := comp.factory.sub; s != nil && walk(s) {
				return true
			}
		}
		return false
	}
	return walk(c)
}

// lockEdit acquires the edit lock or fails with ErrBusy.
func (c *Circuit) lockEdit() error {
	if !c.mu.TryLock() {
		return errors.Wrap(ErrBusy, c.name)
	}
	return nil
}

// Add places a new component of type f at location loc. attrs override the
// default attributes of f. conns connects the component ports to nets, as in
// "a=x, b=y, out=z". Nets are created as needed; a net named after a boundary
// pin is that pin.
//
// Add fails without modifying c if the connections are invalid, if ports of
// different widths would share a net, or if placing f would make a circuit
// contain itself.
//
func (c *Circuit) Add(f *Factory, attrs Attrs, loc Location, conns string) (*Component, error) {
	if err := c.lockEdit(); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	if f.sub != nil && f.sub.uses(c) {
		return nil, errors.Wrap(ErrRecursive, c.name+" in "+f.Name)
	}
	a := attrs.over(f.Attrs)
	ports, err := f.resolvePorts(a)
	if err != nil {
		return nil, err
	}
	cm, err := parseConns(f, ports, conns)
	if err != nil {
		return nil, err
	}
	comp := &Component{
		id:      atomic.AddUint64(&lastID, 1),
		factory: f,
		attrs:   a,
		loc:     loc,
		ports:   ports,
		conns:   cm,
	}
	comps := append(c.comps[:len(c.comps):len(c.comps)], comp)
	nets, err := c.buildNets(comps)
	if err != nil {
		return nil, err
	}
	comp.circuit = c
	c.comps, c.nets = comps, nets
	c.notify(CircuitEvent{Kind: ComponentAdded, Circuit: c, Component: comp, Nets: comp.netNames()})
	return comp, nil
}

// MustAdd is like Add but panics on error.
//
func (c *Circuit) MustAdd(f *Factory, attrs Attrs, loc Location, conns string) *Component {
	comp, err := c.Add(f, attrs, loc, conns)
	if err != nil {
		panic(err)
	}
	return comp
}

// Remove removes comp from c.
//
func (c *Circuit) Remove(comp *Component) error {
	if err := c.lockEdit(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if comp.circuit != c {
		return errors.Wrap(ErrNotFound, "component "+comp.String()+" in "+c.name)
	}
	comps := make([]*Component, 0, len(c.comps)-1)
	for _, x := range c.comps {
		if x != comp {
			comps = append(comps, x)
		}
	}
	nets, err := c.buildNets(comps)
	if err != nil {
		return err
	}
	c.comps, c.nets = comps, nets
	comp.circuit = nil
	c.notify(CircuitEvent{Kind: ComponentRemoved, Circuit: c, Component: comp, Nets: comp.netNames()})
	return nil
}

// SetAttr changes an attribute of comp. The port list of comp is recomputed and
// the change is rejected if the new ports conflict with the nets they are
// connected to.
//
func (c *Circuit) SetAttr(comp *Component, key string, v interface{}) error {
	if err := c.lockEdit(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if comp.circuit != c {
		return errors.Wrap(ErrNotFound, "component "+comp.String()+" in "+c.name)
	}
	if comp.factory.sub != nil {
		return errors.New(comp.String() + ": sub-circuit instances have no attributes")
	}
	a := comp.attrs.With(key, v)
	ports, err := comp.factory.resolvePorts(a)
	if err != nil {
		return err
	}
	old := comp.netNames()
	oldAttrs, oldPorts := comp.attrs, comp.ports
	comp.attrs, comp.ports = a, ports
	nets, err := c.buildNets(c.comps)
	if err != nil {
		comp.attrs, comp.ports = oldAttrs, oldPorts
		return err
	}
	c.nets = nets
	c.notify(CircuitEvent{Kind: AttributesChanged, Circuit: c, Component: comp, Nets: union(old, comp.netNames())})
	return nil
}

// Connect replaces the connections of comp.
//
func (c *Circuit) Connect(comp *Component, conns string) error {
	if err := c.lockEdit(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if comp.circuit != c {
		return errors.Wrap(ErrNotFound, "component "+comp.String()+" in "+c.name)
	}
	cm, err := parseConns(comp.factory, comp.ports, conns)
	if err != nil {
		return err
	}
	old, oldConns := comp.netNames(), comp.conns
	comp.conns = cm
	nets, err := c.buildNets(c.comps)
	if err != nil {
		comp.conns = oldConns
		return err
	}
	c.nets = nets
	c.notify(CircuitEvent{Kind: ConnectionsChanged, Circuit: c, Component: comp, Nets: union(old, comp.netNames())})
	return nil
}

// Clear removes all components from c.
//
func (c *Circuit) Clear() error {
	if err := c.lockEdit(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	removed := c.comps
	c.comps = nil
	for _, comp := range removed {
		comp.circuit = nil
	}
	c.nets, _ = c.buildNets(nil)
	c.notify(CircuitEvent{Kind: Cleared, Circuit: c, Removed: removed})
	return nil
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var r []string
	for _, s := range append(a[:len(a):len(a)], b...) {
		if !seen[s] {
			seen[s] = true
			r = append(r, s)
		}
	}
	return r
}

func (c *Circuit) String() string {
	return c.name + "[" + strconv.Itoa(len(c.comps)) + " components, " + strconv.Itoa(len(c.nets)) + " nets]"
}
