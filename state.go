// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A NodeID identifies a CircuitState within a propagator. IDs are never reused.
//
type NodeID uint64

// CircuitState is the simulation state of one instantiation of a circuit: net
// values, port driver values, private data of its components and the states of
// its sub-circuit instances.
//
// Each placement of a sub-circuit gets its own child state, keyed by the
// placed component. The parent link is only used for lookups; a state is owned
// by its parent, or by the propagator for the root.
//
// A CircuitState must only be read between ticks.
//
type CircuitState struct {
	id         NodeID
	p          *Propagator
	circuit    *Circuit
	parent     *CircuitState
	parentComp *Component
	children   map[*Component]*CircuitState
	drivers    map[PortRef]Value
	nets       map[string]Value
	data       map[*Component]interface{}
	sub        *Subscription
	onDestroy  []func()
	dead       bool
}

func (p *Propagator) newNode(c *Circuit, parent *CircuitState, comp *Component) *CircuitState {
	p.lastID++
	n := &CircuitState{
		id:         p.lastID,
		p:          p,
		circuit:    c,
		parent:     parent,
		parentComp: comp,
		children:   make(map[*Component]*CircuitState),
		drivers:    make(map[PortRef]Value),
		nets:       make(map[string]Value, len(c.nets)),
		data:       make(map[*Component]interface{}),
	}
	p.nodes[n.id] = n
	for name, net := range c.nets {
		n.nets[name] = UnknownValue(net.Width)
	}
	n.sub = c.Subscribe(n.circuitChanged)
	for _, comp := range c.comps {
		n.initComponent(comp)
	}
	return n
}

func (n *CircuitState) initComponent(comp *Component) {
	if s := comp.factory.sub; s != nil {
		n.children[comp] = n.p.newNode(s, n, comp)
		n.syncInputs(comp)
		return
	}
	if comp.factory.NewData != nil {
		n.data[comp] = comp.factory.NewData(comp.attrs)
	}
	n.p.scheduleEval(n, comp)
}

// syncInputs copies the values of the nets connected to the inputs of
// sub-circuit comp into its child state.
func (n *CircuitState) syncInputs(comp *Component) {
	child := n.children[comp]
	if child == nil {
		return
	}
	for i := range child.circuit.inputs {
		ref := PortRef{nil, i}
		if name := comp.Net(i); name != "" {
			child.drivers[ref] = n.nets[name]
		} else {
			delete(child.drivers, ref)
		}
		n.p.markDirty(child, child.circuit.inputs[i].Name, true)
	}
}

func (n *CircuitState) dropComponent(comp *Component) {
	if child := n.children[comp]; child != nil {
		child.destroy()
		delete(n.children, comp)
	}
	delete(n.data, comp)
	for ref := range n.drivers {
		if ref.Comp == comp {
			delete(n.drivers, ref)
		}
	}
}

// circuitChanged runs on the mutating goroutine with the edit lock of
// n.circuit held.
func (n *CircuitState) circuitChanged(ev CircuitEvent) {
	n.p.chg.Lock()
	defer n.p.chg.Unlock()
	if n.dead {
		return
	}
	comp := ev.Component
	switch ev.Kind {
	case ComponentAdded:
		n.initComponent(comp)
	case ComponentRemoved:
		n.dropComponent(comp)
	case AttributesChanged:
		n.dropComponent(comp)
		n.initComponent(comp)
	case ConnectionsChanged:
		if comp.factory.sub != nil {
			n.syncInputs(comp)
		} else {
			n.p.scheduleEval(n, comp)
		}
	case Cleared:
		for _, c := range ev.Removed {
			n.dropComponent(c)
		}
		for name := range n.nets {
			n.p.markDirty(n, name, true)
		}
	}
	for _, name := range ev.Nets {
		n.p.markDirty(n, name, true)
	}
	n.p.log.WithFields(logrus.Fields{
		"circuit": n.circuit.name,
		"node":    n.id,
		"change":  ev.Kind.String(),
	}).Debug("circuit changed")
}

// destroy releases n and its subtree. Listeners registered with OnDestroy are
// called in reverse registration order.
func (n *CircuitState) destroy() {
	if n.dead {
		return
	}
	for _, comp := range n.circuit.comps {
		if child := n.children[comp]; child != nil {
			child.destroy()
		}
	}
	// children of removed components
	for _, child := range n.children {
		child.destroy()
	}
	n.dead = true
	n.sub.Cancel()
	for i := len(n.onDestroy) - 1; i >= 0; i-- {
		n.onDestroy[i]()
	}
	n.onDestroy = nil
	delete(n.p.nodes, n.id)
}

// ID returns the node ID of n.
//
func (n *CircuitState) ID() NodeID { return n.id }

// Circuit returns the circuit instantiated by n.
//
func (n *CircuitState) Circuit() *Circuit { return n.circuit }

// Parent returns the parent state of n or nil for the root.
//
func (n *CircuitState) Parent() *CircuitState { return n.parent }

// Component returns the sub-circuit component n is the state of in its parent,
// or nil for the root.
//
func (n *CircuitState) Component() *Component { return n.parentComp }

// Alive returns false once n has been destroyed.
//
func (n *CircuitState) Alive() bool { return !n.dead }

// Child returns the state of sub-circuit instance comp, creating it if needed.
//
func (n *CircuitState) Child(comp *Component) (*CircuitState, error) {
	if comp.circuit != n.circuit {
		return nil, errors.Wrap(ErrNotFound, "component "+comp.String()+" in "+n.circuit.name)
	}
	if comp.factory.sub == nil {
		return nil, errors.Wrap(ErrNotSubcircuit, comp.String())
	}
	if child := n.children[comp]; child != nil {
		return child, nil
	}
	n.initComponent(comp)
	return n.children[comp], nil
}

// Children returns the child states of n in component order.
//
func (n *CircuitState) Children() []*CircuitState {
	var cs []*CircuitState
	for _, comp := range n.circuit.comps {
		if child := n.children[comp]; child != nil {
			cs = append(cs, child)
		}
	}
	return cs
}

// Lookup returns the descendant state designated by path, a list of
// sub-circuit component names separated by '/'. An empty path designates n.
//
func (n *CircuitState) Lookup(path string) (*CircuitState, error) {
	cur := n
	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}
		comp := cur.circuit.Find(name)
		if comp == nil {
			return nil, errors.Wrap(ErrNotFound, "component "+name+" in "+cur.circuit.name)
		}
		var err error
		if cur, err = cur.Child(comp); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// Walk calls fn for n and all its descendants in depth first order. It stops
// descending into a subtree when fn returns false.
//
func (n *CircuitState) Walk(fn func(*CircuitState) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children() {
		child.Walk(fn)
	}
}

// Path returns the sub-circuit components leading from the root state to n.
//
func (n *CircuitState) Path() []*Component {
	var p []*Component
	for x := n; x.parent != nil; x = x.parent {
		p = append(p, x.parentComp)
	}
	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// String returns the path of n as the root circuit name followed by the names
// of the sub-circuit components separated by '/'.
//
func (n *CircuitState) String() string {
	root := n
	for root.parent != nil {
		root = root.parent
	}
	var b strings.Builder
	b.WriteString(root.circuit.name)
	for _, c := range n.Path() {
		b.WriteByte('/')
		b.WriteString(c.String())
	}
	return b.String()
}

// NetValue returns the current value of the named net.
//
func (n *CircuitState) NetValue(name string) (Value, bool) {
	v, ok := n.nets[name]
	return v, ok
}

// PortValue returns the current value of port i of comp: the value of the net
// it is connected to, or its own driven value for unconnected outputs.
// Unconnected inputs read as Unknown.
//
func (n *CircuitState) PortValue(comp *Component, i int) Value {
	if i < 0 || i >= len(comp.ports) {
		return Value{}
	}
	p := &comp.ports[i]
	if name := comp.Net(i); name != "" {
		if v, ok := n.nets[name]; ok && v.Width() == p.Width {
			return v
		}
	}
	if p.Dir == Output {
		if v, ok := n.drivers[PortRef{comp, i}]; ok {
			return v
		}
	}
	return UnknownValue(p.Width)
}

// Data returns the private data of comp.
//
func (n *CircuitState) Data(comp *Component) interface{} { return n.data[comp] }

// OnDestroy registers fn to be called when n is destroyed.
//
func (n *CircuitState) OnDestroy(fn func()) {
	if n.dead {
		fn()
		return
	}
	n.onDestroy = append(n.onDestroy, fn)
}

// Subscribe registers fn as a change listener on the circuit of n. The
// subscription is cancelled when n is destroyed.
//
func (n *CircuitState) Subscribe(fn func(CircuitEvent)) *Subscription {
	s := n.circuit.Subscribe(fn)
	n.OnDestroy(s.Cancel)
	return s
}
