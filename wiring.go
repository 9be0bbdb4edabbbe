// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// A PortRef identifies a port of a component within a circuit. A PortRef with a
// nil Comp refers to the boundary input pin of the circuit at position Index.
//
type PortRef struct {
	Comp  *Component
	Index int
}

func (r PortRef) String() string {
	if r.Comp == nil {
		return "input #" + strconv.Itoa(r.Index)
	}
	return r.Comp.String() + "." + r.Comp.ports[r.Index].Name
}

// A Net is a set of ports connected together. Its value is the combination of
// the values of all its drivers.
//
type Net struct {
	Name    string
	Width   BitWidth
	Drivers []PortRef // component outputs and boundary input
	Readers []PortRef // component inputs

	input  int // index of the boundary input pin or -1
	output int // index of the boundary output pin or -1
}

// IsInput returns true if n is one of the circuit input pins.
//
func (n *Net) IsInput() bool { return n.input >= 0 }

// IsOutput returns true if n is one of the circuit output pins.
//
func (n *Net) IsOutput() bool { return n.output >= 0 }

type wiring map[string]*Net

func (wr wiring) get(name string, w BitWidth) *Net {
	n := wr[name]
	if n == nil {
		n = &Net{Name: name, Width: w, input: -1, output: -1}
		wr[name] = n
	}
	return n
}

func (wr wiring) add(name string, ref PortRef, p *Port) error {
	n := wr.get(name, p.Width)
	if n.Width != p.Width {
		return &WidthError{Net: name, Port: ref.String(), Want: n.Width, Got: p.Width}
	}
	if p.Dir == Input {
		n.Readers = append(n.Readers, ref)
		return nil
	}
	if n.IsInput() {
		return errors.New("output pin " + ref.String() + " connected to circuit input " + name)
	}
	n.Drivers = append(n.Drivers, ref)
	return nil
}

// buildNets computes the nets of c as if its component list was comps. It does
// not modify c.
func (c *Circuit) buildNets(comps []*Component) (map[string]*Net, error) {
	wr := make(wiring, len(c.inputs)+len(c.outputs)+len(comps))
	for i := range c.inputs {
		n := wr.get(c.inputs[i].Name, c.inputs[i].Width)
		n.input = i
		n.Drivers = append(n.Drivers, PortRef{nil, i})
	}
	for i := range c.outputs {
		n := wr.get(c.outputs[i].Name, c.outputs[i].Width)
		n.output = i
	}
	for _, comp := range comps {
		for i := range comp.ports {
			name := comp.conns[comp.ports[i].Name]
			if name == "" {
				continue
			}
			if err := wr.add(name, PortRef{comp, i}, &comp.ports[i]); err != nil {
				return nil, errors.Wrap(err, c.name)
			}
		}
	}
	return wr, nil
}

// Net returns the named net or nil. The returned value must not be modified.
//
func (c *Circuit) Net(name string) *Net { return c.nets[name] }

// Nets returns the sorted net names of c.
//
func (c *Circuit) Nets() []string {
	ns := make([]string, 0, len(c.nets))
	for n := range c.nets {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}
