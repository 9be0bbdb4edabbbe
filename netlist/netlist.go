// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package netlist loads circuits from YAML netlists.
//
// A netlist lists circuits in dependency order. Each circuit declares its
// boundary pins and its components. A component type is either the name of a
// circuit defined earlier in the file or the name of a factory in the
// component library:
//
//	top: counter
//	circuits:
//	  - name: counter
//	    inputs: ""
//	    outputs: q[4]
//	    components:
//	      - type: Clock
//	        at: [0, 0]
//	        conns: out=clk
//	      - type: Counter
//	        at: [40, 0]
//	        attrs: {width: 4, label: c}
//	        conns: clk=clk, out=q
//
// Pin and connection strings use the same syntax as lsim.NewCircuit and
// Circuit.Add. If top is empty, the last circuit is the top level circuit.
//
package netlist

import (
	"bytes"
	"io/ioutil"

	"github.com/db47h/lsim"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the YAML document structure of a netlist.
//
type File struct {
	Top      string    `yaml:"top"`
	Circuits []Circuit `yaml:"circuits"`
}

// Circuit describes a circuit.
//
type Circuit struct {
	Name       string      `yaml:"name"`
	Inputs     string      `yaml:"inputs"`
	Outputs    string      `yaml:"outputs"`
	Components []Component `yaml:"components"`
}

// Component describes a component placed in a circuit.
//
type Component struct {
	Type  string     `yaml:"type"`
	At    [2]int     `yaml:"at"`
	Attrs lsim.Attrs `yaml:"attrs"`
	Conns string     `yaml:"conns"`
}

// Netlist is a loaded netlist.
//
type Netlist struct {
	Top      *lsim.Circuit
	Circuits []*lsim.Circuit
}

// Circuit returns the circuit with the given name or nil.
//
func (n *Netlist) Circuit(name string) *lsim.Circuit {
	for _, c := range n.Circuits {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Parse decodes a netlist document. Unknown fields are rejected.
//
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "parse netlist")
	}
	if len(f.Circuits) == 0 {
		return nil, errors.New("netlist has no circuits")
	}
	return &f, nil
}

// Build builds the circuits of f. Component types are resolved against the
// circuits already built, then against lib.
//
func (f *File) Build(lib *lsim.Registry) (*Netlist, error) {
	n := &Netlist{}
	for i := range f.Circuits {
		cs := &f.Circuits[i]
		if n.Circuit(cs.Name) != nil {
			return nil, errors.Errorf("duplicate circuit %s", cs.Name)
		}
		c, err := cs.build(n, lib)
		if err != nil {
			return nil, err
		}
		n.Circuits = append(n.Circuits, c)
	}
	if f.Top == "" {
		n.Top = n.Circuits[len(n.Circuits)-1]
	} else if n.Top = n.Circuit(f.Top); n.Top == nil {
		return nil, errors.Wrap(lsim.ErrNotFound, "top circuit "+f.Top)
	}
	return n, nil
}

func (cs *Circuit) build(n *Netlist, lib *lsim.Registry) (*lsim.Circuit, error) {
	c, err := lsim.NewCircuit(cs.Name, cs.Inputs, cs.Outputs)
	if err != nil {
		return nil, err
	}
	for i := range cs.Components {
		comp := &cs.Components[i]
		var f *lsim.Factory
		if sub := n.Circuit(comp.Type); sub != nil {
			f = sub.Factory()
		} else if lf, ok := lib.Lookup(comp.Type); ok {
			f = lf
		} else {
			return nil, errors.Wrapf(lsim.ErrNotFound, "circuit %s: component %d: type %s", cs.Name, i, comp.Type)
		}
		if _, err = c.Add(f, comp.Attrs, lsim.Loc(comp.At[0], comp.At[1]), comp.Conns); err != nil {
			return nil, errors.Wrapf(err, "circuit %s: component %d", cs.Name, i)
		}
	}
	return c, nil
}

// Load parses and builds a netlist.
//
func Load(data []byte, lib *lsim.Registry) (*Netlist, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return f.Build(lib)
}

// LoadFile loads the netlist in the named file.
//
func LoadFile(name string, lib *lsim.Registry) (*Netlist, error) {
	data, err := ioutil.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read netlist")
	}
	n, err := Load(data, lib)
	return n, errors.Wrap(err, name)
}
