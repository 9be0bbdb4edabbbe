// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwlib provides a library of built-in components for lsim.
//
// Copyright 2018 Denis Bernard <db047h@gmail.com>
//
// This package is licensed under the MIT license. See license text in the LICENSE file.
//
package hwlib

import (
	"strconv"

	"github.com/db47h/lsim"
	"github.com/pkg/errors"
)

// Attribute keys used by components in this package, in addition to the
// common keys defined in lsim.
//
const (
	AttrInputs   = "inputs"
	AttrSelect   = "select"
	AttrEnable   = "enable"
	AttrDisabled = "disabled"
	AttrHigh     = "high"
	AttrLow      = "low"
	AttrPhase    = "phase"
	AttrValue    = "value"
	AttrFanout   = "fanout"
)

// common pin names
const (
	pA    = "a"
	pB    = "b"
	pIn   = "in"
	pOut  = "out"
	pSel  = "sel"
	pEn   = "en"
	pClk  = "clk"
	pCin  = "cin"
	pCout = "cout"
)

// indexed pin name
func pin(name string, i int) string { return name + strconv.Itoa(i) }

func delay(a lsim.Attrs, def int) int { return a.IntOr(lsim.AttrDelay, def) }

func width(a lsim.Attrs) lsim.BitWidth { return a.WidthOr(lsim.AttrWidth, 1) }

func gatePorts(a lsim.Attrs) ([]lsim.Port, error) {
	n, err := a.Int(AttrInputs)
	if err != nil {
		return nil, err
	}
	if n < 2 || n > 8 {
		return nil, errors.Errorf("invalid number of inputs %d", n)
	}
	ps := make([]lsim.Port, n+1)
	for i := 0; i < n; i++ {
		ps[i] = lsim.InAttr(pin(pIn, i), 0, 10*i, lsim.AttrWidth)
	}
	ps[n] = lsim.OutAttr(pOut, 50, 5*(n-1), lsim.AttrWidth)
	return ps, nil
}

func gateBounds(a lsim.Attrs) lsim.Bounds {
	n := a.IntOr(AttrInputs, 2)
	return lsim.Bounds{X: 0, Y: -5, Width: 50, Height: 10 * n}
}

func newGate(name string, fn func(a, b lsim.Value) lsim.Value, negate bool) *lsim.Factory {
	return &lsim.Factory{
		Name:   name,
		Attrs:  lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(1), AttrInputs: 2, lsim.AttrDelay: 1},
		Ports:  gatePorts,
		Bounds: gateBounds,
		Propagate: func(s *lsim.InstanceState) {
			n := s.NumPorts() - 1
			var out lsim.Value
			driven := false
			for i := 0; i < n; i++ {
				// unconnected inputs are ignored
				if !s.IsConnected(i) {
					continue
				}
				if v := s.Port(i); driven {
					out = fn(out, v)
				} else {
					out, driven = v, true
				}
			}
			switch {
			case !driven:
				out = lsim.UnknownValue(width(s.Attrs()))
			case negate:
				out = out.Not()
			}
			s.SetPort(n, out, delay(s.Attrs(), 1))
		},
	}
}

func and(a, b lsim.Value) lsim.Value { return a.And(b) }
func or(a, b lsim.Value) lsim.Value  { return a.Or(b) }
func xor(a, b lsim.Value) lsim.Value { return a.Xor(b) }

var (
	// And is a AND gate.
	//
	//	Attributes: width (1), inputs (2), delay (1)
	//	Inputs: in0 .. inN-1
	//	Outputs: out
	//	Function: out = in0 & in1 & ...
	//
	And = newGate("AND", and, false)

	// Nand is a NAND gate.
	//
	//	Function: out = ^(in0 & in1 & ...)
	//
	Nand = newGate("NAND", and, true)

	// Or is a OR gate.
	//
	//	Function: out = in0 | in1 | ...
	//
	Or = newGate("OR", or, false)

	// Nor is a NOR gate.
	//
	//	Function: out = ^(in0 | in1 | ...)
	//
	Nor = newGate("NOR", or, true)

	// Xor is a XOR gate. With more than two inputs, the output is 1 when an
	// odd number of inputs are 1.
	//
	//	Function: out = in0 ^ in1 ^ ...
	//
	Xor = newGate("XOR", xor, false)

	// Xnor is a XNOR gate.
	//
	//	Function: out = ^(in0 ^ in1 ^ ...)
	//
	Xnor = newGate("XNOR", xor, true)
)

func unaryPorts(a lsim.Attrs) ([]lsim.Port, error) {
	return []lsim.Port{
		lsim.InAttr(pIn, 0, 0, lsim.AttrWidth),
		lsim.OutAttr(pOut, 30, 0, lsim.AttrWidth),
	}, nil
}

func unaryBounds(lsim.Attrs) lsim.Bounds { return lsim.Bounds{X: 0, Y: -10, Width: 30, Height: 20} }

var (
	// Not is a NOT gate.
	//
	//	Attributes: width (1), delay (1)
	//	Inputs: in
	//	Outputs: out
	//	Function: out = ^in
	//
	Not = &lsim.Factory{
		Name:   "NOT",
		Attrs:  lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(1), lsim.AttrDelay: 1},
		Ports:  unaryPorts,
		Bounds: unaryBounds,
		Propagate: func(s *lsim.InstanceState) {
			s.SetPort(1, s.Port(0).Not(), delay(s.Attrs(), 1))
		},
	}

	// Buffer copies its input to its output.
	//
	//	Attributes: width (1), delay (1)
	//	Inputs: in
	//	Outputs: out
	//	Function: out = in
	//
	Buffer = &lsim.Factory{
		Name:   "Buffer",
		Attrs:  lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(1), lsim.AttrDelay: 1},
		Ports:  unaryPorts,
		Bounds: unaryBounds,
		Propagate: func(s *lsim.InstanceState) {
			s.SetPort(1, s.Port(0), delay(s.Attrs(), 1))
		},
	}
)
