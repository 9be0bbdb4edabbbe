// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"math/bits"

	"github.com/db47h/lsim"
)

// add returns a + b + cin and the carry out. Non-definite operands yield Error
// if any bit is Error, Unknown otherwise.
func add(a, b, cin lsim.Value) (sum, cout lsim.Value) {
	w := a.Width()
	x, okx := a.ToUint()
	y, oky := b.ToUint()
	c, okc := cin.ToUint()
	if !okx || !oky || !okc {
		if a.IsError() || b.IsError() || cin.IsError() {
			return lsim.ErrorValue(w), lsim.ErrorValue(1)
		}
		return lsim.UnknownValue(w), lsim.UnknownValue(1)
	}
	s, carry := bits.Add64(x, y, c)
	if w < lsim.MaxWidth {
		carry = s >> uint(w) & 1
	}
	return lsim.NewValue(w, s), lsim.NewValue(1, carry)
}

// Adder returns a N-bits adder with carry in and carry out.
//
//	Attributes: width (8), delay (1)
//	Inputs: a[width], b[width], cin
//	Outputs: out[width], cout
//	Function: out = lsb(a + b + cin)
//	          cout = msb(a + b + cin)
//
// An unconnected cin reads as 0.
//
var Adder = &lsim.Factory{
	Name:  "Adder",
	Attrs: lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(8), lsim.AttrDelay: 1},
	Ports: func(a lsim.Attrs) ([]lsim.Port, error) {
		return []lsim.Port{
			lsim.InAttr(pA, -40, -10, lsim.AttrWidth),
			lsim.InAttr(pB, -40, 10, lsim.AttrWidth),
			lsim.In(pCin, -20, -20, 1),
			lsim.OutAttr(pOut, 0, 0, lsim.AttrWidth),
			lsim.Out(pCout, -20, 20, 1),
		}, nil
	},
	Bounds: func(lsim.Attrs) lsim.Bounds { return lsim.Bounds{X: -40, Y: -20, Width: 40, Height: 40} },
	Propagate: func(s *lsim.InstanceState) {
		cin := lsim.False
		if s.IsConnected(2) {
			cin = s.Port(2)
		}
		sum, cout := add(s.Port(0), s.Port(1), cin)
		d := delay(s.Attrs(), 1)
		s.SetPort(3, sum, d)
		s.SetPort(4, cout, d)
	},
}
