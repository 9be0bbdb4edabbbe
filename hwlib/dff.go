// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import "github.com/db47h/lsim"

func newRegister(name string, w lsim.BitWidth) *lsim.Factory {
	return (&lsim.Factory{
		Name:  name,
		Attrs: lsim.Attrs{lsim.AttrWidth: w, lsim.AttrLabel: "", lsim.AttrDelay: 1},
		Ports: func(a lsim.Attrs) ([]lsim.Port, error) {
			return []lsim.Port{
				lsim.InAttr(pIn, -30, -10, lsim.AttrWidth),
				lsim.In(pClk, -30, 10, 1),
				lsim.OutAttr(pOut, 0, 0, lsim.AttrWidth),
			}, nil
		},
		Bounds:  counterBounds,
		NewData: newCounterData,
		Propagate: func(s *lsim.InstanceState) {
			d := getCounterData(s, width(s.Attrs()))
			// rising edge?
			if d.updateClock(s.Port(1)) {
				d.value = s.Port(0)
			}
			s.SetPort(2, d.value, delay(s.Attrs(), 1))
		},
	}).WithCapability(lsim.CapPoker, counterPoker{}).WithCapability(lsim.CapLoggable, counterLog{})
}

var (
	// DFF is a clocked data flip flop.
	//
	//	Attributes: width (1), label, delay (1)
	//	Inputs: in, clk
	//	Outputs: out
	//	Function: on clk 0 -> 1 { out = in }
	//
	DFF = newRegister("D Flip-Flop", 1)

	// Register is a N-bits register. Its value can be set with a poke.
	//
	//	Attributes: width (8), label, delay (1)
	//	Inputs: in[width], clk
	//	Outputs: out[width]
	//	Function: on clk 0 -> 1 { out = in }
	//
	Register = newRegister("Register", 8)
)
