// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/db47h/lsim"
	"github.com/pkg/errors"
)

// splitWidths returns the width of each of the fanout parts of a bus. Bits are
// spread evenly, the first parts taking the remainder.
func splitWidths(a lsim.Attrs) ([]lsim.BitWidth, error) {
	w, err := a.Width(lsim.AttrWidth)
	if err != nil {
		return nil, err
	}
	n, err := a.Int(AttrFanout)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > int(w) {
		return nil, errors.Errorf("invalid fanout %d for %d bits", n, w)
	}
	ws := make([]lsim.BitWidth, n)
	for i := range ws {
		ws[i] = w / lsim.BitWidth(n)
		if i < int(w)%n {
			ws[i]++
		}
	}
	return ws, nil
}

func splitterBounds(a lsim.Attrs) lsim.Bounds {
	n := a.IntOr(AttrFanout, 2)
	return lsim.Bounds{X: 0, Y: -10, Width: 20, Height: 10*n + 10}
}

// Splitter splits a bus into fanout parts, least significant bits first.
//
//	Attributes: width (2), fanout (2)
//	Inputs: in[width]
//	Outputs: out0 .. outN-1 (N = fanout)
//
// With a width of 8 and a fanout of 3, out0 and out1 are 3 bits wide and out2
// is 2 bits wide.
//
var Splitter = &lsim.Factory{
	Name:  "Splitter",
	Attrs: lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(2), AttrFanout: 2},
	Ports: func(a lsim.Attrs) ([]lsim.Port, error) {
		ws, err := splitWidths(a)
		if err != nil {
			return nil, err
		}
		ps := make([]lsim.Port, 0, len(ws)+1)
		ps = append(ps, lsim.InAttr(pIn, 0, 0, lsim.AttrWidth))
		for i, w := range ws {
			ps = append(ps, lsim.Out(pin(pOut, i), 20, 10*i+10, w))
		}
		return ps, nil
	},
	Bounds: splitterBounds,
	Propagate: func(s *lsim.InstanceState) {
		in := s.Port(0)
		from := 0
		for i := 1; i < s.NumPorts(); i++ {
			w := s.Component().Port(i).Width
			s.SetPort(i, in.Slice(from, w), 0)
			from += int(w)
		}
	},
}

// Joiner is the reverse of Splitter: it merges fanout buses into a single
// one, in0 being the least significant.
//
//	Attributes: width (2), fanout (2)
//	Inputs: in0 .. inN-1 (N = fanout)
//	Outputs: out[width]
//
var Joiner = &lsim.Factory{
	Name:  "Joiner",
	Attrs: lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(2), AttrFanout: 2},
	Ports: func(a lsim.Attrs) ([]lsim.Port, error) {
		ws, err := splitWidths(a)
		if err != nil {
			return nil, err
		}
		ps := make([]lsim.Port, 0, len(ws)+1)
		for i, w := range ws {
			ps = append(ps, lsim.In(pin(pIn, i), 0, 10*i+10, w))
		}
		return append(ps, lsim.OutAttr(pOut, 20, 0, lsim.AttrWidth)), nil
	},
	Bounds: splitterBounds,
	Propagate: func(s *lsim.InstanceState) {
		n := s.NumPorts() - 1
		vs := make([]lsim.Value, n)
		for i := range vs {
			vs[i] = s.Port(i)
		}
		s.SetPort(n, lsim.Join(vs...), 0)
	},
}
