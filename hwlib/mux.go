// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/db47h/lsim"
	"github.com/pkg/errors"
)

// Values of the disabled attribute.
//
const (
	DisabledFloating = "floating"
	DisabledZero     = "zero"
)

const plexerDelay = 3

func plexerAttrs() lsim.Attrs {
	return lsim.Attrs{
		AttrSelect:     lsim.BitWidth(1),
		lsim.AttrWidth: lsim.BitWidth(1),
		AttrEnable:     true,
		AttrDisabled:   DisabledFloating,
		lsim.AttrDelay: plexerDelay,
	}
}

// selectWidth returns the validated select width and the number of data lines.
func selectWidth(a lsim.Attrs) (int, int, error) {
	sw, err := a.Int(AttrSelect)
	if err != nil {
		return 0, 0, err
	}
	if sw < 1 || sw > 5 {
		return 0, 0, errors.Errorf("invalid select width %d", sw)
	}
	switch a.String(AttrDisabled) {
	case DisabledFloating, DisabledZero:
	default:
		return 0, 0, errors.Errorf("invalid disabled policy %q", a.String(AttrDisabled))
	}
	return sw, 1 << uint(sw), nil
}

func plexerBounds(a lsim.Attrs) lsim.Bounds {
	_, n, err := selectWidth(a)
	if err != nil || n == 2 {
		return lsim.Bounds{X: -30, Y: -20, Width: 30, Height: 40}
	}
	return lsim.Bounds{X: -40, Y: -(n/2)*10 - 10, Width: 40, Height: n*10 + 20}
}

// disabledValue returns the output value of a disabled plexer.
func disabledValue(a lsim.Attrs, w lsim.BitWidth) lsim.Value {
	if a.String(AttrDisabled) == DisabledZero {
		return lsim.NewValue(w, 0)
	}
	return lsim.UnknownValue(w)
}

// enabled checks the enable input at port i. It returns the value all outputs
// must be forced to and false if the plexer is not enabled.
func enabled(s *lsim.InstanceState, i int, w lsim.BitWidth) (lsim.Value, bool) {
	if !s.Attrs().BoolOr(AttrEnable, true) {
		return lsim.Value{}, true
	}
	switch en := s.Port(i); {
	case en == lsim.False:
		return disabledValue(s.Attrs(), w), false
	case en.IsError() && s.IsConnected(i):
		return lsim.ErrorValue(w), false
	}
	// Unknown or unconnected enable means enabled.
	return lsim.Value{}, true
}

// Multiplexer routes one of its data inputs to its output.
//
//	Attributes: select (1..5, default 1), width (1), enable (true),
//	            disabled ("floating" or "zero"), delay (3)
//	Inputs: in0 .. inN-1 (N = 1<<select), sel[select], en (if enable)
//	Outputs: out
//	Function: if en == 0 { out = disabled } else { out = in[sel] }
//
// An Error enable only forces an Error output if the en pin is connected. A
// select value with an Error bit yields Error, a select value with an Unknown
// bit yields Unknown.
//
var Multiplexer = &lsim.Factory{
	Name:  "Multiplexer",
	Attrs: plexerAttrs(),
	Ports: func(a lsim.Attrs) ([]lsim.Port, error) {
		_, n, err := selectWidth(a)
		if err != nil {
			return nil, err
		}
		ps := make([]lsim.Port, 0, n+3)
		for i := 0; i < n; i++ {
			ps = append(ps, lsim.InAttr(pin(pIn, i), -40, -(n/2)*10+10*i, lsim.AttrWidth))
		}
		ps = append(ps, lsim.InAttr(pSel, -20, (n/2)*10+10, AttrSelect))
		if a.BoolOr(AttrEnable, true) {
			ps = append(ps, lsim.In(pEn, -10, (n/2)*10+10, 1))
		}
		return append(ps, lsim.OutAttr(pOut, 0, 0, lsim.AttrWidth)), nil
	},
	Bounds: plexerBounds,
	Propagate: func(s *lsim.InstanceState) {
		a := s.Attrs()
		w := width(a)
		n := 1 << uint(a.IntOr(AttrSelect, 1))
		out := s.NumPorts() - 1
		d := delay(a, plexerDelay)
		if v, ok := enabled(s, n+1, w); !ok {
			s.SetPort(out, v, d)
			return
		}
		switch sel := s.Port(n); {
		case sel.IsFullyDefined():
			i, _ := sel.ToUint()
			s.SetPort(out, s.Port(int(i)), d)
		case sel.IsError():
			s.SetPort(out, lsim.ErrorValue(w), d)
		default:
			s.SetPort(out, lsim.UnknownValue(w), d)
		}
	},
}

// Demultiplexer routes its data input to one of its outputs. Non selected
// outputs are set according to the disabled attribute.
//
//	Attributes: select (1..5, default 1), width (1), enable (true),
//	            disabled ("floating" or "zero"), delay (3)
//	Inputs: sel[select], en (if enable), in
//	Outputs: out0 .. outN-1 (N = 1<<select)
//	Function: out[sel] = in
//
var Demultiplexer = &lsim.Factory{
	Name:  "Demultiplexer",
	Attrs: plexerAttrs(),
	Ports: func(a lsim.Attrs) ([]lsim.Port, error) {
		_, n, err := selectWidth(a)
		if err != nil {
			return nil, err
		}
		ps := make([]lsim.Port, 0, n+3)
		for i := 0; i < n; i++ {
			ps = append(ps, lsim.OutAttr(pin(pOut, i), 0, -(n/2)*10+10*i, lsim.AttrWidth))
		}
		ps = append(ps, lsim.InAttr(pSel, -20, (n/2)*10+10, AttrSelect))
		if a.BoolOr(AttrEnable, true) {
			ps = append(ps, lsim.In(pEn, -10, (n/2)*10+10, 1))
		}
		return append(ps, lsim.InAttr(pIn, -40, 0, lsim.AttrWidth)), nil
	},
	Bounds: plexerBounds,
	Propagate: func(s *lsim.InstanceState) {
		a := s.Attrs()
		w := width(a)
		n := 1 << uint(a.IntOr(AttrSelect, 1))
		d := delay(a, plexerDelay)
		set := func(v lsim.Value) {
			for i := 0; i < n; i++ {
				s.SetPort(i, v, d)
			}
		}
		if v, ok := enabled(s, n+1, w); !ok {
			set(v)
			return
		}
		switch sel := s.Port(n); {
		case sel.IsFullyDefined():
			k, _ := sel.ToUint()
			in := s.Port(s.NumPorts() - 1)
			off := disabledValue(a, w)
			for i := 0; i < n; i++ {
				if uint64(i) == k {
					s.SetPort(i, in, d)
				} else {
					s.SetPort(i, off, d)
				}
			}
		case sel.IsError():
			set(lsim.ErrorValue(w))
		default:
			set(lsim.UnknownValue(w))
		}
	},
}
