// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strings"

	"github.com/db47h/lsim"
	"github.com/pkg/errors"
)

type pinData struct {
	value lsim.Value
}

type pinPoker struct{}

func (pinPoker) ReadForDisplay(a lsim.Attrs, data interface{}) string {
	if d, ok := data.(*pinData); ok {
		return d.value.String()
	}
	return ""
}

// ApplyPoke sets the pin value. The input is either a bit string prefixed with
// "0b" that may contain x and E bits, an integer, or empty to toggle a 1 bit
// pin.
func (pinPoker) ApplyPoke(a lsim.Attrs, data interface{}, input string) (interface{}, error) {
	w := width(a)
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		d, ok := data.(*pinData)
		if w != 1 || !ok {
			return nil, errors.New("missing value")
		}
		v := lsim.True
		if d.value == lsim.True {
			v = lsim.False
		}
		return &pinData{value: v}, nil
	case strings.HasPrefix(input, "0b") && strings.ContainsAny(input, "xXeE"):
		v, err := lsim.ParseValue(input[2:])
		if err != nil {
			return nil, err
		}
		if v.Width() != w {
			return nil, errors.Errorf("value %s is %d bits wide, pin is %d bits wide", v, v.Width(), w)
		}
		return &pinData{value: v}, nil
	}
	n, err := parseUint(input, 0, w)
	if err != nil {
		return nil, err
	}
	return &pinData{value: lsim.NewValue(w, n)}, nil
}

type valueLog func(st *lsim.CircuitState, c *lsim.Component) lsim.Value

func (valueLog) LogOptions(c *lsim.Component) []string { return nil }

func (valueLog) LogName(c *lsim.Component, option string) string { return c.Label() }

func (f valueLog) LogValue(st *lsim.CircuitState, c *lsim.Component, option string) lsim.Value {
	return f(st, c)
}

func ioBounds(lsim.Attrs) lsim.Bounds { return lsim.Bounds{X: -20, Y: -10, Width: 20, Height: 20} }

// Pin is an input pin whose value is set with a poke. It starts at 0.
//
//	Attributes: width (1), label, delay (1)
//	Outputs: out[width]
//
var Pin = (&lsim.Factory{
	Name:  "Pin",
	Attrs: lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(1), lsim.AttrLabel: "", lsim.AttrDelay: 1},
	Ports: func(a lsim.Attrs) ([]lsim.Port, error) {
		return []lsim.Port{lsim.OutAttr(pOut, 0, 0, lsim.AttrWidth)}, nil
	},
	Bounds:  ioBounds,
	NewData: func(a lsim.Attrs) interface{} { return &pinData{value: lsim.NewValue(width(a), 0)} },
	Propagate: func(s *lsim.InstanceState) {
		w := width(s.Attrs())
		v := lsim.NewValue(w, 0)
		if d, ok := s.Data().(*pinData); ok && d.value.Width() == w {
			v = d.value
		}
		s.SetPort(0, v, delay(s.Attrs(), 1))
	},
}).WithCapability(lsim.CapPoker, pinPoker{}).
	WithCapability(lsim.CapLoggable, valueLog(func(st *lsim.CircuitState, c *lsim.Component) lsim.Value {
		return st.PortValue(c, 0)
	}))

// Probe displays and logs the value of the net it is connected to.
//
//	Attributes: width (1), label
//	Inputs: in[width]
//
var Probe = (&lsim.Factory{
	Name:  "Probe",
	Attrs: lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(1), lsim.AttrLabel: ""},
	Ports: func(a lsim.Attrs) ([]lsim.Port, error) {
		return []lsim.Port{lsim.InAttr(pIn, 0, 0, lsim.AttrWidth)}, nil
	},
	Bounds: ioBounds,
}).WithCapability(lsim.CapLoggable, valueLog(func(st *lsim.CircuitState, c *lsim.Component) lsim.Value {
	return st.PortValue(c, 0)
}))

// fits returns true if v can be represented in w bits, either as an unsigned
// value or in two's complement.
func fits(v int64, w lsim.BitWidth) bool {
	if v >= 0 {
		return uint64(v)&^w.Mask() == 0
	}
	return w >= 64 || v >= -(int64(1)<<uint(w-1))
}

// Constant drives a fixed value. Negative values are two's complement.
//
//	Attributes: width (1), value (1), delay (1)
//	Outputs: out[width]
//
var Constant = &lsim.Factory{
	Name:  "Constant",
	Attrs: lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(1), AttrValue: 1, lsim.AttrDelay: 1},
	Ports: func(a lsim.Attrs) ([]lsim.Port, error) {
		w, err := a.Width(lsim.AttrWidth)
		if err != nil {
			return nil, err
		}
		if v, err := a.Int(AttrValue); err != nil || !fits(int64(v), w) {
			return nil, errors.Errorf("invalid constant value %s for %d bits", a.String(AttrValue), w)
		}
		return []lsim.Port{lsim.OutAttr(pOut, 0, 0, lsim.AttrWidth)}, nil
	},
	Bounds: ioBounds,
	Propagate: func(s *lsim.InstanceState) {
		// negative values are two's complement
		v := uint64(s.Attrs().IntOr(AttrValue, 0))
		s.SetPort(0, lsim.NewValue(width(s.Attrs()), v), delay(s.Attrs(), 1))
	},
}
