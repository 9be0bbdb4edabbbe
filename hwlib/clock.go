// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/db47h/lsim"
	"github.com/pkg/errors"
)

type clockData struct {
	value lsim.Value
}

// clockLevel returns the clock output for the given tick count.
func clockLevel(a lsim.Attrs, ticks uint64) lsim.Value {
	hi, lo := uint64(a.IntOr(AttrHigh, 1)), uint64(a.IntOr(AttrLow, 1))
	ph := uint64(a.IntOr(AttrPhase, 0))
	if (ticks+ph)%(hi+lo) < lo {
		return lsim.False
	}
	return lsim.True
}

type clockSource struct{}

func (clockSource) ClockTick(a lsim.Attrs, data interface{}, ticks uint64) (interface{}, bool) {
	v := clockLevel(a, ticks)
	d, ok := data.(*clockData)
	if ok && d.value == v {
		return d, false
	}
	return &clockData{value: v}, true
}

func (clockSource) ReadForDisplay(a lsim.Attrs, data interface{}) string {
	if d, ok := data.(*clockData); ok {
		return d.value.String()
	}
	return ""
}

// ApplyPoke toggles the clock output. The input is ignored.
func (clockSource) ApplyPoke(a lsim.Attrs, data interface{}, input string) (interface{}, error) {
	v := lsim.True
	if d, ok := data.(*clockData); ok && d.value == lsim.True {
		v = lsim.False
	}
	return &clockData{value: v}, nil
}

func (clockSource) LogOptions(c *lsim.Component) []string { return nil }

func (clockSource) LogName(c *lsim.Component, option string) string { return c.Label() }

func (clockSource) LogValue(st *lsim.CircuitState, c *lsim.Component, option string) lsim.Value {
	if d, ok := st.Data(c).(*clockData); ok {
		return d.value
	}
	return lsim.UnknownValue(1)
}

// Clock is a clock source. Its output is low for the first low ticks of every
// high + low ticks period, shifted by phase ticks. It starts low.
//
//	Attributes: high (1), low (1), phase (0), label, delay (1)
//	Outputs: out
//
var Clock = (&lsim.Factory{
	Name:  "Clock",
	Attrs: lsim.Attrs{AttrHigh: 1, AttrLow: 1, AttrPhase: 0, lsim.AttrLabel: "", lsim.AttrDelay: 1},
	Ports: func(a lsim.Attrs) ([]lsim.Port, error) {
		if a.IntOr(AttrHigh, 1) < 1 || a.IntOr(AttrLow, 1) < 1 || a.IntOr(AttrPhase, 0) < 0 {
			return nil, errors.New("invalid clock duty cycle")
		}
		return []lsim.Port{lsim.Out(pOut, 0, 0, 1)}, nil
	},
	Bounds:  func(lsim.Attrs) lsim.Bounds { return lsim.Bounds{X: -20, Y: -10, Width: 20, Height: 20} },
	NewData: func(lsim.Attrs) interface{} { return &clockData{value: lsim.False} },
	Propagate: func(s *lsim.InstanceState) {
		v := lsim.False
		if d, ok := s.Data().(*clockData); ok {
			v = d.value
		}
		s.SetPort(0, v, delay(s.Attrs(), 1))
	},
}).WithCapability(lsim.CapClock, clockSource{}).
	WithCapability(lsim.CapPoker, clockSource{}).
	WithCapability(lsim.CapLoggable, clockSource{})
