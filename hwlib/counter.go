// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/db47h/lsim"
	"github.com/pkg/errors"
)

// counterData is the private data of clocked components: the last seen clock
// value and the current output.
type counterData struct {
	clock lsim.Value
	value lsim.Value
}

func newCounterData(a lsim.Attrs) interface{} {
	return &counterData{value: lsim.NewValue(width(a), 0)}
}

// getCounterData returns the private data of s, adjusted to width w.
func getCounterData(s *lsim.InstanceState, w lsim.BitWidth) *counterData {
	d, ok := s.Data().(*counterData)
	if !ok {
		d = &counterData{value: lsim.NewValue(w, 0)}
		s.SetData(d)
	}
	if d.value.Width() != w {
		d.value = d.value.Extend(w, false)
	}
	return d
}

// updateClock records the new clock value and returns true on a 0 to 1
// transition. Transitions from or to Unknown or Error are not triggers.
func (d *counterData) updateClock(v lsim.Value) bool {
	trigger := d.clock == lsim.False && v == lsim.True
	d.clock = v
	return trigger
}

// NextGray returns the Gray code following v. Values that are not fully
// defined are returned unchanged.
//
// If v has an even number of 1 bits, bit 0 is flipped. Otherwise, the bit
// above the lowest 1 bit is flipped, or the most significant bit if there is
// no such bit.
//
func NextGray(v lsim.Value) lsim.Value {
	x, ok := v.ToUint()
	if !ok {
		return v
	}
	w := v.Width()
	if bits.OnesCount64(x)&1 == 0 {
		return lsim.NewValue(w, x^1)
	}
	y := (x & -x) << 1
	if y == 0 || y > w.Mask() {
		y = 1 << uint(w-1)
	}
	return lsim.NewValue(w, x^y)
}

// counterPoker sets the counter value from hexadecimal digits, with an
// optional 0x prefix.
type counterPoker struct{}

func (counterPoker) ReadForDisplay(a lsim.Attrs, data interface{}) string {
	if d, ok := data.(*counterData); ok {
		return d.value.Hex()
	}
	return ""
}

func (counterPoker) ApplyPoke(a lsim.Attrs, data interface{}, input string) (interface{}, error) {
	w := width(a)
	hex := strings.TrimSpace(input)
	if strings.HasPrefix(hex, "0x") || strings.HasPrefix(hex, "0X") {
		hex = hex[2:]
	}
	n, err := parseUint(hex, 16, w)
	if err != nil {
		return nil, err
	}
	d := &counterData{value: lsim.NewValue(w, n)}
	if old, ok := data.(*counterData); ok {
		d.clock = old.clock
	}
	return d, nil
}

// parseUint parses an unsigned integer in the given base and checks that it
// fits in w bits. Base 0 accepts Go integer literal prefixes.
func parseUint(input string, base int, w lsim.BitWidth) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(input), base, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse value")
	}
	if n > w.Mask() {
		return 0, errors.Errorf("value %d out of range for %d bits", n, w)
	}
	return n, nil
}

// counterLog exposes the current counter value.
type counterLog struct{}

func (counterLog) LogOptions(c *lsim.Component) []string { return nil }

func (counterLog) LogName(c *lsim.Component, option string) string { return c.Label() }

func (counterLog) LogValue(st *lsim.CircuitState, c *lsim.Component, option string) lsim.Value {
	if d, ok := st.Data(c).(*counterData); ok {
		return d.value
	}
	return lsim.UnknownValue(width(c.Attrs()))
}

func counterPorts(extra ...lsim.Port) func(lsim.Attrs) ([]lsim.Port, error) {
	return func(a lsim.Attrs) ([]lsim.Port, error) {
		return append([]lsim.Port{
			lsim.In(pClk, -30, 0, 1),
			lsim.OutAttr(pOut, 0, 0, lsim.AttrWidth),
		}, extra...), nil
	}
}

func counterBounds(lsim.Attrs) lsim.Bounds { return lsim.Bounds{X: -30, Y: -15, Width: 30, Height: 30} }

// GrayCounter counts in Gray code on rising clock edges.
//
//	Attributes: width (4), label, delay (9)
//	Inputs: clk
//	Outputs: out[width]
//	Function: on clk 0 -> 1 { out = NextGray(out) }
//
// The counter value can be set with a poke and is loggable.
//
var GrayCounter = (&lsim.Factory{
	Name:    "Gray Counter",
	Attrs:   lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(4), lsim.AttrLabel: "", lsim.AttrDelay: 9},
	Ports:   counterPorts(),
	Bounds:  counterBounds,
	NewData: newCounterData,
	Propagate: func(s *lsim.InstanceState) {
		d := getCounterData(s, width(s.Attrs()))
		if d.updateClock(s.Port(0)) {
			d.value = NextGray(d.value)
		}
		s.SetPort(1, d.value, delay(s.Attrs(), 9))
	},
}).WithCapability(lsim.CapPoker, counterPoker{}).WithCapability(lsim.CapLoggable, counterLog{})

// Counter is a binary up counter. The carry output is 1 while the counter
// holds its maximum value.
//
//	Attributes: width (8), label, delay (1)
//	Inputs: clk
//	Outputs: out[width], carry
//	Function: on clk 0 -> 1 { out = out + 1 }
//
var Counter = (&lsim.Factory{
	Name:    "Counter",
	Attrs:   lsim.Attrs{lsim.AttrWidth: lsim.BitWidth(8), lsim.AttrLabel: "", lsim.AttrDelay: 1},
	Ports:   counterPorts(lsim.Out("carry", 0, 10, 1)),
	Bounds:  counterBounds,
	NewData: newCounterData,
	Propagate: func(s *lsim.InstanceState) {
		w := width(s.Attrs())
		d := getCounterData(s, w)
		if d.updateClock(s.Port(0)) {
			if n, ok := d.value.ToUint(); ok {
				d.value = lsim.NewValue(w, (n+1)&w.Mask())
			}
		}
		carry := lsim.False
		if n, ok := d.value.ToUint(); ok && n == w.Mask() {
			carry = lsim.True
		}
		dl := delay(s.Attrs(), 1)
		s.SetPort(1, d.value, dl)
		s.SetPort(2, carry, dl)
	},
}).WithCapability(lsim.CapPoker, counterPoker{}).WithCapability(lsim.CapLoggable, counterLog{})
