// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"math/bits"
	"strings"

	"github.com/pkg/errors"
)

// A Bit is the state of a single wire in a Value.
//
type Bit uint8

// Bit states.
//
const (
	Zero Bit = iota
	One
	Unknown // floating, not driven
	Error   // conflicting drivers or undefined operation
)

func (b Bit) String() string {
	switch b {
	case Zero:
		return "0"
	case One:
		return "1"
	case Unknown:
		return "x"
	}
	return "E"
}

// MaxWidth is the maximum bit count of a Value.
//
const MaxWidth = 64

// BitWidth is the number of bits of a port or Value. The zero BitWidth is
// invalid and is never returned by NewBitWidth.
//
type BitWidth uint8

// NewBitWidth returns n as a BitWidth or ErrInvalidWidth if n is not in the
// range [1, MaxWidth].
//
func NewBitWidth(n int) (BitWidth, error) {
	if n < 1 || n > MaxWidth {
		return 0, errors.Wrapf(ErrInvalidWidth, "%d", n)
	}
	return BitWidth(n), nil
}

// MustBitWidth is like NewBitWidth but panics on error. Use it for constants.
//
func MustBitWidth(n int) BitWidth {
	w, err := NewBitWidth(n)
	if err != nil {
		panic(err)
	}
	return w
}

// Int returns w as an int.
//
func (w BitWidth) Int() int { return int(w) }

// Mask returns a mask with the w low bits set.
//
func (w BitWidth) Mask() uint64 {
	if w >= MaxWidth {
		return ^uint64(0)
	}
	return 1<<uint(w) - 1
}

// Value is an immutable bit vector where each bit is one of Zero, One, Unknown
// or Error.
//
// Values are comparable with == and can be used as map keys.
//
type Value struct {
	w   BitWidth
	v   uint64 // One bits
	unk uint64 // Unknown bits
	err uint64 // Error bits
}

// Common 1 bit values.
//
var (
	False = Value{w: 1}
	True  = Value{w: 1, v: 1}
)

// NewValue returns a fully defined value of the given width. Bits of v above w
// are discarded.
//
func NewValue(w BitWidth, v uint64) Value {
	return Value{w: w, v: v & w.Mask()}
}

// Repeat returns a Value of width w with all bits set to b.
//
func Repeat(b Bit, w BitWidth) Value {
	m := w.Mask()
	switch b {
	case One:
		return Value{w: w, v: m}
	case Unknown:
		return Value{w: w, unk: m}
	case Error:
		return Value{w: w, err: m}
	}
	return Value{w: w}
}

// UnknownValue returns a floating Value of width w.
//
func UnknownValue(w BitWidth) Value { return Repeat(Unknown, w) }

// ErrorValue returns an all-Error Value of width w.
//
func ErrorValue(w BitWidth) Value { return Repeat(Error, w) }

// FromBits builds a Value from individual bits, least significant bit first.
//
func FromBits(bs ...Bit) Value {
	if len(bs) == 0 || len(bs) > MaxWidth {
		panic(errors.Wrapf(ErrInvalidWidth, "%d", len(bs)))
	}
	r := Value{w: BitWidth(len(bs))}
	for i, b := range bs {
		r = r.set(uint(i), b)
	}
	return r
}

// ParseValue parses a string of bits, most significant first. Accepted
// characters are '0', '1', 'x' or 'X' (Unknown) and 'E' or 'e' (Error).
// Underscores are ignored.
//
func ParseValue(s string) (Value, error) {
	s = strings.Replace(s, "_", "", -1)
	if len(s) == 0 || len(s) > MaxWidth {
		return Value{}, errors.Wrapf(ErrInvalidWidth, "value %q", s)
	}
	bs := make([]Bit, len(s))
	for i := range s {
		var b Bit
		switch s[len(s)-1-i] {
		case '0':
			b = Zero
		case '1':
			b = One
		case 'x', 'X':
			b = Unknown
		case 'e', 'E':
			b = Error
		default:
			return Value{}, errors.Errorf("invalid bit %q in value %q", s[len(s)-1-i], s)
		}
		bs[i] = b
	}
	return FromBits(bs...), nil
}

// MustParseValue is like ParseValue but panics on error.
//
func MustParseValue(s string) Value {
	v, err := ParseValue(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Value) set(i uint, b Bit) Value {
	m := uint64(1) << i
	v.v &^= m
	v.unk &^= m
	v.err &^= m
	switch b {
	case One:
		v.v |= m
	case Unknown:
		v.unk |= m
	case Error:
		v.err |= m
	}
	return v
}

// Width returns the bit count of v. The zero Value has width 0.
//
func (v Value) Width() BitWidth { return v.w }

// Bit returns the state of bit i.
//
func (v Value) Bit(i int) Bit {
	m := uint64(1) << uint(i)
	switch {
	case v.err&m != 0:
		return Error
	case v.unk&m != 0:
		return Unknown
	case v.v&m != 0:
		return One
	}
	return Zero
}

// Set returns a copy of v with bit i set to b.
//
func (v Value) Set(i int, b Bit) Value {
	if i < 0 || i >= int(v.w) {
		return v
	}
	return v.set(uint(i), b)
}

// zeros returns the mask of definite 0 bits.
func (v Value) zeros() uint64 { return v.w.Mask() &^ (v.v | v.unk | v.err) }

// defined returns the mask of definite bits.
func (v Value) defined() uint64 { return v.w.Mask() &^ (v.unk | v.err) }

// IsFullyDefined returns true if no bit of v is Unknown or Error.
//
func (v Value) IsFullyDefined() bool { return v.w > 0 && v.unk|v.err == 0 }

// IsUnknown returns true if all bits of v are Unknown.
//
func (v Value) IsUnknown() bool { return v.w > 0 && v.unk == v.w.Mask() }

// IsError returns true if any bit of v is an Error.
//
func (v Value) IsError() bool { return v.err != 0 }

// Combine merges the values of two drivers of the same wire. Equal definite
// bits are kept, Unknown yields to the other driver, and conflicting or Error
// bits produce Error. Values of different widths yield an Error value of the
// largest width.
//
func Combine(a, b Value) Value {
	if a.w != b.w {
		w := a.w
		if b.w > w {
			w = b.w
		}
		return ErrorValue(w)
	}
	e := a.err | b.err | a.v&b.zeros() | b.v&a.zeros()
	return Value{
		w:   a.w,
		v:   (a.v | b.v) &^ e,
		unk: a.unk & b.unk,
		err: e,
	}
}

// Not returns the bitwise complement of v. Non-definite bits become Error.
//
func (v Value) Not() Value {
	return Value{w: v.w, v: v.zeros(), err: v.unk | v.err}
}

// And returns the bitwise AND of v and o. A 0 on either side forces a 0,
// otherwise non-definite bits produce Error.
//
func (v Value) And(o Value) Value {
	if v.w != o.w {
		return Combine(v, o)
	}
	zero := v.zeros() | o.zeros()
	one := v.v & o.v
	return Value{w: v.w, v: one, err: v.w.Mask() &^ (zero | one)}
}

// Or returns the bitwise OR of v and o. A 1 on either side forces a 1,
// otherwise non-definite bits produce Error.
//
func (v Value) Or(o Value) Value {
	if v.w != o.w {
		return Combine(v, o)
	}
	one := v.v | o.v
	zero := v.zeros() & o.zeros()
	return Value{w: v.w, v: one, err: v.w.Mask() &^ (zero | one)}
}

// Xor returns the bitwise XOR of v and o. Non-definite bits produce Error.
//
func (v Value) Xor(o Value) Value {
	if v.w != o.w {
		return Combine(v, o)
	}
	def := v.defined() & o.defined()
	return Value{w: v.w, v: (v.v ^ o.v) & def, err: v.w.Mask() &^ def}
}

// Extend widens v to width w. New bits are copies of the most significant bit
// of v if signExtend is true, or 0 otherwise. If w is not larger than the width
// of v, Extend is the same as Truncate.
//
func (v Value) Extend(w BitWidth, signExtend bool) Value {
	if w <= v.w {
		return v.Truncate(w)
	}
	r := Value{w: w, v: v.v, unk: v.unk, err: v.err}
	if !signExtend {
		return r
	}
	hi := w.Mask() &^ v.w.Mask()
	switch v.Bit(int(v.w) - 1) {
	case One:
		r.v |= hi
	case Unknown:
		r.unk |= hi
	case Error:
		r.err |= hi
	}
	return r
}

// Truncate returns the w low bits of v.
//
func (v Value) Truncate(w BitWidth) Value {
	if w >= v.w {
		return v
	}
	m := w.Mask()
	return Value{w: w, v: v.v & m, unk: v.unk & m, err: v.err & m}
}

// Slice returns the w bits of v starting at bit from.
//
func (v Value) Slice(from int, w BitWidth) Value {
	s, m := uint(from), w.Mask()
	return Value{w: w, v: v.v >> s & m, unk: v.unk >> s & m, err: v.err >> s & m}
}

// Join concatenates values, least significant first. The total width must not
// exceed MaxWidth.
//
func Join(vs ...Value) Value {
	var r Value
	for _, v := range vs {
		s := uint(r.w)
		if int(r.w)+int(v.w) > MaxWidth {
			return ErrorValue(MaxWidth)
		}
		r.v |= v.v << s
		r.unk |= v.unk << s
		r.err |= v.err << s
		r.w += v.w
	}
	return r
}

// ToUint returns v as an unsigned integer. ok is false if any bit is Unknown or
// Error.
//
func (v Value) ToUint() (n uint64, ok bool) {
	if !v.IsFullyDefined() {
		return 0, false
	}
	return v.v, true
}

// ToInt returns v as a two's complement signed integer. ok is false if any bit
// is Unknown or Error.
//
func (v Value) ToInt() (n int64, ok bool) {
	if !v.IsFullyDefined() {
		return 0, false
	}
	s := uint(MaxWidth - v.w)
	return int64(v.v<<s) >> s, true
}

// OnesCount returns the number of One bits in v.
//
func (v Value) OnesCount() int { return bits.OnesCount64(v.v) }

// String returns the bits of v, most significant first.
//
func (v Value) String() string {
	if v.w == 0 {
		return "-"
	}
	var b strings.Builder
	b.Grow(int(v.w))
	for i := int(v.w) - 1; i >= 0; i-- {
		b.WriteString(v.Bit(i).String())
	}
	return b.String()
}

const hexDigits = "0123456789abcdef"

// Hex returns v in hexadecimal, with one digit per nibble. Nibbles holding an
// Error bit print as 'E' and nibbles holding an Unknown bit print as 'x'.
//
func (v Value) Hex() string {
	if v.w == 0 {
		return "-"
	}
	n := (int(v.w) + 3) / 4
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		s := uint(4 * i)
		nib := v.Slice(int(s), 4)
		if i == n-1 && int(v.w)-int(s) < 4 {
			nib = v.Slice(int(s), BitWidth(int(v.w)-int(s)))
		}
		switch {
		case nib.err != 0:
			b[n-1-i] = 'E'
		case nib.unk != 0:
			b[n-1-i] = 'x'
		default:
			b[n-1-i] = hexDigits[nib.v]
		}
	}
	return string(b)
}
