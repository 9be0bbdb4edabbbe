// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"strconv"

	"github.com/pkg/errors"
)

// Location is a point on the schematic grid.
//
type Location struct {
	X, Y int
}

// Loc returns Location{x, y}.
//
func Loc(x, y int) Location { return Location{x, y} }

// Translate returns l moved by dx, dy.
//
func (l Location) Translate(dx, dy int) Location { return Location{l.X + dx, l.Y + dy} }

func (l Location) String() string {
	return "(" + strconv.Itoa(l.X) + "," + strconv.Itoa(l.Y) + ")"
}

// Bounds is a rectangle on the schematic grid.
//
type Bounds struct {
	X, Y, Width, Height int
}

// At returns b translated to location l.
//
func (b Bounds) At(l Location) Bounds {
	return Bounds{b.X + l.X, b.Y + l.Y, b.Width, b.Height}
}

// Direction is the direction of a port.
//
type Direction uint8

// Port directions.
//
const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Port describes a component port. The port width is either fixed by Width or
// taken from the attribute named by WidthAttr.
//
type Port struct {
	Name      string
	Dir       Direction
	Offset    Location
	Width     BitWidth
	WidthAttr string
}

// In returns an input port with a fixed width.
//
func In(name string, x, y int, w BitWidth) Port {
	return Port{Name: name, Dir: Input, Offset: Location{x, y}, Width: w}
}

// Out returns an output port with a fixed width.
//
func Out(name string, x, y int, w BitWidth) Port {
	return Port{Name: name, Dir: Output, Offset: Location{x, y}, Width: w}
}

// InAttr returns an input port whose width is given by attribute key.
//
func InAttr(name string, x, y int, key string) Port {
	return Port{Name: name, Dir: Input, Offset: Location{x, y}, WidthAttr: key}
}

// OutAttr returns an output port whose width is given by attribute key.
//
func OutAttr(name string, x, y int, key string) Port {
	return Port{Name: name, Dir: Output, Offset: Location{x, y}, WidthAttr: key}
}

// Resolve returns a copy of p with its width resolved against a.
//
func (p Port) Resolve(a Attrs) (Port, error) {
	if p.WidthAttr != "" {
		w, err := a.Width(p.WidthAttr)
		if err != nil {
			return p, errors.Wrap(err, "port "+p.Name)
		}
		p.Width = w
	}
	if p.Width == 0 || p.Width > MaxWidth {
		return p, errors.Wrap(ErrInvalidWidth, "port "+p.Name)
	}
	return p, nil
}
