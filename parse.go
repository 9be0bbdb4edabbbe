// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"github.com/db47h/lsim/internal/hdl"
	"github.com/pkg/errors"
)

// boundary parses a pin specification string like "a, b, sel[2]" into the
// boundary ports of a circuit. Inputs are laid out on the left edge, outputs
// on the right edge.
func boundary(spec string, dir Direction) ([]Port, error) {
	ds, err := hdl.ParseIO(spec)
	if err != nil {
		return nil, err
	}
	ps := make([]Port, len(ds))
	x := 0
	if dir == Output {
		x = 40
	}
	for i, d := range ds {
		w, err := NewBitWidth(d.Width)
		if err != nil {
			return nil, errors.Wrap(err, d.Name)
		}
		ps[i] = Port{Name: d.Name, Dir: dir, Offset: Location{x, 10 * i}, Width: w}
	}
	return ps, nil
}

// parseConns parses a connection string like "a=x, b=y" against the ports
// of a component type.
func parseConns(f *Factory, ports []Port, conns string) (map[string]string, error) {
	as, err := hdl.ParseConnections(conns)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(as))
L:
	for _, a := range as {
		for i := range ports {
			if ports[i].Name == a.Port {
				m[a.Port] = a.Net
				continue L
			}
		}
		return nil, errors.New("invalid pin name " + a.Port + " for part " + f.Name)
	}
	return m, nil
}
