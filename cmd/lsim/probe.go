// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/db47h/lsim"
	"github.com/db47h/lsim/wave"
)

// selectItems returns the items for paths. With no paths, it returns all
// loggable components of c.
func selectItems(c *lsim.Circuit, paths []string, radix int) ([]*wave.Item, error) {
	var items []*wave.Item
	if len(paths) == 0 {
		for _, comp := range c.Components() {
			if comp.Factory().Loggable() == nil {
				continue
			}
			it, err := wave.NewItem(nil, comp, "")
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
	}
	for _, p := range paths {
		it, err := wave.Select(c, p)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	for _, it := range items {
		if err := it.SetRadix(radix); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// printer prints item values after every stable tick.
type printer struct {
	w     io.Writer
	items []*wave.Item
}

func (p *printer) Sample(root *lsim.CircuitState, tick uint64) error {
	if len(p.items) == 0 {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%6d", tick)
	for _, it := range p.items {
		v, err := it.Fetch(root)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, " %s=%s", it.ShortDescriptor(), it.Format(v))
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(p.w, sb.String())
	return err
}
