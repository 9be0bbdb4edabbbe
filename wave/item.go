// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package wave records the values of loggable components over clock ticks.
//
// An Item selects a loggable component, possibly nested in sub-circuits, and
// one of its log options. A Recorder samples a set of items after every stable
// tick and writes the samples to a Sink. Items are dropped from the recorder
// when their component, or any sub-circuit instance on their path, is removed.
//
package wave

import (
	"strconv"
	"strings"

	"github.com/db47h/lsim"
	"github.com/pkg/errors"
)

// ErrNotLoggable is returned when selecting a component that has no Loggable
// capability.
//
var ErrNotLoggable = errors.New("component is not loggable")

// Item is a loggable component selected for recording.
//
type Item struct {
	path   []*lsim.Component
	comp   *lsim.Component
	log    lsim.Loggable
	option string
	radix  int

	circs []*lsim.Circuit // circuit holding each path element, then comp
	subs  []*lsim.Subscription
}

// NewItem returns a new item for option of comp. path lists the sub-circuit
// instances leading to comp, starting from a component of the root circuit.
// The radix defaults to 2.
//
func NewItem(path []*lsim.Component, comp *lsim.Component, option string) (*Item, error) {
	if comp.Circuit() == nil {
		return nil, errors.Wrap(lsim.ErrNotFound, "component "+comp.String())
	}
	log := comp.Factory().Loggable()
	if log == nil {
		return nil, errors.Wrap(ErrNotLoggable, comp.String())
	}
	for i, p := range path {
		sub := p.Factory().Subcircuit()
		if sub == nil {
			return nil, errors.Wrap(lsim.ErrNotSubcircuit, p.String())
		}
		next := comp
		if i+1 < len(path) {
			next = path[i+1]
		}
		if next.Circuit() != sub {
			return nil, errors.Errorf("%s is not a component of %s", next, sub.Name())
		}
	}
	if opts := log.LogOptions(comp); opts != nil || option != "" {
		found := false
		for _, o := range opts {
			if o == option {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.Errorf("invalid log option %q for %s", option, comp)
		}
	}
	circs := make([]*lsim.Circuit, 0, len(path)+1)
	for _, p := range path {
		circs = append(circs, p.Circuit())
	}
	return &Item{
		path:   append([]*lsim.Component(nil), path...),
		comp:   comp,
		log:    log,
		option: option,
		radix:  2,
		circs:  append(circs, comp.Circuit()),
	}, nil
}

// Select returns an item for the component designated by a dotted path like
// "alu.adder.sum", relative to the root circuit c. Each element is resolved
// with Circuit.Find. A trailing "[option]" selects a log option.
//
func Select(c *lsim.Circuit, path string) (*Item, error) {
	var option string
	if i := strings.IndexByte(path, '['); i >= 0 && strings.HasSuffix(path, "]") {
		path, option = path[:i], path[i+1:len(path)-1]
	}
	var comps []*lsim.Component
	for _, name := range strings.Split(path, ".") {
		if c == nil {
			return nil, errors.Wrap(lsim.ErrNotSubcircuit, comps[len(comps)-1].String())
		}
		comp := c.Find(name)
		if comp == nil {
			return nil, errors.Wrap(lsim.ErrNotFound, name+" in "+c.Name())
		}
		comps = append(comps, comp)
		c = comp.Factory().Subcircuit()
	}
	last := len(comps) - 1
	return NewItem(comps[:last], comps[last], option)
}

// Path returns the sub-circuit instances leading to the component.
//
func (it *Item) Path() []*lsim.Component { return it.path }

// Component returns the logged component.
//
func (it *Item) Component() *lsim.Component { return it.comp }

// Option returns the log option.
//
func (it *Item) Option() string { return it.option }

// Radix returns the display radix.
//
func (it *Item) Radix() int { return it.radix }

// SetRadix sets the display radix. Valid values are 2, 8, 10 and 16.
//
func (it *Item) SetRadix(r int) error {
	switch r {
	case 2, 8, 10, 16:
		it.radix = r
		return nil
	}
	return errors.Errorf("invalid radix %d", r)
}

// ShortDescriptor returns the log name of the component or, if empty, its
// type name and location, followed by the option if any.
//
func (it *Item) ShortDescriptor() string {
	if s := it.log.LogName(it.comp, it.option); s != "" {
		return s
	}
	s := it.comp.Factory().Name + it.comp.Location().String()
	if it.option != "" {
		s += "." + it.option
	}
	return s
}

// LongDescriptor returns the short descriptor prefixed with the labels, or
// type names and locations, of the sub-circuit instances on the path, joined
// with dots. It is used as the item key by recorders.
//
func (it *Item) LongDescriptor() string {
	var sb strings.Builder
	for _, p := range it.path {
		if l := p.Label(); l != "" {
			sb.WriteString(l)
		} else {
			sb.WriteString(p.Factory().Name)
			sb.WriteString(p.Location().String())
		}
		sb.WriteByte('.')
	}
	sb.WriteString(it.ShortDescriptor())
	return sb.String()
}

func (it *Item) String() string { return it.LongDescriptor() }

// Fetch returns the current value of the item in the state tree rooted at
// root.
//
func (it *Item) Fetch(root *lsim.CircuitState) (lsim.Value, error) {
	st := root
	for _, p := range it.path {
		var err error
		if st, err = st.Child(p); err != nil {
			return lsim.Value{}, err
		}
	}
	return it.log.LogValue(st, it.comp, it.option), nil
}

// Format returns v formatted in the item's radix.
//
func (it *Item) Format(v lsim.Value) string { return Format(v, it.radix) }

// Format returns v formatted in the given radix. Values that are not fully
// defined are formatted in binary, except with radix 16. Invalid radixes
// format in binary.
//
func Format(v lsim.Value, radix int) string {
	switch radix {
	case 16:
		return v.Hex()
	case 8, 10:
		if n, ok := v.ToUint(); ok {
			return strconv.FormatUint(n, radix)
		}
	}
	return v.String()
}

// removedBy returns true if ev removes the component or a path element.
func (it *Item) removedBy(ev lsim.CircuitEvent) bool {
	var target *lsim.Component
	for i, c := range it.circs {
		if c == ev.Circuit {
			if i < len(it.path) {
				target = it.path[i]
			} else {
				target = it.comp
			}
			break
		}
	}
	if target == nil {
		return false
	}
	switch ev.Kind {
	case lsim.ComponentRemoved:
		return ev.Component == target
	case lsim.Cleared:
		for _, c := range ev.Removed {
			if c == target {
				return true
			}
		}
	}
	return false
}
