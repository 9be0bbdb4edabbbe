// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// A Behavior computes the outputs of a component from its inputs. It may only
// read and write through s: its own attributes, port values and private data.
// New output values are requested with s.SetPort and delivered later by the
// propagator.
//
// For example, an inverter can be defined like this:
//
//	func(s *lsim.InstanceState) {
//		s.SetPort(1, s.Port(0).Not(), 1)
//	}
//
type Behavior func(s *InstanceState)

// Capability identifies an optional feature of a component type.
//
type Capability int

// Known capabilities and the interface their implementation must satisfy.
//
const (
	CapPoker    Capability = iota // Poker
	CapLoggable                   // Loggable
	CapClock                      // Clocked
)

func (c Capability) String() string {
	switch c {
	case CapPoker:
		return "poker"
	case CapLoggable:
		return "loggable"
	case CapClock:
		return "clock"
	}
	return "capability(" + strconv.Itoa(int(c)) + ")"
}

// A Poker lets interactive tools display and edit the private data of a
// component. Its methods are only ever called between ticks.
//
type Poker interface {
	// ReadForDisplay returns a printable form of data.
	ReadForDisplay(a Attrs, data interface{}) string
	// ApplyPoke returns data updated according to the user input.
	ApplyPoke(a Attrs, data interface{}, input string) (interface{}, error)
}

// A Loggable exposes named probe values to waveform and logging tools.
//
type Loggable interface {
	// LogOptions returns the option identifiers of c. A nil slice means that c
	// has a single unnamed option "".
	LogOptions(c *Component) []string
	// LogName returns the display label for an option, or "" to let tools
	// build one.
	LogName(c *Component, option string) string
	// LogValue returns the current value of an option of c in state st.
	LogValue(st *CircuitState, c *Component, option string) Value
}

// Clocked is implemented by clock sources. ClockTick is called by the clock
// driver at every tick with the tick count; it returns the updated private data
// and whether the component must be re-evaluated.
//
type Clocked interface {
	ClockTick(a Attrs, data interface{}, ticks uint64) (interface{}, bool)
}

// A Factory describes a component type.
//
type Factory struct {
	// Display name.
	Name string
	// Default attributes.
	Attrs Attrs
	// Ports returns the port list for the given attributes. The widths of the
	// returned ports are resolved by the caller.
	Ports func(a Attrs) ([]Port, error)
	// Bounds returns the component bounds relative to its location. Optional.
	Bounds func(a Attrs) Bounds
	// NewData creates the private data of a new instance. Optional.
	NewData func(a Attrs) interface{}
	// Propagate is the component behavior.
	Propagate Behavior

	caps map[Capability]interface{}
	sub  *Circuit
}

// WithCapability registers the implementation of a capability and returns f.
// It panics if impl does not implement the interface required by tag.
//
func (f *Factory) WithCapability(tag Capability, impl interface{}) *Factory {
	var ok bool
	switch tag {
	case CapPoker:
		_, ok = impl.(Poker)
	case CapLoggable:
		_, ok = impl.(Loggable)
	case CapClock:
		_, ok = impl.(Clocked)
	}
	if !ok {
		panic(errors.Errorf("%s: %T does not implement %s", f.Name, impl, tag))
	}
	if f.caps == nil {
		f.caps = make(map[Capability]interface{})
	}
	f.caps[tag] = impl
	return f
}

// Capability returns the implementation registered for tag.
//
func (f *Factory) Capability(tag Capability) (interface{}, bool) {
	impl, ok := f.caps[tag]
	return impl, ok
}

// Poker returns the Poker capability of f or nil.
//
func (f *Factory) Poker() Poker {
	p, _ := f.caps[CapPoker].(Poker)
	return p
}

// Loggable returns the Loggable capability of f or nil.
//
func (f *Factory) Loggable() Loggable {
	l, _ := f.caps[CapLoggable].(Loggable)
	return l
}

// Clocked returns the Clocked capability of f or nil.
//
func (f *Factory) Clocked() Clocked {
	c, _ := f.caps[CapClock].(Clocked)
	return c
}

// Subcircuit returns the circuit instantiated by f, or nil if f is not a
// sub-circuit factory.
//
func (f *Factory) Subcircuit() *Circuit { return f.sub }

// ResolvePorts returns the ports of an instance of f with the given
// attributes, merged over the defaults of f.
//
func (f *Factory) ResolvePorts(attrs Attrs) ([]Port, error) {
	return f.resolvePorts(attrs.over(f.Attrs))
}

func (f *Factory) resolvePorts(a Attrs) ([]Port, error) {
	if f.Ports == nil {
		return nil, nil
	}
	ps, err := f.Ports(a)
	if err != nil {
		return nil, errors.Wrap(err, f.Name)
	}
	out := make([]Port, len(ps))
	names := make(map[string]bool, len(ps))
	for i, p := range ps {
		if names[p.Name] {
			return nil, errors.Errorf("%s: duplicate port name %s", f.Name, p.Name)
		}
		names[p.Name] = true
		if out[i], err = p.Resolve(a); err != nil {
			return nil, errors.Wrap(err, f.Name)
		}
	}
	return out, nil
}

// A Registry is a component library indexed by factory name.
//
type Registry struct {
	m map[string]*Factory
}

// NewRegistry returns a registry holding the given factories. It panics on
// duplicate names.
//
func NewRegistry(fs ...*Factory) *Registry {
	r := &Registry{m: make(map[string]*Factory, len(fs))}
	for _, f := range fs {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds f to the registry.
//
func (r *Registry) Register(f *Factory) error {
	if f == nil || f.Name == "" {
		return errors.New("cannot register unnamed factory")
	}
	if _, ok := r.m[f.Name]; ok {
		return errors.Errorf("factory %s already registered", f.Name)
	}
	r.m[f.Name] = f
	return nil
}

// Lookup returns the factory registered under name.
//
func (r *Registry) Lookup(name string) (*Factory, bool) {
	f, ok := r.m[name]
	return f, ok
}

// Names returns the sorted names of all registered factories.
//
func (r *Registry) Names() []string {
	ns := make([]string, 0, len(r.m))
	for n := range r.m {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}
