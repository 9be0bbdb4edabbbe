// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

// InstanceState is the view of a component on the simulation while its
// behavior runs. It gives access to the component own attributes, port values
// and private data only.
//
type InstanceState struct {
	p    *Propagator
	node *CircuitState
	comp *Component
}

// Attrs returns the component attributes.
//
func (s *InstanceState) Attrs() Attrs { return s.comp.attrs }

// Component returns the component being evaluated.
//
func (s *InstanceState) Component() *Component { return s.comp }

// NumPorts returns the number of ports of the component.
//
func (s *InstanceState) NumPorts() int { return len(s.comp.ports) }

// Port returns the current value of port i.
//
func (s *InstanceState) Port(i int) Value { return s.node.PortValue(s.comp, i) }

// PortByName returns the current value of the named port. It returns a zero
// Value if there is no such port.
//
func (s *InstanceState) PortByName(name string) Value {
	return s.Port(s.comp.PortIndex(name))
}

// IsConnected returns true if port i is connected to a net.
//
func (s *InstanceState) IsConnected(i int) bool { return s.comp.Net(i) != "" }

// SetPort schedules port i to be set to v after delay time units. A value
// whose width does not match the port is replaced by an Error value. Calls
// for input ports are ignored.
//
func (s *InstanceState) SetPort(i int, v Value, delay int) {
	if i < 0 || i >= len(s.comp.ports) || s.comp.ports[i].Dir != Output {
		s.p.log.WithField("component", s.comp.String()).Warnf("SetPort: port %d is not an output", i)
		return
	}
	if w := s.comp.ports[i].Width; v.Width() != w {
		v = ErrorValue(w)
	}
	if delay < 0 {
		delay = 0
	}
	s.p.schedule(s.node, PortRef{s.comp, i}, v, uint64(delay))
}

// Data returns the component private data.
//
func (s *InstanceState) Data() interface{} { return s.node.data[s.comp] }

// SetData replaces the component private data.
//
func (s *InstanceState) SetData(d interface{}) { s.node.data[s.comp] = d }

// Now returns the current simulation time.
//
func (s *InstanceState) Now() uint64 { return s.p.now }

// Ticks returns the number of clock ticks since the last reset.
//
func (s *InstanceState) Ticks() uint64 { return s.p.ticks }
