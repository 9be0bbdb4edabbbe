// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

// EventKind is the kind of a circuit change.
//
type EventKind int

// Circuit change kinds.
//
const (
	ComponentAdded EventKind = iota
	ComponentRemoved
	AttributesChanged
	ConnectionsChanged
	Cleared
)

func (k EventKind) String() string {
	switch k {
	case ComponentAdded:
		return "added"
	case ComponentRemoved:
		return "removed"
	case AttributesChanged:
		return "attributes"
	case ConnectionsChanged:
		return "connections"
	case Cleared:
		return "cleared"
	}
	return "unknown"
}

// A CircuitEvent describes a change to a circuit topology.
//
type CircuitEvent struct {
	Kind      EventKind
	Circuit   *Circuit
	Component *Component   // nil for Cleared
	Removed   []*Component // components removed by Cleared
	Nets      []string     // nets connected to Component before or after the change
}

// A Subscription is a registered circuit change listener.
//
type Subscription struct {
	c         *Circuit
	fn        func(CircuitEvent)
	cancelled bool // guarded by c.subMu
}

// Subscribe registers fn to be called after every change to c.
//
func (c *Circuit) Subscribe(fn func(CircuitEvent)) *Subscription {
	s := &Subscription{c: c, fn: fn}
	c.subMu.Lock()
	c.subs = append(c.subs, s)
	c.subMu.Unlock()
	return s
}

// Cancel revokes the subscription. It is safe to call Cancel more than once,
// including from a listener.
//
func (s *Subscription) Cancel() {
	c := s.c
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if s.cancelled {
		return
	}
	s.cancelled = true
	for i, x := range c.subs {
		if x == s {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

func (s *Subscription) active() bool {
	s.c.subMu.Lock()
	defer s.c.subMu.Unlock()
	return !s.cancelled
}

func (c *Circuit) notify(ev CircuitEvent) {
	c.subMu.Lock()
	subs := append([]*Subscription(nil), c.subs...)
	c.subMu.Unlock()
	for _, s := range subs {
		// cancelled by a previous listener
		if !s.active() {
			continue
		}
		s.fn(ev)
	}
}
