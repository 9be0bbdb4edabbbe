// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wave

import (
	"sync"

	"github.com/db47h/lsim"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Sample is the value of an item at a given tick.
//
type Sample struct {
	Key   string
	Tick  uint64
	Value lsim.Value
}

// A Sink stores samples.
//
type Sink interface {
	// Write stores the samples taken at the same tick.
	Write(samples []Sample) error
	Close() error
}

// Recorder samples a set of items and writes their values to a Sink. It
// implements lsim.Sampler.
//
// Items must be added and removed while the simulation is not running, for
// example from lsim.Session.View or lsim.Session.Edit.
//
type Recorder struct {
	mu    sync.Mutex
	sink  Sink
	log   logrus.FieldLogger
	items []*Item
	last  map[*Item]lsim.Value
}

// NewRecorder returns a recorder writing to sink.
//
func NewRecorder(sink Sink, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{sink: sink, log: log, last: make(map[*Item]lsim.Value)}
}

// Add adds items to the recording selection. An item is removed automatically
// when its component or one of the sub-circuit instances on its path is
// removed from its circuit.
//
func (r *Recorder) Add(items ...*Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		if r.index(it) >= 0 {
			continue
		}
		it := it
		for _, c := range it.circs {
			it.subs = append(it.subs, c.Subscribe(func(ev lsim.CircuitEvent) {
				if it.removedBy(ev) {
					r.Remove(it)
				}
			}))
		}
		r.items = append(r.items, it)
		r.log.WithField("item", it.LongDescriptor()).Debug("item added")
	}
}

func (r *Recorder) index(it *Item) int {
	for i, x := range r.items {
		if x == it {
			return i
		}
	}
	return -1
}

// Remove removes it from the selection.
//
func (r *Recorder) Remove(it *Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(it)
	if i < 0 {
		return
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	delete(r.last, it)
	for _, s := range it.subs {
		s.Cancel()
	}
	it.subs = nil
	r.log.WithField("item", it.LongDescriptor()).Info("item removed")
}

// Items returns the current selection.
//
func (r *Recorder) Items() []*Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Item(nil), r.items...)
}

// Sample fetches the value of every item and writes the values that changed
// since the previous sample to the sink.
//
func (r *Recorder) Sample(root *lsim.CircuitState, tick uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ss []Sample
	for _, it := range r.items {
		v, err := it.Fetch(root)
		if err != nil {
			return errors.Wrap(err, it.LongDescriptor())
		}
		if last, ok := r.last[it]; ok && last == v {
			continue
		}
		r.last[it] = v
		ss = append(ss, Sample{Key: it.LongDescriptor(), Tick: tick, Value: v})
	}
	if len(ss) == 0 {
		return nil
	}
	return errors.Wrap(r.sink.Write(ss), "write samples")
}

// Close cancels all item subscriptions and closes the sink.
//
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		for _, s := range it.subs {
			s.Cancel()
		}
		it.subs = nil
	}
	r.items = nil
	return r.sink.Close()
}
