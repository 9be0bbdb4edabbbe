// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing components and
// circuits.
//
package hwtest

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/db47h/lsim"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

// A Bench is a test circuit holding a single component whose ports are wired
// to boundary pins of the same name.
//
type Bench struct {
	t       testing.TB
	Circuit *lsim.Circuit
	Comp    *lsim.Component
	P       *lsim.Propagator
	inputs  []lsim.Port
	outputs []lsim.Port
}

func pinList(ps []lsim.Port) string {
	var b strings.Builder
	for _, p := range ps {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if p.Width > 1 {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(int(p.Width)))
			b.WriteByte(']')
		}
	}
	return b.String()
}

func connString(ps []lsim.Port) string {
	var b strings.Builder
	for _, p := range ps {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Name)
	}
	return b.String()
}

// NewBench returns a new bench for a component of type f with the given
// attributes. Logs of the propagator go to t.
//
func NewBench(t testing.TB, f *lsim.Factory, attrs lsim.Attrs) *Bench {
	t.Helper()
	ps, err := f.ResolvePorts(attrs)
	if err != nil {
		t.Fatal(err)
	}
	b := &Bench{t: t}
	for _, p := range ps {
		if p.Dir == lsim.Input {
			b.inputs = append(b.inputs, p)
		} else {
			b.outputs = append(b.outputs, p)
		}
	}
	c, err := lsim.NewCircuit("bench_"+f.Name, pinList(b.inputs), pinList(b.outputs))
	if err != nil {
		t.Fatal(err)
	}
	if b.Comp, err = c.Add(f, attrs, lsim.Loc(0, 0), connString(ps)); err != nil {
		t.Fatal(err)
	}
	b.Circuit = c
	b.P = lsim.NewPropagator(c, 0, Logger(t))
	return b
}

// Inputs returns the input ports of the bench component.
//
func (b *Bench) Inputs() []lsim.Port { return b.inputs }

// Outputs returns the output ports of the bench component.
//
func (b *Bench) Outputs() []lsim.Port { return b.outputs }

// Set sets the named inputs and propagates. It fails the test if the circuit
// does not settle.
//
func (b *Bench) Set(in map[string]lsim.Value) {
	b.t.Helper()
	for n, v := range in {
		if err := b.P.SetInput(n, v); err != nil {
			b.t.Fatal(err)
		}
	}
	if err := b.P.Propagate(); err != nil {
		b.t.Fatal(err)
	}
}

// Get returns the value of the named net of the bench circuit.
//
func (b *Bench) Get(name string) lsim.Value {
	b.t.Helper()
	v, ok := b.P.Root().NetValue(name)
	if !ok {
		b.t.Fatalf("no net named %s", name)
	}
	return v
}

// Eval sets the given inputs and returns all outputs.
//
func (b *Bench) Eval(in map[string]lsim.Value) map[string]lsim.Value {
	b.t.Helper()
	b.Set(in)
	out := make(map[string]lsim.Value, len(b.outputs))
	for _, p := range b.outputs {
		out[p.Name] = b.Get(p.Name)
	}
	return out
}

// Tick runs a clock tick.
//
func (b *Bench) Tick() {
	b.t.Helper()
	if err := b.P.Tick(); err != nil {
		b.t.Fatal(err)
	}
}

// Poke pokes the bench component and propagates.
//
func (b *Bench) Poke(input string) {
	b.t.Helper()
	if err := b.P.Poke(b.P.Root(), b.Comp, input); err != nil {
		b.t.Fatal(err)
	}
	if err := b.P.Propagate(); err != nil {
		b.t.Fatal(err)
	}
}

// Close releases the simulation state.
//
func (b *Bench) Close() { b.P.Close() }

// RandomInputs returns random fully defined values for the given ports.
//
func RandomInputs(r *rand.Rand, ps []lsim.Port) map[string]lsim.Value {
	m := make(map[string]lsim.Value, len(ps))
	for _, p := range ps {
		m[p.Name] = lsim.NewValue(p.Width, r.Uint64())
	}
	return m
}

func portNames(ps []lsim.Port) []string {
	ns := make([]string, len(ps))
	for i, p := range ps {
		ns[i] = p.Name + "[" + strconv.Itoa(int(p.Width)) + "]"
	}
	sort.Strings(ns)
	return ns
}

// ComparePart takes two component types and compares their outputs given the
// same inputs: all 0, all 1, then rounds random input vectors. Both types
// must have the same ports for the given attributes.
//
func ComparePart(t *testing.T, f1, f2 *lsim.Factory, attrs lsim.Attrs, rounds int) {
	t.Helper()
	b1, b2 := NewBench(t, f1, attrs), NewBench(t, f2, attrs)
	defer b1.Close()
	defer b2.Close()

	if d := cmp.Diff(portNames(b1.inputs), portNames(b2.inputs)); d != "" {
		t.Fatalf("input mismatch (-%s +%s):\n%s", f1.Name, f2.Name, d)
	}
	if d := cmp.Diff(portNames(b1.outputs), portNames(b2.outputs)); d != "" {
		t.Fatalf("output mismatch (-%s +%s):\n%s", f1.Name, f2.Name, d)
	}

	check := func(in map[string]lsim.Value) {
		t.Helper()
		o1, o2 := b1.Eval(in), b2.Eval(in)
		if d := cmp.Diff(o1, o2, cmp.Comparer(func(a, b lsim.Value) bool { return a == b })); d != "" {
			t.Fatalf("inputs %v (-%s +%s):\n%s", in, f1.Name, f2.Name, d)
		}
	}
	zero, ones := make(map[string]lsim.Value), make(map[string]lsim.Value)
	for _, p := range b1.inputs {
		zero[p.Name] = lsim.NewValue(p.Width, 0)
		ones[p.Name] = lsim.NewValue(p.Width, p.Width.Mask())
	}
	check(zero)
	check(ones)
	r := rand.New(rand.NewSource(int64(rounds)))
	for i := 0; i < rounds; i++ {
		check(RandomInputs(r, b1.inputs))
	}
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Logger returns a logrus logger writing to t at warning level.
//
func Logger(t testing.TB) logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(testWriter{t})
	l.SetLevel(logrus.WarnLevel)
	return l
}
