package lsim_test

import (
	"testing"

	"github.com/db47h/lsim"
	hl "github.com/db47h/lsim/hwlib"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNewCircuit(t *testing.T) {
	c, err := lsim.NewCircuit("c", "a, b[8]", "out[8]")
	require.NoError(t, err)
	require.Len(t, c.Inputs(), 2)
	require.Equal(t, lsim.BitWidth(8), c.Inputs()[1].Width)
	require.Equal(t, []string{"a", "b", "out"}, c.Nets())
	require.True(t, c.Net("a").IsInput())
	require.True(t, c.Net("out").IsOutput())

	for _, d := range [][2]string{
		{"a, a", ""},
		{"a", "a"},
		{"a[0]", ""},
		{"a[65]", ""},
		{"a b", ""},
		{"", "out["},
	} {
		_, err := lsim.NewCircuit("bad", d[0], d[1])
		require.Error(t, err, "inputs %q outputs %q", d[0], d[1])
	}
}

func TestAdd(t *testing.T) {
	c := lsim.MustCircuit("c", "a, b", "out")
	g, err := c.Add(hl.And, nil, lsim.Loc(10, 20), "in0=a, in1=b, out=out")
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	require.Equal(t, "out", g.Net(2))
	require.Equal(t, 2, g.PortIndex("out"))
	require.Equal(t, -1, g.PortIndex("foo"))
	require.Equal(t, lsim.Bounds{X: 10, Y: 15, Width: 50, Height: 20}, g.Bounds())
	require.Same(t, g, c.Find("AND(10,20)"))

	n := c.Net("out")
	require.Len(t, n.Drivers, 1)
	require.Equal(t, lsim.PortRef{Comp: g, Index: 2}, n.Drivers[0])
	require.Len(t, c.Net("a").Readers, 1)
}

func TestAddErrors(t *testing.T) {
	c := lsim.MustCircuit("c", "a, w[4]", "out")

	_, err := c.Add(hl.And, nil, lsim.Loc(0, 0), "in0=a, foo=b")
	require.EqualError(t, err, "invalid pin name foo for part AND")

	_, err = c.Add(hl.And, nil, lsim.Loc(0, 0), "in0=w")
	var we *lsim.WidthError
	require.True(t, errors.As(err, &we), "%v", err)
	require.Equal(t, lsim.BitWidth(4), we.Want)
	require.Equal(t, lsim.BitWidth(1), we.Got)

	_, err = c.Add(hl.Not, nil, lsim.Loc(0, 0), "out=a")
	require.Error(t, err)

	_, err = c.Add(hl.And, lsim.Attrs{hl.AttrInputs: 20}, lsim.Loc(0, 0), "")
	require.Error(t, err)

	// failed adds leave c unchanged
	require.Equal(t, 0, c.Len())
	require.Equal(t, []string{"a", "out", "w"}, c.Nets())
}

func TestRecursive(t *testing.T) {
	a := lsim.MustCircuit("A", "in", "out")
	b := lsim.MustCircuit("B", "in", "out")
	b.MustAdd(a.Factory(), nil, lsim.Loc(0, 0), "in=in, out=out")

	_, err := a.Add(a.Factory(), nil, lsim.Loc(0, 0), "")
	require.Equal(t, lsim.ErrRecursive, errors.Cause(err))
	_, err = a.Add(b.Factory(), nil, lsim.Loc(0, 0), "")
	require.Equal(t, lsim.ErrRecursive, errors.Cause(err))
	require.Equal(t, 0, a.Len())
}

func TestMutations(t *testing.T) {
	c := lsim.MustCircuit("c", "a", "out")
	var evs []lsim.CircuitEvent
	sub := c.Subscribe(func(ev lsim.CircuitEvent) { evs = append(evs, ev) })

	g := c.MustAdd(hl.Not, nil, lsim.Loc(0, 0), "in=a, out=x")
	require.NoError(t, c.Connect(g, "in=a, out=out"))
	require.Nil(t, c.Net("x"))
	require.NoError(t, c.SetAttr(g, lsim.AttrDelay, 5))
	require.Equal(t, 5, g.Attrs().IntOr(lsim.AttrDelay, 0))

	// width change conflicts with the boundary pins
	err := c.SetAttr(g, lsim.AttrWidth, 2)
	require.Error(t, err)
	require.Equal(t, lsim.BitWidth(1), g.Port(0).Width)

	require.NoError(t, c.Remove(g))
	require.Nil(t, g.Circuit())
	require.Equal(t, lsim.ErrNotFound, errors.Cause(c.Remove(g)))

	c.MustAdd(hl.Buffer, nil, lsim.Loc(0, 0), "in=a, out=out")
	require.NoError(t, c.Clear())
	require.Equal(t, 0, c.Len())

	kinds := make([]lsim.EventKind, len(evs))
	for i, ev := range evs {
		kinds[i] = ev.Kind
	}
	require.Equal(t, []lsim.EventKind{
		lsim.ComponentAdded,
		lsim.ConnectionsChanged,
		lsim.AttributesChanged,
		lsim.ComponentRemoved,
		lsim.ComponentAdded,
		lsim.Cleared,
	}, kinds)
	require.ElementsMatch(t, []string{"a", "x", "out"}, evs[1].Nets)
	require.Len(t, evs[5].Removed, 1)

	sub.Cancel()
	sub.Cancel()
	c.MustAdd(hl.Buffer, nil, lsim.Loc(0, 0), "")
	require.Len(t, evs, 6)
}

func TestSubcircuitAttrs(t *testing.T) {
	inv := lsim.MustCircuit("inv", "in", "out")
	inv.MustAdd(hl.Not, nil, lsim.Loc(0, 0), "in=in, out=out")
	top := lsim.MustCircuit("top", "a", "b")
	u := top.MustAdd(inv.Factory(), lsim.Attrs{lsim.AttrLabel: "u1"}, lsim.Loc(0, 0), "in=a, out=b")
	require.Same(t, u, top.Find("u1"))
	require.Same(t, inv, u.Factory().Subcircuit())
	require.Error(t, top.SetAttr(u, lsim.AttrLabel, "u2"))
	require.Same(t, inv.Factory(), inv.Factory())
}

func TestBusy(t *testing.T) {
	c := lsim.MustCircuit("c", "", "")
	var addErr error
	meddler := &lsim.Factory{
		Name: "meddler",
		Propagate: func(s *lsim.InstanceState) {
			_, addErr = c.Add(hl.Not, nil, lsim.Loc(0, 0), "")
		},
	}
	c.MustAdd(meddler, nil, lsim.Loc(0, 0), "")
	p := lsim.NewPropagator(c, 0, testLogger(t))
	defer p.Close()
	require.NoError(t, p.Propagate())
	require.Equal(t, lsim.ErrBusy, errors.Cause(addErr))
	require.Equal(t, 1, c.Len())

	// idle again
	_, err := c.Add(hl.Not, nil, lsim.Loc(0, 0), "")
	require.NoError(t, err)
}

type meddlingClock struct {
	c   *lsim.Circuit
	err error
}

func (m *meddlingClock) ClockTick(a lsim.Attrs, data interface{}, ticks uint64) (interface{}, bool) {
	_, m.err = m.c.Add(hl.Not, nil, lsim.Loc(0, 0), "")
	return data, false
}

func TestBusyToggleClocks(t *testing.T) {
	c := lsim.MustCircuit("c", "", "")
	m := &meddlingClock{c: c}
	f := (&lsim.Factory{Name: "meddling clock"}).WithCapability(lsim.CapClock, m)
	c.MustAdd(f, nil, lsim.Loc(0, 0), "")
	p := lsim.NewPropagator(c, 0, testLogger(t))
	defer p.Close()

	require.NoError(t, p.Tick())
	require.Equal(t, lsim.ErrBusy, errors.Cause(m.err))
	require.NoError(t, p.ToggleClocks())
	require.Equal(t, lsim.ErrBusy, errors.Cause(m.err))
	require.Equal(t, 1, c.Len())
}

func TestSubscriptionCancel(t *testing.T) {
	c := lsim.MustCircuit("c", "", "")
	var n1, n2 int
	var s2 *lsim.Subscription
	s1 := c.Subscribe(func(lsim.CircuitEvent) {
		n1++
		s2.Cancel()
	})
	s2 = c.Subscribe(func(lsim.CircuitEvent) { n2++ })
	c.MustAdd(hl.Not, nil, lsim.Loc(0, 0), "")
	s1.Cancel()
	s1.Cancel()
	c.MustAdd(hl.Not, nil, lsim.Loc(10, 0), "")
	require.Equal(t, 1, n1)
	require.Equal(t, 0, n2)
}
