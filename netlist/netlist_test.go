package netlist_test

import (
	"testing"

	"github.com/db47h/lsim"
	hl "github.com/db47h/lsim/hwlib"
	"github.com/db47h/lsim/hwtest"
	"github.com/db47h/lsim/netlist"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	n, err := netlist.LoadFile("testdata/adder.yaml", hl.Library())
	require.NoError(t, err)
	require.Len(t, n.Circuits, 3)
	require.Equal(t, "adder2", n.Top.Name())
	require.Equal(t, 5, n.Top.Len())

	full := n.Circuit("full")
	require.NotNil(t, full)
	require.NotNil(t, full.Find("h1"))
	require.Equal(t, n.Circuit("half"), full.Find("h2").Factory().Subcircuit())

	hwtest.ComparePart(t, n.Top.Factory(), hl.Adder, lsim.Attrs{lsim.AttrWidth: 2}, 32)
}

func TestLoad(t *testing.T) {
	const src = `
circuits:
  - name: counter
    outputs: q[4]
    components:
      - type: Clock
        at: [0, 0]
        conns: out=clk
      - type: Counter
        at: [40, 0]
        attrs: {width: 4, label: c}
        conns: clk=clk, out=q
`
	n, err := netlist.Load([]byte(src), hl.Library())
	require.NoError(t, err)
	require.Equal(t, "counter", n.Top.Name())

	p := lsim.NewPropagator(n.Top, 0, hwtest.Logger(t))
	defer p.Close()
	require.NoError(t, p.Propagate())
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Tick())
	}
	v, ok := p.Root().NetValue("q")
	require.True(t, ok)
	require.Equal(t, lsim.NewValue(4, 2), v)
}

func TestLoadErrors(t *testing.T) {
	lib := hl.Library()
	for _, tc := range []struct {
		name string
		src  string
		want string
	}{
		{"empty", "top: x\n", "netlist has no circuits"},
		{"unknown field", "circuits:\n  - name: a\n    foo: 1\n", ""},
		{"duplicate", "circuits:\n  - name: a\n  - name: a\n", "duplicate circuit a"},
		{"bad pins", "circuits:\n  - name: a\n    inputs: 'a['\n", ""},
		{"bad attr", "circuits:\n  - name: a\n    components:\n      - type: AND\n        attrs: {inputs: 12}\n", ""},
		{"bad conn", "circuits:\n  - name: a\n    components:\n      - type: NOT\n        conns: foo=x\n", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := netlist.Load([]byte(tc.src), lib)
			require.Error(t, err)
			if tc.want != "" {
				require.EqualError(t, err, tc.want)
			}
		})
	}

	_, err := netlist.Load([]byte("circuits:\n  - name: a\n    components:\n      - type: Widget\n"), lib)
	require.Equal(t, lsim.ErrNotFound, errors.Cause(err))
	_, err = netlist.Load([]byte("top: b\ncircuits:\n  - name: a\n"), lib)
	require.Equal(t, lsim.ErrNotFound, errors.Cause(err))

	// sub-circuits must be defined before use
	_, err = netlist.Load([]byte(`
circuits:
  - name: a
    components:
      - type: b
  - name: b
`), lib)
	require.Equal(t, lsim.ErrNotFound, errors.Cause(err))
}
