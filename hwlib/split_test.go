package hwlib_test

import (
	"testing"
	"testing/quick"

	"github.com/db47h/lsim"
	hl "github.com/db47h/lsim/hwlib"
	"github.com/db47h/lsim/hwtest"
	"github.com/stretchr/testify/require"
)

func TestSplitter(t *testing.T) {
	b := hwtest.NewBench(t, hl.Splitter, lsim.Attrs{lsim.AttrWidth: 8, hl.AttrFanout: 3})
	defer b.Close()
	ws := make([]lsim.BitWidth, 0, 3)
	for _, p := range b.Outputs() {
		ws = append(ws, p.Width)
	}
	require.Equal(t, []lsim.BitWidth{3, 3, 2}, ws)

	out := b.Eval(inputs{"in": v("10_110_1x1")})
	require.Equal(t, "1x1", out["out0"].String())
	require.Equal(t, "110", out["out1"].String())
	require.Equal(t, "10", out["out2"].String())
}

func TestSplitJoin(t *testing.T) {
	p := newCircuit(t, "in[16]", "out[16]", func(c *lsim.Circuit) {
		c.MustAdd(hl.Splitter, lsim.Attrs{lsim.AttrWidth: 16, hl.AttrFanout: 5}, lsim.Loc(0, 0),
			"in=in, out0=a, out1=b, out2=c, out3=d, out4=e")
		c.MustAdd(hl.Joiner, lsim.Attrs{lsim.AttrWidth: 16, hl.AttrFanout: 5}, lsim.Loc(40, 0),
			"in0=a, in1=b, in2=c, in3=d, in4=e, out=out")
	})
	defer p.Close()
	err := quick.Check(func(x uint16) bool {
		if err := p.SetInput("in", n(16, uint64(x))); err != nil {
			return false
		}
		if err := p.Propagate(); err != nil {
			return false
		}
		return netValue(t, p, "out") == n(16, uint64(x))
	}, nil)
	require.NoError(t, err)
}

func TestSplitterAttrs(t *testing.T) {
	_, err := hl.Splitter.ResolvePorts(lsim.Attrs{lsim.AttrWidth: 2, hl.AttrFanout: 3})
	require.Error(t, err)
	_, err = hl.Joiner.ResolvePorts(lsim.Attrs{hl.AttrFanout: 0})
	require.Error(t, err)
}
