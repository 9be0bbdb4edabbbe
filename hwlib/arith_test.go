package hwlib_test

import (
	"testing"
	"testing/quick"

	"github.com/db47h/lsim"
	hl "github.com/db47h/lsim/hwlib"
	"github.com/db47h/lsim/hwtest"
)

func TestAdder(t *testing.T) {
	b := hwtest.NewBench(t, hl.Adder, nil)
	defer b.Close()
	err := quick.Check(func(x, y uint8, c bool) bool {
		cin := uint64(0)
		if c {
			cin = 1
		}
		out := b.Eval(inputs{"a": n(8, uint64(x)), "b": n(8, uint64(y)), "cin": n(1, cin)})
		sum := uint64(x) + uint64(y) + cin
		return out["out"] == n(8, sum&0xff) && out["cout"] == n(1, sum>>8)
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
}

func TestAdder64(t *testing.T) {
	b := hwtest.NewBench(t, hl.Adder, lsim.Attrs{lsim.AttrWidth: 64})
	defer b.Close()
	out := b.Eval(inputs{"a": n(64, 1<<63), "b": n(64, 1<<63|5), "cin": lsim.True})
	if out["out"] != n(64, 6) || out["cout"] != lsim.True {
		t.Fatalf("got %s carry %s", out["out"].Hex(), out["cout"])
	}
}

func TestAdderNonDefinite(t *testing.T) {
	b := hwtest.NewBench(t, hl.Adder, lsim.Attrs{lsim.AttrWidth: 4})
	defer b.Close()
	out := b.Eval(inputs{"a": v("01x1"), "b": n(4, 1), "cin": lsim.False})
	if out["out"] != lsim.UnknownValue(4) || out["cout"] != lsim.UnknownValue(1) {
		t.Errorf("unknown input: got %s carry %s", out["out"], out["cout"])
	}
	out = b.Eval(inputs{"a": v("01E1")})
	if out["out"] != lsim.ErrorValue(4) || out["cout"] != lsim.ErrorValue(1) {
		t.Errorf("error input: got %s carry %s", out["out"], out["cout"])
	}
}

func TestAdderNoCarryIn(t *testing.T) {
	p := newCircuit(t, "a[4], b[4]", "out[4]", func(c *lsim.Circuit) {
		c.MustAdd(hl.Adder, lsim.Attrs{lsim.AttrWidth: 4}, lsim.Loc(0, 0), "a=a, b=b, out=out")
	})
	defer p.Close()
	if err := p.SetInput("a", n(4, 7)); err != nil {
		t.Fatal(err)
	}
	if err := p.SetInput("b", n(4, 8)); err != nil {
		t.Fatal(err)
	}
	if err := p.Propagate(); err != nil {
		t.Fatal(err)
	}
	if got := netValue(t, p, "out"); got != n(4, 15) {
		t.Fatalf("got %s", got)
	}
}

func TestCompareAdder(t *testing.T) {
	// 2 bit adder built from gates
	ha := lsim.MustCircuit("Full Adder", "a, b, cin", "out, cout")
	ha.MustAdd(hl.Xor, lsim.Attrs{hl.AttrInputs: 3}, lsim.Loc(0, 0), "in0=a, in1=b, in2=cin, out=out")
	ha.MustAdd(hl.And, nil, lsim.Loc(0, 30), "in0=a, in1=b, out=ab")
	ha.MustAdd(hl.And, nil, lsim.Loc(0, 60), "in0=a, in1=cin, out=ac")
	ha.MustAdd(hl.And, nil, lsim.Loc(0, 90), "in0=b, in1=cin, out=bc")
	ha.MustAdd(hl.Or, lsim.Attrs{hl.AttrInputs: 3}, lsim.Loc(60, 60), "in0=ab, in1=ac, in2=bc, out=cout")

	add2 := lsim.MustCircuit("Adder2", "a[2], b[2], cin", "out[2], cout")
	add2.MustAdd(hl.Splitter, nil, lsim.Loc(0, 0), "in=a, out0=a0, out1=a1")
	add2.MustAdd(hl.Splitter, nil, lsim.Loc(0, 30), "in=b, out0=b0, out1=b1")
	add2.MustAdd(ha.Factory(), nil, lsim.Loc(40, 0), "a=a0, b=b0, cin=cin, out=s0, cout=c0")
	add2.MustAdd(ha.Factory(), nil, lsim.Loc(40, 30), "a=a1, b=b1, cin=c0, out=s1, cout=cout")
	add2.MustAdd(hl.Joiner, nil, lsim.Loc(80, 0), "in0=s0, in1=s1, out=out")

	hwtest.ComparePart(t, add2.Factory(), hl.Adder, lsim.Attrs{lsim.AttrWidth: 2}, 32)
}
