package hdl_test

import (
	"testing"

	"github.com/db47h/lsim/internal/hdl"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestLexer(t *testing.T) {
	l := hdl.NewLexer(" a_1[16], =x#")
	var got []hdl.Type
	for {
		i := l.Lex()
		got = append(got, i.Type)
		if i.Type == hdl.EOF {
			break
		}
	}
	exp := []hdl.Type{hdl.Ident, hdl.BracketOpen, hdl.Int, hdl.BracketClose, hdl.Comma, hdl.Equal, hdl.Ident, hdl.Raw, hdl.EOF}
	if d := cmp.Diff(exp, got); d != "" {
		t.Fatalf("(-expected +got):\n%s", d)
	}
}

func TestParseIO(t *testing.T) {
	ds, err := hdl.ParseIO("a, b,sel[2] , bus[64]")
	if err != nil {
		t.Fatal(err)
	}
	exp := []hdl.Decl{{Name: "a", Width: 1}, {Name: "b", Width: 1}, {Name: "sel", Width: 2}, {Name: "bus", Width: 64}}
	if d := cmp.Diff(exp, ds, cmpopts.IgnoreFields(hdl.Decl{}, "Pos")); d != "" {
		t.Fatalf("(-expected +got):\n%s", d)
	}
	if ds, err = hdl.ParseIO("  "); err != nil || ds != nil {
		t.Fatalf("empty spec: %v, %v", ds, err)
	}

	for _, in := range []string{"a,", "a, a", "a[", "a[2", "a[0]", "1", "a b", "a=b"} {
		if _, err := hdl.ParseIO(in); err == nil {
			t.Errorf("%q: no error", in)
		}
	}
}

func TestParseConnections(t *testing.T) {
	as, err := hdl.ParseConnections("in0=a, in1 = b,out=out")
	if err != nil {
		t.Fatal(err)
	}
	exp := []hdl.Assignment{{Port: "in0", Net: "a"}, {Port: "in1", Net: "b"}, {Port: "out", Net: "out"}}
	if d := cmp.Diff(exp, as, cmpopts.IgnoreFields(hdl.Assignment{}, "Pos")); d != "" {
		t.Fatalf("(-expected +got):\n%s", d)
	}

	for _, in := range []string{"a", "a=", "a=b,", "a=b, a=c", "a=b c=d", "a=[", "=b"} {
		if _, err := hdl.ParseConnections(in); err == nil {
			t.Errorf("%q: no error", in)
		}
	}
}
