// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

import (
	"github.com/pkg/errors"
)

// Decl is a pin declaration in an I/O spec. Width is 1 unless a bus size was
// given, as in "bus[8]".
//
type Decl struct {
	Name  string
	Width int
	Pos   int
}

// ParseIO parses a comma separated list of pin declarations:
//
//	ParseIO("a, b, sel[2]") // returns a and b, 1 bit wide, and sel, 2 bits wide.
//
// Duplicate names are an error.
//
func ParseIO(spec string) ([]Decl, error) {
	var out []Decl
	seen := make(map[string]bool)

	l := NewLexer(spec)
	i := l.Lex()
	if i.Type == EOF {
		return nil, nil
	}
	for {
		if i.Type != Ident {
			return nil, parseError(spec, i.Pos, "expected pin name, got "+i.String())
		}
		d := Decl{Name: i.Value.(string), Width: 1, Pos: i.Pos}
		if seen[d.Name] {
			return nil, parseError(spec, i.Pos, "duplicate pin name "+d.Name)
		}
		seen[d.Name] = true
		i = l.Lex()
		if i.Type == BracketOpen {
			i = l.Lex()
			if i.Type != Int {
				return nil, parseError(spec, i.Pos, "missing bus size")
			}
			d.Width = i.Value.(int)
			if d.Width < 1 {
				return nil, parseError(spec, i.Pos, "invalid bus size")
			}
			if i = l.Lex(); i.Type != BracketClose {
				return nil, parseError(spec, i.Pos, "missing close bracket")
			}
			i = l.Lex()
		}
		out = append(out, d)
		switch i.Type {
		case EOF:
			return out, nil
		case Comma:
			i = l.Lex()
		default:
			return nil, parseError(spec, i.Pos, "expected comma or end of input")
		}
	}
}

// Assignment connects a component port to a net in the enclosing circuit.
//
type Assignment struct {
	Port string
	Net  string
	Pos  int
}

// ParseConnections parses a connection string of the form
// "port=net, port=net, ...". A port may appear only once.
//
func ParseConnections(conns string) ([]Assignment, error) {
	var out []Assignment
	seen := make(map[string]bool)

	l := NewLexer(conns)
	i := l.Lex()
	if i.Type == EOF {
		return nil, nil
	}
	for {
		if i.Type != Ident {
			return nil, parseError(conns, i.Pos, "expected pin name, got "+i.String())
		}
		a := Assignment{Port: i.Value.(string), Pos: i.Pos}
		if seen[a.Port] {
			return nil, parseError(conns, i.Pos, "pin "+a.Port+" connected more than once")
		}
		seen[a.Port] = true
		if i = l.Lex(); i.Type != Equal {
			return nil, parseError(conns, i.Pos, "expected '=', got "+i.String())
		}
		if i = l.Lex(); i.Type != Ident {
			return nil, parseError(conns, i.Pos, "expected net name, got "+i.String())
		}
		a.Net = i.Value.(string)
		out = append(out, a)
		switch i = l.Lex(); i.Type {
		case EOF:
			return out, nil
		case Comma:
			i = l.Lex()
		default:
			return nil, parseError(conns, i.Pos, "expected comma or end of input")
		}
	}
}

func parseError(in string, pos int, msg string) error {
	return errors.Errorf("in %q at pos %d: %s", in, pos+1, msg)
}
