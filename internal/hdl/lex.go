// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hdl implements the lexer and parsers for the small text formats used
// to describe circuits: I/O specifications like "a, b, sel[2]" and connection
// strings like "in0=a, sel=s, out=o".
//
package hdl

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Type is a token type.
//
type Type int

// Tokens
const (
	EOF Type = iota
	Raw
	Ident
	BracketOpen
	BracketClose
	Comma
	Int
	Equal
)

var typeNames = [...]string{
	EOF:          "end of input",
	Raw:          "character",
	Ident:        "identifier",
	BracketOpen:  "'['",
	BracketClose: "']'",
	Comma:        "','",
	Int:          "integer",
	Equal:        "'='",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "token(" + strconv.Itoa(int(t)) + ")"
}

// Item is a lexed token. Value is a string for Ident and Raw, an int for Int.
//
type Item struct {
	Type  Type
	Pos   int
	Value interface{}
}

func (i Item) String() string {
	switch i.Type {
	case Ident:
		return "identifier " + strconv.Quote(i.Value.(string))
	case Int:
		return "integer " + strconv.Itoa(i.Value.(int))
	case Raw:
		return "character " + strconv.Quote(i.Value.(string))
	}
	return i.Type.String()
}

// Lexer splits its input into tokens.
//
type Lexer struct {
	input string
	pos   int
	start int
}

// NewLexer returns a new lexer for i/o specs and connection descriptions.
//
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.pos++
		return -1
	}
	r, sz := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += sz
	return r
}

func (l *Lexer) backup(r rune) {
	if r < 0 {
		l.pos--
		return
	}
	l.pos -= utf8.RuneLen(r)
}

// Lex returns the next token. Once the input is exhausted, Lex keeps returning
// EOF.
//
func (l *Lexer) Lex() Item {
	r := l.next()
	for unicode.IsSpace(r) {
		r = l.next()
	}
	l.start = l.pos - utf8.RuneLen(r)
	switch {
	case r < 0:
		l.pos = len(l.input)
		return Item{Type: EOF, Pos: len(l.input)}
	case r == '[':
		return Item{BracketOpen, l.start, "["}
	case r == ']':
		return Item{BracketClose, l.start, "]"}
	case r == ',':
		return Item{Comma, l.start, ","}
	case r == '=':
		return Item{Equal, l.start, "="}
	case '0' <= r && r <= '9':
		return l.lexNumber(r)
	case unicode.IsLetter(r) || r == '_':
		return l.lexIdent()
	}
	return Item{Raw, l.start, string(r)}
}

func (l *Lexer) lexNumber(r rune) Item {
	i := int(r - '0')
	for r = l.next(); '0' <= r && r <= '9'; r = l.next() {
		i = i*10 + int(r-'0')
	}
	l.backup(r)
	return Item{Int, l.start, i}
}

func (l *Lexer) lexIdent() Item {
	r := l.next()
	for unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		r = l.next()
	}
	l.backup(r)
	return Item{Ident, l.start, l.input[l.start:l.pos]}
}
