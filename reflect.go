// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Updater is the interface that custom components built using reflection must
// implement. See MakeFactory.
//
type Updater interface {
	Update()
}

var valueType = reflect.TypeOf(Value{})

type reflectPin struct {
	field int
	port  Port
}

// MakeFactory returns a factory for a stateless component whose ports are the
// tagged Value fields of the struct type of u. Every time the component is
// evaluated, a new zero struct is allocated, its input fields are set to the
// port values, Update is called, and the output fields are sent to the output
// ports after the delay given by the delay attribute (1 by default).
//
// The field tag must be `lsim:"in"` or `lsim:"out"` to identify input and
// output ports. By default, the port name is the field name in lowercase. A
// specific name can be forced by adding it in the tag: `lsim:"in,name"`. The
// port width defaults to 1 and is set with a third tag value:
// `lsim:"out,sum,8"`. Output fields left to their zero value, or set to a
// value of the wrong width, produce an Error value.
//
// MakeFactory panics if u is not a struct or pointer to a struct, or if the
// tags are invalid.
//
func MakeFactory(u Updater) *Factory {
	typ := reflect.TypeOf(u)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if k := typ.Kind(); k != reflect.Struct {
		panic(errors.Errorf("unsupported type %q for %q", k, typ.Name()))
	}

	var ins, outs []reflectPin
	n := typ.NumField()
	for i := 0; i < n; i++ {
		f := typ.Field(i)
		tag, ok := f.Tag.Lookup("lsim")
		if !ok {
			continue
		}
		if f.Type != valueType {
			panic(errors.Errorf("unsupported type %q for field %q in %q", f.Type, f.Name, typ.Name()))
		}
		tv := strings.Split(tag, ",")
		name, w := strings.ToLower(f.Name), 1
		switch len(tv) {
		case 3:
			var err error
			if w, err = strconv.Atoi(tv[2]); err != nil || w < 1 || w > MaxWidth {
				panic(errors.Errorf("invalid width in tag %q for field %q in %q", tag, f.Name, typ.Name()))
			}
			fallthrough
		case 2:
			if tv[1] != "" {
				name = tv[1]
			}
			fallthrough
		case 1:
			switch tv[0] {
			case "in":
				ins = append(ins, reflectPin{i, In(name, 0, 10*len(ins), BitWidth(w))})
			case "out":
				outs = append(outs, reflectPin{i, Out(name, 40, 10*len(outs), BitWidth(w))})
			default:
				panic(errors.Errorf("unsupported tag %q for field %q in %q", tag, f.Name, typ.Name()))
			}
		default:
			panic(errors.Errorf("unsupported tag %q for field %q in %q", tag, f.Name, typ.Name()))
		}
	}

	ps := make([]Port, 0, len(ins)+len(outs))
	for _, p := range ins {
		ps = append(ps, p.port)
	}
	for _, p := range outs {
		ps = append(ps, p.port)
	}
	h := len(ins)
	if len(outs) > h {
		h = len(outs)
	}
	return &Factory{
		Name:   typ.Name(),
		Attrs:  Attrs{AttrDelay: 1},
		Ports:  func(Attrs) ([]Port, error) { return ps, nil },
		Bounds: func(Attrs) Bounds { return Bounds{0, -5, 40, 10*h + 10} },
		Propagate: func(s *InstanceState) {
			v := reflect.New(typ)
			e := v.Elem()
			for i, p := range ins {
				e.Field(p.field).Set(reflect.ValueOf(s.Port(i)))
			}
			v.Interface().(Updater).Update()
			d := s.Attrs().IntOr(AttrDelay, 1)
			for i, p := range outs {
				s.SetPort(len(ins)+i, e.Field(p.field).Interface().(Value), d)
			}
		},
	}
}
