// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Common attribute keys.
//
const (
	AttrWidth = "width"
	AttrLabel = "label"
	AttrDelay = "delay"
)

// Attrs is a component attribute set. Values are usually BitWidth, int, bool or
// string; getters convert between these where it makes sense so that
// attributes read from text formats work as expected.
//
// An Attrs held by a Component must be treated as read-only. Use
// Circuit.SetAttr to change it.
//
type Attrs map[string]interface{}

// Clone returns a shallow copy of a.
//
func (a Attrs) Clone() Attrs {
	r := make(Attrs, len(a))
	for k, v := range a {
		r[k] = v
	}
	return r
}

// With returns a copy of a where the given key is set to v.
//
func (a Attrs) With(key string, v interface{}) Attrs {
	r := a.Clone()
	r[key] = v
	return r
}

// over returns a copy of defaults overridden by a.
func (a Attrs) over(defaults Attrs) Attrs {
	r := defaults.Clone()
	for k, v := range a {
		r[k] = v
	}
	return r
}

// Keys returns the sorted list of keys in a.
//
func (a Attrs) Keys() []string {
	ks := make([]string, 0, len(a))
	for k := range a {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// Int returns the value of key as an int.
//
func (a Attrs) Int(key string) (int, error) {
	switch v := a[key].(type) {
	case int:
		return v, nil
	case BitWidth:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "attribute %s", key)
		}
		return int(n), nil
	case nil:
		return 0, errors.Wrapf(ErrNotFound, "attribute %s", key)
	default:
		return 0, errors.Errorf("attribute %s: unsupported type %T", key, v)
	}
}

// Width returns the value of key as a BitWidth.
//
func (a Attrs) Width(key string) (BitWidth, error) {
	if w, ok := a[key].(BitWidth); ok {
		if w == 0 || w > MaxWidth {
			return 0, errors.Wrapf(ErrInvalidWidth, "attribute %s", key)
		}
		return w, nil
	}
	n, err := a.Int(key)
	if err != nil {
		return 0, err
	}
	w, err := NewBitWidth(n)
	return w, errors.Wrapf(err, "attribute %s", key)
}

// Bool returns the value of key as a bool.
//
func (a Attrs) Bool(key string) (bool, error) {
	switch v := a[key].(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, errors.Wrapf(err, "attribute %s", key)
	case nil:
		return false, errors.Wrapf(ErrNotFound, "attribute %s", key)
	default:
		return false, errors.Errorf("attribute %s: unsupported type %T", key, v)
	}
}

// String returns the value of key as a string, or "" if not set.
//
func (a Attrs) String(key string) string {
	switch v := a[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case BitWidth:
		return strconv.Itoa(int(v))
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// IntOr returns the value of key as an int or def if not set or invalid.
//
func (a Attrs) IntOr(key string, def int) int {
	if n, err := a.Int(key); err == nil {
		return n
	}
	return def
}

// WidthOr returns the value of key as a BitWidth or def if not set or invalid.
//
func (a Attrs) WidthOr(key string, def BitWidth) BitWidth {
	if w, err := a.Width(key); err == nil {
		return w
	}
	return def
}

// BoolOr returns the value of key as a bool or def if not set or invalid.
//
func (a Attrs) BoolOr(key string, def bool) bool {
	if b, err := a.Bool(key); err == nil {
		return b
	}
	return def
}
