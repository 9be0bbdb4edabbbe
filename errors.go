// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lsim

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Sentinel errors. Use errors.Cause to match wrapped errors.
//
var (
	ErrInvalidWidth  = errors.New("invalid bit width")
	ErrBusy          = errors.New("simulation in progress")
	ErrInvalidPoke   = errors.New("invalid poke")
	ErrNoCircuit     = errors.New("no circuit loaded")
	ErrNotFound      = errors.New("not found")
	ErrRecursive     = errors.New("recursive sub-circuit")
	ErrClockRunning  = errors.New("clock is running")
	ErrNotSubcircuit = errors.New("component is not a sub-circuit")
)

// A WidthError is returned when ports of different widths are connected to the
// same net.
//
type WidthError struct {
	Net  string
	Port string
	Want BitWidth
	Got  BitWidth
}

func (e *WidthError) Error() string {
	return "width mismatch on net " + e.Net + ": port " + e.Port + " is " +
		strconv.Itoa(int(e.Got)) + " bits wide, net is " + strconv.Itoa(int(e.Want)) + " bits wide"
}

// An OscillationError is returned when a tick fails to converge within the
// oscillation cap. Nets lists the nets that were set to Error, prefixed with
// the path of the circuit state holding them.
//
type OscillationError struct {
	Tick  uint64
	Steps int
	Nets  []string
}

func (e *OscillationError) Error() string {
	var b strings.Builder
	b.WriteString("oscillation detected at tick ")
	b.WriteString(strconv.FormatUint(e.Tick, 10))
	b.WriteString(" after ")
	b.WriteString(strconv.Itoa(e.Steps))
	b.WriteString(" steps")
	if len(e.Nets) > 0 {
		b.WriteString(" (")
		b.WriteString(strconv.Itoa(len(e.Nets)))
		b.WriteString(" nets)")
	}
	return b.String()
}

// IsOscillation returns true if the cause of err is an *OscillationError.
//
func IsOscillation(err error) bool {
	_, ok := errors.Cause(err).(*OscillationError)
	return ok
}
