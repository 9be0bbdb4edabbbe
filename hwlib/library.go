// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import "github.com/db47h/lsim"

// Library returns a new registry holding all the components in this package.
//
func Library() *lsim.Registry {
	return lsim.NewRegistry(
		And, Nand, Or, Nor, Xor, Xnor, Not, Buffer,
		Multiplexer, Demultiplexer,
		Adder,
		DFF, Register,
		Counter, GrayCounter,
		Clock, Pin, Probe, Constant,
		Splitter, Joiner,
	)
}
