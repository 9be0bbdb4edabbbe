// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"

	"github.com/db47h/lsim"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <netlist>",
	Short: "Load a netlist and report whether it reaches a stable state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := load(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, c := range n.Circuits {
			mark := " "
			if c == n.Top {
				mark = "*"
			}
			fmt.Fprintf(w, "%s %s: %d inputs, %d outputs, %d components, %d nets\n",
				mark, c.Name(), len(c.Inputs()), len(c.Outputs()), c.Len(), len(c.Nets()))
		}
		p := lsim.NewPropagator(n.Top, cfg.Simulation.OscillationCap, log)
		defer p.Close()
		err = p.Propagate()
		fmt.Fprintf(w, "%d instances, status %s\n", p.NumNodes(), p.Status())
		return err
	},
}
