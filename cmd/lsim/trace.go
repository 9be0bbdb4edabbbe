// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"math"

	"github.com/db47h/lsim"
	"github.com/db47h/lsim/wave"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var traceOpts struct {
	db     string
	ticks  int
	probes []string
}

var traceCmd = &cobra.Command{
	Use:   "trace <netlist>",
	Short: "Record probe values to a trace database",
	Long: `Record probe values to a trace database.

Only value changes are recorded. Without a database path, samples are kept in
memory and printed when the simulation ends.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := load(args[0])
		if err != nil {
			return err
		}
		items, err := selectItems(n.Top, traceOpts.probes, cfg.Trace.Radix)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return errors.New("nothing to trace")
		}
		path := traceOpts.db
		if path == "" {
			path = cfg.Trace.Path
		}
		var (
			sink wave.Sink
			mem  *wave.MemorySink
		)
		if path != "" {
			if sink, err = wave.OpenBolt(path); err != nil {
				return err
			}
		} else {
			mem = wave.NewMemorySink()
			sink = mem
		}
		rec := wave.NewRecorder(sink, log)
		rec.Add(items...)

		s := newSession(lsim.WithSampler(rec))
		if err = s.LoadGraph(n.Top); err == nil {
			if traceOpts.ticks > 0 {
				err = tickN(s, traceOpts.ticks)
			} else {
				err = runClock(cmd.Context(), s)
			}
		}
		if cerr := s.Close(); err == nil {
			err = cerr
		}
		if cerr := rec.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		if mem != nil {
			w := cmd.OutOrStdout()
			for _, k := range mem.Keys() {
				printSamples(w, k, mem.Samples(k), items[0].Radix())
			}
		}
		return nil
	},
}

var showOpts struct {
	from, to uint64
	radix    int
}

var showCmd = &cobra.Command{
	Use:   "show <database> [item...]",
	Short: "Print the samples of a trace database",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := wave.OpenBolt(args[0])
		if err != nil {
			return err
		}
		defer db.Close()
		keys := args[1:]
		if len(keys) == 0 {
			if keys, err = db.Keys(); err != nil {
				return err
			}
		}
		for _, k := range keys {
			ss, err := db.Samples(k, showOpts.from, showOpts.to)
			if err != nil {
				return err
			}
			printSamples(cmd.OutOrStdout(), k, ss, showOpts.radix)
		}
		return nil
	},
}

func init() {
	f := traceCmd.Flags()
	f.StringVar(&traceOpts.db, "db", "", "trace database path (default from configuration)")
	f.IntVarP(&traceOpts.ticks, "ticks", "n", 0, "number of ticks to run (0: run until interrupted)")
	f.StringSliceVarP(&traceOpts.probes, "probe", "p", nil, "component path to record (default: all loggable components of the top circuit)")

	f = showCmd.Flags()
	f.Uint64Var(&showOpts.from, "from", 0, "first tick")
	f.Uint64Var(&showOpts.to, "to", math.MaxUint64, "last tick (exclusive)")
	f.IntVarP(&showOpts.radix, "radix", "r", 2, "radix of printed values (2, 8, 10 or 16)")
}

func printSamples(w io.Writer, key string, ss []wave.Sample, radix int) {
	fmt.Fprintf(w, "%s:\n", key)
	for _, s := range ss {
		fmt.Fprintf(w, "%8d %s\n", s.Tick, wave.Format(s.Value, radix))
	}
}
