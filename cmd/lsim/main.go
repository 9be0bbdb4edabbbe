// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command lsim loads and simulates YAML netlists.
//
//	lsim check circuit.yaml
//	lsim run --ticks 16 --probe cnt.c circuit.yaml
//	lsim trace --db trace.db --ticks 100 --probe clock circuit.yaml
//	lsim show trace.db
//	lsim watch circuit.yaml
//
package main

import (
	"fmt"
	"os"

	"github.com/db47h/lsim"
	"github.com/db47h/lsim/config"
	"github.com/db47h/lsim/hwlib"
	"github.com/db47h/lsim/netlist"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "lsim",
	Short:         "Event-driven digital logic simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		log, err = cfg.NewLogger()
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides configuration)")
}

// load loads the netlist in file using the built-in component library.
func load(file string) (*netlist.Netlist, error) {
	return netlist.LoadFile(file, hwlib.Library())
}

// newSession returns a new session with the global configuration and logger.
func newSession(opts ...lsim.Option) *lsim.Session {
	return lsim.NewSession(append([]lsim.Option{lsim.WithConfig(cfg), lsim.WithLogger(log)}, opts...)...)
}

func main() {
	rootCmd.AddCommand(checkCmd, runCmd, traceCmd, showCmd, watchCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lsim:", err)
		os.Exit(1)
	}
}
