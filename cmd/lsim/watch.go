// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/db47h/lsim"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchOpts struct {
	probes []string
	radix  int
}

var watchCmd = &cobra.Command{
	Use:   "watch <netlist>",
	Short: "Run the clock and reload the netlist whenever it changes",
	Long: `Run the clock and reload the netlist whenever it changes.

A netlist that fails to load is reported and the previous circuit keeps
running.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		pr := &printer{w: cmd.OutOrStdout()}
		s := newSession(lsim.WithSampler(pr))
		defer s.Close()
		if err = reload(s, pr, file); err != nil {
			return err
		}

		notify, err := fsnotify.NewWatcher()
		if err != nil {
			return errors.Wrap(err, "watch")
		}
		defer notify.Close()
		// editors often replace files, so watch the directory
		if err = notify.Add(filepath.Dir(file)); err != nil {
			return errors.Wrap(err, "watch")
		}
		log.WithField("path", file).Debug("monitoring netlist")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)
		if err = s.Run(ctx); err != nil {
			return err
		}
		g.Go(func() error { return watchLoop(ctx, s, pr, file, notify.Events, notify.Errors) })
		return g.Wait()
	},
}

func init() {
	f := watchCmd.Flags()
	f.StringSliceVarP(&watchOpts.probes, "probe", "p", nil, "component path to print (default: all loggable components of the top circuit)")
	f.IntVarP(&watchOpts.radix, "radix", "r", 2, "radix of printed values (2, 8, 10 or 16)")
}

// watchLoop reloads file into s whenever events reports a change to it, until
// ctx is done. When the clock stops on its own, the error is reported and the
// simulation waits for the next change.
func watchLoop(ctx context.Context, s *lsim.Session, pr *printer, file string, events <-chan fsnotify.Event, errs <-chan error) error {
	done := s.Done()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down...")
			return s.Stop()
		case <-done:
			done = nil
			if ctx.Err() != nil {
				continue
			}
			if err := s.Stop(); err != nil {
				log.WithError(err).Error("simulation stopped, waiting for the netlist to change")
			} else {
				log.Warn("simulation stopped, waiting for the netlist to change")
			}
		case ev := <-events:
			if ev.Name != file || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			log.WithField("event", ev.Op.String()).Debug("netlist changed")
			if err := restart(ctx, s, pr, file); err != nil {
				log.WithError(err).Error("reload failed")
			}
			done = s.Done()
		case err := <-errs:
			log.WithError(err).Warn("watcher error")
		}
	}
}

// reload loads file into s. s must not be running.
func reload(s *lsim.Session, pr *printer, file string) error {
	n, err := load(file)
	if err != nil {
		return err
	}
	items, err := selectItems(n.Top, watchOpts.probes, watchOpts.radix)
	if err != nil {
		return err
	}
	pr.items = items
	return s.LoadGraph(n.Top)
}

// restart stops the clock, reloads file and restarts the clock. The netlist is
// parsed first so that a broken file does not interrupt the simulation.
func restart(ctx context.Context, s *lsim.Session, pr *printer, file string) error {
	if _, err := load(file); err != nil {
		return err
	}
	if err := s.Stop(); err != nil {
		log.WithError(err).Warn("clock stopped")
	}
	if err := reload(s, pr, file); err != nil {
		if rerr := s.Run(ctx); rerr != nil {
			log.WithError(rerr).Error("clock restart failed")
		}
		return err
	}
	log.WithField("circuit", s.Circuit().Name()).Info("netlist reloaded")
	return s.Run(ctx)
}
