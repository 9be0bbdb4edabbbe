// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/db47h/lsim"
	"github.com/db47h/lsim/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runOpts struct {
	ticks       int
	probes      []string
	radix       int
	metricsAddr string
}

var runCmd = &cobra.Command{
	Use:   "run <netlist>",
	Short: "Simulate a netlist and print probe values after every tick",
	Long: `Simulate a netlist and print probe values after every tick.

With --ticks, run the given number of ticks as fast as possible. Otherwise,
run the clock at the configured frequency until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := load(args[0])
		if err != nil {
			return err
		}
		items, err := selectItems(n.Top, runOpts.probes, runOpts.radix)
		if err != nil {
			return err
		}
		opts := []lsim.Option{lsim.WithSampler(&printer{w: cmd.OutOrStdout(), items: items})}
		var extra []func(context.Context) error
		if runOpts.metricsAddr != "" {
			m := metrics.New("lsim")
			reg := prometheus.NewRegistry()
			reg.MustRegister(m)
			opts = append(opts, lsim.WithObserver(m))
			extra = append(extra, serveMetrics(runOpts.metricsAddr, reg))
		}
		s := newSession(opts...)
		defer s.Close()
		if err = s.LoadGraph(n.Top); err != nil {
			return err
		}
		if runOpts.ticks > 0 {
			return tickN(s, runOpts.ticks)
		}
		return runClock(cmd.Context(), s, extra...)
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVarP(&runOpts.ticks, "ticks", "n", 0, "number of ticks to run (0: run until interrupted)")
	f.StringSliceVarP(&runOpts.probes, "probe", "p", nil, "component path to print (default: all loggable components of the top circuit)")
	f.IntVarP(&runOpts.radix, "radix", "r", 2, "radix of printed values (2, 8, 10 or 16)")
	f.StringVar(&runOpts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the clock runs")
}

// tickN runs n ticks. Oscillations stop the simulation only if configured to.
func tickN(s *lsim.Session, n int) error {
	for i := 0; i < n; i++ {
		err := s.Tick()
		if err == nil {
			continue
		}
		if lsim.IsOscillation(err) && !s.Config().Clock.StopOnOscillation {
			log.WithError(err).Warn("tick failed")
			continue
		}
		return err
	}
	return nil
}

// runClock runs the clock until ctx is done, a signal is received or the clock
// stops on error. Functions in extra run alongside the clock and must return
// when their context is done.
func runClock(ctx context.Context, s *lsim.Session, extra ...func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	if err := s.Run(ctx); err != nil {
		return err
	}
	g.Go(func() error {
		select {
		case <-ctx.Done():
			log.Info("shutting down...")
		case <-s.Done():
		}
		return s.Stop()
	})
	for _, fn := range extra {
		fn := fn
		g.Go(func() error { return fn(ctx) })
	}
	return g.Wait()
}

func serveMetrics(addr string, reg *prometheus.Registry) func(context.Context) error {
	return func(ctx context.Context) error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		log.WithField("addr", addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return errors.Wrap(err, "metrics server")
		}
		return nil
	}
}
