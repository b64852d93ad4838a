// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/adsplice/internal/job"
	"github.com/ManuGH/adsplice/internal/log"
	"github.com/ManuGH/adsplice/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "run <job.yaml>",
		Short: "Plan and execute a job, reporting progress until it ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			eng, err := ctx.ensureEngine()
			if err != nil {
				return err
			}
			d, err := job.LoadFile(args[0])
			if err != nil {
				return err
			}

			// SIGINT/SIGTERM cancel the run; the runner stops the process group
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			plan, err := eng.Prepare(runCtx, d)
			if err != nil {
				return err
			}
			for _, w := range plan.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}

			g, gctx := errgroup.WithContext(runCtx)
			jobDone := make(chan struct{})
			if addr := cfg.Metrics.ListenAddr; addr != "" {
				g.Go(func() error { return serveMetrics(gctx, addr, jobDone) })
			}

			var outcome runner.Outcome
			g.Go(func() error {
				defer close(jobDone)
				run, err := eng.Run(gctx, plan)
				if err != nil {
					return err
				}
				var out io.Writer = cmd.OutOrStdout()
				if quiet {
					out = io.Discard
				}
				for ev := range run.Progress() {
					printProgress(out, ev, plan.ExpectedDuration)
				}
				outcome, err = run.Wait(context.WithoutCancel(gctx))
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			switch outcome.State {
			case runner.StateCompleted:
				fmt.Fprintf(cmd.OutOrStdout(), "done: %s in %s\n", plan.OutputPath, outcome.Elapsed.Round(time.Millisecond))
				return nil
			case runner.StateCancelled:
				return context.Canceled
			default:
				var perr *runner.ProcessError
				if errors.As(outcome.Err, &perr) {
					for _, line := range perr.LastErrorLines {
						fmt.Fprintf(cmd.ErrOrStderr(), "ffmpeg: %s\n", line)
					}
				}
				return outcome.Err
			}
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress lines")
	return cmd
}

func printProgress(w io.Writer, ev runner.ProgressEvent, total time.Duration) {
	pos := ev.Processed.Round(time.Second)
	if total > 0 {
		pct := 100 * ev.Processed.Seconds() / total.Seconds()
		if pct > 100 {
			pct = 100
		}
		fmt.Fprintf(w, "%s / %s (%.1f%%) frame=%d fps=%.1f speed=%.2fx\n", pos, total.Round(time.Second), pct, ev.Frame, ev.FPS, ev.Speed)
		return
	}
	fmt.Fprintf(w, "%s frame=%d fps=%.1f speed=%.2fx\n", pos, ev.Frame, ev.FPS, ev.Speed)
}

// serveMetrics exposes /metrics until the job ends or ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, jobDone <-chan struct{}) error {
	logger := log.WithComponent("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info().Str("addr", addr).Msg("metrics endpoint listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	case <-jobDone:
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	<-errCh
	return nil
}
