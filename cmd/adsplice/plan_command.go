// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/adsplice/internal/job"
	"github.com/ManuGH/adsplice/internal/synth"
)

type planView struct {
	JobID            string   `json:"jobId"`
	Mode             string   `json:"mode"`
	Encoder          string   `json:"encoder"`
	Backend          string   `json:"backend,omitempty"`
	FallbackApplied  bool     `json:"fallbackApplied"`
	FallbackReason   string   `json:"fallbackReason,omitempty"`
	ExpectedDuration float64  `json:"expectedDurationSeconds,omitempty"`
	FilterGraph      string   `json:"filterGraph,omitempty"`
	Argv             []string `json:"argv"`
	Command          string   `json:"command"`
	Warnings         []string `json:"warnings,omitempty"`
}

func newPlanView(p *synth.CommandPlan) planView {
	return planView{
		JobID:            p.JobID,
		Mode:             p.Mode,
		Encoder:          p.Encoder,
		Backend:          string(p.Backend),
		FallbackApplied:  p.FallbackApplied,
		FallbackReason:   p.FallbackReason,
		ExpectedDuration: p.ExpectedDuration.Seconds(),
		FilterGraph:      p.FilterGraph,
		Argv:             p.Argv(),
		Command:          p.String(),
		Warnings:         p.Warnings,
	}
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "plan <job.yaml>",
		Short: "Print the ffmpeg command for a job without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := ctx.ensureEngine()
			if err != nil {
				return err
			}
			d, err := job.LoadFile(args[0])
			if err != nil {
				return err
			}
			plan, err := eng.Prepare(cmd.Context(), d)
			if err != nil {
				return err
			}
			// nothing runs, so temp lists go right away
			defer eng.Discard(plan)

			if jsonOut {
				return writeJSON(cmd, newPlanView(plan))
			}
			for _, w := range plan.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			if plan.FallbackApplied {
				fmt.Fprintf(cmd.ErrOrStderr(), "fallback: %s\n", plan.FallbackReason)
			}
			fmt.Fprintln(cmd.OutOrStdout(), plan.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}
