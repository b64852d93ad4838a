// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type probeView struct {
	Backends []string `json:"backends"`
	Encoders []string `json:"encoders"`
	HWAccels []string `json:"hwaccels"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Show the hardware backends ffmpeg offers on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := ctx.ensureEngine()
			if err != nil {
				return err
			}
			set := eng.Capabilities(cmd.Context())

			view := probeView{Encoders: set.Encoders(), HWAccels: set.HWAccels()}
			for _, b := range set.Backends() {
				view.Backends = append(view.Backends, string(b))
			}
			if jsonOut {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			if len(view.Backends) == 0 {
				fmt.Fprintln(out, "backends: none (software encoding only)")
			} else {
				fmt.Fprintf(out, "backends: %s\n", strings.Join(view.Backends, ", "))
			}
			fmt.Fprintf(out, "encoders: %s\n", orNone(view.Encoders))
			fmt.Fprintf(out, "hwaccels: %s\n", orNone(view.HWAccels))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
