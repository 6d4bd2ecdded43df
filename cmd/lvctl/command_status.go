package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether LabVIEW is running and its memory usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			lv, _, err := a.controller(ctx)
			if err != nil {
				return err
			}
			exe, err := lv.Executable(ctx)
			if err != nil {
				return err
			}
			mem, err := lv.MemoryUsage(ctx)
			if err != nil {
				return err
			}
			printStatusTable(cmd.OutOrStdout(), statusRow{
				Host:       a.cfg.Host,
				PID:        lv.PID(),
				State:      lv.State().String(),
				Memory:     mem,
				Executable: exe,
			})
			return nil
		},
	}
	return cmd
}
