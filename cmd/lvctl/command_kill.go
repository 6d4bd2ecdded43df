package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
)

func newKillCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Kill the running LabVIEW",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if timeout <= 0 {
				timeout = a.cfg.Start.KillTimeout
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout+15*time.Second)
			defer cancel()

			lv, attached, err := a.controller(ctx)
			if err != nil {
				return err
			}
			if !attached {
				fmt.Fprintln(cmd.ErrOrStderr(), "LabVIEW is not running.")
				return nil
			}
			pid := lv.PID()
			if err := lv.Kill(ctx, timeout); err != nil {
				if grpcCode(err) == codes.PermissionDenied {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Forbidden. Only the caller that started LabVIEW can kill it.")
					return nil
				}
				return err
			}
			printStatusTable(cmd.OutOrStdout(), statusRow{Host: a.cfg.Host, PID: pid, State: lv.State().String()})
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "how long to wait for the process to exit (default from config)")
	return cmd
}
