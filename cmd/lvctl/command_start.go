package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ni/labview-automation/pkg/lib/labview"
)

// launchFlags are shared by start and restart.
type launchFlags struct {
	wait          bool
	timeout       time.Duration
	noDialogs     bool
	noErrorReport bool
	searchPath    []string
}

func (f *launchFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.wait, "wait", true, "wait until the automation server accepts connections")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "how long to wait for the automation server (default from config)")
	cmd.Flags().BoolVar(&f.noDialogs, "disable-dialogs", false, "suppress dialogs that block unattended runs")
	cmd.Flags().BoolVar(&f.noErrorReport, "disable-error-reporting", false, "turn NI Error Reporting off")
	cmd.Flags().StringSliceVar(&f.searchPath, "search-path", nil, "directories prepended to the VI search path")
}

func (f *launchFlags) apply(lv *labview.LabVIEW) {
	if f.noDialogs {
		lv.DisableDialogs()
	}
	if f.noErrorReport {
		lv.DisableNIErrorReporting()
	}
	for i := len(f.searchPath) - 1; i >= 0; i-- {
		lv.AddToSearchPath(f.searchPath[i], false)
	}
}

func (a *app) launchTimeout(f *launchFlags) time.Duration {
	if f.timeout > 0 {
		return f.timeout
	}
	return a.cfg.Start.Timeout
}

func newStartCmd(a *app) *cobra.Command {
	var flags launchFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch LabVIEW, or adopt the instance already running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			timeout := a.launchTimeout(&flags)
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout+30*time.Second)
			defer cancel()

			lv, _, err := a.controller(ctx)
			if err != nil {
				return err
			}
			flags.apply(lv)
			if err := lv.Start(ctx, flags.wait, timeout); err != nil {
				return err
			}
			// Print only the PID so scripts can capture it.
			fmt.Fprintln(cmd.OutOrStdout(), lv.PID())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newRestartCmd(a *app) *cobra.Command {
	var flags launchFlags
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Kill the running LabVIEW and launch it again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			timeout := a.launchTimeout(&flags)
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout+a.cfg.Start.KillTimeout+30*time.Second)
			defer cancel()

			lv, _, err := a.controller(ctx)
			if err != nil {
				return err
			}
			flags.apply(lv)
			if err := lv.Restart(ctx, flags.wait, timeout); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), lv.PID())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
