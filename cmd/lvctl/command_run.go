package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ni/labview-automation/pkg/lib/client"
)

// callTimeout bounds listener commands that carry no --timeout flag.
const callTimeout = 10 * time.Minute

func newRunCmd(a *app) *cobra.Command {
	var (
		controls       []string
		indicators     []string
		runOptions     int32
		openFrontPanel bool
	)
	cmd := &cobra.Command{
		Use:   "run <vi_path>",
		Short: "Run a VI and print its indicators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseControls(controls)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()

			doc, err := a.listener().RunVI(ctx, client.RunVIRequest{
				VIPath:         args[0],
				ControlValues:  values,
				RunOptions:     runOptions,
				OpenFrontPanel: openFrontPanel,
				IndicatorNames: indicators,
			})
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringArrayVarP(&controls, "control", "c", nil, "control value as name=yaml, repeatable")
	cmd.Flags().StringArrayVarP(&indicators, "indicator", "i", nil, "indicator to return, repeatable (default all)")
	cmd.Flags().Int32Var(&runOptions, "run-options", 0, "LabVIEW run-options bit field")
	cmd.Flags().BoolVar(&openFrontPanel, "open-frontpanel", false, "open the front panel while the VI runs")
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	var (
		controls      []string
		ignoreMissing bool
	)
	cmd := &cobra.Command{
		Use:   "set <project_path> <target> <vi_path>",
		Short: "Write control values on a VI in a project without running it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseControls(controls)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()

			doc, err := a.listener().SetControls(ctx, client.SetControlsRequest{
				ProjectPath:               args[0],
				TargetName:                args[1],
				VIPath:                    args[2],
				ControlValues:             values,
				IgnoreNonexistentControls: ignoreMissing,
			})
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringArrayVarP(&controls, "control", "c", nil, "control value as name=yaml, repeatable")
	cmd.Flags().BoolVar(&ignoreMissing, "ignore-missing", false, "ignore controls the VI does not have")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var indicators []string
	cmd := &cobra.Command{
		Use:   "get <project_path> <target> <vi_path>",
		Short: "Read indicator values from a VI in a project without running it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()

			doc, err := a.listener().GetIndicators(ctx, client.GetIndicatorsRequest{
				ProjectPath:    args[0],
				TargetName:     args[1],
				VIPath:         args[2],
				IndicatorNames: indicators,
			})
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringArrayVarP(&indicators, "indicator", "i", nil, "indicator to return, repeatable (default all)")
	return cmd
}
