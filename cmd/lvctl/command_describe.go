package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newDescribeErrorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe-error <code> <source>",
		Short: "Print LabVIEW's description of an error code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("error code %q: %w", args[0], err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			msg, err := a.listener().DescribeError(ctx, int32(code), args[1], true)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	return cmd
}
