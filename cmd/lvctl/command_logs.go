package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"

	apiv1 "github.com/ni/labview-automation/api/v1"
)

func newLogsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <pid>",
		Short: "Stream stdout/stderr of a process started by lvhelperd, from the beginning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("pid %q: %w", args[0], err)
			}
			remote, err := a.remoteHelpers()
			if err != nil {
				return err
			}
			if remote == nil {
				return errors.New("logs needs --helper-address; output is only captured by lvhelperd")
			}

			err = remote.StreamOutput(cmd.Context(), pid, func(stream string, data []byte) error {
				var w io.Writer
				switch stream {
				case apiv1.StreamStdout:
					w = cmd.OutOrStdout()
				case apiv1.StreamStderr:
					w = cmd.ErrOrStderr()
				default:
					return nil
				}
				_, werr := w.Write(data)
				return werr
			})
			if grpcCode(err) == codes.PermissionDenied {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Forbidden. Only the creator of the process can read its output.")
				return nil
			}
			return err
		},
	}
	return cmd
}
