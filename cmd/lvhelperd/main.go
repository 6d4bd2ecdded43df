package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ni/labview-automation/pkg/lib/config"
	"github.com/ni/labview-automation/pkg/lib/logging"
)

var flagKeys = map[string]string{
	"address":         "daemon.address",
	"metrics-address": "daemon.metrics_address",
	"temp-dir":        "daemon.temp_dir",
	"listener-vi":     "daemon.listener_vi",
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"log-file":        "logging.file",
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "lvhelperd",
		Short:         "Serve LabVIEW installation lookup and process control to remote lvctl clients",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.New(configPath)
			if err != nil {
				return err
			}
			for flag, key := range flagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			logger, closer, err := logging.New(cfg.LoggingOptions())
			if err != nil {
				return err
			}
			defer closer.Close()

			d, err := newDaemon(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}
			logger.Info("server (TLS) listening", "address", d.Addr(), "metrics", cfg.Daemon.MetricsAddress)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return d.Serve(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "config file (default "+config.File()+")")
	flags.String("address", "", "host:port to serve gRPC on")
	flags.String("metrics-address", "", "host:port to serve /metrics on; empty disables it")
	flags.String("temp-dir", "", "directory for generated LabVIEW INI files")
	flags.String("listener-vi", "", "path of the listener launcher VI")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "text or json")
	flags.String("log-file", "", "write logs to this file instead of stderr")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
