package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ni/labview-automation/pkg/lib/client"
	"github.com/ni/labview-automation/pkg/lib/config"
	"github.com/ni/labview-automation/pkg/lib/helpers"
	"github.com/ni/labview-automation/pkg/lib/labview"
	"github.com/ni/labview-automation/pkg/lib/logging"
)

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"host":           "host",
	"port":           "server.port",
	"lv-version":     "labview.version",
	"bitness":        "labview.bitness",
	"helper-address": "helper.address",
	"log-level":      "logging.level",
}

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	v          *viper.Viper
	cfg        *config.Config
	logger     *slog.Logger
	closers    []io.Closer

	// helpers replaces the local helpers when no lvhelperd is configured.
	helpers    helpers.SystemHelpers
	clientOpts []client.Option
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{logger: logging.Discard()})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "lvctl",
		Short:         "Launch, supervise and drive LabVIEW",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default "+config.File()+")")
	flags.String("host", "", "machine LabVIEW runs on")
	flags.Int("port", 0, "automation server port")
	flags.String("lv-version", "", "LabVIEW version to select, e.g. 2020")
	flags.String("bitness", "", `LabVIEW bitness, "x86" or "x64"`)
	flags.String("helper-address", "", "host:port of the lvhelperd managing a remote host")
	flags.String("log-level", "", "debug, info, warn or error")

	root.AddCommand(newStartCmd(a))
	root.AddCommand(newRestartCmd(a))
	root.AddCommand(newKillCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newRunCmd(a))
	root.AddCommand(newSetCmd(a))
	root.AddCommand(newGetCmd(a))
	root.AddCommand(newDescribeErrorCmd(a))
	root.AddCommand(newLogsCmd(a))

	return root
}

func (a *app) load(cmd *cobra.Command) error {
	v, err := config.New(a.configPath)
	if err != nil {
		return err
	}
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
			return err
		}
	}
	a.v = v

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, closer)
	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// remoteHelpers dials the configured lvhelperd, or returns nil when none is configured.
func (a *app) remoteHelpers() (*helpers.Remote, error) {
	if a.cfg.Helper.Address == "" {
		return nil, nil
	}
	remote, err := dialHelpers(a.cfg.Helper.Address)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, remote)
	return remote, nil
}

// controller builds a LabVIEW controller and adopts the instance that is
// already running, if any. lvctl keeps no state between invocations; Start on
// an adopted instance that is not listening hands it the listener arguments.
func (a *app) controller(ctx context.Context, opts ...labview.Option) (*labview.LabVIEW, bool, error) {
	base := []labview.Option{
		labview.WithHost(a.cfg.Host),
		labview.WithVersion(a.cfg.LabVIEW.Version),
		labview.WithBitness(a.cfg.LabVIEW.Bitness),
		labview.WithServer(a.cfg.ServerConfiguration()),
		labview.WithPollInterval(a.cfg.Start.PollInterval),
		labview.WithLogger(a.logger),
		labview.WithClientOptions(a.clientOpts...),
	}
	remote, err := a.remoteHelpers()
	if err != nil {
		return nil, false, err
	}
	switch {
	case remote != nil:
		base = append(base, labview.WithHelpers(remote))
	case a.helpers != nil:
		base = append(base, labview.WithHelpers(a.helpers))
	}

	lv, err := labview.New(append(base, opts...)...)
	if err != nil {
		return nil, false, err
	}
	attached, err := lv.Attach(ctx)
	if err != nil {
		return nil, false, err
	}
	return lv, attached, nil
}

// listener returns a client for the automation server without touching the process.
func (a *app) listener() *client.Client {
	opts := append([]client.Option{client.WithLogger(a.logger)}, a.clientOpts...)
	return client.New(a.cfg.Host, uint16(a.cfg.Server.Port), opts...)
}
