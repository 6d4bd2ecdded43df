// Package labview controls one LabVIEW instance: it launches or adopts the
// process, waits for the automation listener, hands out clients and kills it.
package labview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/client"
	"github.com/ni/labview-automation/pkg/lib/clock"
	"github.com/ni/labview-automation/pkg/lib/helpers"
	"github.com/ni/labview-automation/pkg/lib/logging"
	"github.com/ni/labview-automation/pkg/lib/lvini"
	"github.com/ni/labview-automation/pkg/lib/metrics"
	"github.com/ni/labview-automation/pkg/lib/supervisor"
)

// LabVIEW is the lifecycle controller for one instance.
//
// Lifecycle operations (Start, Restart, Kill, Attach) are serialized; queries
// may run alongside them.
type LabVIEW struct {
	host         string
	version      string
	bitness      string
	server       lib.ServerConfiguration
	helpers      helpers.SystemHelpers
	supervisor   *supervisor.Supervisor
	clock        clock.Clock
	pollInterval time.Duration
	logger       *slog.Logger
	metrics      *metrics.Registry
	clientOpts   []client.Option
	options      *lvini.Options

	op sync.Mutex

	mu           sync.Mutex
	installation *lib.Installation
	handle       lib.ProcessHandle
	state        lib.LifecycleState
}

// New creates a controller in the NotStarted state. Nothing touches the host until a method needs it.
func New(opts ...Option) (*LabVIEW, error) {
	l := &LabVIEW{
		host:         "localhost",
		server:       lib.DefaultServerConfiguration(),
		clock:        clock.Real(),
		pollInterval: DefaultPollInterval,
		logger:       logging.Discard(),
		options:      lvini.Defaults(),
		state:        lib.StateNotStarted,
	}
	for _, opt := range opts {
		opt(l)
	}

	bitness, err := helpers.ValidateBitness(l.bitness)
	if err != nil {
		return nil, err
	}
	l.bitness = bitness
	if l.server.Enabled && l.server.Port == 0 {
		return nil, &lib.ConfigurationError{Field: "server port", Reason: "must be set when the automation server is enabled"}
	}
	if l.pollInterval <= 0 {
		return nil, &lib.ConfigurationError{Field: "poll interval", Reason: "must be positive"}
	}
	if l.options == nil {
		l.options = lvini.Empty()
	}
	if l.helpers == nil {
		if !isLocalHost(l.host) {
			return nil, &lib.ConfigurationError{Field: "helpers", Reason: fmt.Sprintf("host %q is remote; a remote helper is required", l.host)}
		}
		l.helpers = helpers.NewLocal(helpers.WithLocalLogger(l.logger))
	}

	l.logger = l.logger.With("host", l.host)
	l.supervisor = supervisor.New(l.helpers, supervisor.WithLogger(l.logger), supervisor.WithMetrics(l.metrics))
	return l, nil
}

func isLocalHost(host string) bool {
	switch strings.ToLower(host) {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Host returns the machine LabVIEW runs on.
func (l *LabVIEW) Host() string { return l.host }

// Server returns the automation listener configuration.
func (l *LabVIEW) Server() lib.ServerConfiguration { return l.server }

// Options returns the INI tokens written on every Start. Changes apply to the next Start.
func (l *LabVIEW) Options() *lvini.Options { return l.options }

// DisableDialogs suppresses dialogs that would block an unattended instance.
func (l *LabVIEW) DisableDialogs() { l.options.DisableDialogs() }

// DisableNIErrorReporting turns NI Error Reporting off.
func (l *LabVIEW) DisableNIErrorReporting() { l.options.DisableNIErrorReporting() }

// AddToSearchPath adds path to the VI search path, in front unless appendPath is set.
func (l *LabVIEW) AddToSearchPath(path string, appendPath bool) {
	l.options.AddToSearchPath(path, appendPath)
}

// State returns the current lifecycle state.
func (l *LabVIEW) State() lib.LifecycleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// PID returns the tracked process id, 0 when none.
func (l *LabVIEW) PID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle.PID
}

func (l *LabVIEW) setState(s lib.LifecycleState) {
	l.mu.Lock()
	prev := l.state
	l.state = s
	l.mu.Unlock()
	if prev != s {
		l.logger.Debug("lifecycle transition", "from", prev, "to", s)
	}
}

func (l *LabVIEW) currentHandle() lib.ProcessHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle
}

func (l *LabVIEW) setHandle(h lib.ProcessHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handle = h
}

// Installation locates the LabVIEW installation once and caches it.
func (l *LabVIEW) Installation(ctx context.Context) (lib.Installation, error) {
	l.mu.Lock()
	cached := l.installation
	l.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	inst, err := l.helpers.LocateInstallation(ctx, l.version, l.bitness)
	if err != nil {
		return lib.Installation{}, fmt.Errorf("locate labview %q %q: %w", l.version, l.bitness, err)
	}
	l.mu.Lock()
	l.installation = &inst
	l.mu.Unlock()
	return inst, nil
}

// Executable returns the path of the LabVIEW executable.
func (l *LabVIEW) Executable(ctx context.Context) (string, error) {
	inst, err := l.Installation(ctx)
	if err != nil {
		return "", err
	}
	return inst.Executable, nil
}

// IsRunning reports whether the tracked process is alive and still LabVIEW.
func (l *LabVIEW) IsRunning(ctx context.Context) (bool, error) {
	return l.supervisor.IsRunning(ctx, l.currentHandle())
}

// MemoryUsage returns the resident memory of the tracked process, 0 when it is not running.
func (l *LabVIEW) MemoryUsage(ctx context.Context) (uint64, error) {
	return l.supervisor.MemoryUsage(ctx, l.currentHandle())
}

// Client returns a client for the automation listener. It fails with
// lib.ErrNotStarted when LabVIEW is not running or runs without the listener.
func (l *LabVIEW) Client(ctx context.Context) (*client.Client, error) {
	running, err := l.IsRunning(ctx)
	if err != nil {
		return nil, err
	}
	if !running {
		return nil, fmt.Errorf("start labview before talking to it: %w", lib.ErrNotStarted)
	}
	if !l.server.Enabled {
		return nil, fmt.Errorf("labview was started without the automation server: %w", lib.ErrNotStarted)
	}
	return l.newClient(), nil
}

func (l *LabVIEW) newClient() *client.Client {
	opts := append([]client.Option{client.WithLogger(l.logger), client.WithMetrics(l.metrics)}, l.clientOpts...)
	return client.New(l.host, l.server.Port, opts...)
}

// Start launches LabVIEW with the generated INI, or adopts an instance that is
// already running. With the automation server enabled and wait set, Start
// returns once the listener accepts connections or fails with *lib.TimeoutError.
func (l *LabVIEW) Start(ctx context.Context, wait bool, timeout time.Duration) error {
	l.op.Lock()
	defer l.op.Unlock()
	return l.start(ctx, wait, timeout)
}

func (l *LabVIEW) start(ctx context.Context, wait bool, timeout time.Duration) error {
	exe, err := l.Executable(ctx)
	if err != nil {
		return err
	}
	sections, err := l.options.Sections()
	if err != nil {
		return err
	}
	ini, err := l.helpers.CreateTempINI(ctx, sections)
	if err != nil {
		return fmt.Errorf("create labview ini: %w", err)
	}

	running, err := l.IsRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		l.logger.Warn("labview instance was already launched", "pid", l.PID())
		if l.server.Enabled {
			pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := l.newClient().Ping(pingCtx)
			cancel()
			if err != nil {
				// Attached or adopted without the listener: pass it the listener arguments.
				l.logger.Info("running labview is not listening, handing off listener arguments", "pid", l.PID(), "error", err)
				if err := l.handOff(ctx, exe, ini); err != nil {
					return err
				}
				if wait {
					return l.waitUntilServerLoaded(ctx, timeout)
				}
			}
		}
		l.setState(lib.StateRunning)
		return nil
	}

	l.setState(lib.StateStarting)
	if err := l.launch(ctx, exe, ini); err != nil {
		l.setState(lib.StateStopped)
		return err
	}

	if l.server.Enabled && wait {
		return l.waitUntilServerLoaded(ctx, timeout)
	}
	l.setState(lib.StateRunning)
	return nil
}

func (l *LabVIEW) launch(ctx context.Context, exe, ini string) error {
	if !l.server.Enabled {
		handle, _, err := l.supervisor.Start(ctx, exe, []string{"-pref", ini})
		if err != nil {
			return err
		}
		l.setHandle(handle)
		return nil
	}

	args, err := l.listenerLaunchArgs(ctx, ini)
	if err != nil {
		return err
	}
	handle, adopted, err := l.supervisor.Start(ctx, exe, args)
	if err != nil {
		return err
	}
	l.setHandle(handle)
	if adopted {
		// The adopted instance never saw the listener arguments.
		return l.supervisor.HandOff(ctx, exe, args)
	}
	return nil
}

func (l *LabVIEW) handOff(ctx context.Context, exe, ini string) error {
	args, err := l.listenerLaunchArgs(ctx, ini)
	if err != nil {
		return err
	}
	return l.supervisor.HandOff(ctx, exe, args)
}

func (l *LabVIEW) listenerLaunchArgs(ctx context.Context, ini string) ([]string, error) {
	vi, err := l.helpers.ListenerVIPath(ctx)
	if err != nil {
		return nil, fmt.Errorf("locate listener VI: %w", err)
	}
	return listenerArgs(vi, ini, l.server), nil
}

func listenerArgs(vi, ini string, cfg lib.ServerConfiguration) []string {
	args := []string{
		vi,
		"-pref", ini,
		"--",
		"--port", strconv.Itoa(int(cfg.Port)),
		"--timeout", strconv.FormatInt(cfg.TCPTimeout().Milliseconds(), 10),
	}
	if cfg.LogPath != "" {
		args = append(args, "--reportfile", cfg.LogPath)
	}
	if cfg.ErrorLogPath != "" {
		args = append(args, "--errorfile", cfg.ErrorLogPath)
	}
	return args
}

// probeTimeout bounds a single readiness connection attempt. Attempts are also
// cut at the wait deadline, but never shorter than minProbeTimeout.
const (
	probeTimeout    = 5 * time.Second
	minProbeTimeout = 10 * time.Millisecond
)

// WaitUntilServerLoaded polls the listener until it accepts a connection.
// A refused connection means "not yet"; at or past the deadline the wait
// fails with *lib.TimeoutError. Cancelling ctx ends the wait early.
func (l *LabVIEW) WaitUntilServerLoaded(ctx context.Context, timeout time.Duration) error {
	l.op.Lock()
	defer l.op.Unlock()
	return l.waitUntilServerLoaded(ctx, timeout)
}

func (l *LabVIEW) waitUntilServerLoaded(ctx context.Context, timeout time.Duration) error {
	l.setState(lib.StateServerWaiting)
	probe := l.newClient()
	started := l.clock.Now()
	deadline := started.Add(timeout)
	attempts := 0

	for {
		attempts++
		limit := max(min(probeTimeout, deadline.Sub(l.clock.Now())), minProbeTimeout)
		probeCtx, cancel := context.WithTimeout(ctx, limit)
		err := probe.Ping(probeCtx)
		cancel()
		l.metrics.ReadinessProbe(err == nil)
		now := l.clock.Now()
		if err == nil {
			l.metrics.ObserveReadiness(now.Sub(started))
			l.logger.Info("automation server is ready", "port", l.server.Port, "attempts", attempts, "waited", now.Sub(started))
			l.setState(lib.StateRunning)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("waiting for labview server: %w", ctxErr)
		}
		if !now.Before(deadline) {
			l.metrics.LifecycleEvent("readiness_timeout")
			l.logger.Warn("automation server did not load in time", "timeout", timeout, "attempts", attempts, "error", err)
			return &lib.TimeoutError{Op: "waiting for labview server to load", Timeout: timeout}
		}
		l.logger.Debug("automation server not ready", "attempt", attempts, "error", err)

		pause := min(l.pollInterval, deadline.Sub(now))
		if err := l.clock.Sleep(ctx, pause); err != nil {
			return fmt.Errorf("waiting for labview server: %w", err)
		}
	}
}

// Restart kills a running instance, ignoring a kill timeout, and starts again.
func (l *LabVIEW) Restart(ctx context.Context, wait bool, timeout time.Duration) error {
	l.op.Lock()
	defer l.op.Unlock()

	running, err := l.IsRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		if err := l.kill(ctx, timeout); err != nil {
			return err
		}
	}
	l.metrics.LifecycleEvent("restart")
	return l.start(ctx, wait, timeout)
}

// Kill terminates the tracked process and forgets its PID, even when it did
// not exit within timeout. Only failures other than a timeout are returned.
func (l *LabVIEW) Kill(ctx context.Context, timeout time.Duration) error {
	l.op.Lock()
	defer l.op.Unlock()
	return l.kill(ctx, timeout)
}

func (l *LabVIEW) kill(ctx context.Context, timeout time.Duration) error {
	handle := l.currentHandle()
	err := l.supervisor.Kill(ctx, handle, timeout)

	l.setHandle(lib.ProcessHandle{})
	if handle.Known() || l.State() != lib.StateNotStarted {
		l.setState(lib.StateStopped)
	}

	if errors.Is(err, lib.ErrKillTimeout) {
		l.metrics.LifecycleEvent("kill_timeout")
		l.logger.Warn("labview did not exit in time", "pid", handle.PID, "timeout", timeout)
		return nil
	}
	return err
}

// Attach adopts a LabVIEW instance of the configured installation that was
// launched out-of-band. It reports whether one was found.
func (l *LabVIEW) Attach(ctx context.Context) (bool, error) {
	l.op.Lock()
	defer l.op.Unlock()

	exe, err := l.Executable(ctx)
	if err != nil {
		return false, err
	}
	handle, found, err := l.supervisor.Adopt(ctx, exe)
	if err != nil || !found {
		return false, err
	}
	l.setHandle(handle)
	l.setState(lib.StateRunning)
	return true, nil
}

// CopyToLabVIEWDir copies src into relative below the installation directory,
// makes the copy writable and returns its path.
func (l *LabVIEW) CopyToLabVIEWDir(ctx context.Context, src, relative string) (string, error) {
	inst, err := l.Installation(ctx)
	if err != nil {
		return "", err
	}
	dst := joinInstallPath(inst.Dir, relative)
	if err := l.helpers.CopyTree(ctx, src, dst); err != nil {
		return "", err
	}
	if err := l.helpers.MakeWritable(ctx, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// joinInstallPath joins with the separator the install directory already uses,
// since the installation may live on a host with a different OS.
func joinInstallPath(dir, relative string) string {
	if strings.Contains(dir, `\`) {
		relative = strings.Trim(strings.ReplaceAll(relative, "/", `\`), `\`)
		return strings.TrimRight(dir, `\`) + `\` + relative
	}
	return path.Join(dir, relative)
}
