// Package supervisor tracks one application process through the SystemHelpers
// capability: launch or adopt, liveness, memory and kill. Every query re-checks
// the PID against the executable path, so a reused PID never matches.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/helpers"
	"github.com/ni/labview-automation/pkg/lib/logging"
	"github.com/ni/labview-automation/pkg/lib/metrics"
)

// Supervisor launches, adopts and kills processes through a SystemHelpers.
// It holds no process state; callers keep the returned lib.ProcessHandle.
type Supervisor struct {
	helpers helpers.SystemHelpers
	logger  *slog.Logger
	metrics *metrics.Registry
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithMetrics records lifecycle events in r. A nil registry records nothing.
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Supervisor) { s.metrics = r }
}

// New returns a Supervisor acting through h.
func New(h helpers.SystemHelpers, opts ...Option) *Supervisor {
	s := &Supervisor{helpers: h, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start adopts a process already running executable, or launches executable
// with args. adopted reports which happened; an adopted process did not receive args.
func (s *Supervisor) Start(ctx context.Context, executable string, args []string) (handle lib.ProcessHandle, adopted bool, err error) {
	handle, adopted, err = s.Adopt(ctx, executable)
	if err != nil || adopted {
		return handle, adopted, err
	}

	pid, err := s.helpers.StartProcess(ctx, append([]string{executable}, args...))
	if err != nil {
		return lib.ProcessHandle{}, false, fmt.Errorf("launch %s: %w", executable, err)
	}
	s.logger.Info("launched process", "pid", pid, "executable", executable)
	s.metrics.LifecycleEvent("launch")
	return lib.ProcessHandle{PID: pid, ExecutablePath: executable}, false, nil
}

// Adopt returns a handle for a process already running executable without launching anything.
func (s *Supervisor) Adopt(ctx context.Context, executable string) (lib.ProcessHandle, bool, error) {
	pid, found, err := s.helpers.FindProcessByExecutable(ctx, executable)
	if err != nil {
		return lib.ProcessHandle{}, false, fmt.Errorf("look for running %s: %w", executable, err)
	}
	if !found {
		return lib.ProcessHandle{}, false, nil
	}
	s.logger.Info("adopted running process", "pid", pid, "executable", executable)
	s.metrics.LifecycleEvent("adopt")
	return lib.ProcessHandle{PID: pid, ExecutablePath: executable}, true, nil
}

// HandOff runs executable with args without tracking the new PID. A single-instance
// application forwards the arguments to its running instance and exits.
func (s *Supervisor) HandOff(ctx context.Context, executable string, args []string) error {
	pid, err := s.helpers.StartProcess(ctx, append([]string{executable}, args...))
	if err != nil {
		return fmt.Errorf("hand off arguments to %s: %w", executable, err)
	}
	s.logger.Debug("handed off arguments", "pid", pid, "executable", executable)
	return nil
}

// IsRunning reports whether the handle's PID is alive and still runs its executable.
func (s *Supervisor) IsRunning(ctx context.Context, h lib.ProcessHandle) (bool, error) {
	if !h.Known() {
		return false, nil
	}
	running, err := s.helpers.IsProcessRunning(ctx, h.PID, h.ExecutablePath)
	if err != nil {
		return false, fmt.Errorf("check pid %d: %w", h.PID, err)
	}
	return running, nil
}

// MemoryUsage returns the resident memory of the process, or 0 when the handle does not match.
func (s *Supervisor) MemoryUsage(ctx context.Context, h lib.ProcessHandle) (uint64, error) {
	if !h.Known() {
		return 0, nil
	}
	bytes, err := s.helpers.MemoryOf(ctx, h.PID, h.ExecutablePath)
	if err != nil {
		return 0, fmt.Errorf("memory of pid %d: %w", h.PID, err)
	}
	return bytes, nil
}

// Kill force-terminates the process and waits up to timeout for it to exit.
// An unmatched handle is a no-op. A process that outlives the wait yields an
// error wrapping lib.ErrKillTimeout; deciding what that means is up to the caller.
func (s *Supervisor) Kill(ctx context.Context, h lib.ProcessHandle, timeout time.Duration) error {
	if !h.Known() {
		return nil
	}
	s.logger.Info("killing process", "pid", h.PID, "executable", h.ExecutablePath, "timeout", timeout)
	s.metrics.LifecycleEvent("kill")
	if err := s.helpers.KillProcess(ctx, h.PID, h.ExecutablePath, timeout); err != nil {
		return fmt.Errorf("kill pid %d: %w", h.PID, err)
	}
	return nil
}
