package helpers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/capture"
)

// StartProcess launches args[0] with the remaining arguments in its own process
// group and returns its PID. The process outlives ctx.
func (h *Local) StartProcess(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 || args[0] == "" {
		return 0, &lib.ConfigurationError{Field: "command", Reason: "executable is required"}
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = sysProcAttr()

	c := &child{
		args:   append([]string(nil), args...),
		stdout: capture.NewBuffer(),
		stderr: capture.NewBuffer(),
		done:   make(chan struct{}),
	}
	// Stdin is left nil, so it reads from the null device.
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	if err := cmd.Start(); err != nil {
		h.logger.Warn("failed to start process", "command", args[0], "error", err)
		return 0, fmt.Errorf("start %s: %w", args[0], err)
	}
	pid := cmd.Process.Pid
	if p, err := process.NewProcessWithContext(ctx, int32(pid)); err == nil {
		c.created, _ = p.CreateTimeWithContext(ctx)
	}

	h.mu.Lock()
	h.children[pid] = c
	h.mu.Unlock()
	h.logger.Info("started process", "pid", pid, "command", args[0])

	go func() {
		err := cmd.Wait()
		c.stdout.Close()
		c.stderr.Close()
		close(c.done)
		h.retire(pid)
		h.logger.Info("process exited", "pid", pid, "error", err)
	}()

	return pid, nil
}

// FindProcessByExecutable returns the PID of a live process running path.
func (h *Local) FindProcessByExecutable(ctx context.Context, path string) (int, bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("list processes: %w", err)
	}
	for _, p := range procs {
		exe, err := p.ExeWithContext(ctx)
		if err != nil || !lib.SamePath(exe, path) {
			continue
		}
		if running, _ := h.alive(ctx, p); running {
			return int(p.Pid), true, nil
		}
	}
	return 0, false, nil
}

// IsProcessRunning reports whether pid is alive and running path. Zombies are not running.
func (h *Local) IsProcessRunning(ctx context.Context, pid int, path string) (bool, error) {
	p, ok := h.lookup(ctx, pid, path)
	if !ok {
		return false, nil
	}
	return h.alive(ctx, p)
}

// MemoryOf returns the resident set size of pid, or 0 when it is not running path.
func (h *Local) MemoryOf(ctx context.Context, pid int, path string) (uint64, error) {
	p, ok := h.lookup(ctx, pid, path)
	if !ok {
		return 0, nil
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("memory of pid %d: %w", pid, err)
	}
	return mem.RSS, nil
}

// KillProcess force-terminates pid if it is running path and waits for it to exit.
// Processes started by this Local are killed together with their process group.
func (h *Local) KillProcess(ctx context.Context, pid int, path string, timeout time.Duration) error {
	p, ok := h.lookup(ctx, pid, path)
	if !ok {
		return nil
	}

	c := h.liveChild(ctx, p)
	var err error
	if c != nil {
		err = killGroup(pid)
	} else {
		err = p.KillWithContext(ctx)
	}
	if err != nil {
		if running, _ := h.alive(ctx, p); running {
			return fmt.Errorf("kill pid %d: %w", pid, err)
		}
	}
	h.logger.Info("killed process", "pid", pid, "executable", path)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if c != nil {
		return waitExit(ctx, pid, c.done)
	}
	return h.pollExit(ctx, p)
}

func waitExit(ctx context.Context, pid int, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return exitWaitError(ctx, pid)
	}
}

func (h *Local) pollExit(ctx context.Context, p *process.Process) error {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()
	for {
		if running, err := h.alive(ctx, p); err == nil && !running {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return exitWaitError(ctx, int(p.Pid))
		}
	}
}

func exitWaitError(ctx context.Context, pid int) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("pid %d: %w", pid, lib.ErrKillTimeout)
	}
	return fmt.Errorf("waiting for pid %d: %w", pid, ctx.Err())
}

// Output streams the captured stdout and stderr of a process started by this Local.
func (h *Local) Output(ctx context.Context, pid int) (<-chan []byte, <-chan []byte, error) {
	c := h.child(pid)
	if c == nil {
		return nil, nil, fmt.Errorf("output of pid %d: %w", pid, os.ErrNotExist)
	}
	return c.stdout.Subscribe(ctx, 16), c.stderr.Subscribe(ctx, 16), nil
}

func (h *Local) child(pid int) *child {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.children[pid]
}

// liveChild returns the child behind p only while it is still running and p is
// the same process, not a later one that reused its PID.
func (h *Local) liveChild(ctx context.Context, p *process.Process) *child {
	c := h.child(int(p.Pid))
	if c == nil || c.exited() {
		return nil
	}
	if c.created != 0 {
		if created, err := p.CreateTimeWithContext(ctx); err == nil && created != c.created {
			return nil
		}
	}
	return c
}

// retire records that pid exited and forgets the oldest exited children beyond keepExited.
func (h *Local) retire(pid int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reaped = append(h.reaped, pid)
	for len(h.reaped) > keepExited {
		old := h.reaped[0]
		h.reaped = h.reaped[1:]
		// A later StartProcess may have reused the PID.
		if c, ok := h.children[old]; ok && c.exited() {
			delete(h.children, old)
		}
	}
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// lookup returns the process only when pid exists and runs path; PIDs get reused.
func (h *Local) lookup(ctx context.Context, pid int, path string) (*process.Process, bool) {
	if pid <= 0 || path == "" {
		return nil, false
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, false
	}
	exe, err := p.ExeWithContext(ctx)
	if err != nil {
		h.logger.Debug("cannot read executable", "pid", pid, "error", err)
		return nil, false
	}
	if !lib.SamePath(exe, path) {
		h.logger.Debug("pid runs a different executable", "pid", pid, "executable", exe, "expected", path)
		return nil, false
	}
	return p, true
}

func (h *Local) alive(ctx context.Context, p *process.Process) (bool, error) {
	running, err := p.IsRunningWithContext(ctx)
	if err != nil || !running {
		return false, err
	}
	status, err := p.StatusWithContext(ctx)
	if err == nil && slices.Contains(status, process.Zombie) {
		return false, nil
	}
	return true, nil
}
