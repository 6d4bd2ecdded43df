//go:build !windows

package helpers

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startAndResolve(t *testing.T, h *Local, args ...string) (int, string) {
	t.Helper()
	path, err := exec.LookPath(args[0])
	if err != nil {
		t.Skipf("%s not available: %v", args[0], err)
	}
	args[0] = path

	pid, err := h.StartProcess(context.Background(), args)
	require.NoError(t, err)

	p, err := process.NewProcess(int32(pid))
	require.NoError(t, err)
	exe, err := p.Exe()
	require.NoError(t, err)
	return pid, exe
}

func TestLocal_StartFindKill(t *testing.T) {
	h := NewLocal()
	ctx := context.Background()
	pid, exe := startAndResolve(t, h, "sleep", "30")
	t.Cleanup(func() { _ = h.KillProcess(ctx, pid, exe, time.Second) })

	running, err := h.IsProcessRunning(ctx, pid, exe)
	require.NoError(t, err)
	assert.True(t, running)

	found, ok, err := h.FindProcessByExecutable(ctx, strings.ToUpper(exe))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Positive(t, found)

	require.NoError(t, h.KillProcess(ctx, pid, exe, 5*time.Second))

	running, err = h.IsProcessRunning(ctx, pid, exe)
	require.NoError(t, err)
	assert.False(t, running)

	// Killing again is a no-op.
	require.NoError(t, h.KillProcess(ctx, pid, exe, time.Second))
}

func TestLocal_KillHonoursContext(t *testing.T) {
	h := NewLocal()
	pid, exe := startAndResolve(t, h, "sleep", "30")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.KillProcess(ctx, pid, exe, 0)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	require.NoError(t, h.KillProcess(context.Background(), pid, exe, 5*time.Second))
}

func TestLocal_OutputCapturesBothStreams(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("sh not available: %v", err)
	}
	h := NewLocal()
	pid, err := h.StartProcess(context.Background(), []string{sh, "-c", "echo to-stdout; echo to-stderr 1>&2"})
	require.NoError(t, err)

	stdout, stderr, err := h.Output(context.Background(), pid)
	require.NoError(t, err)

	var out, errOut strings.Builder
	timeout := time.After(5 * time.Second)
	for stdout != nil || stderr != nil {
		select {
		case chunk, ok := <-stdout:
			if !ok {
				stdout = nil
				continue
			}
			out.Write(chunk)
		case chunk, ok := <-stderr:
			if !ok {
				stderr = nil
				continue
			}
			errOut.Write(chunk)
		case <-timeout:
			t.Fatal("output streams did not finish")
		}
	}
	assert.Equal(t, "to-stdout\n", out.String())
	assert.Equal(t, "to-stderr\n", errOut.String())
}

func TestLocal_ExitedChildDoesNotMaskReusedPID(t *testing.T) {
	h := NewLocal()
	ctx := context.Background()
	pid := os.Getpid()
	self, err := process.NewProcess(int32(pid))
	require.NoError(t, err)
	exe, err := self.Exe()
	require.NoError(t, err)

	done := make(chan struct{})
	close(done)
	h.children[pid] = &child{created: 1, done: done}

	running, err := h.IsProcessRunning(ctx, pid, exe)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Nil(t, h.liveChild(ctx, self))

	// An entry recorded for an earlier process with the same PID is not this one.
	h.children[pid] = &child{created: 1, done: make(chan struct{})}
	assert.Nil(t, h.liveChild(ctx, self))
}

func TestLocal_RetireBoundsExitedChildren(t *testing.T) {
	h := NewLocal()
	last := keepExited + 4
	for pid := 1; pid <= last; pid++ {
		done := make(chan struct{})
		close(done)
		h.children[pid] = &child{done: done}
		h.retire(pid)
	}
	assert.Len(t, h.children, keepExited)
	assert.NotContains(t, h.children, 1)
	assert.Contains(t, h.children, last)
}

func TestLocal_ReaperForgetsOldChildren(t *testing.T) {
	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skipf("true not available: %v", err)
	}
	h := NewLocal()
	ctx := context.Background()
	var pids []int
	for range keepExited + 2 {
		pid, err := h.StartProcess(ctx, []string{truePath})
		require.NoError(t, err)
		pids = append(pids, pid)
	}
	for _, pid := range pids {
		c := h.child(pid)
		if c == nil {
			continue
		}
		select {
		case <-c.done:
		case <-time.After(5 * time.Second):
			t.Fatalf("pid %d did not exit", pid)
		}
	}
	assert.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.children) <= keepExited
	}, 5*time.Second, 10*time.Millisecond)
}
