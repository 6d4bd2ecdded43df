// Package helperstest provides an in-memory SystemHelpers with a simulated process table.
package helperstest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/helpers"
)

// Fake is safe for concurrent use. Set fields before handing it out.
type Fake struct {
	Installation lib.Installation
	InstallErr   error
	ListenerVI   string
	Memory       uint64
	// KillErr is returned by KillProcess; the process is removed only when it is nil.
	KillErr error
	// OnStart runs after a process is added to the table.
	OnStart func(pid int, args []string)

	mu        sync.Mutex
	nextPID   int
	processes map[int]string
	started   [][]string
	inis      [][]lib.INISection
	kills     []int
	copies    [][2]string
	writable  []string
	locates   [][2]string
}

var _ helpers.SystemHelpers = (*Fake)(nil)

func New(inst lib.Installation) *Fake {
	return &Fake{
		Installation: inst,
		ListenerVI:   "/opt/listener/Splash Screen.vi",
		Memory:       512 << 20,
		nextPID:      1000,
		processes:    make(map[int]string),
	}
}

// Spawn adds a process out-of-band, as if someone launched it by hand.
func (f *Fake) Spawn(executable string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPID++
	f.processes[f.nextPID] = executable
	return f.nextPID
}

// Exit removes a process as if it had exited on its own.
func (f *Fake) Exit(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.processes, pid)
}

// Started returns the argument vectors passed to StartProcess.
func (f *Fake) Started() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.started...)
}

// INIs returns the sections passed to CreateTempINI.
func (f *Fake) INIs() [][]lib.INISection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]lib.INISection(nil), f.inis...)
}

// Kills returns the PIDs passed to KillProcess.
func (f *Fake) Kills() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.kills...)
}

// Copies returns the (src, dst) pairs passed to CopyTree.
func (f *Fake) Copies() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]string(nil), f.copies...)
}

// Writable returns the paths passed to MakeWritable.
func (f *Fake) Writable() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writable...)
}

// Locates returns the (version, bitness) pairs passed to LocateInstallation.
func (f *Fake) Locates() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]string(nil), f.locates...)
}

// Running reports whether pid is in the table.
func (f *Fake) Running(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.processes[pid]
	return ok
}

func (f *Fake) LocateInstallation(_ context.Context, version, bitness string) (lib.Installation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locates = append(f.locates, [2]string{version, bitness})
	if f.InstallErr != nil {
		return lib.Installation{}, f.InstallErr
	}
	return f.Installation, nil
}

func (f *Fake) ListenerVIPath(context.Context) (string, error) {
	return f.ListenerVI, nil
}

func (f *Fake) CreateTempINI(_ context.Context, sections []lib.INISection) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inis = append(f.inis, sections)
	return fmt.Sprintf("/tmp/labview-%d.ini", len(f.inis)), nil
}

func (f *Fake) StartProcess(_ context.Context, args []string) (int, error) {
	if len(args) == 0 {
		return 0, &lib.ConfigurationError{Field: "command", Reason: "executable is required"}
	}
	f.mu.Lock()
	f.nextPID++
	pid := f.nextPID
	f.processes[pid] = args[0]
	f.started = append(f.started, append([]string(nil), args...))
	hook := f.OnStart
	f.mu.Unlock()

	if hook != nil {
		hook(pid, args)
	}
	return pid, nil
}

func (f *Fake) FindProcessByExecutable(_ context.Context, path string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := 0
	for pid, exe := range f.processes {
		if lib.SamePath(exe, path) && (found == 0 || pid < found) {
			found = pid
		}
	}
	return found, found != 0, nil
}

func (f *Fake) IsProcessRunning(_ context.Context, pid int, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exe, ok := f.processes[pid]
	return ok && lib.SamePath(exe, path), nil
}

func (f *Fake) KillProcess(_ context.Context, pid int, path string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	exe, ok := f.processes[pid]
	if !ok || !lib.SamePath(exe, path) {
		return nil
	}
	f.kills = append(f.kills, pid)
	if f.KillErr != nil {
		return f.KillErr
	}
	delete(f.processes, pid)
	return nil
}

func (f *Fake) MemoryOf(_ context.Context, pid int, path string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exe, ok := f.processes[pid]
	if !ok || !lib.SamePath(exe, path) {
		return 0, nil
	}
	return f.Memory, nil
}

func (f *Fake) CopyTree(_ context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, [2]string{src, dst})
	return nil
}

func (f *Fake) MakeWritable(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writable = append(f.writable, path)
	return nil
}
