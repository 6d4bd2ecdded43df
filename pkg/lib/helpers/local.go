package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/capture"
	"github.com/ni/labview-automation/pkg/lib/logging"
)

// InstallationLookup enumerates LabVIEW installations on this machine.
type InstallationLookup interface {
	// Installed returns the install directory of every LabVIEW version.
	Installed(ctx context.Context) ([]string, error)
	// Active returns the install directory of the version the OS treats as current.
	Active(ctx context.Context) (string, error)
}

// Local implements SystemHelpers on the current machine.
type Local struct {
	logger       *slog.Logger
	listenerVI   string
	tempDir      string
	pollInterval time.Duration
	installs     InstallationLookup
	os64         func(ctx context.Context) (bool, error)

	mu       sync.Mutex
	children map[int]*child
	// reaped lists exited children oldest first; only keepExited of them are retained.
	reaped []int
}

// keepExited bounds how many exited children keep their output for Output.
const keepExited = 16

// child is a process started by Local. done is closed by the reaper once Wait returns.
// created is the gopsutil create time in milliseconds, zero when it could not be read.
type child struct {
	args    []string
	created int64
	stdout  *capture.Buffer
	stderr  *capture.Buffer
	done    chan struct{}
}

type LocalOption func(*Local)

// WithLocalLogger sets the logger. The default discards everything.
func WithLocalLogger(l *slog.Logger) LocalOption {
	return func(h *Local) { h.logger = l }
}

// WithListenerVI overrides the location of the listener launcher VI.
func WithListenerVI(path string) LocalOption {
	return func(h *Local) { h.listenerVI = path }
}

// WithTempDir sets where CreateTempINI writes. Empty uses os.TempDir.
func WithTempDir(dir string) LocalOption {
	return func(h *Local) { h.tempDir = dir }
}

// WithInstallations replaces the registry or filesystem installation lookup.
func WithInstallations(lookup InstallationLookup) LocalOption {
	return func(h *Local) { h.installs = lookup }
}

// WithOS64 replaces OS bitness detection.
func WithOS64(os64 bool) LocalOption {
	return func(h *Local) {
		h.os64 = func(context.Context) (bool, error) { return os64, nil }
	}
}

// WithKillPollInterval sets how often KillProcess checks a process it did not start.
func WithKillPollInterval(d time.Duration) LocalOption {
	return func(h *Local) { h.pollInterval = d }
}

func NewLocal(opts ...LocalOption) *Local {
	h := &Local{
		logger:       logging.Discard(),
		pollInterval: 50 * time.Millisecond,
		installs:     systemInstallations{},
		os64:         hostIs64Bit,
		children:     make(map[int]*child),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ SystemHelpers = (*Local)(nil)
var _ OutputSource = (*Local)(nil)

func hostIs64Bit(context.Context) (bool, error) {
	arch, err := host.KernelArch()
	if err != nil {
		return false, fmt.Errorf("detect OS architecture: %w", err)
	}
	return strings.HasSuffix(arch, "64"), nil
}

// LocateInstallation resolves the install directory and executable. An empty
// version selects the active installation and ignores bitness.
func (h *Local) LocateInstallation(ctx context.Context, version, bitness string) (lib.Installation, error) {
	var dir string
	if version == "" {
		active, err := h.installs.Active(ctx)
		if err != nil {
			return lib.Installation{}, err
		}
		dir = active
	} else {
		os64, err := h.os64(ctx)
		if err != nil {
			return lib.Installation{}, err
		}
		candidates, err := h.installs.Installed(ctx)
		if err != nil {
			return lib.Installation{}, err
		}
		dir, err = SelectInstallation(candidates, version, bitness, os64)
		if err != nil {
			return lib.Installation{}, err
		}
	}
	h.logger.Debug("located labview", "version", version, "bitness", bitness, "dir", dir)
	return lib.Installation{Dir: dir, Executable: executableIn(dir)}, nil
}

// ListenerVIPath returns the launcher VI shipped next to this binary unless overridden.
func (h *Local) ListenerVIPath(context.Context) (string, error) {
	if h.listenerVI != "" {
		return filepath.Abs(h.listenerVI)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate listener VI: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("locate listener VI: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), "lv_listener", "Listener", "Listener Launcher", "Splash Screen.vi"), nil
}
