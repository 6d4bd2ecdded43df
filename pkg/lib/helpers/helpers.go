// Package helpers provides the host-side capabilities the LabVIEW lifecycle
// controller relies on: installation lookup, INI generation, process control
// and file copies. Local runs them on this machine; Remote forwards them to an
// lvhelperd daemon.
package helpers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ni/labview-automation/pkg/lib"
)

// Bitness values accepted by LocateInstallation. Empty means either.
const (
	BitnessX86 = "x86"
	BitnessX64 = "x64"
)

// SystemHelpers is everything the controller needs from the machine LabVIEW runs on.
// Every method that takes a pid and path acts only when the pid is running path.
type SystemHelpers interface {
	LocateInstallation(ctx context.Context, version, bitness string) (lib.Installation, error)
	ListenerVIPath(ctx context.Context) (string, error)
	CreateTempINI(ctx context.Context, sections []lib.INISection) (string, error)
	StartProcess(ctx context.Context, args []string) (int, error)
	FindProcessByExecutable(ctx context.Context, path string) (int, bool, error)
	IsProcessRunning(ctx context.Context, pid int, path string) (bool, error)
	// KillProcess waits up to timeout for the process to exit; timeout <= 0 waits
	// until ctx is done. A process that outlives the wait yields lib.ErrKillTimeout.
	KillProcess(ctx context.Context, pid int, path string, timeout time.Duration) error
	MemoryOf(ctx context.Context, pid int, path string) (uint64, error)
	CopyTree(ctx context.Context, src, dst string) error
	MakeWritable(ctx context.Context, path string) error
}

// OutputSource is implemented by helpers that capture the output of the processes they start.
// Both channels replay from the first byte and close once the process exits or ctx is done.
type OutputSource interface {
	Output(ctx context.Context, pid int) (stdout, stderr <-chan []byte, err error)
}

// ValidateBitness rejects anything but "", "x86" and "x64" (case-insensitive).
func ValidateBitness(bitness string) (string, error) {
	switch b := strings.ToLower(bitness); b {
	case "", BitnessX86, BitnessX64:
		return b, nil
	default:
		return "", &lib.ConfigurationError{
			Field:  "bitness",
			Reason: fmt.Sprintf("must be one of %q, %q or empty, got %q", BitnessX86, BitnessX64, bitness),
		}
	}
}

// SelectInstallation picks the first candidate directory whose path contains
// version (case-insensitive) and matches bitness. On a 64-bit OS an x86
// request only considers 32-bit install locations; an x64 request never does.
func SelectInstallation(candidates []string, version, bitness string, os64 bool) (string, error) {
	bitness, err := ValidateBitness(bitness)
	if err != nil {
		return "", err
	}
	if bitness == BitnessX64 && !os64 {
		return "", &lib.ConfigurationError{Field: "bitness", Reason: "x64 requested on a 32-bit OS"}
	}

	version = strings.ToLower(version)
	for _, candidate := range candidates {
		x86 := isX86Dir(candidate)
		if os64 && bitness == BitnessX86 && !x86 {
			continue
		}
		if bitness == BitnessX64 && x86 {
			continue
		}
		if strings.Contains(strings.ToLower(candidate), version) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("version %q bitness %q: %w", version, bitness, lib.ErrNotInstalled)
}

// isX86Dir recognizes 32-bit install locations: "Program Files (x86)" on
// Windows, and LabVIEW-<year> without the -64 suffix under /usr/local/natinst.
func isX86Dir(dir string) bool {
	lower := strings.ToLower(strings.ReplaceAll(dir, `\`, "/"))
	if strings.Contains(lower, "program files (x86)") {
		return true
	}
	base := strings.TrimSuffix(lower, "/")
	base = base[strings.LastIndex(base, "/")+1:]
	return strings.HasPrefix(base, "labview-") && !strings.HasSuffix(base, "-64")
}
