//go:build !windows

package helpers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ni/labview-automation/pkg/lib"
)

const installGlob = "/usr/local/natinst/LabVIEW-*"

func executableIn(dir string) string {
	if strings.HasSuffix(dir, "-64") {
		return filepath.Join(dir, "labview64")
	}
	return filepath.Join(dir, "labview")
}

// systemInstallations scans the NI install prefix; the newest version is the active one.
type systemInstallations struct{}

func (systemInstallations) Installed(context.Context) ([]string, error) {
	dirs, err := filepath.Glob(installGlob)
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}

func (s systemInstallations) Active(ctx context.Context) (string, error) {
	dirs, err := s.Installed(ctx)
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("no match for %s: %w", installGlob, lib.ErrNotInstalled)
	}
	return dirs[len(dirs)-1], nil
}
