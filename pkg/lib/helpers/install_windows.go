//go:build windows

package helpers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/ni/labview-automation/pkg/lib"
)

var installRoots = []string{
	`SOFTWARE\Wow6432Node\National Instruments\LabVIEW`,
	`SOFTWARE\National Instruments\LabVIEW`,
}

func executableIn(dir string) string {
	return filepath.Join(dir, "LabVIEW.exe")
}

// systemInstallations reads install paths from the 64-bit registry view, so a
// 32-bit build of this tool still sees 64-bit LabVIEW.
type systemInstallations struct{}

func (systemInstallations) Installed(context.Context) ([]string, error) {
	var dirs []string
	for _, root := range installRoots {
		key, err := registry.OpenKey(registry.LOCAL_MACHINE, root, registry.ENUMERATE_SUB_KEYS|registry.WOW64_64KEY)
		if errors.Is(err, registry.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", root, err)
		}
		versions, err := key.ReadSubKeyNames(-1)
		key.Close()
		if err != nil {
			return nil, fmt.Errorf("enumerate %s: %w", root, err)
		}
		for _, version := range versions {
			// Only version subkeys like "20.0" carry an install PATH.
			if !strings.Contains(version, ".") {
				continue
			}
			dir, err := readPath(root + `\` + version)
			if errors.Is(err, registry.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

func (systemInstallations) Active(context.Context) (string, error) {
	dir, err := readPath(`SOFTWARE\National Instruments\LabVIEW\CurrentVersion`)
	if errors.Is(err, registry.ErrNotExist) {
		dir, err = readPath(`SOFTWARE\Wow6432Node\National Instruments\LabVIEW\CurrentVersion`)
	}
	if errors.Is(err, registry.ErrNotExist) {
		return "", fmt.Errorf("active version: %w", lib.ErrNotInstalled)
	}
	return dir, err
}

func readPath(path string) (string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return "", err
	}
	defer key.Close()
	dir, _, err := key.GetStringValue("PATH")
	if err != nil {
		return "", err
	}
	return dir, nil
}
