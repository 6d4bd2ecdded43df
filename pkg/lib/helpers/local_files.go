package helpers

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/ni/labview-automation/pkg/lib"
)

var iniFormatOnce sync.Once

// CreateTempINI writes sections to a new .ini file and returns its path.
// Values are written verbatim; quoting is the caller's concern.
func (h *Local) CreateTempINI(_ context.Context, sections []lib.INISection) (string, error) {
	// LabVIEW reads key=value without padding around the equals sign.
	iniFormatOnce.Do(func() { ini.PrettyFormat = false })

	// Semicolons are part of values such as viSearchPath, not comments.
	file := ini.Empty(ini.LoadOptions{IgnoreInlineComment: true})
	for _, s := range sections {
		section, err := file.NewSection(s.Name)
		if err != nil {
			return "", &lib.ConfigurationError{Field: "ini section", Reason: err.Error()}
		}
		for _, e := range s.Entries {
			if _, err := section.NewKey(e.Key, e.Value); err != nil {
				return "", &lib.ConfigurationError{Field: "ini token " + e.Key, Reason: err.Error()}
			}
		}
	}

	f, err := os.CreateTemp(h.tempDir, "labview-*.ini")
	if err != nil {
		return "", fmt.Errorf("create ini: %w", err)
	}
	if _, err := file.WriteTo(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write ini: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write ini: %w", err)
	}
	h.logger.Debug("wrote ini", "path", f.Name(), "sections", len(sections))
	return f.Name(), nil
}

// CopyTree copies the directory src into dst, merging with what dst already holds.
func (h *Local) CopyTree(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("copy tree: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("copy tree: %s is not a directory", src)
	}

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			h.logger.Debug("skipping non-regular file", "path", path)
			return nil
		}
	})
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// MakeWritable adds owner write permission to path and, for a directory, to everything below it.
func (h *Local) MakeWritable(ctx context.Context, path string) error {
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mode := info.Mode().Perm()
		if mode&0o200 != 0 {
			return nil
		}
		return os.Chmod(p, mode|0o200)
	})
	if err != nil {
		return fmt.Errorf("make writable %s: %w", path, err)
	}
	return nil
}
