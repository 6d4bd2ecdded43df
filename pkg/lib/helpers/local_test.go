package helpers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/ni/labview-automation/pkg/lib"
)

type fakeInstalls struct {
	installed []string
	active    string
}

func (f fakeInstalls) Installed(context.Context) ([]string, error) { return f.installed, nil }

func (f fakeInstalls) Active(context.Context) (string, error) {
	if f.active == "" {
		return "", lib.ErrNotInstalled
	}
	return f.active, nil
}

func TestLocal_LocateInstallation(t *testing.T) {
	h := NewLocal(
		WithInstallations(fakeInstalls{installed: windowsCandidates, active: windowsCandidates[3]}),
		WithOS64(true),
	)
	ctx := context.Background()

	inst, err := h.LocateInstallation(ctx, "", "x86")
	require.NoError(t, err)
	assert.Equal(t, windowsCandidates[3], inst.Dir)
	assert.Equal(t, executableIn(windowsCandidates[3]), inst.Executable)

	inst, err = h.LocateInstallation(ctx, "2020", "x64")
	require.NoError(t, err)
	assert.Equal(t, windowsCandidates[2], inst.Dir)

	_, err = h.LocateInstallation(ctx, "1999", "")
	assert.ErrorIs(t, err, lib.ErrNotInstalled)
}

func TestLocal_LocateInstallation_NoActive(t *testing.T) {
	h := NewLocal(WithInstallations(fakeInstalls{}))
	_, err := h.LocateInstallation(context.Background(), "", "")
	assert.ErrorIs(t, err, lib.ErrNotInstalled)
}

func TestLocal_ListenerVIPathOverride(t *testing.T) {
	dir := t.TempDir()
	h := NewLocal(WithListenerVI(filepath.Join(dir, "Splash Screen.vi")))
	path, err := h.ListenerVIPath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Splash Screen.vi"), path)
}

func TestLocal_CreateTempINI(t *testing.T) {
	dir := t.TempDir()
	h := NewLocal(WithTempDir(dir))

	path, err := h.CreateTempINI(context.Background(), []lib.INISection{{
		Name: "LabVIEW",
		Entries: []lib.INIEntry{
			{Key: "IsFirstLaunch", Value: "False"},
			{Key: "viSearchPath", Value: `"C:\vis;<topvi>:\*"`},
			{Key: "prefDlgTestData", Value: "1234"},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".ini", filepath.Ext(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[LabVIEW]")
	assert.Contains(t, string(raw), "IsFirstLaunch=False")

	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true, PreserveSurroundedQuote: true}, path)
	require.NoError(t, err)
	section := file.Section("LabVIEW")
	assert.Equal(t, "False", section.Key("IsFirstLaunch").String())
	assert.Equal(t, `"C:\vis;<topvi>:\*"`, section.Key("viSearchPath").String())
	assert.Equal(t, "1234", section.Key("prefDlgTestData").String())
}

func TestLocal_CreateTempINI_RejectsEmptyKey(t *testing.T) {
	h := NewLocal(WithTempDir(t.TempDir()))
	_, err := h.CreateTempINI(context.Background(), []lib.INISection{{
		Name:    "LabVIEW",
		Entries: []lib.INIEntry{{Key: "", Value: "x"}},
	}})
	var cfgErr *lib.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr), "got %v", err)
}

func TestLocal_CopyTreeAndMakeWritable(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub", "deeper"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.vi"), []byte("top"), 0o444))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "deeper", "leaf.vi"), []byte("leaf"), 0o444))

	dst := filepath.Join(t.TempDir(), "vi.lib", "addon")
	h := NewLocal()
	ctx := context.Background()

	require.NoError(t, h.CopyTree(ctx, src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "sub", "deeper", "leaf.vi"))
	require.NoError(t, err)
	assert.Equal(t, "leaf", string(data))

	info, err := os.Stat(filepath.Join(dst, "top.vi"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o200)

	require.NoError(t, h.MakeWritable(ctx, dst))

	for _, rel := range []string{"top.vi", filepath.Join("sub", "deeper", "leaf.vi")} {
		info, err := os.Stat(filepath.Join(dst, rel))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0o200, rel)
	}
}

func TestLocal_CopyTreeMissingSource(t *testing.T) {
	h := NewLocal()
	err := h.CopyTree(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocal_StartProcessRequiresExecutable(t *testing.T) {
	h := NewLocal()
	_, err := h.StartProcess(context.Background(), nil)
	var cfgErr *lib.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestLocal_IdentityGuard(t *testing.T) {
	self, err := os.Executable()
	require.NoError(t, err)
	self, err = filepath.EvalSymlinks(self)
	require.NoError(t, err)

	h := NewLocal()
	ctx := context.Background()

	running, err := h.IsProcessRunning(ctx, os.Getpid(), self)
	require.NoError(t, err)
	assert.True(t, running)

	running, err = h.IsProcessRunning(ctx, os.Getpid(), filepath.Join(filepath.Dir(self), "LabVIEW.exe"))
	require.NoError(t, err)
	assert.False(t, running)

	running, err = h.IsProcessRunning(ctx, 0, self)
	require.NoError(t, err)
	assert.False(t, running)

	mem, err := h.MemoryOf(ctx, os.Getpid(), self)
	require.NoError(t, err)
	assert.NotZero(t, mem)

	mem, err = h.MemoryOf(ctx, os.Getpid(), "/not/this/binary")
	require.NoError(t, err)
	assert.Zero(t, mem)

	// Mismatched executable: kill is a no-op.
	require.NoError(t, h.KillProcess(ctx, os.Getpid(), "/not/this/binary", 0))
}

func TestLocal_OutputUnknownPID(t *testing.T) {
	h := NewLocal()
	_, _, err := h.Output(context.Background(), 1)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHostIs64BitReadsKernelArch(t *testing.T) {
	_, err := hostIs64Bit(context.Background())
	require.NoError(t, err)
}
