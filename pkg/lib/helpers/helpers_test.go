package helpers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ni/labview-automation/pkg/lib"
)

var windowsCandidates = []string{
	`C:\Program Files (x86)\National Instruments\LabVIEW 2019`,
	`C:\Program Files (x86)\National Instruments\LabVIEW 2020`,
	`C:\Program Files\National Instruments\LabVIEW 2020`,
	`C:\Program Files\National Instruments\LabVIEW 2021`,
}

func TestSelectInstallation(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		version    string
		bitness    string
		os64       bool
		expected   string
	}{
		{
			name:       "x86 on 64-bit OS prefers program files (x86)",
			candidates: windowsCandidates,
			version:    "2020",
			bitness:    "x86",
			os64:       true,
			expected:   windowsCandidates[1],
		},
		{
			name:       "x64 excludes program files (x86)",
			candidates: windowsCandidates,
			version:    "2020",
			bitness:    "x64",
			os64:       true,
			expected:   windowsCandidates[2],
		},
		{
			name:       "no bitness takes the first version match",
			candidates: windowsCandidates,
			version:    "2020",
			os64:       true,
			expected:   windowsCandidates[1],
		},
		{
			name:       "version match is case-insensitive",
			candidates: []string{`C:\Program Files\NI\LabVIEW 2021 SP1`},
			version:    "2021 sp1",
			bitness:    "X64",
			os64:       true,
			expected:   `C:\Program Files\NI\LabVIEW 2021 SP1`,
		},
		{
			name:       "x86 on 32-bit OS accepts any location",
			candidates: []string{`C:\Program Files\National Instruments\LabVIEW 2018`},
			version:    "2018",
			bitness:    "x86",
			os64:       false,
			expected:   `C:\Program Files\National Instruments\LabVIEW 2018`,
		},
		{
			name:       "linux x64 install",
			candidates: []string{"/usr/local/natinst/LabVIEW-2020", "/usr/local/natinst/LabVIEW-2020-64"},
			version:    "2020",
			bitness:    "x64",
			os64:       true,
			expected:   "/usr/local/natinst/LabVIEW-2020-64",
		},
		{
			name:       "linux x86 install",
			candidates: []string{"/usr/local/natinst/LabVIEW-2020-64", "/usr/local/natinst/LabVIEW-2020"},
			version:    "2020",
			bitness:    "x86",
			os64:       true,
			expected:   "/usr/local/natinst/LabVIEW-2020",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, err := SelectInstallation(tt.candidates, tt.version, tt.bitness, tt.os64)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, dir)
		})
	}
}

func TestSelectInstallation_NotFound(t *testing.T) {
	_, err := SelectInstallation(windowsCandidates, "2009", "", true)
	assert.ErrorIs(t, err, lib.ErrNotInstalled)

	_, err = SelectInstallation(nil, "2020", "x64", true)
	assert.ErrorIs(t, err, lib.ErrNotInstalled)
}

func TestSelectInstallation_X64On32BitOS(t *testing.T) {
	_, err := SelectInstallation(windowsCandidates, "2020", "x64", false)
	var cfgErr *lib.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "bitness", cfgErr.Field)
}

func TestValidateBitness(t *testing.T) {
	for _, ok := range []string{"", "x86", "x64", "X64"} {
		_, err := ValidateBitness(ok)
		assert.NoError(t, err, ok)
	}
	_, err := ValidateBitness("arm64")
	var cfgErr *lib.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}
