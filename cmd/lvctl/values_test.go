package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseControls(t *testing.T) {
	values, err := parseControls([]string{
		"Numeric=3",
		"Enabled=true",
		"Name=hello world",
		"Path=C:\\data\\in.csv",
		"Array=[1, 2, 3]",
		"Cluster={gain: 1.5, label: x}",
		"Empty=",
		"Quoted='42'",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, values["Numeric"])
	assert.Equal(t, true, values["Enabled"])
	assert.Equal(t, "hello world", values["Name"])
	assert.Equal(t, `C:\data\in.csv`, values["Path"])
	assert.Equal(t, []any{1, 2, 3}, values["Array"])
	assert.Equal(t, map[string]any{"gain": 1.5, "label": "x"}, values["Cluster"])
	assert.Equal(t, "", values["Empty"])
	assert.Equal(t, "42", values["Quoted"])
}

func TestParseControlsRejectsMalformedPairs(t *testing.T) {
	for _, pair := range []string{"no-equals", "=3", "Bad=[1, 2"} {
		_, err := parseControls([]string{pair})
		assert.Error(t, err, pair)
	}
}
