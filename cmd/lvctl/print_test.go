package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ni/labview-automation/pkg/lib/wire"
)

func TestPrintDocumentKeepsWireOrder(t *testing.T) {
	var buf bytes.Buffer
	doc := wire.Document{
		{Key: "Zeta", Value: int32(1)},
		{Key: "Alpha", Value: bson.A{"a", "b"}},
		{Key: "Cluster", Value: bson.D{{Key: "gain", Value: 2.5}}},
	}

	require.NoError(t, printDocument(&buf, doc))
	assert.Equal(t, "Zeta: 1\nAlpha:\n  - a\n  - b\nCluster:\n  gain: 2.5\n", buf.String())
}

func TestPrintDocumentEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printDocument(&buf, nil))
	assert.Equal(t, "{}\n", buf.String())
}

func TestPrintStatusTable(t *testing.T) {
	var buf bytes.Buffer
	printStatusTable(&buf, statusRow{Host: "localhost", PID: 4242, State: "Running", Memory: 512 << 20, Executable: "/usr/local/natinst/LabVIEW-2020-64/labview64"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, lines[0], lines[2])
	assert.Equal(t, lines[0], lines[4])
	assert.Contains(t, lines[1], "| HOST      | PID  | STATE   | MEMORY    |")
	assert.Contains(t, lines[3], "| localhost | 4242 | Running | 512.0 MiB |")
	for _, line := range lines {
		assert.Len(t, line, len(lines[0]))
	}
}

func TestPrintStatusTableNotRunning(t *testing.T) {
	var buf bytes.Buffer
	printStatusTable(&buf, statusRow{Host: "localhost", State: "NotStarted"})
	assert.Contains(t, buf.String(), "| localhost | -   | NotStarted | -      |")
}
